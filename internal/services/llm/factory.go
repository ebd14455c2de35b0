package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/interfaces"
)

// NewLLMService creates the appropriate LLM service implementation based on
// configuration. Supported providers are "gemini" and "claude".
func NewLLMService(cfg *common.LLMConfig, logger arbor.ILogger) (interfaces.LLMService, error) {
	logger.Info().Str("provider", cfg.Provider).Msg("Initializing LLM service")

	switch cfg.Provider {
	case "gemini":
		return NewGeminiService(cfg, logger)
	case "claude":
		return NewClaudeService(cfg, logger)
	default:
		return nil, fmt.Errorf("invalid LLM provider '%s': must be 'gemini' or 'claude'", cfg.Provider)
	}
}
