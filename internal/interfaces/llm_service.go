package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService generates chat completions from an external model. Callers are
// responsible for retry policy; implementations classify failures via
// transient error wrapping so the caller can tell retryable from fatal.
type LLMService interface {
	// Chat generates a completion for the given messages. The messages slice
	// carries the fixed system instruction plus the single user message built
	// from document text - no prior turns are fed back.
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the provider is reachable and authenticated
	HealthCheck(ctx context.Context) error

	// Close releases client resources
	Close() error
}
