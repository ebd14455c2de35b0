package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/pdfchat/internal/common"
)

// RetryConfig defines the retry budget and backoff shape applied by the LLM
// worker. Values come from configuration so deployments can tune them per
// provider quota.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget, first try included
	MaxAttempts int

	// InitialBackoff is the wait before the first retry
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to the backoff on each retry
	BackoffMultiplier float64
}

// Fallback retry values used when configuration is absent or invalid
const (
	defaultMaxAttempts       = 3
	defaultInitialBackoff    = 2 * time.Second
	defaultMaxBackoff        = 30 * time.Second
	defaultBackoffMultiplier = 2.0
)

// NewRetryConfig builds a RetryConfig from the LLM configuration, falling
// back to defaults for missing or unparseable values.
func NewRetryConfig(cfg *common.LLMConfig) *RetryConfig {
	rc := &RetryConfig{
		MaxAttempts:       cfg.MaxAttempts,
		InitialBackoff:    parseDurationOr(cfg.InitialBackoff, defaultInitialBackoff),
		MaxBackoff:        parseDurationOr(cfg.MaxBackoff, defaultMaxBackoff),
		BackoffMultiplier: cfg.BackoffMultiplier,
	}
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = defaultMaxAttempts
	}
	if rc.BackoffMultiplier < 1.0 {
		rc.BackoffMultiplier = defaultBackoffMultiplier
	}
	return rc
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// CalculateBackoff computes the wait before retry number attempt (0-based).
// If apiDelay is non-zero it was suggested by the provider and takes
// precedence over the configured initial backoff. The result is capped at
// MaxBackoff.
func (c *RetryConfig) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}
	return backoff
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
// that Gemini embeds in rate limit errors
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the provider-suggested retry delay from an error
// message. Returns 0 when no delay is present.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}
	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// isProviderTransient reports whether an error from a provider looks
// retryable: rate limits, overload, server errors and timeouts.
func isProviderTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429",
		"resource_exhausted",
		"quota",
		"rate limit",
		"overloaded",
		"500",
		"502",
		"503",
		"504",
		"timeout",
		"deadline exceeded",
		"connection refused",
		"connection reset",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
