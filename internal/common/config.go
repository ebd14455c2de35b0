package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Queue       QueueConfig     `toml:"queue"`
	LLM         LLMConfig       `toml:"llm"`
	Auth        AuthConfig      `toml:"auth"`
	Upload      UploadConfig    `toml:"upload"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`      // e.g., "500ms" - how often workers poll for messages
	Concurrency       int    `toml:"concurrency"`        // Number of concurrent workers
	VisibilityTimeout string `toml:"visibility_timeout"` // e.g., "5m" - message visibility timeout for redelivery
	MaxReceive        int    `toml:"max_receive"`        // Max times a message can be received before it is dropped
	QueueName         string `toml:"queue_name"`         // Queue name prefix in Badger
}

// LLMConfig configures the external model used by the LLM worker.
// Retry and backoff parameters are injected here rather than hard-coded
// so deployments can tune them per provider quota.
type LLMConfig struct {
	Provider          string  `toml:"provider"`            // "gemini" or "claude"
	APIKey            string  `toml:"api_key"`             // Provider API key (env override available)
	Model             string  `toml:"model"`               // Chat model name
	Timeout           string  `toml:"timeout"`             // Per-attempt timeout, e.g. "60s"
	Temperature       float32 `toml:"temperature"`         // Sampling temperature
	MaxTokens         int     `toml:"max_tokens"`          // Response token cap (Claude only)
	MaxAttempts       int     `toml:"max_attempts"`        // Attempt budget before a turn is marked failed
	InitialBackoff    string  `toml:"initial_backoff"`     // Backoff before first retry, e.g. "2s"
	MaxBackoff        string  `toml:"max_backoff"`         // Backoff ceiling, e.g. "30s"
	BackoffMultiplier float64 `toml:"backoff_multiplier"`  // Applied to backoff on each retry
	RequestsPerMinute int     `toml:"requests_per_minute"` // Rate limit across all LLM jobs
}

type AuthConfig struct {
	SessionTTL string `toml:"session_ttl"` // e.g., "24h" - bearer token lifetime
	BcryptCost int    `toml:"bcrypt_cost"` // Password hashing cost
}

type UploadConfig struct {
	MaxSizeMB int `toml:"max_size_mb"` // Reject uploads larger than this
}

type SchedulerConfig struct {
	Enabled         bool   `toml:"enabled"`
	GCSchedule      string `toml:"gc_schedule"`      // Cron schedule for badger value-log GC
	SessionSchedule string `toml:"session_schedule"` // Cron schedule for expired-session cleanup
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// NewDefaultConfig returns a config populated with defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/pdfchat",
				ResetOnStartup: false,
			},
		},
		Queue: QueueConfig{
			PollInterval:      "500ms",
			Concurrency:       4,
			VisibilityTimeout: "5m",
			MaxReceive:        5,
			QueueName:         "pdfchat",
		},
		LLM: LLMConfig{
			Provider:          "gemini",
			APIKey:            "", // User must provide API key (no fallback)
			Model:             "", // Provider default applied by the service
			Timeout:           "60s",
			Temperature:       0.7,
			MaxTokens:         4096,
			MaxAttempts:       3,
			InitialBackoff:    "2s",
			MaxBackoff:        "30s",
			BackoffMultiplier: 2.0,
			RequestsPerMinute: 15, // Free-tier friendly default
		},
		Auth: AuthConfig{
			SessionTTL: "24h",
			BcryptCost: 12,
		},
		Upload: UploadConfig{
			MaxSizeMB: 25,
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			GCSchedule:      "@every 10m",
			SessionSchedule: "@every 1h",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PDFCHAT_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("PDFCHAT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PDFCHAT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("PDFCHAT_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if pollInterval := os.Getenv("PDFCHAT_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}
	if concurrency := os.Getenv("PDFCHAT_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}

	if provider := os.Getenv("PDFCHAT_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if apiKey := os.Getenv("PDFCHAT_LLM_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" && config.LLM.APIKey == "" {
		config.LLM.APIKey = apiKey
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && config.LLM.APIKey == "" {
		config.LLM.APIKey = apiKey
	}
	if model := os.Getenv("PDFCHAT_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}

	if level := os.Getenv("PDFCHAT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// PollIntervalDuration returns the parsed queue poll interval with a sane floor
func (q *QueueConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(q.PollInterval)
	if err != nil || d < 50*time.Millisecond {
		return 500 * time.Millisecond
	}
	return d
}

// VisibilityTimeoutDuration returns the parsed message visibility timeout
func (q *QueueConfig) VisibilityTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(q.VisibilityTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// SessionTTLDuration returns the parsed session lifetime
func (a *AuthConfig) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(a.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}
