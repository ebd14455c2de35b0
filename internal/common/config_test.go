package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 25, cfg.Upload.MaxSizeMB)
	assert.Equal(t, "pdfchat", cfg.Queue.QueueName)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoadFromFilesOverridesInOrder(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(`
[server]
port = 9000
host = "0.0.0.0"

[upload]
max_size_mb = 10
`), 0644))

	local := filepath.Join(dir, "local.toml")
	require.NoError(t, os.WriteFile(local, []byte(`
[server]
port = 9001
`), 0644))

	cfg, err := LoadFromFiles(base, local)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port, "later files win")
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "earlier values survive when not overridden")
	assert.Equal(t, 10, cfg.Upload.MaxSizeMB)
}

func TestLoadFromFilesEnvOverrides(t *testing.T) {
	t.Setenv("PDFCHAT_SERVER_PORT", "9100")
	t.Setenv("PDFCHAT_LLM_PROVIDER", "claude")
	t.Setenv("PDFCHAT_LLM_API_KEY", "key-from-env")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.Equal(t, "key-from-env", cfg.LLM.APIKey)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	q := &QueueConfig{PollInterval: "250ms", VisibilityTimeout: "2m"}
	assert.Equal(t, 250*time.Millisecond, q.PollIntervalDuration())
	assert.Equal(t, 2*time.Minute, q.VisibilityTimeoutDuration())

	// Garbage falls back to defaults, sub-floor intervals are clamped
	q = &QueueConfig{PollInterval: "1ms", VisibilityTimeout: "soon"}
	assert.Equal(t, 500*time.Millisecond, q.PollIntervalDuration())
	assert.Equal(t, 5*time.Minute, q.VisibilityTimeoutDuration())

	a := &AuthConfig{SessionTTL: "48h"}
	assert.Equal(t, 48*time.Hour, a.SessionTTLDuration())

	a = &AuthConfig{SessionTTL: ""}
	assert.Equal(t, 24*time.Hour, a.SessionTTLDuration())
}
