package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3001, cfg.HTTPPort)
	assert.Equal(t, 8000, cfg.MaxContextTokens)
	assert.Equal(t, 10, cfg.RecentMessagesToKeep)
	assert.Equal(t, 6, cfg.RoutingWindow)
	assert.Equal(t, 5, cfg.MaxAgentStep)
	assert.Equal(t, "user_1", cfg.DefaultUserID)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 9000\nmax_context_tokens: 4000\nrate_limit_driver: redis\ncors_origins: [\"https://shop.example\"]\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_CONTEXT_TOKENS", "6000")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "1000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 6000, cfg.MaxContextTokens)
	assert.Equal(t, "redis", cfg.RateLimitDriver)
	assert.Equal(t, []string{"https://shop.example"}, cfg.CORSOrigins)
	assert.Equal(t, time.Second, cfg.RateLimitWindow)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RATE_LIMIT_DRIVER", "memcached")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateCron(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	cfg.MaintenanceCron = "every five minutes"
	assert.Error(t, cfg.Validate())

	cfg.MaintenanceCron = ""
	assert.NoError(t, cfg.Validate())
}
