package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Notifications.PollInterval)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, time.Minute, cfg.Session.WarningTime)
	assert.True(t, cfg.Session.Enabled)
	assert.Equal(t, "@s.ubaguio.edu", cfg.Access.InstitutionalDomain)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
api:
  base_url: https://portal.example.edu/
notifications:
  poll_interval: 10s
session:
  enabled: false
  idle_timeout: 5m
  warning_time: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://portal.example.edu", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Notifications.PollInterval)
	assert.False(t, cfg.Session.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Session.WarningTime)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("PORTAL_API_BASE_URL", "https://env.example.edu")
	t.Setenv("PORTAL_NOTIFICATIONS_POLL_INTERVAL", "45s")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.edu", cfg.API.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Notifications.PollInterval)
}

func TestLoadConfigRejectsNonPositiveIntervals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("notifications:\n  poll_interval: 0s\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Notifications.PollInterval)
}

func TestSaveConfigThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.API.BaseURL = "https://saved.example.edu"
	cfg.Session.IdleTimeout = 12 * time.Minute
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example.edu", loaded.API.BaseURL)
	assert.Equal(t, 12*time.Minute, loaded.Session.IdleTimeout)
}

func TestWatchConfigRequiresFile(t *testing.T) {
	_, err := WatchConfig(filepath.Join(t.TempDir(), "missing.yaml"), func(*AppConfig) {}, nil)
	require.Error(t, err)
}
