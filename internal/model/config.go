package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// APIConfig points the client at the portal REST API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// NotificationsConfig controls the notification sync engine.
type NotificationsConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// SessionConfig controls the inactivity monitor.
type SessionConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// WarningTime is how long before IdleTimeout the warning fires.
	// Zero disables the warning.
	WarningTime time.Duration `mapstructure:"warning_time" yaml:"warning_time"`
}

// AccessConfig holds the inputs of the email-update gate.
type AccessConfig struct {
	InstitutionalDomain string `mapstructure:"institutional_domain" yaml:"institutional_domain"`
}

// CacheConfig locates the local snapshot cache.
type CacheConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`

	// File receives log output; the terminal is owned by the TUI.
	File string `mapstructure:"file" yaml:"file"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API           APIConfig           `mapstructure:"api" yaml:"api"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Session       SessionConfig       `mapstructure:"session" yaml:"session"`
	Access        AccessConfig        `mapstructure:"access" yaml:"access"`
	Cache         CacheConfig         `mapstructure:"cache" yaml:"cache"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Display       DisplayConfig       `mapstructure:"display" yaml:"display"`
}

const envPrefix = "PORTAL"

// configDir returns ~/.config/scholarship-portal, falling back to the
// working directory when the home directory is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "scholarship-portal")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/scholarship-portal/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 30 * time.Second,
		},
		Notifications: NotificationsConfig{
			PollInterval: 30 * time.Second,
		},
		Session: SessionConfig{
			Enabled:     true,
			IdleTimeout: 30 * time.Minute,
			WarningTime: time.Minute,
		},
		Access: AccessConfig{
			InstitutionalDomain: "@s.ubaguio.edu",
		},
		Cache: CacheConfig{
			Path: filepath.Join(configDir(), "cache.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(configDir(), "portal.log"),
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// newViper builds a Viper instance for path with every default and the
// PORTAL_ environment overrides registered.
func newViper(path string) *viper.Viper {
	d := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values and so
	// AutomaticEnv knows every key during Unmarshal.
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("notifications.poll_interval", d.Notifications.PollInterval)
	v.SetDefault("session.enabled", d.Session.Enabled)
	v.SetDefault("session.idle_timeout", d.Session.IdleTimeout)
	v.SetDefault("session.warning_time", d.Session.WarningTime)
	v.SetDefault("access.institutional_domain", d.Access.InstitutionalDomain)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("display.theme", d.Display.Theme)

	return v
}

// decodeConfig unmarshals the current Viper state and fills in defaults
// for values that decode to something unusable.
func decodeConfig(v *viper.Viper) (*AppConfig, error) {
	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	d := defaultAppConfig()
	if cfg.Notifications.PollInterval <= 0 {
		cfg.Notifications.PollInterval = d.Notifications.PollInterval
	}
	if cfg.Session.IdleTimeout <= 0 {
		cfg.Session.IdleTimeout = d.Session.IdleTimeout
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = d.API.Timeout
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	return cfg, nil
}

// isNotFound reports whether err means the config file is absent.
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var pathErr *os.PathError
	return errors.As(err, &pathErr)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults (plus PORTAL_* environment
// overrides) are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := decodeConfig(v)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// WatchConfig loads the configuration at path and re-reads it whenever the
// file changes on disk, passing each successfully parsed version to
// onChange. Parse failures are reported to onError and otherwise ignored so
// a half-written file never replaces a good configuration.
func WatchConfig(
	path string,
	onChange func(*AppConfig),
	onError func(error),
) (*AppConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := decodeConfig(v)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		updated, err := decodeConfig(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("parsing config %s: %w", e.Name, err))
			}
			return
		}
		onChange(updated)
	})
	v.WatchConfig()

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("notifications.poll_interval", cfg.Notifications.PollInterval.String())
	v.Set("session.enabled", cfg.Session.Enabled)
	v.Set("session.idle_timeout", cfg.Session.IdleTimeout.String())
	v.Set("session.warning_time", cfg.Session.WarningTime.String())
	v.Set("access.institutional_domain", cfg.Access.InstitutionalDomain)
	v.Set("cache.path", cfg.Cache.Path)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("display.theme", cfg.Display.Theme)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
