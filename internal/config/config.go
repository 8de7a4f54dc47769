// Package config loads prodhub client configuration.
//
// Settings are resolved in the usual precedence order: explicit flags,
// then PRODHUB_* environment variables, then the config file, then
// built-in defaults. The config file is YAML, by default at
// ~/.prodhub/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all client settings.
type Config struct {
	// APIBaseURL is the remote API root, e.g. "https://api.example.com".
	APIBaseURL string `mapstructure:"api_base_url" yaml:"api_base_url"`

	// APIToken is the bearer token sent on every request.
	APIToken string `mapstructure:"api_token" yaml:"api_token"`

	// UserID scopes local records to one account.
	UserID string `mapstructure:"user_id" yaml:"user_id"`

	// DBPath is the local SQLite database file.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// SyncInterval is the background sync timer period.
	SyncInterval time.Duration `mapstructure:"sync_interval" yaml:"sync_interval"`

	// ProbeInterval is how often connectivity is checked.
	ProbeInterval time.Duration `mapstructure:"probe_interval" yaml:"probe_interval"`

	// RetryCap bounds dispatch attempts per queued mutation.
	RetryCap int `mapstructure:"retry_cap" yaml:"retry_cap"`

	// DashboardAddr is the listen address for the local dashboard.
	// Empty disables the dashboard.
	DashboardAddr string `mapstructure:"dashboard_addr" yaml:"dashboard_addr"`

	// LogFile, when set, routes logs to a rotating file instead of stderr.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// DefaultDir returns the default config directory (~/.prodhub).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".prodhub"
	}
	return filepath.Join(home, ".prodhub")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load reads configuration from the given file (or the default location
// when path is empty), the environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Every key gets a default so AutomaticEnv can bind it during Unmarshal.
	v.SetDefault("api_base_url", "http://localhost:3000")
	v.SetDefault("api_token", "")
	v.SetDefault("user_id", "")
	v.SetDefault("db_path", filepath.Join(DefaultDir(), "prodhub.db"))
	v.SetDefault("sync_interval", "30s")
	v.SetDefault("probe_interval", "10s")
	v.SetDefault("retry_cap", 3)
	v.SetDefault("dashboard_addr", "")
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("PRODHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
		if err := v.ReadInConfig(); err != nil {
			// Missing default config is fine; anything else is not.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 30 * time.Second
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 10 * time.Second
	}
	if cfg.RetryCap <= 0 {
		cfg.RetryCap = 3
	}

	return cfg, nil
}

// Validate checks the settings a sync run requires.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	if c.UserID == "" {
		return fmt.Errorf("user_id is required (set it in the config file or PRODHUB_USER_ID)")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	return nil
}

// WriteStarter writes a commented starter config to path, creating parent
// directories as needed. It refuses to overwrite an existing file.
func WriteStarter(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	header := "# prodhub client configuration.\n" +
		"# Environment variables (PRODHUB_API_TOKEN etc.) override these values.\n"

	if err := os.WriteFile(path, append([]byte(header), body...), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
