package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	// Data directory (SQLite database lives here)
	DataDir string `mapstructure:"data_dir"`

	// API server
	ListenAddr string `mapstructure:"listen_addr"`
	// Base URL the TUI's HTTP client talks to
	APIBaseURL string `mapstructure:"api_base_url"`

	// External calendar refresh
	SyncIntervalMinutes int  `mapstructure:"sync_interval_minutes"`
	SyncOnStartup       bool `mapstructure:"sync_on_startup"`

	// Availability work window, minutes since midnight
	WorkdayStartMinutes int `mapstructure:"workday_start_minutes"`
	WorkdayEndMinutes   int `mapstructure:"workday_end_minutes"`

	// Grid defaults
	DefaultEventMinutes int `mapstructure:"default_event_minutes"`

	// Google OAuth app credentials (also via GOOGLE_CLIENT_ID /
	// GOOGLE_CLIENT_SECRET env vars)
	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`

	// Additional CalDAV accounts whose events join the external feed
	CalDAVAccounts []CalDAVAccount `mapstructure:"caldav_accounts"`
}

// CalDAVAccount holds basic-auth credentials for one CalDAV server.
type CalDAVAccount struct {
	Name      string `mapstructure:"name"`
	ServerURL string `mapstructure:"server_url"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// Load reads the config file, creating one with defaults on first run.
// An empty path means the standard location under the user config dir.
func Load(path string) (*Config, error) {
	v := viper.New()

	configDir := defaultConfigDir()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(configDir)
	}

	v.SetDefault("data_dir", configDir)
	v.SetDefault("listen_addr", "127.0.0.1:4000")
	v.SetDefault("api_base_url", "http://127.0.0.1:4000")
	v.SetDefault("sync_interval_minutes", 15)
	v.SetDefault("sync_on_startup", true)
	v.SetDefault("workday_start_minutes", 600) // 10:00
	v.SetDefault("workday_end_minutes", 1200)  // 20:00
	v.SetDefault("default_event_minutes", 30)

	v.BindEnv("google_client_id", "GOOGLE_CLIENT_ID")
	v.BindEnv("google_client_secret", "GOOGLE_CLIENT_SECRET")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// First run: write the defaults so the user has a file to edit
		if path == "" {
			if err := os.MkdirAll(configDir, 0755); err != nil {
				return nil, err
			}
			if err := v.WriteConfigAs(filepath.Join(configDir, "config.json")); err != nil {
				return nil, fmt.Errorf("failed to write default config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.WorkdayStartMinutes < 0 || c.WorkdayEndMinutes > 1440 ||
		c.WorkdayStartMinutes >= c.WorkdayEndMinutes {
		return fmt.Errorf("invalid work window %d..%d", c.WorkdayStartMinutes, c.WorkdayEndMinutes)
	}
	if c.SyncIntervalMinutes < 1 {
		return fmt.Errorf("sync_interval_minutes must be at least 1")
	}
	return nil
}

// DatabasePath returns the path to the SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "jarvis.db")
}

func defaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "jarvis")
}
