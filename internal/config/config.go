// Package config loads pocketbook configuration from the data
// directory via viper, with environment variable overrides
// (POCKETBOOK_SERVER_URL etc.) and a YAML config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all tunable settings.
type Config struct {
	// ServerURL is the remote store base URL. Empty means local-only
	// mode: every mutation stays queued.
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`

	// ProbeInterval is how often the daemon checks connectivity.
	ProbeInterval time.Duration `mapstructure:"probe_interval" yaml:"probe_interval"`

	// TickInterval is the daemon's periodic drain timer.
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`

	// DashboardPort is the WebSocket dashboard listen port. Zero
	// disables the dashboard.
	DashboardPort int `mapstructure:"dashboard_port" yaml:"dashboard_port"`

	// LogFile is where the daemon writes rotated logs. Empty means
	// stderr only.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		ProbeInterval: 30 * time.Second,
		TickInterval:  5 * time.Minute,
		DashboardPort: 8319,
	}
}

// Load reads config.yaml from dataDir, applying defaults and
// POCKETBOOK_* environment overrides. A missing config file is fine.
func Load(dataDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)

	def := Defaults()
	v.SetDefault("server_url", def.ServerURL)
	v.SetDefault("probe_interval", def.ProbeInterval)
	v.SetDefault("tick_interval", def.TickInterval)
	v.SetDefault("dashboard_port", def.DashboardPort)
	v.SetDefault("log_file", def.LogFile)

	v.SetEnvPrefix("POCKETBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// WriteDefault renders the default config file into dataDir. It
// refuses to overwrite an existing file.
func WriteDefault(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return "", fmt.Errorf("failed to render default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
