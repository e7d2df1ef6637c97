// Package config loads daybook configuration from file, environment,
// and defaults, and supplies hot reload for the long-running daemon.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	DataDir      string `mapstructure:"data_dir"`
	LegacyDBPath string `mapstructure:"legacy_db_path"`

	Log  LogConfig  `mapstructure:"log"`
	Sync SyncConfig `mapstructure:"sync"`

	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Console    bool   `mapstructure:"console"`
}

// SyncConfig controls cloud replication.
type SyncConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	BaseURL         string `mapstructure:"base_url"`
	APIKey          string `mapstructure:"api_key"`
	OwnerID         string `mapstructure:"owner_id"`
	IntervalMinutes int    `mapstructure:"interval_minutes"`
	ProbeURL        string `mapstructure:"probe_url"`
}

// DashboardConfig controls the local WebSocket status server.
type DashboardConfig struct {
	Port int `mapstructure:"port"`
}

// DBPath returns the current store location under the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "daybook.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".daybook"
	}
	return filepath.Join(home, ".daybook")
}

func setDefaults(v *viper.Viper) {
	dataDir := defaultDataDir()
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("legacy_db_path", filepath.Join(dataDir, "legacy.db"))
	v.SetDefault("log.file", filepath.Join(dataDir, "daybook.log"))
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.console", false)
	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.interval_minutes", 5)
	v.SetDefault("dashboard.port", 8844)
}

// Load reads configuration. An explicit path must exist; with an empty
// path the default locations are searched and a missing file just means
// defaults plus environment.
//
// Environment variables override the file: DAYBOOK_SYNC_API_KEY,
// DAYBOOK_DATA_DIR, and so on.
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DAYBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultDataDir())
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, v, nil
}

// Watch re-decodes the file on every change and hands the result to
// onChange. Decode failures keep the previous configuration.
func Watch(v *viper.Viper, onChange func(Config)) {
	v.OnConfigChange(func(fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
