package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sync     SyncConfig     `yaml:"sync"`
	Source   SourceConfig   `yaml:"source"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures the daemon sync interval.
type ScheduleConfig struct {
	SyncInterval string `yaml:"sync_interval"`
}

// ParseSyncInterval returns the sync interval as time.Duration.
func (s ScheduleConfig) ParseSyncInterval() time.Duration {
	d, err := time.ParseDuration(s.SyncInterval)
	if err != nil {
		return time.Hour
	}
	return d
}

// SyncConfig configures reconciliation and ingestion.
type SyncConfig struct {
	MaxVideosPerChannel int `yaml:"max_videos_per_channel"`
	ErrorRetentionDays  int `yaml:"error_retention_days"`
}

// SourceConfig configures the upstream adapter.
type SourceConfig struct {
	APIKey       string `yaml:"api_key"`
	FeedFallback bool   `yaml:"feed_fallback"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./database/videos.db"},
		Schedule: ScheduleConfig{SyncInterval: "1h"},
		Sync: SyncConfig{
			MaxVideosPerChannel: 5,
			ErrorRetentionDays:  30,
		},
		Source: SourceConfig{FeedFallback: true},
	}
}

// Load reads configuration from a YAML file and applies env var
// overrides. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("YTDASH_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.Source.APIKey = v
	}
}
