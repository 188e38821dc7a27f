package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// Fsync is one of always, interval, never.
	Fsync           string `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`

	// BatchSize caps the records carried by one replication data frame.
	BatchSize int `json:"batchSize" yaml:"batchSize"`
	// MaxFrameBytes rejects replication frames larger than this.
	MaxFrameBytes int `json:"maxFrameBytes" yaml:"maxFrameBytes"`
	// NodeCacheSize bounds the decoded entries a store keeps in memory.
	NodeCacheSize int `json:"nodeCacheSize" yaml:"nodeCacheSize"`

	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Listen is the replication gRPC address used by `hyperkv serve`.
	Listen string `json:"listen" yaml:"listen"`
}

// LogConfig selects level and output format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint of `hyperkv serve`.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Fsync:           "interval",
		FsyncIntervalMs: 5,
		BatchSize:       64,
		MaxFrameBytes:   8 << 20,
		NodeCacheSize:   4096,
		Log:             LogConfig{Level: "info", Format: "text"},
		Metrics:         MetricsConfig{Addr: ":9464"},
		Listen:          ":7464",
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the store cannot run with.
func (c Config) Validate() error {
	switch c.Fsync {
	case "always", "interval", "never", "":
	default:
		return fmt.Errorf("config: invalid fsync %q; use always|interval|never", c.Fsync)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batchSize must be positive, got %d", c.BatchSize)
	}
	if c.MaxFrameBytes < 1<<10 {
		return fmt.Errorf("config: maxFrameBytes must be at least 1024, got %d", c.MaxFrameBytes)
	}
	if c.NodeCacheSize < 0 {
		return fmt.Errorf("config: nodeCacheSize must not be negative, got %d", c.NodeCacheSize)
	}
	return nil
}
