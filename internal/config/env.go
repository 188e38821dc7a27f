package config

import (
	"os"
	"strconv"
)

// FromEnv overlays HYPERKV_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("HYPERKV_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("HYPERKV_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("HYPERKV_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("HYPERKV_MAX_FRAME_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxFrameBytes = n
		}
	}
	if v := os.Getenv("HYPERKV_NODE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NodeCacheSize = n
		}
	}
	if v := os.Getenv("HYPERKV_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HYPERKV_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("HYPERKV_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("HYPERKV_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("HYPERKV_LISTEN"); v != "" {
		cfg.Listen = v
	}
}
