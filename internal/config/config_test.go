package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Fsync != "interval" {
		t.Fatalf("default fsync should be interval, got %q", cfg.Fsync)
	}
	if cfg.BatchSize != 64 {
		t.Fatalf("batch size default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "hyperkv.json")
	data := []byte(`{"fsync":"always","batchSize":16,"log":{"level":"debug"}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Fsync != "always" {
		t.Fatalf("expected always")
	}
	if cfg.BatchSize != 16 {
		t.Fatalf("expected 16")
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected debug")
	}
	if cfg.MaxFrameBytes != Default().MaxFrameBytes {
		t.Fatalf("unset fields keep defaults")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "hyperkv.yaml")
	data := []byte("fsync: never\nbatchSize: 8\nmetrics:\n  enabled: true\n  addr: 127.0.0.1:9000\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Fsync != "never" || cfg.BatchSize != 8 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "127.0.0.1:9000" {
		t.Fatalf("metrics not loaded: %+v", cfg.Metrics)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(file, []byte(`{"fsync":"sometimes"}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(file); err == nil {
		t.Fatalf("expected invalid fsync to fail")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("HYPERKV_FSYNC", "never")
	t.Setenv("HYPERKV_BATCH_SIZE", "24")
	t.Setenv("HYPERKV_LOG_LEVEL", "warn")
	t.Setenv("HYPERKV_METRICS_ENABLED", "true")
	t.Setenv("HYPERKV_NODE_CACHE_SIZE", "128")
	FromEnv(&cfg)
	if cfg.Fsync != "never" {
		t.Fatalf("env override fsync")
	}
	if cfg.BatchSize != 24 {
		t.Fatalf("env override batch size")
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("env override log level")
	}
	if !cfg.Metrics.Enabled {
		t.Fatalf("env override metrics")
	}
	if cfg.NodeCacheSize != 128 {
		t.Fatalf("env override node cache size")
	}
}
