package hyperkv

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rzbill/hyperkv/internal/config"
	pebblestore "github.com/rzbill/hyperkv/internal/storage/pebble"
	"github.com/rzbill/hyperkv/pkg/log"
)

// Options configures a store.
type Options struct {
	Logger        log.Logger
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	// Registerer receives the store's Prometheus collectors. Nil disables
	// registration; the collectors still count.
	Registerer prometheus.Registerer
	// BatchSize caps records per replication data frame.
	BatchSize int
	// MaxFrameBytes caps inbound replication frames.
	MaxFrameBytes int
	// NodeCacheSize bounds the decoded entries kept in memory. Zero selects
	// DefaultNodeCacheSize.
	NodeCacheSize int
	// Metadata is stored in the header of a newly created local feed.
	Metadata []byte
}

// OptionsFromConfig maps a loaded Config onto Options. The logger is built
// from cfg.Log.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	fsync, err := pebblestore.ParseFsyncMode(cfg.Fsync)
	if err != nil {
		return Options{}, err
	}
	logger, err := log.ApplyConfig(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return Options{}, err
	}
	return Options{
		Logger:        logger,
		Fsync:         fsync,
		FsyncInterval: time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
		BatchSize:     cfg.BatchSize,
		MaxFrameBytes: cfg.MaxFrameBytes,
		NodeCacheSize: cfg.NodeCacheSize,
	}, nil
}
