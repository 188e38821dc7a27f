package client

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rzbill/hyperkv/internal/config"
	"github.com/rzbill/hyperkv/pkg/hyperkv"
	"github.com/rzbill/hyperkv/pkg/log"
)

// Env holds the persistent flags shared by every command.
type Env struct {
	ConfigPath string
	DataDir    string
	LogLevel   string
}

// Bind registers the persistent flags on root.
func (e *Env) Bind(root *cobra.Command) {
	f := root.PersistentFlags()
	f.StringVar(&e.ConfigPath, "config", "", "Config file (.json, .yaml or .yml)")
	f.StringVar(&e.DataDir, "data-dir", "", "Store directory (default: $HYPERKV_DATA_DIR, else the OS application data directory)")
	f.StringVar(&e.LogLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
}

// Config loads the config file, applies HYPERKV_* overrides and the
// --log-level flag.
func (e *Env) Config() (config.Config, error) {
	cfg, err := config.Load(e.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	config.FromEnv(&cfg)
	if e.LogLevel != "" {
		cfg.Log.Level = e.LogLevel
	}
	return cfg, cfg.Validate()
}

// Options builds store options from Config.
func (e *Env) Options() (hyperkv.Options, error) {
	cfg, err := e.Config()
	if err != nil {
		return hyperkv.Options{}, err
	}
	opts, err := hyperkv.OptionsFromConfig(cfg)
	if err != nil {
		return hyperkv.Options{}, err
	}
	log.RedirectStdLog(opts.Logger)
	return opts, nil
}

// Dir returns the store directory: --data-dir, else $HYPERKV_DATA_DIR,
// else the OS default.
func (e *Env) Dir() string {
	if e.DataDir != "" {
		return e.DataDir
	}
	return config.DefaultDataDir()
}

// withStore opens the store in Dir, runs fn and closes it.
func (e *Env) withStore(ctx context.Context, fn func(*hyperkv.Store) error) error {
	opts, err := e.Options()
	if err != nil {
		return err
	}
	s, err := hyperkv.Open(ctx, e.Dir(), opts)
	if err != nil {
		return fmt.Errorf("open %s: %w (run `hyperkv init` first)", e.Dir(), err)
	}
	defer func() { _ = s.Close() }()
	return fn(s)
}
