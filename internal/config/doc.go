// Package config provides loading and environment overlay for hyperkv
// configuration. It exposes a Default() baseline that file (JSON or YAML) and
// HYPERKV_* environment values are layered onto.
//
// Example:
//
//	cfg, err := config.Load("/etc/hyperkv.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	store, err := hyperkv.Open(ctx, dir, hyperkv.OptionsFromConfig(cfg))
package config
