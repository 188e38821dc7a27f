package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/hyperkv/internal/cmd/client"
	serverrun "github.com/rzbill/hyperkv/internal/cmd/server"
	logpkg "github.com/rzbill/hyperkv/pkg/log"
)

func main() {
	// Respect HYPERKV_LOG_LEVEL for CLI output until a command loads its config.
	level := os.Getenv("HYPERKV_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	env := &clientcmd.Env{}
	rootCmd := clientcmd.NewRoot(env)
	rootCmd.Long = "hyperkv is a multi-writer key-value store built from signed append-only feeds."
	rootCmd.SilenceUsage = true

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve replication over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listen, _ := cmd.Flags().GetString("listen")
			metricsAddr, _ := cmd.Flags().GetString("metrics")
			create, _ := cmd.Flags().GetBool("create")

			cfg, err := env.Config()
			if err != nil {
				return err
			}
			opts, err := env.Options()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.Listen
			}
			if metricsAddr == "" && cfg.Metrics.Enabled {
				metricsAddr = cfg.Metrics.Addr
			}
			if err := serverrun.Run(cmd.Context(), serverrun.Options{
				Dir:         env.Dir(),
				Listen:      listen,
				MetricsAddr: metricsAddr,
				Create:      create,
				Store:       opts,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serveCmd.Flags().String("listen", "", "gRPC listen address (default from config, :7464)")
	serveCmd.Flags().String("metrics", "", "Prometheus /metrics listen address (default: config metrics.addr when enabled)")
	serveCmd.Flags().Bool("create", false, "Create a new dataset when the data directory holds none")
	rootCmd.AddCommand(serveCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
