package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rzbill/hyperkv/pkg/hyperkv"
)

func newExampleCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Create two stores, authorize the second, replicate and print both",
		Long: "Recreates <data-dir>/example/db1 and db2. db2 joins db1's dataset and is " +
			"authorized by its local key; both write two keys and replicate in-process.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := env.Options()
			if err != nil {
				return err
			}
			return RunExample(cmd.Context(), cmd.OutOrStdout(), filepath.Join(env.Dir(), "example"), opts)
		},
	}
}

// RunExample runs the two-writer walkthrough in dir, which is emptied first.
func RunExample(ctx context.Context, w io.Writer, dir string, opts hyperkv.Options) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	db1, err := hyperkv.Create(ctx, filepath.Join(dir, "db1"), opts)
	if err != nil {
		return err
	}
	defer func() { _ = db1.Close() }()
	for _, k := range []string{"example/first", "example/second"} {
		if _, err := db1.Put(ctx, k, []byte("db1 was here")); err != nil {
			return err
		}
	}

	db2, err := hyperkv.OpenRemote(ctx, filepath.Join(dir, "db2"), db1.SourceKey(), opts)
	if err != nil {
		return err
	}
	defer func() { _ = db2.Close() }()
	for _, k := range []string{"example/third", "example/fourth"} {
		if _, err := db2.Put(ctx, k, []byte("db2 was here")); err != nil {
			return err
		}
	}

	// db2's local key, not its source key.
	if err := db1.Authorize(ctx, db2.LocalKey()); err != nil {
		return err
	}
	if err := hyperkv.Pipe(ctx, db1.Replicate(ctx), db2.Replicate(ctx)); err != nil {
		return fmt.Errorf("replicate: %w", err)
	}

	if err := PrintFeeds(ctx, w, db1, "1", nil); err != nil {
		return err
	}
	return PrintFeeds(ctx, w, db2, "2", nil)
}
