package client

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/hyperkv/internal/filter"
	grpcserver "github.com/rzbill/hyperkv/internal/server/grpc"
	"github.com/rzbill/hyperkv/pkg/hyperkv"
)

// NewStoreCommands constructs the commands that work on the local store.
func NewStoreCommands(env *Env) []*cobra.Command {
	return []*cobra.Command{
		newInitCommand(env),
		newKeysCommand(env),
		newPutCommand(env),
		newGetCommand(env),
		newDelCommand(env),
		newAuthorizeCommand(env),
		newFeedsCommand(env),
		newSyncCommand(env),
		newExampleCommand(env),
	}
}

func newInitCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a dataset, or join one with --source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, _ := cmd.Flags().GetString("source")
			opts, err := env.Options()
			if err != nil {
				return err
			}
			var s *hyperkv.Store
			if src == "" {
				s, err = hyperkv.Create(cmd.Context(), env.Dir(), opts)
			} else {
				key, perr := hyperkv.ParseFeedKey(src)
				if perr != nil {
					return fmt.Errorf("invalid --source: %w", perr)
				}
				s, err = hyperkv.OpenRemote(cmd.Context(), env.Dir(), key, opts)
			}
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()
			printKeys(cmd, s)
			if src != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "ask an authorized writer to run: hyperkv authorize", s.LocalKey())
			}
			return nil
		},
	}
	cmd.Flags().String("source", "", "Source key (hex) of the dataset to join")
	return cmd
}

func printKeys(cmd *cobra.Command, s *hyperkv.Store) {
	fmt.Fprintln(cmd.OutOrStdout(), "dir:   ", s.Dir())
	fmt.Fprintln(cmd.OutOrStdout(), "source:", s.SourceKey())
	fmt.Fprintln(cmd.OutOrStdout(), "local: ", s.LocalKey())
}

func newKeysCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Print the store's source and local keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return env.withStore(cmd.Context(), func(s *hyperkv.Store) error {
				printKeys(cmd, s)
				ok, err := s.IsAuthorized(cmd.Context(), s.LocalKey())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "authorized:", ok)
				return nil
			})
		},
	}
}

func newPutCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "put KEY VALUE",
		Short: "Write a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withStore(cmd.Context(), func(s *hyperkv.Store) error {
				n, err := s.Put(cmd.Context(), args[0], []byte(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s@%d\n", n.Feed.Short(), n.Offset)
				return nil
			})
		},
	}
}

func newGetCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Read a key; prints every value when writers conflict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withStore(cmd.Context(), func(s *hyperkv.Store) error {
				res, err := s.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch res.Status() {
				case hyperkv.NotFound:
					return fmt.Errorf("%w: %s", hyperkv.ErrNotFound, res.Key)
				case hyperkv.Value:
					v, _ := res.Value()
					fmt.Fprintln(out, string(v))
				default:
					fmt.Fprintf(out, "conflict (%d writers)\n", len(res.Nodes))
					for _, n := range res.Nodes {
						if n.Deleted {
							fmt.Fprintf(out, "  %s@%d: <deleted>\n", n.Feed.Short(), n.Offset)
							continue
						}
						fmt.Fprintf(out, "  %s@%d: %s\n", n.Feed.Short(), n.Offset, n.Value)
					}
				}
				return nil
			})
		},
	}
}

func newDelCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "del KEY",
		Aliases: []string{"delete"},
		Short:   "Write a tombstone",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withStore(cmd.Context(), func(s *hyperkv.Store) error {
				_, err := s.Delete(cmd.Context(), args[0])
				return err
			})
		},
	}
}

func newAuthorizeCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "authorize LOCAL_KEY",
		Short: "Authorize another writer by its local key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := hyperkv.ParseFeedKey(args[0])
			if err != nil {
				return err
			}
			return env.withStore(cmd.Context(), func(s *hyperkv.Store) error {
				return s.Authorize(cmd.Context(), key)
			})
		},
	}
}

func newFeedsCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "Print every feed and its entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			expr, _ := cmd.Flags().GetString("filter")
			f, err := filter.New(expr)
			if err != nil {
				return err
			}
			return env.withStore(cmd.Context(), func(s *hyperkv.Store) error {
				return PrintFeeds(cmd.Context(), cmd.OutOrStdout(), s, s.Dir(), f)
			})
		},
	}
	cmd.Flags().String("filter", "", "CEL filter over key, value, deleted, offset, feed, structural")
	return cmd
}

func newSyncCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync ADDR",
		Short: "Replicate with a peer running `hyperkv serve`",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return env.withStore(ctx, func(s *hyperkv.Store) error {
				conn, err := grpcserver.Dial(ctx, args[0])
				if err != nil {
					return err
				}
				defer func() { _ = conn.Close() }()
				if err := grpcserver.Sync(ctx, conn, s); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "synced with", args[0])
				return nil
			})
		},
	}
	cmd.Flags().Duration("timeout", time.Minute, "Give up after this long")
	return cmd
}
