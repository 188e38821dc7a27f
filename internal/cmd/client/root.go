package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command with every store command.
func NewRoot(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:   "hyperkv",
		Short: "hyperkv store commands",
	}
	env.Bind(root)
	root.AddCommand(NewStoreCommands(env)...)
	return root
}
