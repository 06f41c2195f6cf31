package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/computectl/cmd/computectl/handlers"
)

// Operations returns the command printing the operation descriptor table.
func Operations(g *handlers.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "Show the retry and idempotency rules of every operation",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.ListOperations(g)
		},
	}
}
