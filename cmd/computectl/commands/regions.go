package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/computectl/cmd/computectl/handlers"
)

// Regions returns the command listing the provider's regions.
func Regions(g *handlers.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "regions [name...]",
		Short: "List regions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ListRegions(cmd.Context(), g, args)
		},
	}
}
