package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/imamik/computectl/cmd/computectl/handlers"
)

// Wait returns the command that blocks until a resource reaches a state.
func Wait(g *handlers.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "wait <condition> <id>",
		Short: "Wait until a resource reaches a state",
		Long: `Wait until a resource reaches a state.

Conditions: ` + strings.Join(handlers.Conditions, ", ") + `

Poll interval and attempt budget come from the waiter section of the
configuration. The command fails when the resource reaches a failure state
or the attempts run out.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: handlers.Conditions,
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Wait(cmd.Context(), g, args[0], args[1])
		},
	}
}
