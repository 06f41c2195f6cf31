// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/computectl/cmd/computectl/handlers"
)

// Root returns the root command for the computectl CLI.
//
// The global flags are bound once here and shared with every subcommand.
func Root() *cobra.Command {
	g := &handlers.Globals{}

	cmd := &cobra.Command{
		Use:           "computectl",
		Short:         "Manage compute instances, images and key pairs across providers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&g.ConfigPath, "config", "c", "computectl.yaml", "Configuration file (ignored when missing)")
	f.StringVar(&g.Provider, "provider", "", "Provider: hcloud or ec2 (overrides the configuration)")
	f.StringVar(&g.Region, "region", "", "Region (overrides the configuration)")
	f.StringVar(&g.Endpoint, "endpoint", "", "API endpoint URL (overrides the configuration)")
	f.StringVarP(&g.Output, "output", "o", handlers.OutputTable, "Output format: table, json or yaml")
	f.StringVar(&g.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")
	f.CountVarP(&g.Verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	f.BoolVar(&g.NoTUI, "no-tui", false, "Print waiter progress as plain lines")

	cmd.AddCommand(Init())
	cmd.AddCommand(Instances(g))
	cmd.AddCommand(Images(g))
	cmd.AddCommand(KeyPairs(g))
	cmd.AddCommand(Regions(g))
	cmd.AddCommand(Wait(g))
	cmd.AddCommand(Operations(g))
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
