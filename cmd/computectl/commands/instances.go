package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/computectl/cmd/computectl/handlers"
)

// Instances returns the parent command for instance operations.
func Instances(g *handlers.Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "instances",
		Aliases: []string{"instance", "i"},
		Short:   "Manage instances",
	}

	cmd.AddCommand(listInstances(g))
	cmd.AddCommand(runInstances(g))
	for _, action := range []struct{ name, short string }{
		{handlers.ActionStart, "Start stopped instances"},
		{handlers.ActionStop, "Stop running instances"},
		{handlers.ActionReboot, "Reboot instances"},
		{handlers.ActionTerminate, "Terminate instances"},
	} {
		cmd.AddCommand(changeInstances(g, action.name, action.short))
	}

	return cmd
}

func listInstances(g *handlers.Globals) *cobra.Command {
	var opts handlers.ListOptions

	cmd := &cobra.Command{
		Use:   "list [instance-id...]",
		Short: "List instances",
		Long: `List instances across all pages.

Filters use provider filter names, for example:

  computectl instances list --filter instance-state-name=running --filter tag:env=prod

With --resume KEY the cursor is checkpointed after every page, so an
interrupted listing (or one cut short by --max-pages) continues where it
stopped when run again with the same key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.IDs = args
			return handlers.ListInstances(cmd.Context(), g, opts)
		},
	}
	addListFlags(cmd, &opts)

	return cmd
}

func runInstances(g *handlers.Globals) *cobra.Command {
	var opts handlers.RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Launch instances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.RunInstances(cmd.Context(), g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ImageID, "image", "", "Image to launch (required)")
	cmd.Flags().StringVar(&opts.InstanceType, "type", "", "Instance type (required)")
	cmd.Flags().StringVar(&opts.KeyName, "key", "", "Key pair name")
	cmd.Flags().IntVar(&opts.Count, "count", 1, "Number of instances")
	cmd.Flags().StringVar(&opts.UserDataFile, "user-data", "", "File with user data (cloud-init)")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "Tag as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.ClientToken, "client-token", "", "Idempotency token; reuse it to retry a launch safely")
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "Wait until the instances are running")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func changeInstances(g *handlers.Globals, action, short string) *cobra.Command {
	var force, wait bool

	cmd := &cobra.Command{
		Use:   action + " <instance-id>...",
		Short: short,
		Long: short + `.

One outcome is printed per instance. The command fails when any instance
failed, after printing the outcomes of the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ChangeInstances(cmd.Context(), g, action, args, force, wait)
		},
	}

	switch action {
	case handlers.ActionStop:
		cmd.Flags().BoolVar(&force, "force", false, "Power off without a graceful shutdown")
	case handlers.ActionStart:
		cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the instances are running")
	case handlers.ActionTerminate:
		cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the instances are terminated")
	}

	return cmd
}

func addListFlags(cmd *cobra.Command, opts *handlers.ListOptions) {
	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "Filter as name=value[,value...] (repeatable)")
	cmd.Flags().IntVar(&opts.MaxResults, "page-size", 0, "Items per page (provider default when 0)")
	cmd.Flags().IntVar(&opts.MaxPages, "max-pages", 0, "Stop after this many pages (0 for all)")
	cmd.Flags().StringVar(&opts.Resume, "resume", "", "Checkpoint key for resumable listing")
}
