package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/computectl/cmd/computectl/handlers"
)

// Images returns the parent command for image operations.
func Images(g *handlers.Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "images",
		Aliases: []string{"image"},
		Short:   "Manage images",
	}

	cmd.AddCommand(listImages(g))
	cmd.AddCommand(createImage(g))
	cmd.AddCommand(copyImage(g))
	cmd.AddCommand(deregisterImage(g))

	return cmd
}

func listImages(g *handlers.Globals) *cobra.Command {
	var opts handlers.ListOptions

	cmd := &cobra.Command{
		Use:   "list [image-id...]",
		Short: "List images",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.IDs = args
			return handlers.ListImages(cmd.Context(), g, opts)
		},
	}
	addListFlags(cmd, &opts)
	cmd.Flags().StringSliceVar(&opts.Owners, "owner", nil, "Image owners, e.g. self")

	return cmd
}

func createImage(g *handlers.Globals) *cobra.Command {
	var opts handlers.CreateImageOptions

	cmd := &cobra.Command{
		Use:   "create <instance-id>",
		Short: "Create an image from an instance",
		Long: `Create an image from an instance.

With --wait the command polls until the image is available. Interrupting the
wait does not stop the image from being created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.InstanceID = args[0]
			return handlers.CreateImage(cmd.Context(), g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Image name (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "Image description")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "Tag as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "Wait until the image is available")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func copyImage(g *handlers.Globals) *cobra.Command {
	var opts handlers.CopyImageOptions

	cmd := &cobra.Command{
		Use:   "copy <source-image-id>",
		Short: "Copy an image into the configured region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.SourceImageID = args[0]
			return handlers.CopyImage(cmd.Context(), g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.SourceRegion, "source-region", "", "Region of the source image (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Name of the copy (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "Description of the copy")
	cmd.Flags().StringVar(&opts.ClientToken, "client-token", "", "Idempotency token; reuse it to retry a copy safely")
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "Wait until the copy is available")
	_ = cmd.MarkFlagRequired("source-region")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func deregisterImage(g *handlers.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "deregister <image-id>",
		Short: "Deregister (delete) an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.DeregisterImage(cmd.Context(), g, args[0])
		},
	}
}
