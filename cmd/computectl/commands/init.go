package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/computectl/cmd/computectl/handlers"
)

// Init returns the command for interactively creating a configuration file.
//
// Flags:
//
//	--file, -f: Path to output file (default "computectl.yaml")
//	--advanced, -a: Ask for retry and concurrency limits too
func Init() *cobra.Command {
	var (
		outputPath string
		advanced   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a configuration file",
		Long: `Interactively create a computectl configuration file.

The wizard asks for:

  - Provider (Hetzner Cloud or AWS EC2)
  - Region and an optional API endpoint
  - Where paginator cursors are checkpointed (none, file or S3)

Use --advanced to also set the retry budget and the in-flight request limit.
Credentials are never written to the file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath, advanced)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "file", "f", "computectl.yaml", "Output file path")
	cmd.Flags().BoolVarP(&advanced, "advanced", "a", false, "Show advanced configuration options")

	return cmd
}
