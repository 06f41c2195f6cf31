package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/computectl/cmd/computectl/handlers"
)

// KeyPairs returns the parent command for SSH key pair operations.
func KeyPairs(g *handlers.Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keypairs",
		Aliases: []string{"keypair", "keys"},
		Short:   "Manage SSH key pairs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [name...]",
		Short: "List key pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ListKeyPairs(cmd.Context(), g, args)
		},
	})
	cmd.AddCommand(createKeyPair(g))
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a key pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.DeleteKeyPair(cmd.Context(), g, args[0])
		},
	})

	return cmd
}

func createKeyPair(g *handlers.Globals) *cobra.Command {
	var (
		keyType string
		tags    []string
		keyFile string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a key pair",
		Long: `Create a key pair. The private key is only available once: it is
written to --private-key-file, or printed when no file is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.CreateKeyPair(cmd.Context(), g, args[0], keyType, tags, keyFile)
		},
	}

	cmd.Flags().StringVar(&keyType, "type", "ed25519", "Key type: ed25519 or rsa")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "Tag as key=value (repeatable)")
	cmd.Flags().StringVar(&keyFile, "private-key-file", "", "Write the private key to this file (mode 0600)")

	return cmd
}
