package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/computectl/internal/config"
	"github.com/imamik/computectl/internal/config/wizard"
)

// Factory function variables for init - can be replaced in tests.
var (
	runWizard        = wizard.RunWizard
	writeConfig      = wizard.WriteConfig
	confirmOverwrite = wizard.ConfirmOverwrite
)

// Init runs the configuration wizard and writes the result to outputPath.
func Init(ctx context.Context, outputPath string, advanced bool) error {
	if fileExists(outputPath) {
		ok, err := confirmOverwrite(outputPath)
		if err != nil {
			return fmt.Errorf("wizard canceled: %w", err)
		}
		if !ok {
			fmt.Fprintln(stdout, "Aborted, existing configuration kept.")
			return nil
		}
	}

	printWelcome()

	result, err := runWizard(ctx, advanced)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	cfg := wizard.BuildConfig(result)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("wizard produced an invalid configuration: %w", err)
	}
	if err := writeConfig(cfg, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, cfg)
	return nil
}

func printWelcome() {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "computectl - compute control-plane client")
	fmt.Fprintln(stdout, "=========================================")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "This wizard creates a configuration with sensible defaults.")
	fmt.Fprintln(stdout, "Credentials are never written; they are read from the environment.")
	fmt.Fprintln(stdout)
}

func printInitSuccess(outputPath string, cfg *config.Config) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Configuration saved!")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  File:       %s\n", outputPath)
	fmt.Fprintf(stdout, "  Provider:   %s\n", cfg.Provider)
	fmt.Fprintf(stdout, "  Region:     %s\n", cfg.Region)
	if cfg.Endpoint != "" {
		fmt.Fprintf(stdout, "  Endpoint:   %s\n", cfg.Endpoint)
	}
	fmt.Fprintf(stdout, "  Checkpoint: %s\n", cfg.Checkpoint.Backend)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Next Steps")
	fmt.Fprintln(stdout, "----------")
	if cfg.Provider == config.ProviderEC2 {
		fmt.Fprintln(stdout, "  1. Make AWS credentials available (AWS_ACCESS_KEY_ID, a profile, ...)")
	} else {
		fmt.Fprintln(stdout, "  1. Set your Hetzner Cloud API token:")
		fmt.Fprintln(stdout, "     export HCLOUD_TOKEN=<your-token>")
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  2. List your instances:")
	fmt.Fprintf(stdout, "     computectl instances list -c %s\n", outputPath)
	fmt.Fprintln(stdout)
}
