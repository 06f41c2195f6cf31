package wizard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/imamik/computectl/internal/config"
)

// Function variable for dependency injection in tests.
var confirmOverwrite = defaultConfirmOverwrite

// WriteConfig writes cfg to a YAML file with a descriptive header.
func WriteConfig(cfg *config.Config, outputPath string) error {
	yamlBytes, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(generateHeader(cfg.Provider, outputPath))
	sb.WriteString("\n")
	sb.Write(yamlBytes)

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// generateHeader creates the YAML file header comment.
func generateHeader(provider, outputPath string) string {
	env := "#   HCLOUD_TOKEN - Your Hetzner Cloud API token"
	if provider == config.ProviderEC2 {
		env = "#   AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY - or any other AWS credential source"
	}
	return fmt.Sprintf(`# computectl configuration
# Generated by: computectl init
# Generated at: %s
#
# Required environment:
%s
#
# Usage:
#   computectl instances list -c %s
`, time.Now().Format(time.RFC3339), env, outputPath)
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ConfirmOverwrite prompts the user to confirm overwriting an existing file.
func ConfirmOverwrite(path string) (bool, error) {
	return confirmOverwrite(path)
}

// defaultConfirmOverwrite is the default implementation that prompts via stdin.
func defaultConfirmOverwrite(path string) (bool, error) {
	fmt.Printf("\nFile already exists: %s\n", path)
	fmt.Print("Overwrite? (y/n): ")

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false, err
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
