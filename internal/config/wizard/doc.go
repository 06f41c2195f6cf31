// Package wizard provides the interactive `computectl init` wizard.
//
// It uses charmbracelet/huh forms to collect the provider, region and
// checkpoint settings, converts the answers with BuildConfig, and writes the
// YAML file with WriteConfig. Secrets are never written; the generated file
// references environment variables instead.
package wizard
