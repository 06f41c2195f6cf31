package wizard

import (
	"context"
	"fmt"
)

// WizardResult holds all the answers from the interactive wizard.
type WizardResult struct {
	Provider string
	Region   string
	// Endpoint overrides the provider API endpoint; empty uses the default.
	Endpoint string

	CheckpointBackend string
	CheckpointDir     string
	Bucket            string
	BucketEndpoint    string

	// Advanced options (only set in advanced mode)
	AdvancedOptions *AdvancedOptions
}

// AdvancedOptions holds retry and backpressure tuning.
type AdvancedOptions struct {
	RetryMaxAttempts string
	MaxInFlight      string
}

// RunWizard runs the interactive configuration wizard.
// If advanced is true, additional tuning options are shown.
// The context is used for cancellation support (e.g., Ctrl+C).
func RunWizard(ctx context.Context, advanced bool) (*WizardResult, error) {
	result := &WizardResult{}

	if err := runProviderGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}

	if err := runRegionGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("region: %w", err)
	}

	if err := runCheckpointGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}

	if advanced {
		advOpts := &AdvancedOptions{}
		if err := runAdvancedGroup(ctx, advOpts); err != nil {
			return nil, fmt.Errorf("advanced: %w", err)
		}
		result.AdvancedOptions = advOpts
	}

	return result, nil
}
