package wizard

import (
	"context"
	"net/url"
	"regexp"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/imamik/computectl/internal/config"
)

var bucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// runProviderGroup prompts for the provider.
func runProviderGroup(ctx context.Context, result *WizardResult) error {
	result.Provider = config.ProviderHCloud // default

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Description("Compute API the client talks to").
				Options(ProviderOptions...).
				Value(&result.Provider),
		).Title("Provider"),
	).RunWithContext(ctx)
}

// runRegionGroup prompts for region and an optional endpoint override.
func runRegionGroup(ctx context.Context, result *WizardResult) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Region").
				Options(RegionsToOptions(RegionsFor(result.Provider))...).
				Value(&result.Region),
			huh.NewInput().
				Title("Endpoint (Optional)").
				Description("Override the API endpoint, e.g. a LocalStack URL. Leave empty for the default.").
				Value(&result.Endpoint).
				Validate(validateOptionalEndpoint),
		).Title("Region"),
	).RunWithContext(ctx)
}

// runCheckpointGroup prompts for the cursor checkpoint backend.
func runCheckpointGroup(ctx context.Context, result *WizardResult) error {
	result.CheckpointBackend = config.CheckpointNone // default

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Listing Checkpoints").
				Description("Where long listings save their position so they can resume").
				Options(CheckpointOptions...).
				Value(&result.CheckpointBackend),
		).Title("Checkpoints"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	switch result.CheckpointBackend {
	case config.CheckpointFile:
		result.CheckpointDir = ".computectl/cursors"
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Directory").
					Value(&result.CheckpointDir),
			).Title("Checkpoints"),
		).RunWithContext(ctx)
	case config.CheckpointS3:
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Bucket").
					Value(&result.Bucket).
					Validate(validateBucketName),
				huh.NewInput().
					Title("Bucket Endpoint (Optional)").
					Description("S3-compatible endpoint, e.g. https://fsn1.your-objectstorage.com").
					Value(&result.BucketEndpoint).
					Validate(validateOptionalEndpoint),
			).Title("Checkpoints"),
		).RunWithContext(ctx)
	}
	return nil
}

// runAdvancedGroup prompts for retry and backpressure tuning.
func runAdvancedGroup(ctx context.Context, opts *AdvancedOptions) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Retry Attempts (Optional)").
				Description("Overrides every operation's attempt budget").
				Value(&opts.RetryMaxAttempts).
				Validate(validateOptionalPositive),
			huh.NewInput().
				Title("Max Requests In Flight (Optional)").
				Value(&opts.MaxInFlight).
				Validate(validateOptionalPositive),
		).Title("Advanced"),
	).RunWithContext(ctx)
}

func validateBucketName(s string) error {
	if s == "" {
		return errBucketRequired
	}
	if !bucketNameRegex.MatchString(s) {
		return errBucketInvalid
	}
	return nil
}

func validateOptionalEndpoint(s string) error {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errEndpointInvalid
	}
	return nil
}

func validateOptionalPositive(s string) error {
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err != nil || n < 1 {
		return errPositiveNumber
	}
	return nil
}
