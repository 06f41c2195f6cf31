package wizard

import (
	"strconv"

	"github.com/imamik/computectl/internal/config"
)

// BuildConfig converts wizard answers to a Config. Credentials are left
// empty; they are read from the environment at run time.
func BuildConfig(result *WizardResult) *config.Config {
	cfg := config.Default()
	cfg.Provider = result.Provider
	cfg.Region = result.Region
	cfg.Endpoint = result.Endpoint

	cfg.Checkpoint.Backend = result.CheckpointBackend
	if cfg.Checkpoint.Backend == "" {
		cfg.Checkpoint.Backend = config.CheckpointNone
	}
	switch cfg.Checkpoint.Backend {
	case config.CheckpointFile:
		cfg.Checkpoint.Dir = result.CheckpointDir
	case config.CheckpointS3:
		cfg.Checkpoint.S3 = config.S3Config{
			Bucket:   result.Bucket,
			Endpoint: result.BucketEndpoint,
			Region:   result.Region,
		}
	}

	if adv := result.AdvancedOptions; adv != nil {
		if n, err := strconv.Atoi(adv.RetryMaxAttempts); err == nil {
			cfg.Retry.MaxAttempts = n
		}
		if n, err := strconv.ParseInt(adv.MaxInFlight, 10, 64); err == nil {
			cfg.Limiter.MaxInFlight = n
		}
	}
	return cfg
}
