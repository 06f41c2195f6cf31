package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderHCloud:
	case ProviderEC2:
		if c.Region == "" {
			errs = append(errs, errors.New("region is required for the ec2 provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q (expected %s or %s)", c.Provider, ProviderHCloud, ProviderEC2))
	}

	if c.Endpoint != "" {
		if u, err := url.Parse(c.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("endpoint %q is not an absolute URL", c.Endpoint))
		}
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("retry.max_attempts must not be negative"))
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 || c.Retry.AttemptTimeout < 0 {
		errs = append(errs, errors.New("retry delays must not be negative"))
	}
	if c.Retry.MaxDelay > 0 && c.Retry.InitialDelay > c.Retry.MaxDelay {
		errs = append(errs, fmt.Errorf("retry.initial_delay %s exceeds retry.max_delay %s", c.Retry.InitialDelay, c.Retry.MaxDelay))
	}

	if c.Waiter.PollInterval < 0 || c.Waiter.MaxAttempts < 0 {
		errs = append(errs, errors.New("waiter settings must not be negative"))
	}
	if (c.Waiter.PollInterval > 0) != (c.Waiter.MaxAttempts > 0) {
		errs = append(errs, errors.New("waiter.poll_interval and waiter.max_attempts must be set together"))
	}

	if c.Limiter.RequestsPerSecond < 0 || c.Limiter.Burst < 0 || c.Limiter.MaxInFlight < 0 {
		errs = append(errs, errors.New("limiter settings must not be negative"))
	}

	switch c.Checkpoint.Backend {
	case CheckpointNone, CheckpointMemory:
	case CheckpointFile:
		if c.Checkpoint.Dir == "" {
			errs = append(errs, errors.New("checkpoint.dir is required for the file backend"))
		}
	case CheckpointS3:
		if c.Checkpoint.S3.Bucket == "" {
			errs = append(errs, errors.New("checkpoint.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend))
	}

	return errors.Join(errs...)
}
