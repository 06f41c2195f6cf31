package config

import (
	"time"
)

// Providers.
const (
	ProviderHCloud = "hcloud"
	ProviderEC2    = "ec2"
)

// Checkpoint backends.
const (
	CheckpointNone   = "none"
	CheckpointMemory = "memory"
	CheckpointFile   = "file"
	CheckpointS3     = "s3"
)

// Config is the complete computectl configuration.
type Config struct {
	Provider string `yaml:"provider"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Region   string `yaml:"region,omitempty"`

	HCloud HCloudConfig `yaml:"hcloud,omitempty"`
	AWS    AWSConfig    `yaml:"aws,omitempty"`

	Retry      RetryConfig      `yaml:"retry,omitempty"`
	Waiter     WaiterConfig     `yaml:"waiter,omitempty"`
	Limiter    LimiterConfig    `yaml:"limiter,omitempty"`
	Checkpoint CheckpointConfig `yaml:"checkpoint,omitempty"`
	Metrics    MetricsConfig    `yaml:"metrics,omitempty"`
}

// HCloudConfig holds Hetzner Cloud credentials.
type HCloudConfig struct {
	Token string `yaml:"token,omitempty"`
}

// AWSConfig holds optional static AWS credentials. Empty values use the
// SDK's default credential chain.
type AWSConfig struct {
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	SessionToken    string `yaml:"session_token,omitempty"`
}

// RetryConfig overrides the per-operation retry budgets. Zero values keep
// the descriptor defaults.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts,omitempty"`
	InitialDelay   time.Duration `yaml:"initial_delay,omitempty"`
	MaxDelay       time.Duration `yaml:"max_delay,omitempty"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout,omitempty"`
}

// WaiterConfig overrides the waiter timing. Zero values keep the defaults.
type WaiterConfig struct {
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	MaxAttempts  int           `yaml:"max_attempts,omitempty"`
}

// LimiterConfig bounds the request rate and concurrency per destination.
type LimiterConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
	MaxInFlight       int64   `yaml:"max_in_flight,omitempty"`
}

// Enabled reports whether any bound is set.
func (l LimiterConfig) Enabled() bool {
	return l.RequestsPerSecond > 0 || l.MaxInFlight > 0
}

// CheckpointConfig selects where paginator cursors are kept between runs.
type CheckpointConfig struct {
	Backend string   `yaml:"backend,omitempty"`
	Dir     string   `yaml:"dir,omitempty"`
	S3      S3Config `yaml:"s3,omitempty"`
}

// S3Config addresses an S3-compatible bucket.
type S3Config struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Provider:   ProviderHCloud,
		Region:     "fsn1",
		Checkpoint: CheckpointConfig{Backend: CheckpointNone},
	}
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderHCloud
	}
	if c.Checkpoint.Backend == "" {
		c.Checkpoint.Backend = CheckpointNone
	}
	if c.Checkpoint.Backend == CheckpointFile && c.Checkpoint.Dir == "" {
		c.Checkpoint.Dir = ".computectl/cursors"
	}
	if c.Checkpoint.S3.Region == "" {
		c.Checkpoint.S3.Region = c.Region
	}
}
