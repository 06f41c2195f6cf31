package config

import (
	"os"
	"strconv"
	"time"
)

// ApplyEnv overrides cfg with environment variables. Unset or unparsable
// variables leave the current value.
//
// Environment Variables:
//   - COMPUTECTL_PROVIDER, COMPUTECTL_ENDPOINT, COMPUTECTL_REGION
//   - HCLOUD_TOKEN
//   - AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN
//   - COMPUTECTL_RETRY_MAX_ATTEMPTS, COMPUTECTL_RETRY_INITIAL_DELAY,
//     COMPUTECTL_RETRY_MAX_DELAY, COMPUTECTL_RETRY_ATTEMPT_TIMEOUT
//   - COMPUTECTL_WAITER_POLL_INTERVAL, COMPUTECTL_WAITER_MAX_ATTEMPTS
//   - COMPUTECTL_LIMITER_RPS, COMPUTECTL_LIMITER_BURST, COMPUTECTL_LIMITER_MAX_IN_FLIGHT
//   - COMPUTECTL_METRICS_ADDR
func ApplyEnv(cfg *Config) {
	cfg.Provider = parseString("COMPUTECTL_PROVIDER", cfg.Provider)
	cfg.Endpoint = parseString("COMPUTECTL_ENDPOINT", cfg.Endpoint)
	cfg.Region = parseString("COMPUTECTL_REGION", cfg.Region)

	cfg.HCloud.Token = parseString("HCLOUD_TOKEN", cfg.HCloud.Token)
	cfg.AWS.AccessKeyID = parseString("AWS_ACCESS_KEY_ID", cfg.AWS.AccessKeyID)
	cfg.AWS.SecretAccessKey = parseString("AWS_SECRET_ACCESS_KEY", cfg.AWS.SecretAccessKey)
	cfg.AWS.SessionToken = parseString("AWS_SESSION_TOKEN", cfg.AWS.SessionToken)

	cfg.Retry.MaxAttempts = parseInt("COMPUTECTL_RETRY_MAX_ATTEMPTS", cfg.Retry.MaxAttempts)
	cfg.Retry.InitialDelay = parseDuration("COMPUTECTL_RETRY_INITIAL_DELAY", cfg.Retry.InitialDelay)
	cfg.Retry.MaxDelay = parseDuration("COMPUTECTL_RETRY_MAX_DELAY", cfg.Retry.MaxDelay)
	cfg.Retry.AttemptTimeout = parseDuration("COMPUTECTL_RETRY_ATTEMPT_TIMEOUT", cfg.Retry.AttemptTimeout)

	cfg.Waiter.PollInterval = parseDuration("COMPUTECTL_WAITER_POLL_INTERVAL", cfg.Waiter.PollInterval)
	cfg.Waiter.MaxAttempts = parseInt("COMPUTECTL_WAITER_MAX_ATTEMPTS", cfg.Waiter.MaxAttempts)

	cfg.Limiter.RequestsPerSecond = parseFloat("COMPUTECTL_LIMITER_RPS", cfg.Limiter.RequestsPerSecond)
	cfg.Limiter.Burst = parseInt("COMPUTECTL_LIMITER_BURST", cfg.Limiter.Burst)
	cfg.Limiter.MaxInFlight = int64(parseInt("COMPUTECTL_LIMITER_MAX_IN_FLIGHT", int(cfg.Limiter.MaxInFlight)))

	cfg.Metrics.Addr = parseString("COMPUTECTL_METRICS_ADDR", cfg.Metrics.Addr)
}

func parseString(envVar, defaultVal string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultVal
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}

func parseFloat(envVar string, defaultVal float64) float64 {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}

	return f
}
