package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// AttemptTimeout bounds a single attempt. Zero leaves attempts bounded only
	// by the parent context.
	AttemptTimeout time.Duration

	// Jitter returns the factor applied to each computed delay.
	Jitter func() float64
	// RetryIf decides whether a failed attempt may be retried.
	RetryIf func(err error) bool
	// OnRetry is called before sleeping ahead of the next attempt.
	OnRetry func(a Attempt, delay time.Duration)
}

// Option is a functional option for retry configuration.
type Option func(*Config)

// Attempt records one invocation of the operation.
type Attempt struct {
	// Index starts at 1.
	Index    int
	Start    time.Time
	Duration time.Duration
	Err      error
}

// Failed reports whether the attempt returned an error.
func (a Attempt) Failed() bool {
	return a.Err != nil
}

// CancelledError is returned when the context ends before the operation
// succeeded or ran out of attempts.
type CancelledError struct {
	Attempts int
	// LastErr is the error of the last completed attempt, if any.
	LastErr error
	cause   error
}

func (e *CancelledError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("cancelled after %d attempts: %v (last error: %v)", e.Attempts, e.cause, e.LastErr)
	}
	return fmt.Sprintf("cancelled after %d attempts: %v", e.Attempts, e.cause)
}

// Unwrap returns the context error, so errors.Is(err, context.Canceled) holds.
func (e *CancelledError) Unwrap() error {
	return e.cause
}

// DefaultConfig returns the defaults applied before options.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       FullRangeJitter,
		RetryIf:      func(err error) bool { return !IsFatal(err) },
	}
}

// FullRangeJitter draws uniformly from [0.5, 1.0).
func FullRangeJitter() float64 {
	return 0.5 + rand.Float64()/2
}

// NoJitter always returns 1.
func NoJitter() float64 {
	return 1
}

// Do executes op until it succeeds, fails with a non-retryable error, runs out
// of attempts, or ctx ends. It returns every attempt made and the final error.
// When attempts are exhausted the last error is returned as is.
func Do(ctx context.Context, op func(ctx context.Context, attempt int) error, opts ...Option) ([]Attempt, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var attempts []Attempt
	var lastErr error
	for i := 1; ; i++ {
		if err := ctx.Err(); err != nil {
			return attempts, &CancelledError{Attempts: len(attempts), LastErr: lastErr, cause: err}
		}

		a := runAttempt(ctx, cfg, op, i)
		attempts = append(attempts, a)
		if a.Err == nil {
			return attempts, nil
		}
		lastErr = a.Err

		if err := ctx.Err(); err != nil {
			return attempts, &CancelledError{Attempts: len(attempts), LastErr: lastErr, cause: err}
		}
		if IsFatal(a.Err) || !cfg.RetryIf(a.Err) || i >= cfg.MaxAttempts {
			return attempts, a.Err
		}

		delay := Backoff(cfg, i)
		if cfg.OnRetry != nil {
			cfg.OnRetry(a, delay)
		}
		if err := Sleep(ctx, delay); err != nil {
			return attempts, &CancelledError{Attempts: len(attempts), LastErr: lastErr, cause: err}
		}
	}
}

func runAttempt(ctx context.Context, cfg Config, op func(context.Context, int) error, i int) Attempt {
	attemptCtx := ctx
	if cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
		defer cancel()
	}
	start := time.Now()
	err := op(attemptCtx, i)
	return Attempt{Index: i, Start: start, Duration: time.Since(start), Err: err}
}

// Backoff returns the jittered delay to wait after the given failed attempt.
func Backoff(cfg Config, attempt int) time.Duration {
	base := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if base > float64(cfg.MaxDelay) || math.IsInf(base, 1) {
		base = float64(cfg.MaxDelay)
	}
	j := 1.0
	if cfg.Jitter != nil {
		j = cfg.Jitter()
	}
	return time.Duration(base * j)
}

// Sleep waits for d or until ctx ends, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WithMaxAttempts sets the total attempt budget, first attempt included.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithInitialDelay sets the delay after the first failed attempt.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		c.InitialDelay = d
	}
}

// WithMaxDelay caps the un-jittered delay.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDelay = d
	}
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(c *Config) {
		c.Multiplier = m
	}
}

// WithJitter replaces the jitter source.
func WithJitter(j func() float64) Option {
	return func(c *Config) {
		c.Jitter = j
	}
}

// WithRetryIf sets the retry predicate. Fatal errors are never retried.
func WithRetryIf(f func(err error) bool) Option {
	return func(c *Config) {
		c.RetryIf = f
	}
}

// WithOnRetry registers a hook called before each backoff sleep.
func WithOnRetry(f func(a Attempt, delay time.Duration)) Option {
	return func(c *Config) {
		c.OnRetry = f
	}
}

// WithAttemptTimeout bounds each individual attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.AttemptTimeout = d
	}
}

// FatalError wraps an error to mark it as fatal (non-retryable).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks an error as fatal (non-retryable).
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal checks if an error is fatal (non-retryable).
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
