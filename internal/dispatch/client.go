package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/computectl/internal/apierr"
	"github.com/imamik/computectl/internal/diag"
	"github.com/imamik/computectl/internal/idempotency"
	"github.com/imamik/computectl/internal/limiter"
	"github.com/imamik/computectl/internal/operation"
	"github.com/imamik/computectl/internal/transport"
	"github.com/imamik/computectl/internal/util/retry"
)

// Config is the pre-call configuration.
type Config struct {
	Endpoint string
	Region   string
}

// TokenCarrier is implemented by inputs that carry an idempotency token.
type TokenCarrier interface {
	IdempotencyToken() string
}

// Client dispatches operations. It is safe for concurrent use once configured.
type Client struct {
	transport transport.Transport
	table     *operation.Table
	tracker   *idempotency.Tracker
	limiter   *limiter.Limiter
	diag      *diag.Store
	logger    logr.Logger
	metrics   *metrics
	retryOpts []retry.Option
	newToken  func() string

	cfg     Config
	started atomic.Bool
}

// Option is a functional option for Client.
type Option func(*Client)

// WithTable replaces the embedded descriptor table.
func WithTable(t *operation.Table) Option {
	return func(c *Client) {
		c.table = t
	}
}

// WithTracker replaces the idempotency tracker.
func WithTracker(t *idempotency.Tracker) Option {
	return func(c *Client) {
		c.tracker = t
	}
}

// WithLimiter enables transport backpressure.
func WithLimiter(l *limiter.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithDiagnostics replaces the diagnostic metadata store.
func WithDiagnostics(s *diag.Store) Option {
	return func(c *Client) {
		c.diag = s
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(l logr.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRegisterer enables metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = newMetrics(reg)
	}
}

// WithRetryOptions appends options applied after the descriptor's budget,
// such as a fixed jitter or an attempt timeout.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(c *Client) {
		c.retryOpts = append(c.retryOpts, opts...)
	}
}

// WithTokenSource replaces the generator of tokens for idempotent calls made
// without one.
func WithTokenSource(f func() string) Option {
	return func(c *Client) {
		c.newToken = f
	}
}

// WithConfig sets the pre-call configuration.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.cfg = cfg
	}
}

// New creates a client over t.
func New(t transport.Transport, opts ...Option) *Client {
	c := &Client{
		transport: t,
		table:     operation.MustDefaultTable(),
		tracker:   idempotency.NewTracker(),
		diag:      diag.NewStore(diag.DefaultTTL),
		logger:    logr.Discard(),
		newToken:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure replaces the pre-call configuration. It fails with
// ClientError/Misuse once any call has been issued.
func (c *Client) Configure(cfg Config) error {
	if c.started.Load() {
		return apierr.New(apierr.KindMisuse, "", "endpoint and region cannot change after the first call")
	}
	c.cfg = cfg
	return nil
}

// Config returns the pre-call configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Table returns the descriptor table.
func (c *Client) Table() *operation.Table {
	return c.table
}

// Tracker returns the idempotency tracker, for sweeping.
func (c *Client) Tracker() *idempotency.Tracker {
	return c.tracker
}

// Metadata returns diagnostics of the most recent call made with input, if
// it is still cached. Pass inputs by pointer to use this.
func (c *Client) Metadata(input any) (diag.Metadata, bool) {
	return c.diag.Lookup(input)
}

// RecordWait counts a finished wait on op by its final state.
func (c *Client) RecordWait(op, state string) {
	c.metrics.recordWait(op, state)
}

// Invoke runs operation name with input and returns the transport's output.
// Every error is an *apierr.Error.
func (c *Client) Invoke(ctx context.Context, name string, input any) (any, error) {
	c.started.Store(true)
	desc, err := c.table.Lookup(name)
	if err != nil {
		return nil, err
	}

	var callerToken string
	if tc, ok := input.(TokenCarrier); ok {
		callerToken = tc.IdempotencyToken()
	}
	token := callerToken
	if desc.Idempotent && token == "" {
		token = c.newToken()
	}

	logger := c.loggerFor(ctx).WithValues("operation", name)
	start := time.Now()
	var run callRun
	out, src, err := c.tracker.Execute(ctx, desc, callerToken, input, func(ctx context.Context) (any, error) {
		return c.execute(ctx, logger, desc, input, token, &run)
	})
	elapsed := time.Since(start)

	if err != nil {
		err = normalize(desc.Name, err)
	}
	c.metrics.recordCall(name, err, elapsed, len(run.attempts))
	if src != idempotency.Bypassed {
		c.metrics.recordIdempotency(name, src)
		logger.V(1).Info("idempotency tracker answered", "source", src)
	}

	md := diag.Metadata{
		Operation: name,
		Attempts:  len(run.attempts),
		Start:     start,
		Duration:  elapsed,
		Failed:    err != nil,
	}
	if run.resp != nil {
		md.RequestID, md.StatusCode = run.resp.RequestID, run.resp.StatusCode
	} else if ce, ok := apierr.As(err); ok {
		md.RequestID, md.StatusCode = ce.RequestID, ce.HTTPStatus
	}
	c.diag.Record(input, md)

	if err != nil {
		logger.V(1).Info("call failed", "attempts", md.Attempts, "error", err.Error())
		return nil, err
	}
	return out, nil
}

type callRun struct {
	attempts []retry.Attempt
	resp     *transport.Response
}

func (c *Client) execute(ctx context.Context, logger logr.Logger, desc operation.Descriptor, input any, token string, run *callRun) (any, error) {
	opts := []retry.Option{
		retry.WithMaxAttempts(desc.MaxAttempts),
		retry.WithInitialDelay(desc.BaseBackoff),
		retry.WithMaxDelay(desc.MaxBackoff),
		retry.WithRetryIf(retryIf(desc, token != "")),
		retry.WithOnRetry(func(a retry.Attempt, delay time.Duration) {
			kind := ""
			if ce, ok := apierr.As(a.Err); ok {
				kind = string(ce.Kind)
			}
			c.metrics.recordRetry(desc.Name, kind)
			logger.V(1).Info("retrying", "attempt", a.Index, "delay", delay, "error", a.Err.Error())
		}),
	}
	opts = append(opts, c.retryOpts...)

	attempts, err := retry.Do(ctx, func(attemptCtx context.Context, i int) error {
		resp, err := c.roundTrip(attemptCtx, desc, input, token, i)
		if err != nil {
			return c.classify(ctx, desc, err)
		}
		run.resp = resp
		return nil
	}, opts...)
	run.attempts = append(run.attempts, attempts...)

	if err != nil {
		var cerr *retry.CancelledError
		if errors.As(err, &cerr) {
			ce := apierr.Cancelled(desc.Name, cerr.Unwrap())
			ce.Sent = len(attempts) > 0
			if cerr.LastErr != nil {
				ce.Message = "call cancelled, last attempt failed: " + cerr.LastErr.Error()
			}
			return nil, ce
		}
		return nil, err
	}
	return run.resp.Output, nil
}

func (c *Client) roundTrip(ctx context.Context, desc operation.Descriptor, input any, token string, attempt int) (*transport.Response, error) {
	if c.limiter != nil {
		release, err := c.limiter.Acquire(ctx, c.destination())
		if err != nil {
			return nil, err
		}
		defer release()
	}
	return c.transport.RoundTrip(ctx, &transport.Request{
		Operation:   desc.Name,
		Endpoint:    c.cfg.Endpoint,
		Region:      c.cfg.Region,
		Input:       input,
		ClientToken: token,
		Attempt:     attempt,
	})
}

func (c *Client) destination() string {
	if c.cfg.Endpoint != "" {
		return c.cfg.Endpoint
	}
	if c.cfg.Region != "" {
		return c.cfg.Region
	}
	return "default"
}

// classify turns an attempt error into an *apierr.Error. A per-attempt
// timeout, with the call's own context still live, is a retryable network
// timeout rather than a cancellation.
func (c *Client) classify(ctx context.Context, desc operation.Descriptor, err error) *apierr.Error {
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		if _, ok := apierr.As(err); !ok {
			ce := apierr.Wrap(apierr.KindNetwork, desc.Name, err)
			ce.Message = "attempt timed out"
			ce.Sent = true
			return ce
		}
	}
	ce := apierr.Classify(desc, err)
	if ce.Operation == "" {
		ce.Operation = desc.Name
	}
	return ce
}

// retryIf enforces the retry rules of a descriptor. A failure that reached
// the service is replayed only for read-only, replay-safe or token-carrying
// idempotent operations.
func retryIf(desc operation.Descriptor, hasToken bool) func(error) bool {
	return func(err error) bool {
		ce, ok := apierr.As(err)
		if !ok || !ce.Retryable {
			return false
		}
		if ce.Sent && !desc.ReplayAllowed(hasToken) {
			return false
		}
		return true
	}
}

func normalize(op string, err error) error {
	if _, ok := apierr.As(err); ok {
		return err
	}
	return apierr.Wrap(apierr.KindUnknown, op, err)
}

func (c *Client) loggerFor(ctx context.Context) logr.Logger {
	if l, err := logr.FromContext(ctx); err == nil {
		return l
	}
	return c.logger
}

// Call invokes name and asserts the output type.
func Call[Out any](ctx context.Context, c *Client, name string, input any) (Out, error) {
	var zero Out
	out, err := c.Invoke(ctx, name, input)
	if err != nil {
		return zero, err
	}
	typed, ok := out.(Out)
	if !ok {
		return zero, apierr.Newf(apierr.KindMisuse, name, "transport returned %T, want %T", out, zero)
	}
	return typed, nil
}
