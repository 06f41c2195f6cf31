package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/config"
	"github.com/imamik/computectl/internal/dispatch"
	"github.com/imamik/computectl/internal/idempotency"
	"github.com/imamik/computectl/internal/limiter"
	"github.com/imamik/computectl/internal/paginate"
	ec2platform "github.com/imamik/computectl/internal/platform/ec2"
	hcloudplatform "github.com/imamik/computectl/internal/platform/hcloud"
	s3platform "github.com/imamik/computectl/internal/platform/s3"
	"github.com/imamik/computectl/internal/transport"
	"github.com/imamik/computectl/internal/util/retry"
	"github.com/imamik/computectl/internal/waiter"
)

// Globals are the persistent flags shared by all commands. Empty values keep
// what the configuration file and environment say.
type Globals struct {
	ConfigPath  string
	Provider    string
	Region      string
	Endpoint    string
	Output      string
	MetricsAddr string
	Verbosity   int
	NoTUI       bool
}

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Factory function variables - can be replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	isTerminal = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	// newTransport creates the provider transport selected by cfg.
	newTransport = func(ctx context.Context, cfg *config.Config, logger logr.Logger) (transport.Transport, error) {
		switch cfg.Provider {
		case config.ProviderEC2:
			api, err := ec2platform.NewClient(ctx, cfg.Region, ec2platform.Credentials{
				AccessKeyID:     cfg.AWS.AccessKeyID,
				SecretAccessKey: cfg.AWS.SecretAccessKey,
				SessionToken:    cfg.AWS.SessionToken,
			})
			if err != nil {
				return nil, err
			}
			return ec2platform.NewTransport(api, ec2platform.WithLogger(logger)), nil
		default:
			if cfg.HCloud.Token == "" {
				return nil, errors.New("HCLOUD_TOKEN is required for the hcloud provider")
			}
			return hcloudplatform.NewTransport(cfg.HCloud.Token, hcloudplatform.WithLogger(logger)), nil
		}
	}

	// newS3CursorStore creates the S3 checkpoint backend.
	newS3CursorStore = func(ctx context.Context, opts s3platform.Options) (paginate.Store, error) {
		store, err := s3platform.NewCursorStore(ctx, opts)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
)

// Session is everything a handler needs for one command run.
type Session struct {
	Compute *compute.Client
	Config  *config.Config
	Logger  logr.Logger
	// Cursors is nil when no checkpoint backend is configured.
	Cursors  paginate.Store
	Registry *prometheus.Registry

	format      string
	tui         bool
	computeOpts []compute.Option
	closers     []func()
}

// newSession loads the configuration and wires the client runtime.
func newSession(ctx context.Context, g *Globals) (*Session, error) {
	logger, syncLogger := newLogger(g.Verbosity)
	s := &Session{Logger: logger, closers: []func(){syncLogger}}

	format, err := outputFormat(g.Output)
	if err != nil {
		return nil, err
	}
	s.format = format
	s.tui = format == OutputTable && !g.NoTUI && isTerminal()

	cfg, err := loadConfig(g)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Config = cfg
	logger = logger.WithValues("provider", cfg.Provider, "region", cfg.Region)
	s.Logger = logger

	tr, err := newTransport(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create %s transport: %w", cfg.Provider, err)
	}

	s.Registry = prometheus.NewRegistry()
	opts := []dispatch.Option{
		dispatch.WithConfig(dispatch.Config{Endpoint: cfg.Endpoint, Region: cfg.Region}),
		dispatch.WithLogger(logger),
		dispatch.WithRegisterer(s.Registry),
		dispatch.WithTracker(idempotency.NewTracker(idempotency.WithLogger(logger))),
		dispatch.WithRetryOptions(retryOptions(cfg.Retry)...),
	}
	if cfg.Limiter.Enabled() {
		opts = append(opts, dispatch.WithLimiter(limiter.New(limiter.Config{
			RequestsPerSecond: cfg.Limiter.RequestsPerSecond,
			Burst:             cfg.Limiter.Burst,
			MaxInFlight:       cfg.Limiter.MaxInFlight,
		})))
	}

	s.computeOpts = []compute.Option{compute.WithWaiterOptions(waiter.WithLogger(logger))}
	if cfg.Waiter.PollInterval > 0 {
		s.computeOpts = append(s.computeOpts, compute.WithWaiterTiming(cfg.Waiter.PollInterval, cfg.Waiter.MaxAttempts))
	}
	s.Compute = compute.New(dispatch.New(tr, opts...), s.computeOpts...)

	if s.Cursors, err = newCursorStore(ctx, cfg); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	addr := g.MetricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		stop, err := startMetrics(addr, s.Registry, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, stop)
	}
	return s, nil
}

// Close releases the session's resources in reverse order.
func (s *Session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func loadConfig(g *Globals) (*config.Config, error) {
	var cfg *config.Config
	if g.ConfigPath != "" && fileExists(g.ConfigPath) {
		loaded, err := config.LoadFile(g.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		config.ApplyEnv(cfg)
	}

	if g.Provider != "" {
		cfg.Provider = g.Provider
	}
	if g.Region != "" {
		cfg.Region = g.Region
	}
	if g.Endpoint != "" {
		cfg.Endpoint = g.Endpoint
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func retryOptions(rc config.RetryConfig) []retry.Option {
	var opts []retry.Option
	if rc.MaxAttempts > 0 {
		opts = append(opts, retry.WithMaxAttempts(rc.MaxAttempts))
	}
	if rc.InitialDelay > 0 {
		opts = append(opts, retry.WithInitialDelay(rc.InitialDelay))
	}
	if rc.MaxDelay > 0 {
		opts = append(opts, retry.WithMaxDelay(rc.MaxDelay))
	}
	if rc.AttemptTimeout > 0 {
		opts = append(opts, retry.WithAttemptTimeout(rc.AttemptTimeout))
	}
	return opts
}

func newCursorStore(ctx context.Context, cfg *config.Config) (paginate.Store, error) {
	cp := cfg.Checkpoint
	switch cp.Backend {
	case config.CheckpointMemory:
		return paginate.NewMemoryStore(), nil
	case config.CheckpointFile:
		return paginate.NewFileStore(cp.Dir), nil
	case config.CheckpointS3:
		return newS3CursorStore(ctx, s3platform.Options{
			Endpoint:  cp.S3.Endpoint,
			Region:    cp.S3.Region,
			AccessKey: cp.S3.AccessKey,
			SecretKey: cp.S3.SecretKey,
			Bucket:    cp.S3.Bucket,
			Prefix:    cp.S3.Prefix,
			PathStyle: cp.S3.PathStyle,
		})
	default:
		return nil, nil
	}
}
