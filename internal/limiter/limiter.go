// Package limiter applies backpressure at the transport boundary: a token
// bucket and a bounded number of in-flight requests per destination.
package limiter

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/imamik/computectl/internal/apierr"
)

// Config is applied to every destination.
type Config struct {
	// RequestsPerSecond of zero disables the token bucket.
	RequestsPerSecond float64
	Burst             int
	// MaxInFlight of zero disables the in-flight bound.
	MaxInFlight int64
}

type destination struct {
	bucket   *rate.Limiter
	slots    *semaphore.Weighted
	inFlight atomic.Int64
}

// Limiter is safe for concurrent use.
type Limiter struct {
	cfg   Config
	mu    sync.Mutex
	dests map[string]*destination
}

// New creates a limiter.
func New(cfg Config) *Limiter {
	return &Limiter{cfg: cfg, dests: make(map[string]*destination)}
}

func (l *Limiter) destination(name string) *destination {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.dests[name]
	if ok {
		return d
	}
	d = &destination{}
	if l.cfg.RequestsPerSecond > 0 {
		burst := max(l.cfg.Burst, 1)
		d.bucket = rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), burst)
	}
	if l.cfg.MaxInFlight > 0 {
		d.slots = semaphore.NewWeighted(l.cfg.MaxInFlight)
	}
	l.dests[name] = d
	return d
}

// Acquire blocks until dest has a free slot and a token, or ctx ends. The
// returned release must be called exactly once when the request finished.
// A failed Acquire sent nothing; its error is a Cancelled client error with
// Sent unset.
func (l *Limiter) Acquire(ctx context.Context, dest string) (release func(), err error) {
	d := l.destination(dest)
	if d.slots != nil {
		if err := d.slots.Acquire(ctx, 1); err != nil {
			return nil, notSent(ctx, err)
		}
	}
	if d.bucket != nil {
		if err := d.bucket.Wait(ctx); err != nil {
			if d.slots != nil {
				d.slots.Release(1)
			}
			return nil, notSent(ctx, err)
		}
	}
	d.inFlight.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			d.inFlight.Add(-1)
			if d.slots != nil {
				d.slots.Release(1)
			}
		})
	}, nil
}

// InFlight returns the number of acquired, unreleased slots for dest.
func (l *Limiter) InFlight(dest string) int64 {
	return l.destination(dest).inFlight.Load()
}

func notSent(ctx context.Context, err error) error {
	cause := ctx.Err()
	if cause == nil {
		// rate.Limiter refuses to wait past the deadline before it expires.
		cause = context.DeadlineExceeded
	}
	e := apierr.Cancelled("", cause)
	e.Message = "waiting for a transport slot: " + err.Error()
	e.Sent = false
	return e
}
