// Package idempotency deduplicates token-carrying calls to idempotent mutating
// operations so that one token produces at most one effective remote call.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/blake2b"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"

	"github.com/imamik/computectl/internal/apierr"
	"github.com/imamik/computectl/internal/operation"
)

// ErrTokenReuse is wrapped by the Misuse error returned when a token is
// presented again with a different request payload.
var ErrTokenReuse = errors.New("idempotency token reused with a different request payload")

// State of a record.
type State int

const (
	InFlight State = iota
	Completed
)

func (s State) String() string {
	if s == InFlight {
		return "InFlight"
	}
	return "Completed"
}

// Source tells where the result of Execute came from.
type Source string

const (
	// Bypassed means the operation is not idempotent or no token was given.
	Bypassed Source = "bypassed"
	// Executed means this call ran the operation.
	Executed Source = "executed"
	// Cached means a completed record answered the call.
	Cached Source = "cached"
	// Shared means the call waited on a concurrent caller and got its outcome.
	Shared Source = "shared"
)

type key struct {
	operation string
	token     string
}

type record struct {
	fingerprint [blake2b.Size256]byte
	state       State
	done        chan struct{}
	result      any
	err         error
	expires     time.Time
}

type tombstone struct {
	fingerprint [blake2b.Size256]byte
	expires     time.Time
}

// Tracker holds idempotency records. It is safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	records    map[key]*record
	tombstones map[key]tombstone

	clock        clock.PassiveClock
	defaultTTL   time.Duration
	tombstoneTTL time.Duration
	logger       logr.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock.
func WithClock(c clock.PassiveClock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithDefaultTTL sets the record lifetime for descriptors without one.
func WithDefaultTTL(d time.Duration) Option {
	return func(t *Tracker) {
		t.defaultTTL = d
	}
}

// WithTombstoneTTL sets how long the fingerprint of an expired record is kept
// to detect token reuse with a different payload.
func WithTombstoneTTL(d time.Duration) Option {
	return func(t *Tracker) {
		t.tombstoneTTL = d
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		records:      make(map[key]*record),
		tombstones:   make(map[key]tombstone),
		clock:        clock.RealClock{},
		defaultTTL:   time.Hour,
		tombstoneTTL: 24 * time.Hour,
		logger:       logr.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Execute runs fn at most once per (operation, token) while the record lives.
//
// It delegates straight to fn unless desc is idempotent and token is non-empty.
// A concurrent caller with the same token blocks until the first one finishes
// and receives its outcome. Successes and permanent service failures are
// cached; transient failures and cancellations drop the record so the next
// call runs fn again.
func (t *Tracker) Execute(ctx context.Context, desc operation.Descriptor, token string, payload any, fn func(ctx context.Context) (any, error)) (any, Source, error) {
	if !desc.Idempotent || token == "" {
		res, err := fn(ctx)
		return res, Bypassed, err
	}

	fp, err := Fingerprint(payload)
	if err != nil {
		return nil, Bypassed, apierr.Wrap(apierr.KindSerialization, desc.Name, err)
	}
	k := key{operation: desc.Name, token: token}

	for waited := false; ; {
		t.mu.Lock()
		now := t.clock.Now()
		r := t.records[k]
		if r != nil && r.state == Completed && !now.Before(r.expires) {
			t.expireLocked(k, r)
			r = nil
		}

		if r == nil {
			if ts, ok := t.tombstones[k]; ok && now.Before(ts.expires) && ts.fingerprint != fp {
				t.mu.Unlock()
				return nil, Bypassed, t.reuseError(desc.Name, token)
			}
			r = &record{fingerprint: fp, state: InFlight, done: make(chan struct{})}
			t.records[k] = r
			t.mu.Unlock()

			res, err := t.lead(ctx, desc, k, r, fn)
			return res, Executed, err
		}

		if r.fingerprint != fp {
			t.mu.Unlock()
			return nil, Bypassed, t.reuseError(desc.Name, token)
		}
		if r.state == Completed {
			res, err := r.result, r.err
			t.mu.Unlock()
			if waited {
				return res, Shared, err
			}
			return res, Cached, err
		}

		done := r.done
		t.mu.Unlock()
		t.logger.V(1).Info("waiting on in-flight call", "operation", desc.Name, "token", token)
		select {
		case <-ctx.Done():
			return nil, Bypassed, apierr.Cancelled(desc.Name, ctx.Err())
		case <-done:
			waited = true
		}
	}
}

func (t *Tracker) lead(ctx context.Context, desc operation.Descriptor, k key, r *record, fn func(context.Context) (any, error)) (res any, err error) {
	finished := false
	defer func() {
		if !finished {
			t.mu.Lock()
			delete(t.records, k)
			close(r.done)
			t.mu.Unlock()
		}
	}()

	res, err = fn(ctx)

	t.mu.Lock()
	if cacheable(err) {
		ttl := desc.IdempotencyTTL
		if ttl <= 0 {
			ttl = t.defaultTTL
		}
		r.state = Completed
		r.result, r.err = res, err
		r.expires = t.clock.Now().Add(ttl)
	} else {
		delete(t.records, k)
	}
	close(r.done)
	finished = true
	t.mu.Unlock()
	return res, err
}

func cacheable(err error) bool {
	if err == nil {
		return true
	}
	ce, ok := apierr.As(err)
	return ok && ce.Permanent()
}

func (t *Tracker) expireLocked(k key, r *record) {
	delete(t.records, k)
	t.tombstones[k] = tombstone{fingerprint: r.fingerprint, expires: r.expires.Add(t.tombstoneTTL)}
}

func (t *Tracker) reuseError(op, token string) error {
	t.logger.Info("idempotency token reused with a different payload", "operation", op, "token", token)
	e := apierr.Wrap(apierr.KindMisuse, op, ErrTokenReuse)
	e.Message = fmt.Sprintf("token %q: %v", token, ErrTokenReuse)
	return e
}

// Lookup reports the state of the record for (operation, token), if any.
func (t *Tracker) Lookup(op, token string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[key{operation: op, token: token}]
	if !ok {
		return 0, false
	}
	return r.state, true
}

// Len returns the number of live records.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Sweep evicts expired records and tombstones and returns how many records
// were evicted. In-flight records are never evicted.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	evicted := 0
	for k, r := range t.records {
		if r.state == Completed && !now.Before(r.expires) {
			t.expireLocked(k, r)
			evicted++
		}
	}
	for k, ts := range t.tombstones {
		if !now.Before(ts.expires) {
			delete(t.tombstones, k)
		}
	}
	return evicted
}

// Run sweeps every interval until ctx ends.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	wait.UntilWithContext(ctx, func(context.Context) {
		if n := t.Sweep(); n > 0 {
			t.logger.V(1).Info("evicted idempotency records", "count", n)
		}
	}, interval)
}

// Fingerprint hashes the JSON encoding of payload with BLAKE2b-256.
func Fingerprint(payload any) ([blake2b.Size256]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return [blake2b.Size256]byte{}, fmt.Errorf("failed to fingerprint request payload: %w", err)
	}
	return blake2b.Sum256(data), nil
}
