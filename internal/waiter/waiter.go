// Package waiter polls a describe-style operation until a resource reaches a
// terminal state.
//
// A waiter moves from Pending to exactly one of Succeeded, Failed, TimedOut or
// Cancelled. Cancelling the context stops observation only; the remote effect
// of the initiating call is never rolled back. Waiters on the same resource
// are independent and do not coordinate.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/imamik/computectl/internal/apierr"
)

// State of a waiter.
type State string

const (
	Pending   State = "Pending"
	Succeeded State = "Succeeded"
	Failed    State = "Failed"
	TimedOut  State = "TimedOut"
	Cancelled State = "Cancelled"
)

// Terminal reports whether s ends the state machine.
func (s State) Terminal() bool {
	return s != Pending
}

// ErrTimedOut is returned when MaxAttempts polls pass without a terminal state.
var ErrTimedOut = errors.New("waiter timed out")

// FailureError carries the resource's own failure reason. It is distinct from
// transport errors, which surface as classified errors.
type FailureError struct {
	Operation string
	State     string
	Reason    string
}

func (e *FailureError) Error() string {
	msg := fmt.Sprintf("%s: resource reached failure state %q", e.Operation, e.State)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Spec describes what to poll and which states end the wait.
type Spec struct {
	// Operation is the describe operation polled, used in errors and logs.
	Operation     string
	SuccessStates []string
	FailureStates []string
	PollInterval  time.Duration
	MaxAttempts   int

	// AcceptNotFound treats ResourceNotFound as pending. Describe calls are
	// eventually consistent right after creation.
	AcceptNotFound bool
}

// Validate checks the spec.
func (s Spec) Validate() error {
	if s.Operation == "" {
		return errors.New("waiter spec: operation is required")
	}
	if len(s.SuccessStates) == 0 {
		return fmt.Errorf("waiter spec %s: at least one success state is required", s.Operation)
	}
	for _, st := range s.SuccessStates {
		if slices.Contains(s.FailureStates, st) {
			return fmt.Errorf("waiter spec %s: state %q is both success and failure", s.Operation, st)
		}
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("waiter spec %s: poll interval must be positive", s.Operation)
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("waiter spec %s: max attempts must be at least 1", s.Operation)
	}
	return nil
}

// Observation is what one poll saw.
type Observation struct {
	State string
	// Reason is the resource's explanation for its state, if any.
	Reason string
}

// PollFunc calls the describe operation. It should go through the dispatcher
// so each poll gets the usual retry treatment.
type PollFunc func(ctx context.Context) (Observation, error)

// Event is delivered to observers after every poll.
type Event struct {
	Operation   string
	Poll        int
	MaxAttempts int
	Observation Observation
	Err         error
	Elapsed     time.Duration
	State       State
}

// Result summarizes a wait. It is returned with every outcome.
type Result struct {
	State     State
	Polls     int
	LastState string
	Reason    string
	Elapsed   time.Duration
}

// Waiter runs one Spec. It holds no per-wait state and may be reused.
type Waiter struct {
	spec      Spec
	clock     clock.Clock
	observers []func(Event)
	logger    logr.Logger
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(w *Waiter) {
		w.clock = c
	}
}

// WithObserver registers fn to receive every poll event.
func WithObserver(fn func(Event)) Option {
	return func(w *Waiter) {
		w.observers = append(w.observers, fn)
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(w *Waiter) {
		w.logger = l
	}
}

// New validates spec and returns a waiter for it.
func New(spec Spec, opts ...Option) (*Waiter, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	w := &Waiter{spec: spec, clock: clock.RealClock{}, logger: logr.Discard()}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Spec returns the waiter's spec.
func (w *Waiter) Spec() Spec {
	return w.spec
}

// Run issues initiate and then waits. An initiate error is returned as is with
// a Pending result and no polls.
func (w *Waiter) Run(ctx context.Context, initiate func(ctx context.Context) error, poll PollFunc) (Result, error) {
	if err := initiate(ctx); err != nil {
		return Result{State: Pending}, err
	}
	return w.Wait(ctx, poll)
}

// Wait polls until a terminal state. A poll error that is not tolerated ends
// the wait with the error and a Pending result.
func (w *Waiter) Wait(ctx context.Context, poll PollFunc) (Result, error) {
	start := w.clock.Now()
	res := Result{State: Pending}
	log := w.logger.WithValues("operation", w.spec.Operation)

	for res.Polls < w.spec.MaxAttempts {
		if err := w.sleep(ctx); err != nil {
			return w.cancelled(res, start, err)
		}

		res.Polls++
		obs, err := poll(ctx)
		res.Elapsed = w.clock.Since(start)
		if err != nil && ctx.Err() != nil {
			return w.cancelled(res, start, ctx.Err())
		}
		if err != nil && !(w.spec.AcceptNotFound && apierr.IsKind(err, apierr.KindResourceNotFound)) {
			w.notify(res, obs, err)
			return res, err
		}
		if err == nil {
			res.LastState, res.Reason = obs.State, obs.Reason
		}

		switch {
		case err != nil:
			log.V(1).Info("resource not visible yet", "poll", res.Polls)
		case slices.Contains(w.spec.SuccessStates, obs.State):
			res.State = Succeeded
		case slices.Contains(w.spec.FailureStates, obs.State):
			res.State = Failed
		default:
			log.V(1).Info("resource pending", "poll", res.Polls, "state", obs.State)
		}
		w.notify(res, obs, err)

		switch res.State {
		case Succeeded:
			return res, nil
		case Failed:
			return res, &FailureError{Operation: w.spec.Operation, State: obs.State, Reason: obs.Reason}
		}
	}

	res.State = TimedOut
	res.Elapsed = w.clock.Since(start)
	log.Info("waiter timed out", "polls", res.Polls, "lastState", res.LastState)
	return res, fmt.Errorf("%s: %w after %d polls (last state %q)", w.spec.Operation, ErrTimedOut, res.Polls, res.LastState)
}

func (w *Waiter) sleep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := w.clock.NewTimer(w.spec.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

func (w *Waiter) cancelled(res Result, start time.Time, cause error) (Result, error) {
	res.State = Cancelled
	res.Elapsed = w.clock.Since(start)
	w.notify(res, Observation{State: res.LastState, Reason: res.Reason}, cause)
	return res, apierr.Cancelled(w.spec.Operation, cause)
}

func (w *Waiter) notify(res Result, obs Observation, err error) {
	if len(w.observers) == 0 {
		return
	}
	ev := Event{
		Operation:   w.spec.Operation,
		Poll:        res.Polls,
		MaxAttempts: w.spec.MaxAttempts,
		Observation: obs,
		Err:         err,
		Elapsed:     res.Elapsed,
		State:       res.State,
	}
	for _, fn := range w.observers {
		fn(ev)
	}
}
