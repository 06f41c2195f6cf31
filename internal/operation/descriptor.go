package operation

import (
	"fmt"
	"slices"
	"time"
)

// Descriptor is the static metadata of one remote operation.
type Descriptor struct {
	Name string

	// Mutating operations change remote state.
	Mutating bool
	// Idempotent operations accept a caller-supplied idempotency token.
	Idempotent bool
	// ReplaySafe operations converge on a target state, so replaying them after
	// the service saw the request has no additional effect (terminate, delete).
	ReplaySafe bool
	Paginated  bool
	// LongRunning operations return before the resource reaches a terminal state.
	LongRunning bool
	// Batch operations act on several resources and report per-resource outcomes.
	Batch bool

	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	IdempotencyTTL time.Duration

	retryableCodes map[string]struct{}
}

// OperationName implements apierr.Policy.
func (d Descriptor) OperationName() string {
	return d.Name
}

// RetryableCode reports whether the protocol error code is listed as
// retryable for this operation. Implements apierr.Policy.
func (d Descriptor) RetryableCode(code string) bool {
	_, ok := d.retryableCodes[code]
	return ok
}

// RetryableErrorCodes returns the retryable code set, sorted.
func (d Descriptor) RetryableErrorCodes() []string {
	codes := make([]string, 0, len(d.retryableCodes))
	for c := range d.retryableCodes {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}

// ReplayAllowed reports whether a failed attempt that reached the service may
// be retried. hasToken is true when the attempt carried an idempotency token.
func (d Descriptor) ReplayAllowed(hasToken bool) bool {
	if !d.Mutating || d.ReplaySafe {
		return true
	}
	return d.Idempotent && hasToken
}

func (d Descriptor) validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor without name")
	}
	if d.Idempotent && !d.Mutating {
		return fmt.Errorf("%s: idempotent operations must be mutating", d.Name)
	}
	if d.MaxAttempts < 1 {
		return fmt.Errorf("%s: maxAttempts must be at least 1, got %d", d.Name, d.MaxAttempts)
	}
	if d.BaseBackoff <= 0 || d.MaxBackoff <= 0 {
		return fmt.Errorf("%s: backoff durations must be positive", d.Name)
	}
	if d.BaseBackoff > d.MaxBackoff {
		return fmt.Errorf("%s: baseBackoff %s exceeds maxBackoff %s", d.Name, d.BaseBackoff, d.MaxBackoff)
	}
	return nil
}
