package transport

import (
	"errors"
	"fmt"
)

// Outcome is the result for one resource of a batch operation.
type Outcome struct {
	ResourceID    string `json:"resourceId"`
	PreviousState string `json:"previousState,omitempty"`
	CurrentState  string `json:"currentState,omitempty"`
	Err           error  `json:"-"`
	// Error mirrors Err for serialization.
	Error string `json:"error,omitempty"`
}

// Failure builds a failed outcome.
func Failure(id string, err error) Outcome {
	return Outcome{ResourceID: id, Err: err, Error: err.Error()}
}

// OK reports whether the resource succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Outcomes are the per-resource results of a batch call. A batch call that
// reached the service returns no top-level error even when some resources
// failed.
type Outcomes []Outcome

// Succeeded returns the successful outcomes.
func (oc Outcomes) Succeeded() Outcomes {
	var out Outcomes
	for _, o := range oc {
		if o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Failed returns the failed outcomes.
func (oc Outcomes) Failed() Outcomes {
	var out Outcomes
	for _, o := range oc {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Partial reports whether some but not all resources failed.
func (oc Outcomes) Partial() bool {
	f := len(oc.Failed())
	return f > 0 && f < len(oc)
}

// Err joins the per-resource failures, or returns nil.
func (oc Outcomes) Err() error {
	var errs []error
	for _, o := range oc {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.ResourceID, o.Err))
		}
	}
	return errors.Join(errs...)
}

// IDs returns the resource IDs in order.
func (oc Outcomes) IDs() []string {
	ids := make([]string, len(oc))
	for i, o := range oc {
		ids[i] = o.ResourceID
	}
	return ids
}
