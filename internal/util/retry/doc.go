// Package retry runs an operation with bounded exponential backoff and jitter.
//
// [Do] issues the first attempt immediately. After a failure it consults the
// configured retry predicate, stops when the error is not retryable or the
// attempt budget is spent, and otherwise sleeps
//
//	min(MaxDelay, InitialDelay * Multiplier^(attempt-1)) * jitter
//
// with jitter drawn uniformly from [0.5, 1.0). Cancelling the context aborts
// both the sleep and the in-flight attempt; Do then returns a [*CancelledError]
// whatever the remaining budget.
//
// Errors wrapped with [Fatal] are never retried.
package retry
