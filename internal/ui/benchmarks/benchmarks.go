// Package benchmarks provides timing estimates for waiters.
package benchmarks

import (
	"time"
)

// DefaultTimings are typical durations of each wait in seconds.
var DefaultTimings = map[string]int{
	"InstanceRunning":    45,
	"InstanceTerminated": 60,
	"ImageAvailable":     240,
}

// ExpectedDuration returns the benchmark duration of a wait.
func ExpectedDuration(wait string) (time.Duration, bool) {
	secs, ok := DefaultTimings[wait]
	if !ok {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// PerformanceScale derives a speed multiplier from an overrunning wait.
// Example: expected 4m, observed 6m => scale=1.5.
func PerformanceScale(wait string, elapsed time.Duration) float64 {
	expected, ok := ExpectedDuration(wait)
	if !ok || elapsed <= expected {
		return 1.0
	}
	scale := float64(elapsed) / float64(expected)
	if scale > 3.0 {
		return 3.0
	}
	return scale
}

// EstimateRemaining returns the expected time left. A wait that overran its
// benchmark is given a quarter of the benchmark again, stretched by scale.
func EstimateRemaining(wait string, elapsed time.Duration) time.Duration {
	expected, ok := ExpectedDuration(wait)
	if !ok {
		return 0
	}
	if elapsed < expected {
		return expected - elapsed
	}
	return time.Duration(float64(expected/4) * PerformanceScale(wait, elapsed))
}

// Progress estimates how far along a wait is, in [0, 1). It never reports
// completion; only the waiter's terminal state does.
func Progress(wait string, elapsed time.Duration, polls, maxPolls int) float64 {
	var p float64
	if expected, ok := ExpectedDuration(wait); ok && expected > 0 {
		p = float64(elapsed) / float64(expected)
	}
	if maxPolls > 0 {
		p = max(p, float64(polls)/float64(maxPolls))
	}
	return min(p, 0.95)
}
