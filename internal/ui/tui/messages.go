// Package tui provides a Bubble Tea-based terminal UI for waiters.
package tui

import "github.com/imamik/computectl/internal/waiter"

// PollMsg carries one waiter poll.
type PollMsg struct {
	Event waiter.Event
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the wait finished.
type DoneMsg struct {
	Result waiter.Result
	Err    error
}
