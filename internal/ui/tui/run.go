package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/computectl/internal/waiter"
)

// WaitFunc runs a wait, reporting every poll to observe.
type WaitFunc func(ctx context.Context, observe func(waiter.Event)) (waiter.Result, error)

// RunWaitTUI shows fn's progress until it finishes. Quitting the TUI cancels
// the wait but not the remote operation.
func RunWaitTUI(ctx context.Context, title, region, wait string, fn WaitFunc) (waiter.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewWaitModel(title, region, wait)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	done := make(chan struct{})
	var (
		res     waiter.Result
		waitErr error
	)
	go func() {
		defer close(done)
		res, waitErr = fn(ctx, func(ev waiter.Event) {
			p.Send(PollMsg{Event: ev})
		})
		p.Send(DoneMsg{Result: res, Err: waitErr})
	}()

	_, err := p.Run()
	cancel()
	<-done
	if err != nil && waitErr == nil && !res.State.Terminal() {
		return res, fmt.Errorf("TUI error: %w", err)
	}
	return res, waitErr
}
