package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/computectl/internal/waiter"
)

func fixedModel(elapsed time.Duration) Model {
	m := NewWaitModel("image img-1", "fsn1", "ImageAvailable")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.StartTime = start
	m.now = func() time.Time { return start.Add(elapsed) }
	return m
}

func poll(n int, state string, s waiter.State) PollMsg {
	return PollMsg{Event: waiter.Event{
		Operation:   "DescribeImages",
		Poll:        n,
		MaxAttempts: 40,
		Observation: waiter.Observation{State: state},
		State:       s,
		Elapsed:     time.Duration(n) * 15 * time.Second,
	}}
}

func TestModelAppliesPolls(t *testing.T) {
	m := fixedModel(30 * time.Second)

	updated, _ := m.Update(poll(1, "pending", waiter.Pending))
	updated, _ = updated.Update(poll(2, "pending", waiter.Pending))
	got := updated.(Model)

	if got.Polls != 2 || got.MaxAttempts != 40 {
		t.Errorf("polls = %d/%d, want 2/40", got.Polls, got.MaxAttempts)
	}
	if got.LastState != "pending" {
		t.Errorf("LastState = %q, want pending", got.LastState)
	}
	if len(got.History) != 2 {
		t.Errorf("history length = %d, want 2", len(got.History))
	}
}

func TestModelHistoryIsBounded(t *testing.T) {
	var tm tea.Model = fixedModel(0)
	for i := 1; i <= maxHistory+5; i++ {
		tm, _ = tm.Update(poll(i, "pending", waiter.Pending))
	}
	got := tm.(Model)
	if len(got.History) != maxHistory {
		t.Fatalf("history length = %d, want %d", len(got.History), maxHistory)
	}
	if got.History[0].Poll != 6 {
		t.Errorf("oldest kept poll = %d, want 6", got.History[0].Poll)
	}
}

func TestModelPollErrorKeepsLastState(t *testing.T) {
	var tm tea.Model = fixedModel(0)
	tm, _ = tm.Update(poll(1, "pending", waiter.Pending))
	tm, _ = tm.Update(PollMsg{Event: waiter.Event{Poll: 2, MaxAttempts: 40, Err: errors.New("throttled"), State: waiter.Pending}})

	got := tm.(Model)
	if got.LastState != "pending" {
		t.Errorf("LastState = %q, want pending", got.LastState)
	}
	if !strings.Contains(got.View(), "throttled") {
		t.Error("view should show the poll error")
	}
}

func TestModelDoneQuits(t *testing.T) {
	m := fixedModel(time.Minute)
	updated, cmd := m.Update(DoneMsg{Result: waiter.Result{State: waiter.Succeeded, Polls: 4, LastState: "available"}})
	got := updated.(Model)

	if !got.Done || got.State != waiter.Succeeded {
		t.Errorf("Done = %v, State = %q", got.Done, got.State)
	}
	if got.Polls != 4 || got.LastState != "available" {
		t.Errorf("result not applied: polls=%d state=%q", got.Polls, got.LastState)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if calculateProgress(got) != 1.0 {
		t.Errorf("progress = %v, want 1.0", calculateProgress(got))
	}
}

func TestModelKeyQuits(t *testing.T) {
	m := fixedModel(0)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestModelTickAdvances(t *testing.T) {
	m := fixedModel(2 * time.Minute)
	updated, cmd := m.Update(TickMsg{})
	got := updated.(Model)
	if got.SpinnerFrame != 1 {
		t.Errorf("SpinnerFrame = %d, want 1", got.SpinnerFrame)
	}
	if got.EstimatedRemaining != 2*time.Minute {
		t.Errorf("EstimatedRemaining = %v, want 2m", got.EstimatedRemaining)
	}
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
}

func TestViewStates(t *testing.T) {
	tests := []struct {
		name  string
		state waiter.State
		last  string
		want  string
	}{
		{"pending", waiter.Pending, "", "pending"},
		{"succeeded", waiter.Succeeded, "available", "available"},
		{"failed", waiter.Failed, "failed", "Failed: failed"},
		{"timed out", waiter.TimedOut, "pending", "Timed out"},
		{"cancelled", waiter.Cancelled, "pending", "Cancelled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fixedModel(10 * time.Second)
			m.State = tt.state
			m.LastState = tt.last
			view := m.View()
			if !strings.Contains(view, tt.want) {
				t.Errorf("view missing %q:\n%s", tt.want, view)
			}
			if !strings.Contains(view, "image img-1 (fsn1)") {
				t.Errorf("view missing title:\n%s", view)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m30s"},
		{61 * time.Minute, "1h1m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestCurrentSpinner(t *testing.T) {
	if currentSpinner(0) != spinnerFrames[0] {
		t.Error("frame 0 mismatch")
	}
	if currentSpinner(len(spinnerFrames)) != spinnerFrames[0] {
		t.Error("frames should wrap")
	}
}
