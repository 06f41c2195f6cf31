package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/computectl/internal/ui/benchmarks"
	"github.com/imamik/computectl/internal/waiter"
)

// maxHistory bounds the polls kept for display.
const maxHistory = 8

// Model is the Bubble Tea model of a running wait.
type Model struct {
	// Title names the resource, e.g. "image 1234".
	Title  string
	Region string
	// Wait is the waiter name, used for timing estimates.
	Wait string

	Polls       int
	MaxAttempts int
	LastState   string
	Reason      string
	State       waiter.State
	History     []waiter.Event

	EstimatedRemaining time.Duration
	StartTime          time.Time
	now                func() time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width  int
	Height int
	Err    error
	Done   bool
	Result waiter.Result
}

// NewWaitModel creates a model for one wait.
func NewWaitModel(title, region, wait string) Model {
	m := Model{
		Title:     title,
		Region:    region,
		Wait:      wait,
		State:     waiter.Pending,
		StartTime: time.Now(),
		now:       time.Now,
	}
	m.EstimatedRemaining = benchmarks.EstimateRemaining(wait, 0)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case PollMsg:
		m.applyEvent(msg.Event)

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA()
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		m.Result = msg.Result
		m.State = msg.Result.State
		m.Err = msg.Err
		if msg.Result.Polls > 0 {
			m.Polls = msg.Result.Polls
			m.LastState = msg.Result.LastState
			m.Reason = msg.Result.Reason
		}
		m.EstimatedRemaining = 0
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyEvent(ev waiter.Event) {
	m.Polls = ev.Poll
	m.MaxAttempts = ev.MaxAttempts
	m.State = ev.State
	if ev.Err == nil {
		m.LastState = ev.Observation.State
		m.Reason = ev.Observation.Reason
	}
	m.History = append(m.History, ev)
	if len(m.History) > maxHistory {
		m.History = m.History[len(m.History)-maxHistory:]
	}
}

func (m *Model) elapsed() time.Duration {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	return now().Sub(m.StartTime)
}

func (m *Model) updateETA() {
	if m.State.Terminal() {
		m.EstimatedRemaining = 0
		return
	}
	m.EstimatedRemaining = benchmarks.EstimateRemaining(m.Wait, m.elapsed())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
