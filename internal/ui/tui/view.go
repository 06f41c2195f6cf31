package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imamik/computectl/internal/ui/benchmarks"
	"github.com/imamik/computectl/internal/waiter"
)

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	if len(m.History) > 0 {
		renderHistory(&b, m)
	}
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := fmt.Sprintf("computectl: waiting for %s", m.Title)
	if m.Region != "" {
		title += fmt.Sprintf(" (%s)", m.Region)
	}
	b.WriteString(titleStyle.Render(title))

	status := " "
	switch m.State {
	case waiter.Succeeded:
		status += readyStyle.Render(m.LastState)
	case waiter.Failed:
		status += failedStyle.Render("Failed: " + m.LastState)
	case waiter.TimedOut:
		status += warningStyle.Render("Timed out")
	case waiter.Cancelled:
		status += warningStyle.Render("Cancelled")
	default:
		state := m.LastState
		if state == "" {
			state = "pending"
		}
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(state)
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	pct := int(progress * 100)
	eta := ""
	if m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}
	polls := ""
	if m.MaxAttempts > 0 {
		polls = fmt.Sprintf("  poll %d/%d", m.Polls, m.MaxAttempts)
	}
	fmt.Fprintf(b, "\n  %s %3d%%%s%s\n", bar, pct, dimStyle.Render(eta), dimStyle.Render(polls))
}

func renderHistory(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Polls"))
	b.WriteString("\n")

	for _, ev := range m.History {
		icon, style := pollIcon(ev)
		detail := ev.Observation.State
		switch {
		case ev.Err != nil:
			detail = ev.Err.Error()
		case ev.Observation.Reason != "":
			detail += ": " + ev.Observation.Reason
		}
		fmt.Fprintf(b, "    %s %3d  %-8s %s\n", style(icon), ev.Poll, dimStyle.Render(formatDuration(ev.Elapsed)), style(detail))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	footer := fmt.Sprintf("elapsed %s", formatDuration(m.elapsed()))
	if !m.Done {
		footer += "  |  q: stop watching (the operation continues)"
	}
	if m.Err != nil && !errors.Is(m.Err, waiter.ErrTimedOut) && m.State != waiter.Failed {
		footer += "\n" + failedStyle.Render(m.Err.Error())
	}
	b.WriteString(footerStyle.Render(footer))
	b.WriteString("\n")
}

func pollIcon(ev waiter.Event) (string, func(...string) string) {
	switch {
	case ev.State == waiter.Succeeded:
		return checkMark, readyStyle.Render
	case ev.State == waiter.Failed, ev.Err != nil && ev.State != waiter.Pending:
		return crossMark, failedStyle.Render
	case ev.Err != nil:
		return warnMark, warningStyle.Render
	default:
		return "[..]", dimStyle.Render
	}
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func calculateProgress(m Model) float64 {
	if m.State == waiter.Succeeded {
		return 1.0
	}
	return benchmarks.Progress(m.Wait, m.elapsed(), m.Polls, m.MaxAttempts)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
