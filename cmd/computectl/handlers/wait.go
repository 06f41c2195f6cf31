package handlers

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/ui/tui"
	"github.com/imamik/computectl/internal/util/async"
	"github.com/imamik/computectl/internal/waiter"
)

// Wait conditions accepted by the wait command.
const (
	ConditionImageAvailable     = "image-available"
	ConditionInstanceRunning    = "instance-running"
	ConditionInstanceTerminated = "instance-terminated"
)

// Conditions lists the wait conditions.
var Conditions = []string{ConditionImageAvailable, ConditionInstanceRunning, ConditionInstanceTerminated}

var runWaitTUI = tui.RunWaitTUI

// waitView is the rendered result of a wait.
type waitView struct {
	Resource  string `json:"resource"`
	Condition string `json:"condition"`
	State     string `json:"state"`
	LastState string `json:"lastState,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Polls     int    `json:"polls"`
	Elapsed   string `json:"elapsed"`
}

// Wait blocks until resource id reaches condition.
func Wait(ctx context.Context, g *Globals, condition, id string) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	var (
		name string
		fn   waitFunc
	)
	switch condition {
	case ConditionImageAvailable:
		name, fn = compute.WaitImageAvailable, (*compute.Client).WaitUntilImageAvailable
	case ConditionInstanceRunning:
		name, fn = compute.WaitInstanceRunning, (*compute.Client).WaitUntilInstanceRunning
	case ConditionInstanceTerminated:
		name, fn = compute.WaitInstanceTerminated, (*compute.Client).WaitUntilInstanceTerminated
	default:
		return fmt.Errorf("unknown condition %q (want one of %v)", condition, Conditions)
	}

	res, err := s.runWait(ctx, id, name, func(ctx context.Context, c *compute.Client) (waiter.Result, error) {
		return fn(c, ctx, id)
	})
	if rerr := s.renderWait(id, condition, res); rerr != nil {
		return rerr
	}
	return err
}

// waitFunc waits for one resource.
type waitFunc func(c *compute.Client, ctx context.Context, id string) (waiter.Result, error)

// maxParallelWaits bounds concurrent waits of one command.
const maxParallelWaits = 8

// waitClient returns a facade over the session's dispatcher whose waiters
// report every poll to observe.
func (s *Session) waitClient(observe func(waiter.Event)) *compute.Client {
	opts := append(slices.Clone(s.computeOpts), compute.WithWaiterOptions(waiter.WithObserver(observe)))
	return compute.New(s.Compute.Dispatcher(), opts...)
}

// runWait runs fn and shows its polls, in the TUI when stdout is a terminal.
func (s *Session) runWait(ctx context.Context, title, wait string, fn func(ctx context.Context, c *compute.Client) (waiter.Result, error)) (waiter.Result, error) {
	if s.tui {
		return runWaitTUI(ctx, title, s.Config.Region, wait, func(ctx context.Context, observe func(waiter.Event)) (waiter.Result, error) {
			return fn(ctx, s.waitClient(observe))
		})
	}
	return fn(ctx, s.waitClient(func(ev waiter.Event) { printPoll(stderr, title, ev) }))
}

// waitAll waits for every id. Several ids are waited on concurrently with
// plain progress lines.
func (s *Session) waitAll(ctx context.Context, ids []string, wait string, fn waitFunc) error {
	if len(ids) == 1 {
		_, err := s.runWait(ctx, "instance "+ids[0], wait, func(ctx context.Context, c *compute.Client) (waiter.Result, error) {
			return fn(c, ctx, ids[0])
		})
		return err
	}

	var mu sync.Mutex
	tasks := make([]async.Task, len(ids))
	for i, id := range ids {
		title := "instance " + id
		c := s.waitClient(func(ev waiter.Event) {
			mu.Lock()
			defer mu.Unlock()
			printPoll(stderr, title, ev)
		})
		tasks[i] = async.Task{Name: title, Func: func(ctx context.Context) error {
			_, err := fn(c, ctx, id)
			return err
		}}
	}
	return async.Run(ctx, tasks, maxParallelWaits)
}

func printPoll(w io.Writer, title string, ev waiter.Event) {
	detail := ev.Observation.State
	if ev.Err != nil {
		detail = "error: " + ev.Err.Error()
	} else if ev.Observation.Reason != "" {
		detail += " (" + ev.Observation.Reason + ")"
	}
	fmt.Fprintf(w, "%s: poll %d/%d %s [%s]\n", title, ev.Poll, ev.MaxAttempts, detail, ev.Elapsed.Round(time.Second))
}

func (s *Session) renderWait(id, condition string, res waiter.Result) error {
	v := waitView{
		Resource:  id,
		Condition: condition,
		State:     string(res.State),
		LastState: res.LastState,
		Reason:    res.Reason,
		Polls:     res.Polls,
		Elapsed:   res.Elapsed.Round(time.Second).String(),
	}
	return s.render(v, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "RESOURCE\tCONDITION\tRESULT\tLAST STATE\tPOLLS\tELAPSED")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", v.Resource, v.Condition, v.State, dash(v.LastState), v.Polls, v.Elapsed)
	})
}
