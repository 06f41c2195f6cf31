package async

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_Success(t *testing.T) {
	var count atomic.Int32
	task := func(_ context.Context) error {
		count.Add(1)
		return nil
	}

	tasks := []Task{{Name: "task1", Func: task}, {Name: "task2", Func: task}, {Name: "task3", Func: task}}
	if err := Run(context.Background(), tasks, 0); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
	if count.Load() != 3 {
		t.Errorf("expected 3 tasks to run, got %d", count.Load())
	}
}

func TestRun_EmptyTasks(t *testing.T) {
	if err := Run(context.Background(), nil, 0); err != nil {
		t.Errorf("expected no error for empty tasks, got: %v", err)
	}
	if err := Run(context.Background(), []Task{}, 2); err != nil {
		t.Errorf("expected no error for empty slice, got: %v", err)
	}
}

func TestRun_CollectsAllErrors(t *testing.T) {
	errA := errors.New("boom a")
	errB := errors.New("boom b")
	var finished atomic.Int32

	tasks := []Task{
		{Name: "a", Func: func(_ context.Context) error { return errA }},
		{Name: "ok", Func: func(_ context.Context) error {
			time.Sleep(5 * time.Millisecond)
			finished.Add(1)
			return nil
		}},
		{Name: "b", Func: func(_ context.Context) error { return errB }},
	}

	err := Run(context.Background(), tasks, 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both task errors, got: %v", err)
	}
	if !strings.Contains(err.Error(), "a: boom a") || !strings.Contains(err.Error(), "b: boom b") {
		t.Errorf("errors should carry task names, got: %v", err)
	}
	if finished.Load() != 1 {
		t.Error("a failing task must not stop the others")
	}
}

func TestRun_ErrorOrderFollowsTasks(t *testing.T) {
	tasks := []Task{
		{Name: "first", Func: func(_ context.Context) error {
			time.Sleep(5 * time.Millisecond)
			return errors.New("slow")
		}},
		{Name: "second", Func: func(_ context.Context) error { return errors.New("fast") }},
	}

	err := Run(context.Background(), tasks, 0)
	if got, want := err.Error(), "first: slow\nsecond: fast"; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

func TestRun_Limit(t *testing.T) {
	var running, peak atomic.Int32
	task := func(_ context.Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	}

	tasks := make([]Task, 6)
	for i := range tasks {
		tasks[i] = Task{Name: "t", Func: task}
	}
	if err := Run(context.Background(), tasks, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task{{Name: "waiter", Func: func(ctx context.Context) error { return ctx.Err() }}}
	err := Run(ctx, tasks, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}
