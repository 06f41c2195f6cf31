package async

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Task is a named unit of work.
type Task struct {
	Name string
	Func func(context.Context) error
}

// Run executes tasks concurrently, at most limit at a time (unbounded when
// limit <= 0), and waits for all of them. A failing task does not cancel the
// others. Failures are joined, each prefixed with its task name.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "i-1", Func: waitRunning("i-1")},
//	    {Name: "i-2", Func: waitRunning("i-2")},
//	}
//	if err := Run(ctx, tasks, 4); err != nil {
//	    return err
//	}
func Run(ctx context.Context, tasks []Task, limit int) error {
	if len(tasks) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs = make([]error, len(tasks))
	)
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, task := range tasks {
		g.Go(func() error {
			if err := task.Func(ctx); err != nil {
				mu.Lock()
				errs[i] = fmt.Errorf("%s: %w", task.Name, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
