package metrics

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result is the settled outcome of one task.
type Result[T any] struct {
	Value T
	Err   error
}

// Task is one unit of a fan-out.
type Task[T any] func(ctx context.Context) (T, error)

// Settle runs every task concurrently and waits for all of them. A failing
// or panicking task only affects its own Result; siblings always run to
// completion. results[i] belongs to tasks[i]. A positive limit bounds the
// number of tasks in flight.
func Settle[T any](ctx context.Context, limit int, tasks ...Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, task := range tasks {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = Result[T]{Err: fmt.Errorf("task panicked: %v", r)}
				}
			}()
			v, err := task(ctx)
			results[i] = Result[T]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
