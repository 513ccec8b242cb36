// Package fanout runs a fixed set of independent calls on a bounded number of goroutines and
// joins them before the caller continues.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work. It reports failure through its result rather than an error, so
// that one failed call does not stop the others.
type Task[T any] func(ctx context.Context) T

type indexed[T any] struct {
	index int
	value T
}

// Gather runs tasks with at most maxWorkers running at a time (no limit if maxWorkers <= 0).
//
// If onResult is not nil it is called on the calling goroutine for each result, in task
// order, as soon as that task and all earlier ones have finished. Gather returns only after
// every task has finished, with results in task order.
func Gather[T any](ctx context.Context, maxWorkers int, tasks []Task[T], onResult func(index int, result T)) []T {
	results := make([]T, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	queue := NewSortingQueue[indexed[T]](len(tasks))
	go func() {
		var g errgroup.Group
		if maxWorkers > 0 {
			g.SetLimit(maxWorkers)
		}
		for i, task := range tasks {
			g.Go(func() error {
				queue.Accept(i+1, indexed[T]{index: i, value: task(ctx)})
				return nil
			})
		}
		_ = g.Wait()
		queue.Close()
	}()

	for r := range queue.C {
		results[r.index] = r.value
		if onResult != nil {
			onResult(r.index, r.value)
		}
	}
	return results
}
