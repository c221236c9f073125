// Package concurrency implements the bounded fan-out harness used by the
// pipeline engine's parallel steps: at most maxConcurrency tasks running at
// once, fail-fast cancellation of siblings, results reassembled in input
// order. Grounded on the teacher's internal/dispatch concurrency idiom
// (bounded worker pools gated by a semaphore, first-failure-wins
// cancellation) using golang.org/x/sync/semaphore for the admission gate.
package concurrency

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Task is one unit of fan-out work. It must respect ctx cancellation.
type Task[T any] func(ctx context.Context) (T, error)

// Result is one task's outcome, indexed by its position in the input
// slice so callers can reassemble by index even though tasks may
// complete out of order.
type Result[T any] struct {
	Value T
	Err   error
}

// Outcome is the harness's overall return value.
type Outcome[T any] struct {
	Results           []Result[T]
	FirstFailureIndex int // -1 if no task failed
	Aborted           bool // true iff the parent signal (not fail-fast) caused cancellation
}

// Run launches at most maxConcurrency tasks at a time from tasks. Each
// task receives a child context that is cancelled when either the parent
// ctx is cancelled or any sibling has already failed (fail-fast). Once the
// child context is cancelled no new tasks are launched; Outcome.Results
// only covers tasks that were actually started, in input order.
func Run[T any](ctx context.Context, tasks []Task[T], maxConcurrency int) Outcome[T] {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	n := len(tasks)
	results := make([]Result[T], n)
	started := make([]bool, n)

	childCtx, cancelChild := context.WithCancel(ctx)
	defer cancelChild()

	var (
		mu                sync.Mutex
		firstFailureIndex = -1
		failed            bool
	)

	sem := semaphore.NewWeighted(int64(maxConcurrency))
	var wg sync.WaitGroup

	for i, task := range tasks {
		mu.Lock()
		stop := failed || childCtx.Err() != nil
		mu.Unlock()
		if stop {
			break
		}

		if err := sem.Acquire(childCtx, 1); err != nil {
			break
		}

		mu.Lock()
		started[i] = true
		mu.Unlock()

		wg.Add(1)
		go func(idx int, t Task[T]) {
			defer wg.Done()
			defer sem.Release(1)

			val, err := t(childCtx)
			results[idx] = Result[T]{Value: val, Err: err}

			if err != nil {
				mu.Lock()
				if firstFailureIndex == -1 || idx < firstFailureIndex {
					firstFailureIndex = idx
				}
				if !failed {
					failed = true
					cancelChild()
				}
				mu.Unlock()
			}
		}(i, task)
	}

	wg.Wait()

	var out []Result[T]
	for i, s := range started {
		if s {
			out = append(out, results[i])
		}
	}

	mu.Lock()
	defer mu.Unlock()
	// aborted reflects the *parent* signal, not fail-fast: if the parent
	// ctx was never cancelled, any cancellation was fail-fast-only.
	aborted := ctx.Err() != nil
	return Outcome[T]{
		Results:           out,
		FirstFailureIndex: firstFailureIndex,
		Aborted:           aborted,
	}
}
