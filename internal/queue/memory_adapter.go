package queue

import (
	"context"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// MemoryAdapter is an in-process Adapter backed by a buffered channel —
// used for tests and single-process deployments with Queue.Backend="memory".
type MemoryAdapter struct {
	ch chan model.Task
}

// NewMemoryAdapter creates a MemoryAdapter with the given channel capacity.
func NewMemoryAdapter(capacity int) *MemoryAdapter {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryAdapter{ch: make(chan model.Task, capacity)}
}

func (a *MemoryAdapter) Publish(ctx context.Context, t model.Task) error {
	select {
	case a.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *MemoryAdapter) Jobs() <-chan model.Task {
	return a.ch
}

// Depth reports the number of tasks currently buffered, for the health
// monitor's QueueDepthChecker.
func (a *MemoryAdapter) Depth() int {
	return len(a.ch)
}

func (a *MemoryAdapter) Close() error {
	close(a.ch)
	return nil
}
