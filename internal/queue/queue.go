// Package queue implements the priority-aware task queue manager and its
// worker processor (C11): budget-gated enqueue with filesystem fallback,
// a pluggable Adapter (NATS or in-memory), and a per-pipeline consecutive
// failure tracker. Grounded on the teacher's internal/dispatch/ratelimit.go
// (single-mutex gate-then-record discipline) and internal/dispatch/backoff.go
// (typed outcome over a raw bool/error pair), generalized from a rate-limited
// session dispatch into a budget-gated task queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/antigravity-dev/marketing-orchestrator/internal/cost"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

// EnqueueOutcome is the result of one Enqueue call (spec §4.8).
type EnqueueOutcome string

const (
	OutcomeEnqueued EnqueueOutcome = "enqueued"
	OutcomeDeferred EnqueueOutcome = "deferred"
	OutcomeBlocked  EnqueueOutcome = "blocked"
	OutcomeFallback EnqueueOutcome = "fallback"
)

// Adapter is the pluggable backing transport a Manager enqueues onto.
// Implementations: the in-memory adapter (tests, single-process deployments)
// and the NATS adapter (durable, multi-process deployments).
type Adapter interface {
	Publish(ctx context.Context, task model.Task) error
	// Jobs returns a channel of tasks the worker consumes from. Closed when
	// the adapter is stopped.
	Jobs() <-chan model.Task
	Close() error
}

// Manager gates and submits tasks onto an Adapter, falling back to the
// filesystem when the adapter itself fails.
type Manager struct {
	Adapter     Adapter
	Budget      cost.BudgetReader
	FallbackDir string
	Workspace   workspace.Workspace

	mu sync.Mutex
}

// Enqueue submits one task per the outcome rules in spec §4.8: budget
// exhaustion blocks the task outright; a disallowed priority (but budget not
// exhausted) defers it; an adapter failure writes it to the filesystem
// fallback directory instead of losing it. A blocked or deferred task has its
// persisted status updated to match (TaskBlocked/TaskDeferred) so the
// workspace reflects why it never reached the adapter.
func (m *Manager) Enqueue(ctx context.Context, task model.Task) (EnqueueOutcome, error) {
	state := m.Budget()
	if state.Level == model.BudgetExhausted {
		m.markStatus(ctx, task.ID, model.TaskBlocked)
		return OutcomeBlocked, nil
	}
	if !state.Allows(task.Priority) {
		m.markStatus(ctx, task.ID, model.TaskDeferred)
		return OutcomeDeferred, nil
	}

	if err := m.Adapter.Publish(ctx, task); err != nil {
		if ferr := m.writeFallback(task); ferr != nil {
			return "", fmt.Errorf("queue: adapter publish failed (%v) and fallback write failed: %w", err, ferr)
		}
		return OutcomeFallback, nil
	}
	return OutcomeEnqueued, nil
}

// markStatus best-effort transitions a task's persisted status when it is
// blocked or deferred at enqueue time. Workspace is optional (nil in tests
// that only assert on the returned EnqueueOutcome).
func (m *Manager) markStatus(ctx context.Context, taskID string, status model.TaskStatus) {
	if m.Workspace == nil {
		return
	}
	_ = m.Workspace.UpdateTaskStatus(ctx, taskID, status)
}

func (m *Manager) writeFallback(task model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.FallbackDir, 0o755); err != nil {
		return fmt.Errorf("queue: create fallback dir: %w", err)
	}
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return fmt.Errorf("queue: marshal fallback task: %w", err)
	}
	path := filepath.Join(m.FallbackDir, task.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("queue: write fallback task: %w", err)
	}
	return nil
}

// DrainFallback reads and removes every task file in the fallback directory,
// in lexical (creation-ID, hence roughly chronological) order, so a restarted
// worker can recover tasks an earlier adapter outage stranded on disk.
func (m *Manager) DrainFallback() ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.FallbackDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: read fallback dir: %w", err)
	}

	var tasks []model.Task
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(m.FallbackDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return tasks, fmt.Errorf("queue: read fallback file %s: %w", e.Name(), err)
		}
		var task model.Task
		if err := json.Unmarshal(data, &task); err != nil {
			return tasks, fmt.Errorf("queue: unmarshal fallback file %s: %w", e.Name(), err)
		}
		tasks = append(tasks, task)
		if err := os.Remove(path); err != nil {
			return tasks, fmt.Errorf("queue: remove drained fallback file %s: %w", e.Name(), err)
		}
	}
	return tasks, nil
}
