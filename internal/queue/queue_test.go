package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/marketing-orchestrator/internal/cost"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

func budgetReader(level model.BudgetLevel, allowed ...model.Priority) cost.BudgetReader {
	set := make(map[model.Priority]bool, len(allowed))
	for _, p := range allowed {
		set[p] = true
	}
	return func() cost.BudgetState {
		return cost.BudgetState{Level: level, AllowedPriorities: set}
	}
}

type failingAdapter struct{}

func (failingAdapter) Publish(ctx context.Context, t model.Task) error { return errors.New("backend unavailable") }
func (failingAdapter) Jobs() <-chan model.Task                         { return nil }
func (failingAdapter) Close() error                                    { return nil }

func newTestWorkspaceWithTask(t *testing.T, taskID string, status model.TaskStatus) workspace.Workspace {
	t.Helper()
	ws, err := workspace.NewFSWorkspace(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, ws.WriteTask(context.Background(), model.Task{ID: taskID, Status: status}))
	return ws
}

func TestEnqueueBlocksAtExhaustedBudget(t *testing.T) {
	ws := newTestWorkspaceWithTask(t, "t1", model.TaskPending)
	m := &Manager{Adapter: NewMemoryAdapter(4), Budget: budgetReader(model.BudgetExhausted), Workspace: ws}
	outcome, err := m.Enqueue(context.Background(), model.Task{ID: "t1", Priority: model.PriorityP0})
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlocked, outcome)

	task, err := ws.ReadTask(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskBlocked, task.Status)
}

func TestEnqueueDefersDisallowedPriority(t *testing.T) {
	ws := newTestWorkspaceWithTask(t, "t1", model.TaskPending)
	m := &Manager{Adapter: NewMemoryAdapter(4), Budget: budgetReader(model.BudgetThrottle, model.PriorityP0, model.PriorityP1), Workspace: ws}
	outcome, err := m.Enqueue(context.Background(), model.Task{ID: "t1", Priority: model.PriorityP3})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeferred, outcome)

	task, err := ws.ReadTask(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskDeferred, task.Status)
}

func TestEnqueueWithoutWorkspaceStillReturnsOutcome(t *testing.T) {
	m := &Manager{Adapter: NewMemoryAdapter(4), Budget: budgetReader(model.BudgetExhausted)}
	outcome, err := m.Enqueue(context.Background(), model.Task{ID: "t1", Priority: model.PriorityP0})
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlocked, outcome)
}

func TestEnqueueSucceedsOnAllowedPriority(t *testing.T) {
	adapter := NewMemoryAdapter(4)
	m := &Manager{Adapter: adapter, Budget: budgetReader(model.BudgetNormal, model.PriorityP0, model.PriorityP1, model.PriorityP2, model.PriorityP3)}
	outcome, err := m.Enqueue(context.Background(), model.Task{ID: "t1", Priority: model.PriorityP1})
	require.NoError(t, err)
	assert.Equal(t, OutcomeEnqueued, outcome)

	got := <-adapter.Jobs()
	assert.Equal(t, "t1", got.ID)
}

func TestEnqueueFallsBackToFilesystemWhenAdapterFails(t *testing.T) {
	dir := t.TempDir()
	m := &Manager{Adapter: failingAdapter{}, Budget: budgetReader(model.BudgetNormal, model.PriorityP1), FallbackDir: dir}
	outcome, err := m.Enqueue(context.Background(), model.Task{ID: "t1", Priority: model.PriorityP1})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, outcome)

	data, err := m.DrainFallback()
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, "t1", data[0].ID)
}

func TestDrainFallbackRemovesFilesAfterReading(t *testing.T) {
	dir := t.TempDir()
	m := &Manager{Adapter: failingAdapter{}, Budget: budgetReader(model.BudgetNormal, model.PriorityP1), FallbackDir: dir}
	_, err := m.Enqueue(context.Background(), model.Task{ID: "t1", Priority: model.PriorityP1})
	require.NoError(t, err)

	first, err := m.DrainFallback()
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := m.DrainFallback()
	require.NoError(t, err)
	assert.Empty(t, second)

	_, statErr := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, statErr)
}
