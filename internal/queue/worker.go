package queue

import (
	"context"
	"log/slog"

	"github.com/antigravity-dev/marketing-orchestrator/internal/cost"
	"github.com/antigravity-dev/marketing-orchestrator/internal/executor"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/router"
)

// TaskExecutor is the subset of *executor.Executor the worker depends on, so
// tests can substitute a fake without the real LLM/prompt/tool stack.
type TaskExecutor interface {
	Execute(ctx context.Context, taskID string, opts executor.Options) executor.Result
}

// TaskRouter is the subset of *router.Router the worker depends on.
type TaskRouter interface {
	Route(ctx context.Context, taskID string, execErr error) (router.Result, error)
}

// Worker pulls jobs off a Manager's Adapter, executes them, routes the
// completion, and re-enqueues whatever the router produces (spec §4.8
// "worker processor").
type Worker struct {
	Manager  *Manager
	Executor TaskExecutor
	Router   TaskRouter
	Failures *FailureTracker
	Budget   cost.BudgetReader
	Logger   *slog.Logger
}

// Run consumes jobs from w.Manager.Adapter.Jobs() until the channel closes
// or ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	jobs := w.Manager.Adapter.Jobs()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, task)
		}
	}
}

// process runs one job end to end: budget re-check, execution, routing, and
// failure-tracker bookkeeping.
func (w *Worker) process(ctx context.Context, task model.Task) {
	state := w.Budget()
	if state.Level == model.BudgetExhausted || !state.Allows(task.Priority) {
		w.log().Info("worker deferring task at re-check, budget disallows priority", "task", task.ID, "priority", task.Priority)
		if _, err := w.Manager.Enqueue(ctx, task); err != nil {
			w.log().Error("worker failed to re-enqueue deferred task", "task", task.ID, "error", err)
		}
		return
	}

	result := w.Executor.Execute(ctx, task.ID, executor.Options{})

	var execErr error
	if result.Err != nil {
		execErr = result.Err
	}

	if result.Status == model.TaskFailed {
		if task.PipelineID != "" && w.Failures.RecordFailure(task.PipelineID) {
			w.log().Warn("pipeline exceeded consecutive failure threshold, pausing", "pipeline", task.PipelineID, "task", task.ID)
		}
	} else if task.PipelineID != "" {
		w.Failures.RecordSuccess(task.PipelineID)
	}

	routed, err := w.Router.Route(ctx, task.ID, execErr)
	if err != nil {
		w.log().Error("worker: routing failed", "task", task.ID, "error", err)
		return
	}

	switch routed.Outcome {
	case router.OutcomeEnqueueTasks:
		for _, next := range routed.NextTasks {
			if _, err := w.Manager.Enqueue(ctx, next); err != nil {
				w.log().Error("worker failed to enqueue follow-up task", "task", next.ID, "error", err)
			}
		}
	case router.OutcomePauseCascade:
		w.log().Warn("worker: router paused cascade", "task", task.ID, "reason", routed.Reason)
	case router.OutcomeComplete:
		// nothing further to do
	}
}

func (w *Worker) log() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
