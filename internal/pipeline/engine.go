// Package pipeline implements the pipeline engine (C8): sequential,
// parallel, and review steps executed in order over a PipelineDefinition,
// grounded on the teacher's stage-machine dispatch loop (internal/dispatch)
// generalized from a fixed dispatch/review/merge stage sequence to an
// arbitrary ordered step list, using the concurrency harness for parallel
// steps.
package pipeline

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/marketing-orchestrator/internal/concurrency"
	"github.com/antigravity-dev/marketing-orchestrator/internal/executor"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

// TaskFactory creates the one task a sequential step (or one skill of a
// parallel step) needs, wiring in the upstream output paths as inputs.
type TaskFactory interface {
	CreateTask(ctx context.Context, run model.PipelineRun, step model.Step, skill string, inputPaths []string) (model.Task, error)
}

// Executor is the subset of *executor.Executor the engine depends on.
type Executor interface {
	Execute(ctx context.Context, taskID string, opts executor.Options) executor.Result
}

// ErrCode is the pipeline engine's own small error taxonomy.
type ErrCode string

// ErrNoSteps is returned when a pipeline definition has zero steps (B4).
const ErrNoSteps ErrCode = "NO_STEPS"

// PipelineError is the typed error the engine never lets escape as a raw
// panic — it always surfaces as part of a StepResult/run status instead.
type PipelineError struct {
	Code    ErrCode
	Message string
}

func (e *PipelineError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// StepOutcome describes what happened on one Advance call.
type StepOutcome struct {
	Run         model.PipelineRun
	OutputPaths []string
	Err         *PipelineError
}

// Engine drives one PipelineRun through its PipelineDefinition's steps.
type Engine struct {
	Workspace      workspace.Workspace
	Factory        TaskFactory
	Executor       Executor
	MaxConcurrency int
}

// Advance runs run forward from its current position through as many
// steps as it can: from the start (pending) it begins at step 0; resuming
// a paused run skips the step it paused at (a review step) and uses
// initialInputPaths as the input to the following step. It never panics
// out — unexpected errors are captured into the run's failed status and
// a typed StepOutcome.Err (design note: "it never throws").
func (e *Engine) Advance(ctx context.Context, def model.PipelineDefinition, run model.PipelineRun, initialInputPaths []string) (outcome StepOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome.Run.Status = model.PipelineFailed
			outcome.Err = &PipelineError{Code: "UNKNOWN", Message: fmt.Sprintf("panic recovered: %v", r)}
		}
	}()

	if run.Status != model.PipelinePending && run.Status != model.PipelinePaused {
		return StepOutcome{Run: run, Err: &PipelineError{Code: "NOT_STARTABLE", Message: fmt.Sprintf("run status %q cannot be advanced", run.Status)}}
	}

	if len(def.Steps) == 0 {
		run.Status = model.PipelineFailed
		return StepOutcome{Run: run, Err: &PipelineError{Code: ErrNoSteps, Message: "pipeline definition has no steps"}}
	}

	idx := run.CurrentStepIndex
	inputPaths := initialInputPaths
	if run.Status == model.PipelinePaused {
		idx = run.CurrentStepIndex + 1 // skip past the review step we paused at
	}

	run.Status = model.PipelineRunning

	for idx < len(def.Steps) {
		if ctx.Err() != nil {
			run.Status = model.PipelineCancelled
			run.CurrentStepIndex = idx
			return StepOutcome{Run: run, OutputPaths: inputPaths}
		}

		step := def.Steps[idx]
		switch step.Kind {
		case model.StepReview:
			run.Status = model.PipelinePaused
			run.CurrentStepIndex = idx
			return StepOutcome{Run: run, OutputPaths: inputPaths}

		case model.StepSequential:
			outputs, perr := e.runSequential(ctx, run, step, inputPaths)
			if perr != nil {
				run.Status = model.PipelineFailed
				run.CurrentStepIndex = idx
				return StepOutcome{Run: run, Err: perr}
			}
			inputPaths = outputs

		case model.StepParallel:
			outputs, perr := e.runParallel(ctx, run, step, inputPaths)
			if perr != nil {
				run.Status = model.PipelineFailed
				run.CurrentStepIndex = idx
				return StepOutcome{Run: run, Err: perr}
			}
			inputPaths = outputs

		default:
			run.Status = model.PipelineFailed
			run.CurrentStepIndex = idx
			return StepOutcome{Run: run, Err: &PipelineError{Code: "UNKNOWN_STEP_KIND", Message: string(step.Kind)}}
		}

		idx++
	}

	run.Status = model.PipelineCompleted
	run.CurrentStepIndex = idx
	return StepOutcome{Run: run, OutputPaths: inputPaths}
}

func (e *Engine) runSequential(ctx context.Context, run model.PipelineRun, step model.Step, inputPaths []string) ([]string, *PipelineError) {
	task, err := e.Factory.CreateTask(ctx, run, step, step.Skill, inputPaths)
	if err != nil {
		return nil, &PipelineError{Code: "TASK_CREATE_FAILED", Message: err.Error()}
	}
	run.TaskIDs = append(run.TaskIDs, task.ID)

	result := e.Executor.Execute(ctx, task.ID, executor.Options{})
	if result.Err != nil {
		return nil, &PipelineError{Code: ErrCode(result.Err.Code), Message: result.Err.Error()}
	}
	return []string{result.OutputPath}, nil
}

func (e *Engine) runParallel(ctx context.Context, run model.PipelineRun, step model.Step, inputPaths []string) ([]string, *PipelineError) {
	tasks := make([]model.Task, 0, len(step.Skills))
	for _, skill := range step.Skills {
		task, err := e.Factory.CreateTask(ctx, run, step, skill, inputPaths)
		if err != nil {
			return nil, &PipelineError{Code: "TASK_CREATE_FAILED", Message: err.Error()}
		}
		tasks = append(tasks, task)
		run.TaskIDs = append(run.TaskIDs, task.ID)
	}

	harnessTasks := make([]concurrency.Task[executor.Result], len(tasks))
	for i, task := range tasks {
		taskID := task.ID
		harnessTasks[i] = func(ctx context.Context) (executor.Result, error) {
			result := e.Executor.Execute(ctx, taskID, executor.Options{})
			if result.Err != nil {
				return result, result.Err
			}
			return result, nil
		}
	}

	maxConcurrency := e.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = len(harnessTasks)
	}
	outcome := concurrency.Run(ctx, harnessTasks, maxConcurrency)

	if outcome.FirstFailureIndex != -1 {
		for _, r := range outcome.Results {
			if r.Err != nil {
				return nil, &PipelineError{Code: "PARALLEL_STEP_FAILED", Message: r.Err.Error()}
			}
		}
		return nil, &PipelineError{Code: "PARALLEL_STEP_FAILED", Message: "a parallel sub-task failed"}
	}

	outputs := make([]string, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		if r.Value.OutputPath != "" {
			outputs = append(outputs, r.Value.OutputPath)
		}
	}
	return outputs, nil
}
