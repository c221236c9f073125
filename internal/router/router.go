// Package router implements the completion router (C12): given a finished
// task, it decides what happens next purely from task.Next.Type and
// persists every consequence (status update, review, follow-up tasks)
// before returning, grounded on the teacher's chief completion_verification.go
// "DoD gate then advance" shape, generalized from a single bead-completion
// check into three named routes.
package router

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/marketing-orchestrator/internal/director"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

// Outcome is the router's verdict to the caller (queue worker): whether to
// stop, enqueue more tasks, or pause the owning pipeline/cascade.
type Outcome string

const (
	OutcomeComplete     Outcome = "complete"
	OutcomeEnqueueTasks Outcome = "enqueue_tasks"
	OutcomePauseCascade Outcome = "pause_cascade"
)

// Result carries the outcome plus any tasks the caller must enqueue next.
type Result struct {
	Outcome   Outcome
	NextTasks []model.Task
	Reason    string
}

// Router dispatches a completed task to its next step.
type Router struct {
	Workspace workspace.Workspace
	Director  *director.Director
}

// Route handles one completed (or failed) task. execErr is the executor's
// failure (if any) for this run; a non-nil execErr always routes to
// pause_cascade without consulting task.Next, since a failed execution has
// no output to review or continue from.
func (r *Router) Route(ctx context.Context, taskID string, execErr error) (Result, error) {
	task, err := r.Workspace.ReadTask(ctx, taskID)
	if err != nil {
		return Result{}, fmt.Errorf("router: read task: %w", err)
	}

	if execErr != nil {
		return Result{Outcome: OutcomePauseCascade, Reason: execErr.Error()}, nil
	}

	switch task.Next.Type {
	case model.NextComplete:
		return r.routeComplete(ctx, task)
	case model.NextDirectorReview:
		return r.routeDirectorReview(ctx, task)
	case model.NextPipelineContinue:
		return r.routePipelineContinue(ctx, task)
	default:
		return Result{}, fmt.Errorf("router: task %q has unrecognized next action type %q", task.ID, task.Next.Type)
	}
}

func (r *Router) routeComplete(ctx context.Context, task model.Task) (Result, error) {
	if err := r.Workspace.UpdateTaskStatus(ctx, task.ID, model.TaskApproved); err != nil {
		return Result{}, fmt.Errorf("router: approve task %q: %w", task.ID, err)
	}
	if task.GoalID != "" {
		advance, err := r.Director.AdvanceGoal(ctx, task.GoalID)
		if err != nil {
			return Result{}, fmt.Errorf("router: advance goal %q: %w", task.GoalID, err)
		}
		if !advance.Complete && len(advance.NewTasks) > 0 {
			return Result{Outcome: OutcomeEnqueueTasks, NextTasks: advance.NewTasks}, nil
		}
	}
	return Result{Outcome: OutcomeComplete}, nil
}

func (r *Router) routeDirectorReview(ctx context.Context, task model.Task) (Result, error) {
	decision, err := r.Director.Review(ctx, task.ID)
	if err != nil {
		return Result{}, fmt.Errorf("router: director review of %q: %w", task.ID, err)
	}

	switch decision.Action {
	case director.ActionApprove:
		if task.GoalID == "" {
			return Result{Outcome: OutcomeComplete}, nil
		}
		advance, err := r.Director.AdvanceGoal(ctx, task.GoalID)
		if err != nil {
			return Result{}, fmt.Errorf("router: advance goal %q after approval: %w", task.GoalID, err)
		}
		if !advance.Complete && len(advance.NewTasks) > 0 {
			return Result{Outcome: OutcomeEnqueueTasks, NextTasks: advance.NewTasks}, nil
		}
		return Result{Outcome: OutcomeComplete}, nil

	case director.ActionRevise, director.ActionRejectReassign:
		return Result{Outcome: OutcomeEnqueueTasks, NextTasks: decision.NextTasks, Reason: decision.Reasoning}, nil

	case director.ActionEscalateHuman:
		return Result{Outcome: OutcomePauseCascade, Reason: decision.Escalation}, nil

	default:
		return Result{}, fmt.Errorf("router: director review of %q produced unhandled action %q", task.ID, decision.Action)
	}
}

func (r *Router) routePipelineContinue(ctx context.Context, task model.Task) (Result, error) {
	if task.GoalID == "" {
		return Result{}, fmt.Errorf("router: task %q has pipeline_continue next action but no goal_id", task.ID)
	}
	if err := r.Workspace.UpdateTaskStatus(ctx, task.ID, model.TaskApproved); err != nil {
		return Result{}, fmt.Errorf("router: approve task %q: %w", task.ID, err)
	}
	advance, err := r.Director.AdvanceGoal(ctx, task.GoalID)
	if err != nil {
		return Result{}, fmt.Errorf("router: advance goal %q: %w", task.GoalID, err)
	}
	if len(advance.NewTasks) > 0 {
		return Result{Outcome: OutcomeEnqueueTasks, NextTasks: advance.NewTasks}, nil
	}
	return Result{Outcome: OutcomeComplete}, nil
}
