// Package director implements the Director (C9): goal creation,
// category-driven decomposition into a phased plan, phase materialization,
// per-task review, and goal advancement. Grounded on the teacher's own
// top-level coordinator (its chief process: decompose a unit of work,
// dispatch it, and react to the outcome) generalized from a single
// dispatch-and-merge cycle to a multi-phase goal lifecycle.
package director

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/registry"
	"github.com/antigravity-dev/marketing-orchestrator/internal/review"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

// maxAttempts bounds how many times a task may be revised or reassigned
// before the Director gives up and escalates to a human (spec §4.6 names
// the escalate_human action but not a trigger count; fixed here, recorded
// in the grounding ledger as an Open Question decision).
const maxAttempts = 2

// TaskFactory creates one task for a phase's skill, wiring upstream output
// paths as inputs.
type TaskFactory interface {
	CreateTask(ctx context.Context, goal model.Goal, phase model.Phase, skill string, inputPaths []string) (model.Task, error)
}

// Action is one Director review decision outcome (spec §4.6).
type Action string

const (
	ActionApprove        Action = "approve"
	ActionRevise         Action = "revise"
	ActionRejectReassign Action = "reject_reassign"
	ActionEscalateHuman  Action = "escalate_human"
	ActionPipelineNext   Action = "pipeline_next"
	ActionGoalComplete   Action = "goal_complete"
	ActionGoalIterate    Action = "goal_iterate"
)

// actionStatus is the static action -> task status map (spec §4.6: "update
// task status using the static action->status map").
var actionStatus = map[Action]model.TaskStatus{
	ActionApprove:        model.TaskApproved,
	ActionRevise:         model.TaskRevision,
	ActionRejectReassign: model.TaskFailed,
	ActionEscalateHuman:  model.TaskBlocked,
	ActionPipelineNext:   model.TaskApproved,
	ActionGoalComplete:   model.TaskApproved,
	ActionGoalIterate:    model.TaskRevision,
}

// Decision is the full outcome of a Review call.
type Decision struct {
	Action     Action
	Review     model.Review
	NextTasks  []model.Task
	Learning   *model.Learning
	Escalation string
	Reasoning  string
}

// AdvanceResult is the outcome of a goal-advancement call.
type AdvanceResult struct {
	Complete bool
	NewTasks []model.Task
}

// Director owns the goal lifecycle.
type Director struct {
	Workspace workspace.Workspace
	Skills    *registry.SkillRegistry
	Squads    *registry.SquadRegistry
	Factory   TaskFactory
	LLM       review.LLMClient // nil disables the semantic review pass
	Clock     func() time.Time
}

func (d *Director) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// CreateGoal assigns an id, stamps category/priority/timestamps, and
// persists the goal document.
func (d *Director) CreateGoal(ctx context.Context, description string, category model.GoalCategory, priority model.Priority, deadline *time.Time) (model.Goal, error) {
	now := d.now()
	id, err := model.NewID("goal", now)
	if err != nil {
		return model.Goal{}, fmt.Errorf("director: generate goal id: %w", err)
	}
	goal := model.Goal{
		ID: id, Description: description, Category: category, Priority: priority,
		CreatedAt: now, Deadline: deadline,
	}
	if err := d.Workspace.WriteGoal(ctx, goal); err != nil {
		return model.Goal{}, fmt.Errorf("director: persist goal: %w", err)
	}
	return goal, nil
}

// Decompose routes a goal's category through the static routing table into
// an ordered phase sequence, always ending on the measure squad.
func (d *Director) Decompose(goal model.Goal) model.GoalPlan {
	entries := phasesFor(goal.Category)
	phases := make([]model.Phase, 0, len(entries))
	taskCount := 0
	for i, e := range entries {
		phase := model.Phase{
			Name:        fmt.Sprintf("phase-%d-%s", i+1, e.squad),
			Description: e.rationale,
			Parallel:    len(e.skills) > 1,
			Skills:      e.skills,
		}
		if i > 0 {
			pred := i - 1
			phase.PredecessorPhase = &pred
		}
		phases = append(phases, phase)
		taskCount += len(e.skills)
	}
	return model.GoalPlan{GoalID: goal.ID, Phases: phases, EstimatedTaskCount: taskCount}
}

func planPath(goalID string) string {
	return "goals/" + goalID + "/plan.yaml"
}

// SavePlan persists a goal plan alongside the goal (spec's Workspace
// contract has no dedicated plan accessor, so the plan rides the generic
// readFile/writeFile path the way every other ungoverned document does).
func (d *Director) SavePlan(ctx context.Context, plan model.GoalPlan) error {
	raw, err := yaml.Marshal(plan)
	if err != nil {
		return fmt.Errorf("director: marshal plan: %w", err)
	}
	return d.Workspace.WriteFile(ctx, planPath(plan.GoalID), raw)
}

// LoadPlan reads a previously saved plan.
func (d *Director) LoadPlan(ctx context.Context, goalID string) (model.GoalPlan, error) {
	raw, err := d.Workspace.ReadFile(ctx, planPath(goalID))
	if err != nil {
		return model.GoalPlan{}, fmt.Errorf("director: read plan: %w", err)
	}
	var plan model.GoalPlan
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return model.GoalPlan{}, fmt.Errorf("director: unmarshal plan: %w", err)
	}
	return plan, nil
}

// MaterializePhase creates and persists one task per skill in the phase,
// wiring inputPaths as each task's inputs.
func (d *Director) MaterializePhase(ctx context.Context, goal model.Goal, phase model.Phase, inputPaths []string) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(phase.Skills))
	for _, skill := range phase.Skills {
		task, err := d.Factory.CreateTask(ctx, goal, phase, skill, inputPaths)
		if err != nil {
			return nil, fmt.Errorf("director: create task for skill %q: %w", skill, err)
		}
		if err := d.Workspace.WriteTask(ctx, task); err != nil {
			return nil, fmt.Errorf("director: persist task %q: %w", task.ID, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Review reads a completed task's output, scores it, derives a decision,
// persists the review/next-tasks/learning, updates the task's status, and
// returns the decision.
func (d *Director) Review(ctx context.Context, taskID string) (Decision, error) {
	task, err := d.Workspace.ReadTask(ctx, taskID)
	if err != nil {
		return Decision{}, fmt.Errorf("director: read task: %w", err)
	}

	squad, hasSquad := d.Skills.SquadOf(task.Skill)
	isFoundation := d.Skills.IsFoundation(task.Skill)
	squadName := ""
	if hasSquad {
		squadName = string(squad)
	}
	content, err := d.Workspace.ReadOutputFor(ctx, squadName, task.Skill, task.ID, isFoundation)
	if err != nil {
		return Decision{}, fmt.Errorf("director: read task output: %w", err)
	}

	var scores review.Scores
	if d.LLM != nil {
		scores = review.ScoreSemantic(ctx, d.LLM, "You are a rigorous marketing review panel.", content)
	} else {
		scores = review.ScoreStructural(content)
	}
	verdict := review.DeriveVerdict(scores)

	now := d.now()
	reviewID, err := model.NewID("rev", now)
	if err != nil {
		return Decision{}, fmt.Errorf("director: generate review id: %w", err)
	}
	rec := model.Review{ID: reviewID, TaskID: task.ID, Reviewer: "director", Verdict: verdict.Verdict, Findings: verdict.Findings, CreatedAt: now}

	decision := d.deriveAction(ctx, task, verdict)
	decision.Review = rec

	if err := d.Workspace.WriteReview(ctx, rec); err != nil {
		return Decision{}, fmt.Errorf("director: persist review: %w", err)
	}
	for _, nt := range decision.NextTasks {
		if err := d.Workspace.WriteTask(ctx, nt); err != nil {
			return Decision{}, fmt.Errorf("director: persist next task %q: %w", nt.ID, err)
		}
	}
	if decision.Learning != nil {
		if err := d.Workspace.AppendLearning(ctx, *decision.Learning); err != nil {
			return Decision{}, fmt.Errorf("director: append learning: %w", err)
		}
	}

	status := actionStatus[decision.Action]
	if err := d.Workspace.UpdateTaskStatus(ctx, task.ID, status); err != nil {
		return Decision{}, fmt.Errorf("director: update task status: %w", err)
	}

	return decision, nil
}

// deriveAction maps a verdict plus the task's revision history to an
// Action, generating any follow-up task (revision or reassignment) the
// action requires, and recording a learning entry.
func (d *Director) deriveAction(ctx context.Context, task model.Task, v review.Verdict) Decision {
	reasoning := fmt.Sprintf("verdict=%s weighted_average=%.2f", v.Verdict, v.Average)
	learning := &model.Learning{
		Timestamp: d.now(), Agent: "director", GoalID: task.GoalID, Skill: task.Skill,
		Outcome: string(v.Verdict), LearningText: reasoning,
	}

	switch v.Verdict {
	case model.VerdictApprove:
		return Decision{Action: ActionApprove, Learning: learning, Reasoning: reasoning}

	case model.VerdictRevise:
		if task.RevisionCount >= maxAttempts {
			learning.ActionTaken = string(ActionEscalateHuman)
			return Decision{Action: ActionEscalateHuman, Learning: learning, Escalation: "exceeded revision attempts", Reasoning: reasoning}
		}
		revision := task.Clone()
		revision.RevisionCount++
		revision.Status = model.TaskRevision
		revision.UpdatedAt = d.now()
		learning.ActionTaken = string(ActionRevise)
		return Decision{Action: ActionRevise, NextTasks: []model.Task{revision}, Learning: learning, Reasoning: reasoning}

	default: // VerdictReject
		if task.RevisionCount >= maxAttempts {
			learning.ActionTaken = string(ActionEscalateHuman)
			return Decision{Action: ActionEscalateHuman, Learning: learning, Escalation: "exceeded reassignment attempts", Reasoning: reasoning}
		}
		reassigned := task.Clone()
		id, err := model.NewID("task", d.now())
		if err == nil {
			reassigned.ID = id
		}
		reassigned.RevisionCount = task.RevisionCount + 1
		reassigned.Status = model.TaskPending
		reassigned.CreatedAt = d.now()
		reassigned.UpdatedAt = d.now()
		learning.ActionTaken = string(ActionRejectReassign)
		return Decision{Action: ActionRejectReassign, NextTasks: []model.Task{reassigned}, Learning: learning, Reasoning: reasoning}
	}
}

// AdvanceGoal computes the next phase: it counts approved tasks per skill
// across the goal's whole history and consumes them phase-by-phase (a
// skill appearing in more than one phase is consumed in the order its
// phases appear). If every phase is consumed the goal is complete;
// otherwise the next unconsumed phase is materialized with the approved
// tasks' output paths as inputs (spec §4.6).
func (d *Director) AdvanceGoal(ctx context.Context, goalID string) (AdvanceResult, error) {
	goal, err := d.Workspace.ReadGoal(ctx, goalID)
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("director: read goal: %w", err)
	}
	plan, err := d.LoadPlan(ctx, goalID)
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("director: load plan: %w", err)
	}

	tasks, err := d.Workspace.ListTasks(ctx)
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("director: list tasks: %w", err)
	}

	approvedPerSkill := map[string]int{}
	var approvedOutputs []string
	for _, t := range tasks {
		if t.GoalID != goalID || t.Status != model.TaskApproved {
			continue
		}
		approvedPerSkill[t.Skill]++
		squad, hasSquad := d.Skills.SquadOf(t.Skill)
		squadName := ""
		if hasSquad {
			squadName = string(squad)
		}
		approvedOutputs = append(approvedOutputs, workspace.OutputPath(squadName, t.Skill, t.ID, d.Skills.IsFoundation(t.Skill)))
	}

	remaining := map[string]int{}
	for k, v := range approvedPerSkill {
		remaining[k] = v
	}

	consumedPhases := 0
	for _, phase := range plan.Phases {
		if !phaseFullyConsumable(phase, remaining) {
			break
		}
		for _, skill := range phase.Skills {
			remaining[skill]--
		}
		consumedPhases++
	}

	if consumedPhases >= len(plan.Phases) {
		return AdvanceResult{Complete: true}, nil
	}

	nextPhase := plan.Phases[consumedPhases]
	newTasks, err := d.MaterializePhase(ctx, goal, nextPhase, approvedOutputs)
	if err != nil {
		return AdvanceResult{}, err
	}
	return AdvanceResult{NewTasks: newTasks}, nil
}

// phaseFullyConsumable reports whether every skill in phase still has an
// unconsumed approved-task credit available in remaining.
func phaseFullyConsumable(phase model.Phase, remaining map[string]int) bool {
	for _, skill := range phase.Skills {
		if remaining[skill] <= 0 {
			return false
		}
	}
	return true
}
