package director

import (
	"context"
	"fmt"
	"time"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/registry"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

// DefaultTaskFactory builds one pending Task per (goal, phase, skill),
// deriving its output descriptor from the skill's squad the same way the
// executor derives output paths (invariant I1).
type DefaultTaskFactory struct {
	Skills *registry.SkillRegistry
	Clock  func() time.Time
}

func (f *DefaultTaskFactory) now() time.Time {
	if f.Clock != nil {
		return f.Clock()
	}
	return time.Now()
}

// CreateTask implements TaskFactory.
func (f *DefaultTaskFactory) CreateTask(ctx context.Context, goal model.Goal, phase model.Phase, skill string, inputPaths []string) (model.Task, error) {
	now := f.now()
	id, err := model.NewID("task", now)
	if err != nil {
		return model.Task{}, fmt.Errorf("director: generate task id: %w", err)
	}

	squad, hasSquad := f.Skills.SquadOf(skill)
	squadName := ""
	if hasSquad {
		squadName = string(squad)
	}
	isFoundation := f.Skills.IsFoundation(skill)

	inputs := make([]model.InputRef, 0, len(inputPaths))
	for _, p := range inputPaths {
		inputs = append(inputs, model.InputRef{Path: p, Description: "upstream phase output"})
	}

	return model.Task{
		ID:           id,
		Sender:       "director",
		Skill:        skill,
		Priority:     goal.Priority,
		Deadline:     goal.Deadline,
		Status:       model.TaskPending,
		GoalID:       goal.ID,
		GoalText:     goal.Description,
		Inputs:       inputs,
		Requirements: phase.Description,
		Output:       model.OutputDescriptor{Path: workspace.OutputPath(squadName, skill, id, isFoundation), Format: "markdown"},
		Next:         model.NextAction{Type: model.NextDirectorReview},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
