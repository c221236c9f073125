package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/registry"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

// DefaultTaskFactory builds one pending Task per pipeline step/skill,
// mirroring director.DefaultTaskFactory's output-path derivation (I1) but
// keyed off a PipelineRun/Step instead of a Goal/Phase.
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
func (f *DefaultTaskFactory) CreateTask(ctx context.Context, run model.PipelineRun, step model.Step, skill string, inputPaths []string) (model.Task, error) {
	now := f.now()
	id, err := model.NewID("task", now)
	if err != nil {
		return model.Task{}, fmt.Errorf("pipeline: generate task id: %w", err)
	}

	squad, hasSquad := f.Skills.SquadOf(skill)
	squadName := ""
	if hasSquad {
		squadName = string(squad)
	}
	isFoundation := f.Skills.IsFoundation(skill)

	inputs := make([]model.InputRef, 0, len(inputPaths))
	for _, p := range inputPaths {
		inputs = append(inputs, model.InputRef{Path: p, Description: "upstream step output"})
	}

	return model.Task{
		ID:         id,
		Sender:     "pipeline",
		Skill:      skill,
		Status:     model.TaskPending,
		GoalID:     run.GoalID,
		PipelineID: run.ID,
		Inputs:     inputs,
		Output:     model.OutputDescriptor{Path: workspace.OutputPath(squadName, skill, id, isFoundation), Format: "markdown"},
		Next:       model.NextAction{Type: model.NextPipelineContinue},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
