package main

import (
	"context"
	"fmt"
	"time"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/pipeline"
)

// engineStarter implements scheduler.PipelineStarter and eventbus.PipelineStarter
// by driving a fresh PipelineRun through the synchronous engine — the
// execution mode this single-process CLI runs under. A run that reaches a
// review step pauses there; resuming a paused run is an operator action
// outside this CLI's scope (spec §6 names the queue worker and
// temporalflow.PipelineWorkflow as the other two execution modes, neither
// wired into this binary).
type engineStarter struct {
	engine *pipeline.Engine
}

func (s *engineStarter) StartPipeline(ctx context.Context, def model.PipelineDefinition, priority model.Priority, goalID string) error {
	now := time.Now()
	id, err := model.NewID("run", now)
	if err != nil {
		return fmt.Errorf("generate pipeline run id: %w", err)
	}
	run := model.PipelineRun{
		ID:           id,
		DefinitionID: def.ID,
		GoalID:       goalID,
		Status:       model.PipelinePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	outcome := s.engine.Advance(ctx, def, run, nil)
	if outcome.Err != nil {
		return fmt.Errorf("advance pipeline %q: %s", def.ID, outcome.Err.Error())
	}
	return nil
}
