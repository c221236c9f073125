package temporalflow

import (
	"context"

	"github.com/antigravity-dev/marketing-orchestrator/internal/director"
	"github.com/antigravity-dev/marketing-orchestrator/internal/pipeline"
)

// Activities bundles the handles Temporal activities need. A nil
// *Activities is used in workflow code purely to name the method for
// registration (go.temporal.io/sdk's own convention); the worker registers
// a real instance via RegisterActivity.
type Activities struct {
	Engine   *pipeline.Engine
	Director *director.Director
}

// AdvancePipelineActivity runs one Engine.Advance call and flattens its
// result into a Temporal-marshalable shape.
func (a *Activities) AdvancePipelineActivity(ctx context.Context, req AdvancePipelineRequest) (AdvancePipelineResult, error) {
	outcome := a.Engine.Advance(ctx, req.Definition, req.Run, req.InputPaths)
	result := AdvancePipelineResult{Run: outcome.Run, OutputPaths: outcome.OutputPaths}
	if outcome.Err != nil {
		result.FailureCode = string(outcome.Err.Code)
		result.FailureMsg = outcome.Err.Message
	}
	return result, nil
}

// AdvanceGoalActivity runs one Director.AdvanceGoal call.
func (a *Activities) AdvanceGoalActivity(ctx context.Context, req AdvanceGoalRequest) (AdvanceGoalResult, error) {
	result, err := a.Director.AdvanceGoal(ctx, req.GoalID)
	if err != nil {
		return AdvanceGoalResult{}, err
	}
	ids := make([]string, 0, len(result.NewTasks))
	for _, t := range result.NewTasks {
		ids = append(ids, t.ID)
	}
	return AdvanceGoalResult{Complete: result.Complete, NewTaskIDs: ids}, nil
}
