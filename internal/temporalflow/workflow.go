package temporalflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// maxAdvanceIterations bounds the pipeline loop so a workflow with a
// malformed definition (e.g. a step that never progresses the run) cannot
// spin forever rather than surfacing an error.
const maxAdvanceIterations = 64

var advanceOpts = workflow.ActivityOptions{
	StartToCloseTimeout: 10 * time.Minute,
	RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
}

// PipelineWorkflow drives one PipelineRun to completion, pausing at review
// steps for a "review-decision" signal and resuming with the approved
// output paths it carries — the durable analogue of [[C8]]'s Advance loop.
func PipelineWorkflow(ctx workflow.Context, req PipelineWorkflowRequest) (PipelineWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	actx := workflow.WithActivityOptions(ctx, advanceOpts)
	var a *Activities

	run := req.Run
	inputPaths := req.InputPaths

	for i := 0; i < maxAdvanceIterations; i++ {
		var result AdvancePipelineResult
		advReq := AdvancePipelineRequest{Definition: req.Definition, Run: run, InputPaths: inputPaths}
		if err := workflow.ExecuteActivity(actx, a.AdvancePipelineActivity, advReq).Get(ctx, &result); err != nil {
			return PipelineWorkflowResult{Run: run}, fmt.Errorf("temporalflow: advance pipeline: %w", err)
		}
		run = result.Run

		if result.FailureCode != "" {
			return PipelineWorkflowResult{Run: run, FailureCode: result.FailureCode, FailureMsg: result.FailureMsg}, nil
		}

		switch run.Status {
		case model.PipelinePaused:
			logger.Info("pipeline paused at review step", "run", run.ID, "step", run.CurrentStepIndex)
			signalChan := workflow.GetSignalChannel(ctx, "review-decision")
			var decision ReviewDecisionSignal
			signalChan.Receive(ctx, &decision)
			if decision.Abort {
				return PipelineWorkflowResult{Run: run}, nil
			}
			inputPaths = decision.ApprovedOutputPaths
			continue

		case model.PipelineCompleted, model.PipelineCancelled:
			return PipelineWorkflowResult{Run: run, OutputPaths: result.OutputPaths}, nil

		default:
			// Sequential/parallel steps never leave Advance in a running
			// state — if this is reached, something failed to progress;
			// treat it as a single extra iteration rather than looping
			// forever (bounded by maxAdvanceIterations above).
			inputPaths = result.OutputPaths
		}
	}

	return PipelineWorkflowResult{Run: run}, fmt.Errorf("temporalflow: pipeline %s did not converge within %d iterations", run.ID, maxAdvanceIterations)
}

// GoalWorkflow loops Director.AdvanceGoal until every phase is consumed,
// waiting on a "goal-progress" signal (sent once a phase's tasks are all
// approved) between attempts rather than busy-polling.
func GoalWorkflow(ctx workflow.Context, req GoalWorkflowRequest) (GoalWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	actx := workflow.WithActivityOptions(ctx, advanceOpts)
	var a *Activities

	for {
		var result AdvanceGoalResult
		if err := workflow.ExecuteActivity(actx, a.AdvanceGoalActivity, AdvanceGoalRequest{GoalID: req.GoalID}).Get(ctx, &result); err != nil {
			return GoalWorkflowResult{}, fmt.Errorf("temporalflow: advance goal: %w", err)
		}
		if result.Complete {
			return GoalWorkflowResult{Complete: true}, nil
		}
		if len(result.NewTaskIDs) > 0 {
			logger.Info("goal phase materialized", "goal", req.GoalID, "tasks", len(result.NewTaskIDs))
		}

		signalChan := workflow.GetSignalChannel(ctx, "goal-progress")
		var ping struct{}
		signalChan.Receive(ctx, &ping)
	}
}
