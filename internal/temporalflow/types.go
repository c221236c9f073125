// Package temporalflow wraps the pipeline engine and Director in Temporal
// workflows so a goal's phased execution survives process restarts, exactly
// the durability property the teacher's own internal/temporal package buys
// its sprint/grooming loops. Grounded on the teacher's CortexAgentWorkflow
// (internal/temporal/workflow.go): activity options per call, a nil
// *Activities receiver used only to name the registered activity method,
// and workflow.GetSignalChannel for the human/review gate — generalized
// from a fixed plan→gate→execute→review→DoD sequence to the orchestrator's
// own pause-at-review pipeline step and multi-phase goal loop.
package temporalflow

import "github.com/antigravity-dev/marketing-orchestrator/internal/model"

// PipelineWorkflowRequest starts (or resumes) one PipelineRun.
type PipelineWorkflowRequest struct {
	Definition model.PipelineDefinition
	Run        model.PipelineRun
	InputPaths []string
}

// PipelineWorkflowResult is the terminal state a PipelineWorkflow returns.
type PipelineWorkflowResult struct {
	Run         model.PipelineRun
	OutputPaths []string
	FailureCode string
	FailureMsg  string
}

// AdvancePipelineRequest is the activity input for one Engine.Advance call.
type AdvancePipelineRequest struct {
	Definition model.PipelineDefinition
	Run        model.PipelineRun
	InputPaths []string
}

// AdvancePipelineResult mirrors pipeline.StepOutcome in a form safe to
// marshal across the Temporal activity boundary.
type AdvancePipelineResult struct {
	Run         model.PipelineRun
	OutputPaths []string
	FailureCode string
	FailureMsg  string
}

// ReviewDecisionSignal is sent on the "review-decision" signal channel to
// resume a run paused at a review step.
type ReviewDecisionSignal struct {
	ApprovedOutputPaths []string
	Abort               bool
}

// GoalWorkflowRequest starts a goal's full phase-by-phase advancement loop.
type GoalWorkflowRequest struct {
	GoalID string
}

// GoalWorkflowResult is the terminal state a GoalWorkflow returns.
type GoalWorkflowResult struct {
	Complete bool
}

// AdvanceGoalRequest is the activity input for one Director.AdvanceGoal call.
type AdvanceGoalRequest struct {
	GoalID string
}

// AdvanceGoalResult mirrors director.AdvanceResult for the activity boundary.
type AdvanceGoalResult struct {
	Complete    bool
	NewTaskIDs  []string
}
