package temporalflow

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

func TestPipelineWorkflowCompletesWithoutPausing(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	env.OnActivity(a.AdvancePipelineActivity, mock.Anything, mock.Anything).Return(
		AdvancePipelineResult{Run: model.PipelineRun{ID: "r1", Status: model.PipelineCompleted}, OutputPaths: []string{"outputs/x/t1.md"}}, nil)

	env.ExecuteWorkflow(PipelineWorkflow, PipelineWorkflowRequest{
		Definition: model.PipelineDefinition{ID: "p1"},
		Run:        model.PipelineRun{ID: "r1", Status: model.PipelinePending},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result PipelineWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, model.PipelineCompleted, result.Run.Status)
	require.Equal(t, []string{"outputs/x/t1.md"}, result.OutputPaths)
}

func TestPipelineWorkflowPausesThenResumesOnReviewDecisionSignal(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	calls := 0
	env.OnActivity(a.AdvancePipelineActivity, mock.Anything, mock.Anything).Return(
		func(_ interface{}, req AdvancePipelineRequest) (AdvancePipelineResult, error) {
			calls++
			if calls == 1 {
				return AdvancePipelineResult{Run: model.PipelineRun{ID: "r1", Status: model.PipelinePaused, CurrentStepIndex: 0}}, nil
			}
			return AdvancePipelineResult{Run: model.PipelineRun{ID: "r1", Status: model.PipelineCompleted}, OutputPaths: req.InputPaths}, nil
		})

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow("review-decision", ReviewDecisionSignal{ApprovedOutputPaths: []string{"outputs/manual/approved.md"}})
	}, 0)

	env.ExecuteWorkflow(PipelineWorkflow, PipelineWorkflowRequest{
		Definition: model.PipelineDefinition{ID: "p1"},
		Run:        model.PipelineRun{ID: "r1", Status: model.PipelinePending},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result PipelineWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, model.PipelineCompleted, result.Run.Status)
	require.Equal(t, []string{"outputs/manual/approved.md"}, result.OutputPaths)
	require.Equal(t, 2, calls)
}

func TestPipelineWorkflowAbortsOnReviewDecisionAbortSignal(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	env.OnActivity(a.AdvancePipelineActivity, mock.Anything, mock.Anything).Return(
		AdvancePipelineResult{Run: model.PipelineRun{ID: "r1", Status: model.PipelinePaused}}, nil)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow("review-decision", ReviewDecisionSignal{Abort: true})
	}, 0)

	env.ExecuteWorkflow(PipelineWorkflow, PipelineWorkflowRequest{
		Definition: model.PipelineDefinition{ID: "p1"},
		Run:        model.PipelineRun{ID: "r1", Status: model.PipelinePending},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result PipelineWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, model.PipelinePaused, result.Run.Status)
}

func TestGoalWorkflowLoopsUntilComplete(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	calls := 0
	env.OnActivity(a.AdvanceGoalActivity, mock.Anything, mock.Anything).Return(
		func(_ interface{}, _ AdvanceGoalRequest) (AdvanceGoalResult, error) {
			calls++
			if calls < 2 {
				return AdvanceGoalResult{NewTaskIDs: []string{"t1"}}, nil
			}
			return AdvanceGoalResult{Complete: true}, nil
		})

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow("goal-progress", struct{}{})
	}, 0)

	env.ExecuteWorkflow(GoalWorkflow, GoalWorkflowRequest{GoalID: "goal-1"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result GoalWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.True(t, result.Complete)
	require.Equal(t, 2, calls)
}
