package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

func newTestWorkspace(t *testing.T) *FSWorkspace {
	t.Helper()
	ws, err := NewFSWorkspace(t.TempDir())
	require.NoError(t, err)
	return ws
}

func TestOutputPathConventions(t *testing.T) {
	assert.Equal(t, "outputs/strategy/seo-audit/t1.md", OutputPath("strategy", "seo-audit", "t1", false))
	assert.Equal(t, "context/product-marketing-context.md", OutputPath("", "product-context", "t1", true))
	assert.Equal(t, "outputs/orphan-skill/t1.md", OutputPath("", "orphan-skill", "t1", false))
}

func TestTaskRoundTripAndStatusTransition(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()

	task := model.Task{
		ID: "t1", Sender: "director", Skill: "seo-audit", Priority: model.PriorityP1,
		Status: model.TaskPending, GoalText: "improve rankings", Requirements: "be thorough",
		Output: model.OutputDescriptor{Path: "outputs/strategy/seo-audit/t1.md", Format: "markdown"},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, ws.WriteTask(ctx, task))

	got, err := ws.ReadTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.Skill, got.Skill)
	assert.Equal(t, model.TaskPending, got.Status)

	require.NoError(t, ws.UpdateTaskStatus(ctx, "t1", model.TaskAssigned))
	got, err = ws.ReadTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskAssigned, got.Status)

	err = ws.UpdateTaskStatus(ctx, "t1", model.TaskApproved)
	require.Error(t, err) // assigned -> approved is not a legal direct transition
}

func TestListTasksSorted(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()
	for _, id := range []string{"t2", "t1"} {
		require.NoError(t, ws.WriteTask(ctx, model.Task{ID: id, Status: model.TaskPending, Output: model.OutputDescriptor{}, CreatedAt: time.Now(), UpdatedAt: time.Now()}))
	}
	tasks, err := ws.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "t1", tasks[0].ID)
	assert.Equal(t, "t2", tasks[1].ID)
}

func TestGoalRoundTrip(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()
	g := model.Goal{ID: "g1", Category: model.CategoryContent, Priority: model.PriorityP0, CreatedAt: time.Now(), Description: "Grow organic traffic"}
	require.NoError(t, ws.WriteGoal(ctx, g))

	got, err := ws.ReadGoal(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", got.ID)
	assert.Equal(t, "Grow organic traffic", got.Description)
}

func TestLearningsAppendAndFilterNewestFirst(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()
	older := model.Learning{Timestamp: time.Now().Add(-time.Hour), Skill: "seo-audit", LearningText: "old"}
	newer := model.Learning{Timestamp: time.Now(), Skill: "seo-audit", LearningText: "new"}
	other := model.Learning{Timestamp: time.Now(), Skill: "copywriting", LearningText: "other"}
	require.NoError(t, ws.AppendLearning(ctx, older))
	require.NoError(t, ws.AppendLearning(ctx, newer))
	require.NoError(t, ws.AppendLearning(ctx, other))

	ls, err := ws.ReadLearnings(ctx, "seo-audit")
	require.NoError(t, err)
	require.Len(t, ls, 2)
	assert.Equal(t, "new", ls[0].LearningText)
	assert.Equal(t, "old", ls[1].LearningText)
}

func TestScheduleStateDefaultsWhenAbsent(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()
	s, err := ws.ReadScheduleState(ctx, "sched-1")
	require.NoError(t, err)
	assert.Equal(t, "sched-1", s.ScheduleID)
	assert.Equal(t, 0, s.FireCount)

	s.FireCount = 3
	s.LastSkipReason = "budget_exhausted"
	require.NoError(t, ws.WriteScheduleState(ctx, s))

	got, err := ws.ReadScheduleState(ctx, "sched-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.FireCount)
	assert.Equal(t, "budget_exhausted", got.LastSkipReason)
}

func TestContextExistsAndRead(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()
	exists, err := ws.ContextExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, ws.WriteOutputFor(ctx, "", "product-context", "t1", "product facts", true))
	exists, err = ws.ContextExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	content, err := ws.ReadContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "product facts", content)
}

func TestReviewRoundTripFilteredByTask(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()
	r1 := model.Review{ID: "r1", TaskID: "t1", Reviewer: "director", Verdict: model.VerdictApprove, CreatedAt: time.Now()}
	r2 := model.Review{ID: "r2", TaskID: "t2", Reviewer: "director", Verdict: model.VerdictRevise, CreatedAt: time.Now()}
	require.NoError(t, ws.WriteReview(ctx, r1))
	require.NoError(t, ws.WriteReview(ctx, r2))

	reviews, err := ws.ListReviews(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "r1", reviews[0].ID)
}
