// Package workspace owns every persisted entity (design note: "all
// persisted entities are owned by the Workspace abstraction; in-memory
// mirrors are strictly transient"). It exposes the abstract Workspace
// contract consumed by the rest of the orchestrator, plus a
// filesystem+markdown implementation with a SQLite-backed acceleration
// cache for schedule state and the cost ledger, grounded on the teacher's
// internal/store (sqlite schema/migration/upsert idioms).
package workspace

import (
	"context"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// Workspace is the full contract consumed by every other component (spec
// §6's "Workspace contract (consumed)").
type Workspace interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error

	ReadTask(ctx context.Context, id string) (model.Task, error)
	WriteTask(ctx context.Context, t model.Task) error
	UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus) error
	ListTasks(ctx context.Context) ([]model.Task, error)

	ReadOutput(ctx context.Context, squad, skill, taskID string) (string, error)
	WriteOutput(ctx context.Context, squad, skill, taskID, content string) error
	ReadOutputFor(ctx context.Context, squad, skill, taskID string, isFoundation bool) (string, error)
	WriteOutputFor(ctx context.Context, squad, skill, taskID, content string, isFoundation bool) error

	ReadLearnings(ctx context.Context, skill string) ([]model.Learning, error)
	AppendLearning(ctx context.Context, l model.Learning) error

	ReadGoal(ctx context.Context, id string) (model.Goal, error)
	WriteGoal(ctx context.Context, g model.Goal) error
	ListGoals(ctx context.Context) ([]model.Goal, error)

	ListReviews(ctx context.Context, taskID string) ([]model.Review, error)
	WriteReview(ctx context.Context, r model.Review) error

	ReadContext(ctx context.Context) (string, error)
	ContextExists(ctx context.Context) (bool, error)

	ReadScheduleState(ctx context.Context, scheduleID string) (model.ScheduleState, error)
	WriteScheduleState(ctx context.Context, s model.ScheduleState) error
}

// OutputPath derives a task's output path deterministically from squad and
// skill (invariant I1): `outputs/{squad}/{skill}/{id}.md` when squad is
// defined, `context/product-marketing-context.md` for the foundation skill,
// else `outputs/{skill}/{id}.md` for an unknown-squad skill.
func OutputPath(squad, skill, taskID string, isFoundation bool) string {
	if isFoundation {
		return "context/product-marketing-context.md"
	}
	if squad == "" {
		return "outputs/" + skill + "/" + taskID + ".md"
	}
	return "outputs/" + squad + "/" + skill + "/" + taskID + ".md"
}
