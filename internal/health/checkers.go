package health

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/marketing-orchestrator/internal/cost"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

// WorkspaceChecker probes the workspace by attempting to list goals — a
// cheap, always-available read every Workspace implementation supports.
type WorkspaceChecker struct {
	Workspace workspace.Workspace
}

func (c WorkspaceChecker) Name() string { return "workspace" }

func (c WorkspaceChecker) Check(ctx context.Context) Result {
	if _, err := c.Workspace.ListGoals(ctx); err != nil {
		return Result{Status: StatusOffline, Details: fmt.Sprintf("list goals: %v", err)}
	}
	return Result{Status: StatusUp}
}

// QueueDepthChecker reports the task queue as degraded once its backlog
// reaches Threshold, and offline if the depth function itself errors.
type QueueDepthChecker struct {
	Depth     func() (int, error)
	Threshold int
}

func (c QueueDepthChecker) Name() string { return "queue" }

func (c QueueDepthChecker) Check(ctx context.Context) Result {
	depth, err := c.Depth()
	if err != nil {
		return Result{Status: StatusOffline, Details: fmt.Sprintf("read queue depth: %v", err)}
	}
	if c.Threshold > 0 && depth >= c.Threshold {
		return Result{Status: StatusDegraded, Details: fmt.Sprintf("backlog depth %d >= threshold %d", depth, c.Threshold)}
	}
	return Result{Status: StatusUp, Details: fmt.Sprintf("depth %d", depth)}
}

// BudgetChecker surfaces the cost tracker's own degradation ladder as a
// component check, so a budget already in a bad state participates in the
// fan-out's level derivation the same way a dead queue or workspace would.
type BudgetChecker struct {
	Budget cost.BudgetReader
}

func (c BudgetChecker) Name() string { return "budget" }

func (c BudgetChecker) Check(ctx context.Context) Result {
	state := c.Budget()
	switch state.Level {
	case model.BudgetExhausted:
		return Result{Status: StatusOffline, Details: "budget exhausted"}
	case model.BudgetCritical, model.BudgetThrottle:
		return Result{Status: StatusDegraded, Details: fmt.Sprintf("budget level %s", state.Level)}
	default:
		return Result{Status: StatusUp, Details: fmt.Sprintf("budget level %s", state.Level)}
	}
}

// AgentActivityChecker reports degraded when fewer than MinExpected agents
// are active, using a caller-supplied activity probe (e.g. counting tasks in
// progress) rather than any process-table inspection.
type AgentActivityChecker struct {
	ActiveAgents func() (int, error)
	MinExpected  int
}

func (c AgentActivityChecker) Name() string { return "agents" }

func (c AgentActivityChecker) Check(ctx context.Context) Result {
	active, err := c.ActiveAgents()
	if err != nil {
		return Result{Status: StatusOffline, Details: fmt.Sprintf("read active agents: %v", err)}
	}
	if c.MinExpected > 0 && active < c.MinExpected {
		return Result{Status: StatusDegraded, Details: fmt.Sprintf("%d active agents below expected minimum %d", active, c.MinExpected)}
	}
	return Result{Status: StatusUp, Details: fmt.Sprintf("%d active agents", active)}
}
