package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/marketing-orchestrator/internal/cost"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

func upChecker(name string) Checker {
	return CheckerFunc{ComponentName: name, Fn: func(ctx context.Context) Result {
		return Result{Status: StatusUp}
	}}
}

func offlineChecker(name string) Checker {
	return CheckerFunc{ComponentName: name, Fn: func(ctx context.Context) Result {
		return Result{Status: StatusOffline, Details: "down"}
	}}
}

func degradedChecker(name string) Checker {
	return CheckerFunc{ComponentName: name, Fn: func(ctx context.Context) Result {
		return Result{Status: StatusDegraded, Details: "slow"}
	}}
}

func normalBudget() cost.BudgetReader {
	return func() cost.BudgetState { return cost.BudgetState{Level: model.BudgetNormal} }
}

func TestRunAllUpYieldsHealthy(t *testing.T) {
	m := NewMonitor([]Checker{upChecker("a"), upChecker("b")}, time.Second, normalBudget(), nil, nil)
	report := m.Run(context.Background())
	assert.Equal(t, LevelHealthy, report.Level)
}

func TestRunOneOfflineYieldsDegradedOffline(t *testing.T) {
	m := NewMonitor([]Checker{upChecker("a"), offlineChecker("b"), upChecker("c")}, time.Second, normalBudget(), nil, nil)
	report := m.Run(context.Background())
	assert.Equal(t, LevelDegradedOffline, report.Level)
}

func TestRunTwoOfflineYieldsPaused(t *testing.T) {
	m := NewMonitor([]Checker{offlineChecker("a"), offlineChecker("b"), upChecker("c")}, time.Second, normalBudget(), nil, nil)
	report := m.Run(context.Background())
	assert.Equal(t, LevelPaused, report.Level)
}

func TestRunAllOfflineYieldsOffline(t *testing.T) {
	m := NewMonitor([]Checker{offlineChecker("a"), offlineChecker("b")}, time.Second, normalBudget(), nil, nil)
	report := m.Run(context.Background())
	assert.Equal(t, LevelOffline, report.Level)
}

func TestRunDegradedComponentYieldsDegradedSoft(t *testing.T) {
	m := NewMonitor([]Checker{upChecker("a"), degradedChecker("b")}, time.Second, normalBudget(), nil, nil)
	report := m.Run(context.Background())
	assert.Equal(t, LevelDegradedSoft, report.Level)
}

func TestRunSlowCheckerTimesOutToOffline(t *testing.T) {
	slow := CheckerFunc{ComponentName: "slow", Fn: func(ctx context.Context) Result {
		select {
		case <-ctx.Done():
			return Result{Status: StatusOffline, Details: "cancelled"}
		case <-time.After(time.Second):
			return Result{Status: StatusUp}
		}
	}}
	m := NewMonitor([]Checker{slow}, 10*time.Millisecond, normalBudget(), nil, nil)
	report := m.Run(context.Background())
	assert.Equal(t, LevelOffline, report.Level)
	assert.Equal(t, StatusOffline, report.Results[0].Status)
}

func TestRunPanickingCheckerIsOffline(t *testing.T) {
	boom := CheckerFunc{ComponentName: "boom", Fn: func(ctx context.Context) Result {
		panic("boom")
	}}
	m := NewMonitor([]Checker{boom, upChecker("a")}, time.Second, normalBudget(), nil, nil)
	report := m.Run(context.Background())
	assert.Equal(t, LevelDegradedOffline, report.Level)
}

func TestRunExhaustedBudgetRaisesLevelToAtLeastPaused(t *testing.T) {
	exhausted := func() cost.BudgetState { return cost.BudgetState{Level: model.BudgetExhausted} }
	m := NewMonitor([]Checker{upChecker("a")}, time.Second, exhausted, nil, nil)
	report := m.Run(context.Background())
	assert.Equal(t, LevelPaused, report.Level)
}

func TestRunCriticalBudgetRaisesLevelToAtLeastDegradedOffline(t *testing.T) {
	critical := func() cost.BudgetState { return cost.BudgetState{Level: model.BudgetCritical} }
	m := NewMonitor([]Checker{upChecker("a")}, time.Second, critical, nil, nil)
	report := m.Run(context.Background())
	assert.Equal(t, LevelDegradedOffline, report.Level)
}

func TestRunBudgetNeverLowersAnAlreadyWorseLevel(t *testing.T) {
	critical := func() cost.BudgetState { return cost.BudgetState{Level: model.BudgetCritical} }
	m := NewMonitor([]Checker{offlineChecker("a"), offlineChecker("b")}, time.Second, critical, nil, nil)
	report := m.Run(context.Background())
	assert.Equal(t, LevelPaused, report.Level)
}

func TestQueueDepthCheckerDegradesAboveThreshold(t *testing.T) {
	c := QueueDepthChecker{Depth: func() (int, error) { return 50, nil }, Threshold: 10}
	result := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, result.Status)
}

func TestQueueDepthCheckerOfflineOnError(t *testing.T) {
	c := QueueDepthChecker{Depth: func() (int, error) { return 0, errors.New("boom") }}
	result := c.Check(context.Background())
	assert.Equal(t, StatusOffline, result.Status)
}

func TestBudgetCheckerReflectsExhaustedAsOffline(t *testing.T) {
	c := BudgetChecker{Budget: func() cost.BudgetState { return cost.BudgetState{Level: model.BudgetExhausted} }}
	result := c.Check(context.Background())
	assert.Equal(t, StatusOffline, result.Status)
}

func TestWorkspaceCheckerUpAgainstRealWorkspace(t *testing.T) {
	ws, err := workspace.NewFSWorkspace(t.TempDir())
	require.NoError(t, err)
	c := WorkspaceChecker{Workspace: ws}
	result := c.Check(context.Background())
	assert.Equal(t, StatusUp, result.Status)
}
