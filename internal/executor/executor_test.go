package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/marketing-orchestrator/internal/config"
	"github.com/antigravity-dev/marketing-orchestrator/internal/cost"
	"github.com/antigravity-dev/marketing-orchestrator/internal/llm"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/registry"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

type fakeLLM struct {
	responses []llm.Response
	calls     int
	lastReq   llm.Request
}

func (f *fakeLLM) CreateMessage(ctx context.Context, req llm.Request) (llm.Response, error) {
	f.lastReq = req
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	return f.responses[idx], nil
}

func testBudgetCfg() config.Budget {
	return config.Budget{TotalMonthlyUSD: 1000, WarningPct: 80, ThrottlePct: 90, CriticalPct: 95, ExhaustedPct: 100, ForcedTierCritical: "haiku", ForcedTierExhausted: "haiku"}
}

func newTestExecutor(t *testing.T, llmClient LLMClient, skills []registry.SkillManifest, tools []registry.ToolManifest) (*Executor, workspace.Workspace) {
	t.Helper()
	ws, err := workspace.NewFSWorkspace(t.TempDir())
	require.NoError(t, err)

	skillReg, err := registry.NewSkillRegistry(skills)
	require.NoError(t, err)
	squadReg, err := registry.NewSquadRegistry([]registry.SquadManifest{{Name: "strategy"}, {Name: "creative"}})
	require.NoError(t, err)
	toolReg, err := registry.NewToolRegistry(tools)
	require.NoError(t, err)

	return &Executor{
		Workspace:         ws,
		Skills:            skillReg,
		Squads:            squadReg,
		Tools:             toolReg,
		Tracker:           cost.NewTracker(testBudgetCfg()),
		LLM:               llmClient,
		PromptBudget:      32000,
		LLMTimeout:        5 * time.Second,
		MaxToolIterations: 3,
	}, ws
}

func baseTask(id, skill string) model.Task {
	now := time.Now()
	return model.Task{
		ID: id, Skill: skill, Priority: model.PriorityP1, Status: model.TaskPending,
		Requirements: "write something", CreatedAt: now, UpdatedAt: now,
	}
}

func TestExecuteHappyPath(t *testing.T) {
	skills := []registry.SkillManifest{{Name: "seo-audit", Squad: "strategy", SystemPrompt: "you are an seo auditor"}}
	fake := &fakeLLM{responses: []llm.Response{{Content: "final report", StopReason: llm.StopEndOfTurn, InputTokens: 100, OutputTokens: 50}}}
	ex, ws := newTestExecutor(t, fake, skills, nil)

	ctx := context.Background()
	task := baseTask("t1", "seo-audit")
	require.NoError(t, ws.WriteTask(ctx, task))

	result := ex.Execute(ctx, "t1", Options{})
	require.Nil(t, result.Err)
	assert.Equal(t, model.TaskCompleted, result.Status)
	assert.Equal(t, model.TierOpus, result.ModelTier) // strategy squad defaults to opus
	assert.Equal(t, "outputs/strategy/seo-audit/t1.md", result.OutputPath)

	got, err := ws.ReadTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, got.Status)
}

func TestExecuteRejectsNonExecutableStatus(t *testing.T) {
	skills := []registry.SkillManifest{{Name: "seo-audit", Squad: "strategy", SystemPrompt: "x"}}
	fake := &fakeLLM{responses: []llm.Response{{Content: "x", StopReason: llm.StopEndOfTurn}}}
	ex, ws := newTestExecutor(t, fake, skills, nil)

	ctx := context.Background()
	task := baseTask("t1", "seo-audit")
	task.Status = model.TaskApproved
	require.NoError(t, ws.WriteTask(ctx, task))

	result := ex.Execute(ctx, "t1", Options{})
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrTaskNotExecutable, result.Err.Code)
	assert.Equal(t, 0, fake.calls)
}

func TestExecuteBudgetGateBlocksDisallowedPriority(t *testing.T) {
	skills := []registry.SkillManifest{{Name: "seo-audit", Squad: "strategy", SystemPrompt: "x"}}
	fake := &fakeLLM{responses: []llm.Response{{Content: "x", StopReason: llm.StopEndOfTurn}}}
	ex, ws := newTestExecutor(t, fake, skills, nil)
	ex.Tracker = cost.NewTracker(config.Budget{TotalMonthlyUSD: 10, WarningPct: 80, ThrottlePct: 90, CriticalPct: 95, ExhaustedPct: 100})
	ex.Tracker.Record(model.CostEntry{EstimatedUSD: 10}) // 100% spent -> critical, only P0 allowed

	ctx := context.Background()
	task := baseTask("t1", "seo-audit")
	require.NoError(t, ws.WriteTask(ctx, task))

	result := ex.Execute(ctx, "t1", Options{})
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrBudgetExhausted, result.Err.Code)
	assert.Equal(t, 0, fake.calls)
}

func TestExecuteUnknownSkillFails(t *testing.T) {
	fake := &fakeLLM{responses: []llm.Response{{Content: "x"}}}
	ex, ws := newTestExecutor(t, fake, nil, nil)

	ctx := context.Background()
	require.NoError(t, ws.WriteTask(ctx, baseTask("t1", "ghost-skill")))

	result := ex.Execute(ctx, "t1", Options{})
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrSkillNotFound, result.Err.Code)
}

func TestExecuteRespondsEmptyContentAsError(t *testing.T) {
	skills := []registry.SkillManifest{{Name: "seo-audit", Squad: "strategy", SystemPrompt: "x"}}
	fake := &fakeLLM{responses: []llm.Response{{Content: "   ", StopReason: llm.StopEndOfTurn}}}
	ex, ws := newTestExecutor(t, fake, skills, nil)

	ctx := context.Background()
	require.NoError(t, ws.WriteTask(ctx, baseTask("t1", "seo-audit")))

	result := ex.Execute(ctx, "t1", Options{})
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrResponseEmpty, result.Err.Code)

	got, _ := ws.ReadTask(ctx, "t1")
	assert.Equal(t, model.TaskFailed, got.Status)
}

func TestExecuteTruncationRecoveryReissuesOnce(t *testing.T) {
	skills := []registry.SkillManifest{{Name: "seo-audit", Squad: "strategy", SystemPrompt: "x"}}
	fake := &fakeLLM{responses: []llm.Response{
		{Content: "partial", StopReason: llm.StopMaxTokens, InputTokens: 10, OutputTokens: 10},
		{Content: "partial plus the rest", StopReason: llm.StopEndOfTurn, InputTokens: 5, OutputTokens: 8},
	}}
	ex, ws := newTestExecutor(t, fake, skills, nil)

	ctx := context.Background()
	require.NoError(t, ws.WriteTask(ctx, baseTask("t1", "seo-audit")))

	result := ex.Execute(ctx, "t1", Options{})
	require.Nil(t, result.Err)
	assert.True(t, result.Truncated)
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, 15, result.InputTokens)
	assert.Equal(t, 18, result.OutputTokens)

	content, err := ws.ReadOutputFor(ctx, "strategy", "seo-audit", "t1", false)
	require.NoError(t, err)
	assert.Equal(t, "partial plus the rest", content)
}

func TestExecuteToolLoopInvokesAuthorizedToolAndLoopLimit(t *testing.T) {
	skills := []registry.SkillManifest{{Name: "seo-audit", Squad: "strategy", SystemPrompt: "x", Tools: []string{"web-search"}}}
	tools := []registry.ToolManifest{{
		Name: "web-search", Provider: registry.ProviderStub, Skills: []string{"seo-audit"},
		Actions: []registry.ToolAction{{Name: "query", Description: "search the web", Parameters: registry.ParamSchema{Type: "object"}}},
	}}
	toolUse := llm.Response{
		StopReason: llm.StopToolUse,
		ToolUseBlocks: []llm.ContentBlock{{Type: "tool_use", ToolUseID: "tu1", ToolName: "web-search__query", ToolInput: map[string]interface{}{"q": "rankings"}}},
		InputTokens:  5, OutputTokens: 5,
	}
	fake := &fakeLLM{responses: []llm.Response{toolUse, toolUse, toolUse, toolUse}}
	ex, ws := newTestExecutor(t, fake, skills, tools)
	ex.MaxToolIterations = 2

	ctx := context.Background()
	require.NoError(t, ws.WriteTask(ctx, baseTask("t1", "seo-audit")))

	result := ex.Execute(ctx, "t1", Options{})
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrToolLoopLimit, result.Err.Code)
}

func TestExecuteToolLoopCompletesWithinLimit(t *testing.T) {
	skills := []registry.SkillManifest{{Name: "seo-audit", Squad: "strategy", SystemPrompt: "x", Tools: []string{"web-search"}}}
	tools := []registry.ToolManifest{{
		Name: "web-search", Provider: registry.ProviderStub, Skills: []string{"seo-audit"},
		Actions: []registry.ToolAction{{Name: "query", Description: "search the web", Parameters: registry.ParamSchema{Type: "object"}}},
	}}
	toolUse := llm.Response{
		StopReason:    llm.StopToolUse,
		ToolUseBlocks: []llm.ContentBlock{{Type: "tool_use", ToolUseID: "tu1", ToolName: "web-search__query"}},
		InputTokens:   5, OutputTokens: 5,
	}
	final := llm.Response{Content: "done", StopReason: llm.StopEndOfTurn, InputTokens: 3, OutputTokens: 3}
	fake := &fakeLLM{responses: []llm.Response{toolUse, final}}
	ex, ws := newTestExecutor(t, fake, skills, tools)

	ctx := context.Background()
	require.NoError(t, ws.WriteTask(ctx, baseTask("t1", "seo-audit")))

	result := ex.Execute(ctx, "t1", Options{})
	require.Nil(t, result.Err)
	assert.Equal(t, model.TaskCompleted, result.Status)
	assert.Equal(t, 1, result.ToolIterations)
}

func TestExecuteExplicitModelOverrideWins(t *testing.T) {
	skills := []registry.SkillManifest{{Name: "seo-audit", Squad: "strategy", SystemPrompt: "x"}}
	fake := &fakeLLM{responses: []llm.Response{{Content: "ok", StopReason: llm.StopEndOfTurn}}}
	ex, ws := newTestExecutor(t, fake, skills, nil)

	ctx := context.Background()
	require.NoError(t, ws.WriteTask(ctx, baseTask("t1", "seo-audit")))

	result := ex.Execute(ctx, "t1", Options{ModelOverride: model.TierHaiku})
	require.Nil(t, result.Err)
	assert.Equal(t, model.TierHaiku, result.ModelTier)
}

func TestExecuteReturnsResultOnAlreadyCancelledContext(t *testing.T) {
	skills := []registry.SkillManifest{{Name: "seo-audit", Squad: "strategy", SystemPrompt: "x"}}
	fake := &fakeLLM{responses: []llm.Response{{Content: "x"}}}
	ex, ws := newTestExecutor(t, fake, skills, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, ws.WriteTask(context.Background(), baseTask("t1", "seo-audit")))

	result := ex.Execute(ctx, "t1", Options{})
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrAborted, result.Err.Code)
}
