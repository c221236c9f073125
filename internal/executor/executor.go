// Package executor implements the agent executor (C6): the orchestration
// of one task from abort/status/budget gating through skill resolution,
// model selection, prompt assembly, the LLM RPC with truncation recovery
// and a tool-use loop, to output persistence and cost recording. It never
// throws — every path returns a status-bearing Result with an optional
// typed error (I8) — grounded on the teacher's dispatch-then-persist
// orchestration shape (internal/dispatch) generalized from a tmux-session
// dispatch loop to a single-task LLM pipeline.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/antigravity-dev/marketing-orchestrator/internal/cost"
	"github.com/antigravity-dev/marketing-orchestrator/internal/llm"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/prompt"
	"github.com/antigravity-dev/marketing-orchestrator/internal/registry"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

// LLMClient is the subset of *llm.Client the executor depends on, so tests
// can substitute a fake without a real Transport.
type LLMClient interface {
	CreateMessage(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Options carries per-call overrides the caller (pipeline engine, queue
// worker) may supply.
type Options struct {
	ModelOverride model.ModelTier // explicit override, highest precedence
}

// Result is always returned by Execute, success or failure (I8).
type Result struct {
	TaskID           string
	Status           model.TaskStatus // TaskCompleted or TaskFailed
	OutputPath       string
	ModelTier        model.ModelTier
	InputTokens      int
	OutputTokens     int
	EstimatedCostUSD float64
	Truncated        bool
	ToolIterations   int
	Warnings         []string
	Err              *ExecError
}

// Executor wires together every component consumed by one task run.
type Executor struct {
	Workspace  workspace.Workspace
	Skills     *registry.SkillRegistry
	Squads     *registry.SquadRegistry
	Tools      *registry.ToolRegistry
	Tracker    *cost.Tracker
	LLM        LLMClient
	PromptBudget    int
	LLMTimeout      time.Duration
	MaxToolIterations int
}

// Execute runs one task to completion or failure and never panics out: a
// deferred recover turns any unexpected panic into an UNKNOWN result.
func (e *Executor) Execute(ctx context.Context, taskID string, opts Options) (result Result) {
	result.TaskID = taskID
	defer func() {
		if r := recover(); r != nil {
			result.Status = model.TaskFailed
			result.Err = newErr(ErrUnknown, "panic recovered in executor", fmt.Errorf("%v", r))
		}
	}()

	if ctx.Err() != nil {
		result.Status = model.TaskFailed
		result.Err = newErr(ErrAborted, "context already cancelled before execution began", ctx.Err())
		return result
	}

	task, err := e.Workspace.ReadTask(ctx, taskID)
	if err != nil {
		result.Status = model.TaskFailed
		result.Err = newErr(ErrUnknown, "failed to read task", err)
		return result
	}

	if !task.Status.IsExecutable() {
		result.Status = model.TaskFailed
		result.Err = newErr(ErrTaskNotExecutable, fmt.Sprintf("task status %q is not executable", task.Status), nil)
		return result
	}

	budgetState := e.Tracker.ToBudgetState()
	if budgetState.Level == model.BudgetExhausted || !budgetState.Allows(task.Priority) {
		result.Status = model.TaskFailed
		result.Err = newErr(ErrBudgetExhausted, "budget gate rejected this task's priority", nil)
		return result
	}

	skill, ok := e.Skills.Get(task.Skill)
	if !ok {
		result.Status = model.TaskFailed
		result.Err = newErr(ErrSkillNotFound, fmt.Sprintf("skill %q is not registered", task.Skill), nil)
		return result
	}
	isFoundation := e.Skills.IsFoundation(task.Skill)
	squad, hasSquad := e.Skills.SquadOf(task.Skill)

	tier := e.selectModelTier(opts, budgetState, isFoundation, squad, hasSquad)
	result.ModelTier = tier

	promptResult, perr := e.assemblePrompt(ctx, task, skill, isFoundation)
	if perr != nil {
		result.Status = model.TaskFailed
		result.Err = perr
		return result
	}
	result.Warnings = append(result.Warnings, promptResult.Warnings...)

	if err := e.Workspace.UpdateTaskStatus(ctx, taskID, model.TaskInProgress); err != nil {
		result.Status = model.TaskFailed
		result.Err = newErr(ErrWorkspaceWriteFailed, "failed to transition task to in_progress", err)
		return result
	}

	toolDefs := e.toolDefinitionsFor(task.Skill)

	resp, rerr := e.LLM.CreateMessage(ctx, llm.Request{
		Model:     string(tier),
		System:    promptResult.SystemPrompt,
		Messages:  []llm.Message{{Role: "user", Content: promptResult.UserMessage}},
		MaxTokens: 4096,
		Timeout:   e.LLMTimeout,
		Tools:     toolDefs,
	})
	if rerr != nil {
		result.Status = model.TaskFailed
		result.Err = classifyTransportError(rerr)
		e.markFailedBestEffort(ctx, taskID)
		return result
	}
	result.InputTokens += resp.InputTokens
	result.OutputTokens += resp.OutputTokens

	// Truncation recovery: only for genuine truncation stop reasons, not
	// "tool use" — tool-use continuation is handled by the tool loop below.
	if isTruncated(resp.StopReason) && ctx.Err() == nil {
		result.Truncated = true
		retryResp, rerr := e.LLM.CreateMessage(ctx, llm.Request{
			Model:  string(tier),
			System: promptResult.SystemPrompt,
			Messages: []llm.Message{
				{Role: "user", Content: promptResult.UserMessage},
				{Role: "assistant", Content: resp.Content},
				{Role: "user", Content: "Your previous response was cut off. Continue, but be more concise."},
			},
			MaxTokens: 4096,
			Timeout:   e.LLMTimeout,
			Tools:     toolDefs,
		})
		if rerr == nil {
			result.InputTokens += retryResp.InputTokens
			result.OutputTokens += retryResp.OutputTokens
			resp = pickBetterResponse(resp, retryResp)
		}
	}

	if strings.TrimSpace(resp.Content) == "" && resp.StopReason != llm.StopToolUse {
		result.Status = model.TaskFailed
		result.Err = newErr(ErrResponseEmpty, "model returned empty content", nil)
		e.markFailedBestEffort(ctx, taskID)
		return result
	}

	finalResp, toolTokensIn, toolTokensOut, iterations, toolErr := e.runToolLoop(ctx, task, tier, promptResult, toolDefs, resp)
	result.InputTokens += toolTokensIn
	result.OutputTokens += toolTokensOut
	result.ToolIterations = iterations
	if toolErr != nil {
		result.Status = model.TaskFailed
		result.Err = toolErr
		e.markFailedBestEffort(ctx, taskID)
		return result
	}

	outputPath := workspace.OutputPath(string(squad), task.Skill, taskID, isFoundation)
	if err := e.Workspace.WriteOutputFor(ctx, string(squad), task.Skill, taskID, finalResp.Content, isFoundation); err != nil {
		result.Status = model.TaskFailed
		result.Err = newErr(ErrWorkspaceWriteFailed, "failed to persist task output", err)
		e.markFailedBestEffort(ctx, taskID)
		return result
	}
	result.OutputPath = outputPath

	if err := e.Workspace.UpdateTaskStatus(ctx, taskID, model.TaskCompleted); err != nil {
		result.Status = model.TaskFailed
		result.Err = newErr(ErrWorkspaceWriteFailed, "failed to transition task to completed", err)
		return result
	}
	result.Status = model.TaskCompleted

	estimatedCost := cost.EstimateCost(tier, result.InputTokens, result.OutputTokens)
	result.EstimatedCostUSD = estimatedCost
	e.Tracker.Record(model.CostEntry{
		Timestamp:    nowFunc(),
		TaskID:       taskID,
		Skill:        task.Skill,
		ModelTier:    tier,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		EstimatedUSD: estimatedCost,
	})

	return result
}

// ExecuteOrThrow wraps Execute and raises the recorded error as a Go error
// on failure, for callers that want exception-style propagation (spec:
// "a throwing variant wraps the returning variant").
func (e *Executor) ExecuteOrThrow(ctx context.Context, taskID string, opts Options) (Result, error) {
	result := e.Execute(ctx, taskID, opts)
	if result.Err != nil {
		return result, result.Err
	}
	return result, nil
}

// nowFunc is indirected so tests can pin the cost entry timestamp.
var nowFunc = time.Now

func (e *Executor) markFailedBestEffort(ctx context.Context, taskID string) {
	_ = e.Workspace.UpdateTaskStatus(ctx, taskID, model.TaskFailed)
}

// selectModelTier resolves precedence: explicit override > budget forced
// tier > squad default (foundation skills default to opus same as the
// strategy squad, per spec §4.2 step 5, even though the registry records
// no squad at all for foundation skills).
func (e *Executor) selectModelTier(opts Options, budgetState cost.BudgetState, isFoundation bool, squad model.Squad, hasSquad bool) model.ModelTier {
	if opts.ModelOverride != "" {
		return opts.ModelOverride
	}
	if budgetState.HasForcedTier {
		return budgetState.ForcedTier
	}
	if isFoundation {
		return model.TierOpus
	}
	if hasSquad {
		return e.Squads.DefaultModelTier(squad)
	}
	return model.TierSonnet
}

func isTruncated(reason llm.StopReason) bool {
	return reason == llm.StopMaxTokens || reason == llm.StopStopSequence
}

// pickBetterResponse keeps the more complete of two responses: an
// end-of-turn response beats a still-truncated one; otherwise the longer
// content wins.
func pickBetterResponse(first, second llm.Response) llm.Response {
	firstDone := first.StopReason == llm.StopEndOfTurn
	secondDone := second.StopReason == llm.StopEndOfTurn
	if secondDone && !firstDone {
		return second
	}
	if firstDone && !secondDone {
		return first
	}
	if len(second.Content) > len(first.Content) {
		return second
	}
	return first
}

// classifyTransportError maps a transport-level failure (already retried
// and exhausted, or non-retryable, inside internal/llm) to the executor's
// taxonomy. internal/llm doesn't export granular kinds post-retry, so this
// inspects the error text for the provider error class the Client's
// Classifier would have seen.
func classifyTransportError(err error) *ExecError {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "status 429"):
		return newErr(ErrRateLimited, "rate limited", err)
	case strings.Contains(msg, "overloaded"), strings.Contains(msg, "status 503"), strings.Contains(msg, "status 529"):
		return newErr(ErrAPIOverloaded, "upstream overloaded", err)
	case strings.Contains(msg, "cancelled"), strings.Contains(msg, "context canceled"):
		return newErr(ErrAborted, "request cancelled", err)
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return newErr(ErrTimeout, "request timed out", err)
	default:
		return newErr(ErrAPIError, "LLM request failed", err)
	}
}

// toolDefinitionsFor builds the wire-shaped tool definitions for every
// action the skill is authorized to invoke, qualified as {tool}__{action}.
func (e *Executor) toolDefinitionsFor(skill string) []llm.ToolDefinition {
	var defs []llm.ToolDefinition
	for _, toolName := range e.Skills.ToolsFor(skill) {
		if !e.Tools.Authorized(skill, toolName) {
			continue
		}
		tool, ok := e.Tools.Get(toolName)
		if !ok {
			continue
		}
		for _, action := range tool.Actions {
			defs = append(defs, llm.ToolDefinition{
				Name:        llm.QualifyToolName(toolName, action.Name),
				Description: action.Description,
				InputSchema: schemaToMap(action.Parameters),
			})
		}
	}
	return defs
}

func schemaToMap(p registry.ParamSchema) map[string]interface{} {
	m := map[string]interface{}{"type": p.Type}
	if len(p.Properties) > 0 {
		props := make(map[string]interface{}, len(p.Properties))
		for k, v := range p.Properties {
			props[k] = schemaToMap(v)
		}
		m["properties"] = props
	}
	if len(p.Required) > 0 {
		m["required"] = p.Required
	}
	return m
}

// runToolLoop drives the tool-use loop (spec §4.2 step 11): while the last
// response's stop reason is "tool use" and the iteration count is below
// the configured limit, resolve and invoke each tool call (currently
// stub), append a tool_result keyed by tool-use id, and re-issue.
func (e *Executor) runToolLoop(ctx context.Context, task model.Task, tier model.ModelTier, pr prompt.Result, toolDefs []llm.ToolDefinition, resp llm.Response) (llm.Response, int, int, int, *ExecError) {
	if len(toolDefs) == 0 {
		return resp, 0, 0, 0, nil
	}

	messages := []llm.Message{{Role: "user", Content: pr.UserMessage}}
	var totalIn, totalOut, iterations int

	for resp.StopReason == llm.StopToolUse {
		if iterations >= e.MaxToolIterations {
			return resp, totalIn, totalOut, iterations, newErr(ErrToolLoopLimit, "exceeded maximum tool-use iterations", nil)
		}

		messages = append(messages, llm.Message{Role: "assistant", Blocks: resp.ToolUseBlocks})

		for _, block := range resp.ToolUseBlocks {
			toolName, action, ok := llm.SplitQualifiedToolName(block.ToolName)
			if !ok || !e.Tools.Authorized(task.Skill, toolName) {
				return resp, totalIn, totalOut, iterations, newErr(ErrToolError, fmt.Sprintf("skill %q is not authorized to invoke %q", task.Skill, block.ToolName), nil)
			}
			payload, _ := json.Marshal(map[string]interface{}{
				"tool":   toolName,
				"action": action,
				"input":  block.ToolInput,
				"status": "ok",
			})
			messages = append(messages, llm.Message{
				Role: "user",
				Blocks: []llm.ContentBlock{{
					Type:      "tool_result",
					ToolUseID: block.ToolUseID,
					Text:      string(payload),
				}},
			})
		}

		next, err := e.LLM.CreateMessage(ctx, llm.Request{
			Model:     string(tier),
			System:    pr.SystemPrompt,
			Messages:  messages,
			MaxTokens: 4096,
			Timeout:   e.LLMTimeout,
			Tools:     toolDefs,
		})
		if err != nil {
			return resp, totalIn, totalOut, iterations, classifyTransportError(err)
		}
		totalIn += next.InputTokens
		totalOut += next.OutputTokens
		iterations++
		resp = next
	}

	return resp, totalIn, totalOut, iterations, nil
}
