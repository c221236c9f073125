// Package llm implements the retrying RPC client contract consumed by the
// agent executor: bounded backoff, per-request timeout, cancellation, and
// tool-call extraction, grounded on the teacher's internal/dispatch
// (retry.go's RetryPolicy/backoffDelayWithFactor, ratelimit.go's mutex-
// guarded rate gate) generalized from a tmux/process dispatch backend to a
// remote LLM provider RPC.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// StopReason mirrors the consumed LLM client contract's stopReason values
// (spec §6).
type StopReason string

const (
	StopEndOfTurn     StopReason = "end of turn"
	StopMaxTokens     StopReason = "max tokens"
	StopStopSequence  StopReason = "stop sequence"
	StopToolUse       StopReason = "tool use"
)

// Message is one entry in a createMessage call's messages[] array.
type Message struct {
	Role    string
	Content string
	Blocks  []ContentBlock
}

// ContentBlock is one block of a multi-block message (text, tool_use, or
// tool_result).
type ContentBlock struct {
	Type      string // "text" | "tool_use" | "tool_result"
	Text      string
	ToolUseID string
	ToolName  string
	ToolInput map[string]interface{}
}

// ToolDefinition follows the shape the contract requires:
// {name, description, input_schema: {type: "object", properties?, required?}}.
// Tool names use the qualified form {tool}__{action}.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Request is the full createMessage input.
type Request struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
	Timeout   time.Duration
	Tools     []ToolDefinition
}

// Response is the full createMessage output.
type Response struct {
	Content       string
	Model         string
	InputTokens   int
	OutputTokens  int
	StopReason    StopReason
	DurationMs    int64
	ToolUseBlocks []ContentBlock
	ContentBlocks []ContentBlock
}

// Transport performs one unretried RPC round-trip. Real deployments wire
// this to a provider SDK; tests substitute a fake.
type Transport interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// ErrKind classifies a Transport error for the retry policy, since
// Transport implementations speak in provider-specific error types the
// client doesn't otherwise understand.
type ErrKind int

const (
	ErrUnknown ErrKind = iota
	ErrRateLimited
	ErrOverloaded
	ErrServerError
	ErrTimeout
)

// Classifier maps a raw Transport error to an ErrKind driving the backoff
// schedule.
type Classifier func(error) ErrKind

// Client is the retrying LLM RPC client.
type Client struct {
	transport  Transport
	classify   Classifier
	limiter    *rate.Limiter
	rateSchedule     []time.Duration
	serverSchedule   []time.Duration
	timeoutRetries   int
}

// NewClient builds a Client with the spec's default backoff schedules
// (§5 "Cancellation & timeouts": 2s/4s/8s/16s/32s/60s for rate limits,
// 2s/4s/8s for transient 5xx, single retry for timeouts) and a
// golang.org/x/time/rate token-bucket limiter gating outbound RPCs,
// grounded on the teacher's RateLimiter concern (internal/dispatch/
// ratelimit.go) generalized from a 5h/weekly usage cap to a steady-state
// requests-per-second limiter.
func NewClient(transport Transport, classify Classifier, ratePerSecond float64, burst int) *Client {
	if classify == nil {
		classify = func(error) ErrKind { return ErrUnknown }
	}
	return &Client{
		transport:      transport,
		classify:       classify,
		limiter:        rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		rateSchedule:   durations(2, 4, 8, 16, 32, 60),
		serverSchedule: durations(2, 4, 8),
		timeoutRetries: 1,
	}
}

func durations(seconds ...int) []time.Duration {
	out := make([]time.Duration, len(seconds))
	for i, s := range seconds {
		out[i] = time.Duration(s) * time.Second
	}
	return out
}

// CreateMessage issues req with the configured retry/backoff/cancellation
// policy. It enforces req.Timeout as a per-request deadline and re-checks
// ctx cancellation between backoff sleeps (design note: "Between backoff
// sleeps the client re-checks cancellation").
func (c *Client) CreateMessage(ctx context.Context, req Request) (Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("llm: rate limiter wait: %w", err)
	}

	var lastErr error
	attempt := 0
	timeoutsUsed := 0

	for {
		callCtx := ctx
		var cancel context.CancelFunc
		if req.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		}
		start := time.Now()
		resp, err := c.transport.Send(callCtx, req)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			resp.DurationMs = time.Since(start).Milliseconds()
			return resp, nil
		}
		lastErr = err

		kind := c.classify(err)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && kind != ErrRateLimited && kind != ErrOverloaded && kind != ErrServerError {
			kind = ErrTimeout
		}

		var delay time.Duration
		var retryable bool
		switch kind {
		case ErrRateLimited:
			delay, retryable = scheduleDelay(c.rateSchedule, attempt)
		case ErrOverloaded, ErrServerError:
			delay, retryable = scheduleDelay(c.serverSchedule, attempt)
		case ErrTimeout:
			retryable = timeoutsUsed < c.timeoutRetries
			timeoutsUsed++
		default:
			retryable = false
		}

		if !retryable {
			return Response{}, fmt.Errorf("llm: request failed after %d attempt(s): %w", attempt+1, lastErr)
		}

		if err := sleepOrCancel(ctx, delay); err != nil {
			return Response{}, err
		}
		attempt++
	}
}

// scheduleDelay returns the attempt-indexed delay from schedule, and
// whether a retry is still available at this attempt count.
func scheduleDelay(schedule []time.Duration, attempt int) (time.Duration, bool) {
	if attempt >= len(schedule) {
		return 0, false
	}
	return schedule[attempt], true
}

// sleepOrCancel waits for delay, returning early with ctx.Err() if ctx is
// cancelled first.
func sleepOrCancel(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("llm: cancelled during backoff: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
