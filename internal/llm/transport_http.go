package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPTransport is the real Transport implementation, speaking the
// Anthropic Messages API wire shape the consumed LLM client contract
// describes (spec §6). Every outbound call is instrumented through
// otelhttp.NewTransport so request spans land alongside the rest of the
// orchestrator's OpenTelemetry traces (SPEC_FULL.md §6 "Observability").
type HTTPTransport struct {
	Endpoint string
	APIKey   string
	client   *http.Client
}

// NewHTTPTransport builds an HTTPTransport. A zero-value http.Client with
// an otelhttp-wrapped RoundTripper is used if none is supplied via
// WithClient.
func NewHTTPTransport(endpoint, apiKey string) *HTTPTransport {
	return &HTTPTransport{
		Endpoint: endpoint,
		APIKey:   apiKey,
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

type wireContentBlock struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                 `json:"tool_use_id,omitempty"`
}

type wireMessage struct {
	Role    string             `json:"role"`
	Content []wireContentBlock `json:"content"`
}

type wireTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type wireRequest struct {
	Model     string        `json:"model"`
	System    string        `json:"system,omitempty"`
	Messages  []wireMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
	Tools     []wireTool    `json:"tools,omitempty"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type wireResponse struct {
	Model      string             `json:"model"`
	Content    []wireContentBlock `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      wireUsage          `json:"usage"`
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req Request) (Response, error) {
	wireReq := wireRequest{Model: req.Model, System: req.System, MaxTokens: req.MaxTokens}
	for _, m := range req.Messages {
		blocks := toWireBlocks(m)
		wireReq.Messages = append(wireReq.Messages, wireMessage{Role: m.Role, Content: blocks})
	}
	for _, tool := range req.Tools {
		wireReq.Tools = append(wireReq.Tools, wireTool{Name: tool.Name, Description: tool.Description, InputSchema: tool.InputSchema})
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return Response{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.APIKey)

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("llm: http request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("llm: read response body: %w", err)
	}
	if httpResp.StatusCode >= 400 {
		return Response{}, fmt.Errorf("llm: http status %d: %s", httpResp.StatusCode, string(raw))
	}

	var wireResp wireResponse
	if err := json.Unmarshal(raw, &wireResp); err != nil {
		return Response{}, fmt.Errorf("llm: unmarshal response: %w", err)
	}

	return fromWireResponse(wireResp), nil
}

func toWireBlocks(m Message) []wireContentBlock {
	if len(m.Blocks) == 0 {
		return []wireContentBlock{{Type: "text", Text: m.Content}}
	}
	blocks := make([]wireContentBlock, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		blocks = append(blocks, wireContentBlock{
			Type:      b.Type,
			Text:      b.Text,
			ID:        b.ToolUseID,
			Name:      b.ToolName,
			Input:     b.ToolInput,
			ToolUseID: b.ToolUseID,
		})
	}
	return blocks
}

func fromWireResponse(w wireResponse) Response {
	resp := Response{
		Content:      "",
		Model:        w.Model,
		InputTokens:  w.Usage.InputTokens,
		OutputTokens: w.Usage.OutputTokens,
		StopReason:   mapStopReason(w.StopReason),
	}
	for _, b := range w.Content {
		block := ContentBlock{Type: b.Type, Text: b.Text, ToolUseID: b.ID, ToolName: b.Name, ToolInput: b.Input}
		resp.ContentBlocks = append(resp.ContentBlocks, block)
		if b.Type == "text" {
			resp.Content += b.Text
		}
		if b.Type == "tool_use" {
			resp.ToolUseBlocks = append(resp.ToolUseBlocks, block)
		}
	}
	return resp
}

func mapStopReason(raw string) StopReason {
	switch raw {
	case "end_turn":
		return StopEndOfTurn
	case "max_tokens":
		return StopMaxTokens
	case "stop_sequence":
		return StopStopSequence
	case "tool_use":
		return StopToolUse
	default:
		return StopEndOfTurn
	}
}

// ClassifyHTTPError maps transport-level errors to an ErrKind for the
// retry policy, based on the http status embedded in the error text by
// Send (no structured error type survives the http.Client boundary).
func ClassifyHTTPError(err error) ErrKind {
	if err == nil {
		return ErrUnknown
	}
	msg := err.Error()
	switch {
	case containsStatus(msg, 429):
		return ErrRateLimited
	case containsStatus(msg, 503), containsStatus(msg, 529):
		return ErrOverloaded
	case containsStatus(msg, 500), containsStatus(msg, 502), containsStatus(msg, 504):
		return ErrServerError
	default:
		return ErrUnknown
	}
}

func containsStatus(msg string, code int) bool {
	return strings.Contains(msg, fmt.Sprintf("status %d", code))
}
