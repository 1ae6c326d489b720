package agent

import (
	"context"
	"encoding/json"

	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// LLMProvider is the one contract the agent loop requires of a model
// backend (spec §9 "Model provider abstraction"): a streaming call
// returning an ordered stream of text-delta/tool-call/error events, a
// finish reason, and a replayable message list on completion.
type LLMProvider interface {
	// Complete sends a prompt and returns a streaming response.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []Model

	// SupportsTools returns whether the provider supports tool use.
	SupportsTools() bool
}

// CompletionRequest contains all parameters for one streaming model step
// (spec §4.F step 2a): the dynamically-assembled system prompt, the current
// messages, and the current tool set from D union E.
type CompletionRequest struct {
	// Model specifies which LLM model to use. If empty, the provider's
	// default model is used.
	Model string `json:"model"`

	// System is the system prompt, reassembled on every turn (spec §4.F).
	System string `json:"system,omitempty"`

	// Messages contains the conversation history in chronological order.
	Messages []CompletionMessage `json:"messages"`

	// Tools defines the tool set available for this step.
	Tools []Tool `json:"tools,omitempty"`

	// MaxTokens limits the length of the generated response. If 0 or
	// negative, the provider's default is used.
	MaxTokens int `json:"max_tokens,omitempty"`

	// EnableThinking enables extended thinking mode on providers that
	// support it.
	EnableThinking bool `json:"enable_thinking,omitempty"`

	// ThinkingBudgetTokens bounds EnableThinking's token budget.
	ThinkingBudgetTokens int `json:"thinking_budget_tokens,omitempty"`
}

// CompletionMessage is one entry of the replayable message list the
// provider splices onto history after a step closes (spec §4.F step c).
// Role is one of "user", "assistant", "tool".
type CompletionMessage struct {
	Role string `json:"role"`

	// Content is the plain text content (user turns, or an assistant
	// turn's leading text before any tool calls).
	Content string `json:"content,omitempty"`

	// ToolCalls carries an assistant turn's tool-call parts.
	ToolCalls []models.ToolCall `json:"tool_calls,omitempty"`

	// ToolResults carries a tool turn's result parts.
	ToolResults []models.ToolResult `json:"tool_results,omitempty"`
}

// CompletionChunk is a single event in a streaming model step: a text
// delta, a completed tool call, a terminal error, or the done signal (spec
// §4.F step 2b).
type CompletionChunk struct {
	// Text contains an incremental assistant text delta.
	Text string `json:"text,omitempty"`

	// Thinking carries an incremental extended-thinking delta, emitted only
	// when the request set EnableThinking and the provider supports it.
	Thinking      string `json:"thinking,omitempty"`
	ThinkingStart bool   `json:"thinking_start,omitempty"`
	ThinkingEnd   bool   `json:"thinking_end,omitempty"`

	// ToolCall contains a complete tool-call request.
	ToolCall *models.ToolCall `json:"tool_call,omitempty"`

	// Done is true on the chunk that closes the stream successfully.
	Done bool `json:"done,omitempty"`

	// FinishReason distinguishes "wants to call tools" from "is done"
	// (spec §9). Valid values: FinishReasonToolCalls, FinishReasonStop.
	FinishReason string `json:"finish_reason,omitempty"`

	// Error terminates the stream; the loop logs it and breaks the
	// current step without raising further (spec §4.F step 2b, §7).
	Error error `json:"-"`

	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Finish reasons reported on the terminal chunk of a step.
const (
	FinishReasonToolCalls = "tool-calls"
	FinishReasonStop      = "stop"
)

// Model describes an available LLM model.
type Model struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ContextSize    int    `json:"context_size"`
	SupportsVision bool   `json:"supports_vision"`
}

// Tool is the interface every built-in, custom, and integration-scoped
// tool implements (spec GLOSSARY "Tool"). The catalog assembles a []Tool
// fresh at the start of every model step (spec §4.D).
type Tool interface {
	// Name returns the tool name exposed to the model.
	Name() string

	// Description returns what the tool does, for the model's benefit.
	Description() string

	// Schema returns the JSON Schema describing the tool's parameters.
	Schema() json.RawMessage

	// Execute runs the tool. Implementations never return a Go error for
	// a failure of the tool body itself — per spec §4.C/§7, that failure
	// is encoded into ToolResult.Content as data for the model.
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult is one tool's output, fed back to the model as a tool turn.
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}
