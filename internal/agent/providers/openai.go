package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements agent.LLMProvider for OpenAI's GPT models:
// streaming completions, tool/function calling, and retry with linear
// backoff (via the embedded BaseProvider).
//
// Key differences from AnthropicProvider: the system prompt is injected as
// the first message rather than a separate field, and tool calls stream
// incrementally and must be accumulated by index before being emitted.
type OpenAIProvider struct {
	BaseProvider

	client *openai.Client
	apiKey string
}

// NewOpenAIProvider builds an OpenAIProvider. An empty apiKey produces a
// provider whose Complete calls fail until reconfigured, allowing delayed
// configuration.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	p := &OpenAIProvider{BaseProvider: NewBaseProvider("openai", 3, time.Second), apiKey: apiKey}
	if apiKey != "" {
		p.client = openai.NewClient(apiKey)
	}
	return p
}

// Name returns the provider identifier used for routing and logging.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Models returns the supported GPT models and their capabilities.
func (p *OpenAIProvider) Models() []agent.Model {
	return []agent.Model{
		{ID: "gpt-4o", Name: "GPT-4o", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", ContextSize: 16385, SupportsVision: false},
		{ID: "gpt-4", Name: "GPT-4", ContextSize: 8192, SupportsVision: false},
	}
}

// SupportsTools reports that GPT models support function calling.
func (p *OpenAIProvider) SupportsTools() bool {
	return true
}

// Complete sends req to GPT and returns a channel of streaming chunks.
func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	if p.client == nil {
		return nil, errors.New("openai: API key not configured")
	}

	messages, err := p.convertToOpenAIMessages(req.Messages, req.System)
	if err != nil {
		return nil, fmt.Errorf("openai: failed to convert messages: %w", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = p.convertToOpenAITools(req.Tools)
	}

	var stream *openai.ChatCompletionStream
	err = p.Retry(ctx, p.isRetryableError, func() error {
		s, err := p.client.CreateChatCompletionStream(ctx, chatReq)
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}

	chunks := make(chan *agent.CompletionChunk)
	go p.processStream(ctx, stream, chunks)

	return chunks, nil
}

// processStream consumes GPT's streaming response, emitting text deltas
// immediately and accumulating tool-call argument fragments (tracked by
// OpenAI's per-call index) until the finish reason reports "tool_calls".
func (p *OpenAIProvider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *agent.CompletionChunk) {
	defer close(chunks)
	defer stream.Close()

	toolCalls := make(map[int]*models.ToolCall)
	sawToolCall := false

	for {
		select {
		case <-ctx.Done():
			chunks <- &agent.CompletionChunk{Error: ctx.Err(), Done: true}
			return
		default:
		}

		response, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				finishReason := agent.FinishReasonStop
				if sawToolCall {
					finishReason = agent.FinishReasonToolCalls
				}
				chunks <- &agent.CompletionChunk{Done: true, FinishReason: finishReason}
				return
			}
			chunks <- &agent.CompletionChunk{Error: err, Done: true}
			return
		}

		if len(response.Choices) == 0 {
			continue
		}

		delta := response.Choices[0].Delta

		if delta.Content != "" {
			chunks <- &agent.CompletionChunk{Text: delta.Content}
		}

		for _, tc := range delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			if toolCalls[index] == nil {
				toolCalls[index] = &models.ToolCall{}
			}
			if tc.ID != "" {
				toolCalls[index].ID = tc.ID
			}
			if tc.Function.Name != "" {
				toolCalls[index].Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				toolCalls[index].Input = json.RawMessage(string(toolCalls[index].Input) + tc.Function.Arguments)
			}
		}

		if response.Choices[0].FinishReason == "tool_calls" {
			sawToolCall = true
			for _, tc := range toolCalls {
				if tc.ID != "" && tc.Name != "" {
					chunks <- &agent.CompletionChunk{ToolCall: tc}
				}
			}
			toolCalls = make(map[int]*models.ToolCall)
		}
	}
}

// convertToOpenAIMessages translates CompletionMessage history into OpenAI's
// flat message array, injecting system as the leading message and splitting
// each tool result into its own "tool"-role message (OpenAI requires one
// message per result, unlike Anthropic's content blocks).
func (p *OpenAIProvider) convertToOpenAIMessages(messages []agent.CompletionMessage, system string) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{Role: msg.Role}

		switch msg.Role {
		case "user", "system":
			oaiMsg.Content = msg.Content

		case "assistant":
			oaiMsg.Content = msg.Content
			if len(msg.ToolCalls) > 0 {
				oaiMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					oaiMsg.ToolCalls[i] = openai.ToolCall{
						ID:   tc.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      tc.Name,
							Arguments: string(tc.Input),
						},
					}
				}
			}

		case "tool":
			if len(msg.ToolResults) > 0 {
				for _, tr := range msg.ToolResults {
					result = append(result, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						Content:    tr.Content,
						ToolCallID: tr.ToolCallID,
					})
				}
				continue
			}
		}

		result = append(result, oaiMsg)
	}

	return result, nil
}

// convertToOpenAITools translates the current tool catalog into OpenAI's
// function-calling schema. A tool whose schema fails to parse falls back to
// an empty object schema rather than failing the whole request.
func (p *OpenAIProvider) convertToOpenAITools(tools []agent.Tool) []openai.Tool {
	result := make([]openai.Tool, len(tools))

	for i, tool := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(tool.Schema(), &schemaMap); err != nil {
			schemaMap = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  schemaMap,
			},
		}
	}

	return result
}

// isRetryableError classifies rate limits, 5xx, and timeouts as retryable.
func (p *OpenAIProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "429") {
		return true
	}
	if strings.Contains(errMsg, "500") || strings.Contains(errMsg, "502") || strings.Contains(errMsg, "503") || strings.Contains(errMsg, "504") {
		return true
	}
	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded") {
		return true
	}

	return false
}
