// Package providers implements LLM provider integrations for Envoy's agent
// runtime: production clients for Anthropic's Claude and OpenAI's GPT
// models, behind the agent.LLMProvider interface.
package providers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// AnthropicProvider implements agent.LLMProvider against Anthropic's Claude
// API: streaming, retries with exponential backoff, tool calling, and
// optional extended thinking.
//
// AnthropicProvider is safe for concurrent use; each Complete call opens an
// independent stream on its own goroutine.
type AnthropicProvider struct {
	client anthropic.Client

	apiKey string

	// maxRetries bounds retry attempts for retryable errors (rate limits,
	// 5xx, timeouts, connection issues).
	maxRetries int

	// retryDelay is the base delay; actual backoff is retryDelay * 2^attempt.
	retryDelay time.Duration

	// defaultModel is used when CompletionRequest.Model is empty.
	defaultModel string
}

// AnthropicConfig configures NewAnthropicProvider. Only APIKey is required.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewAnthropicProvider validates config, applies defaults, and builds the
// underlying SDK client.
func NewAnthropicProvider(config AnthropicConfig) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}

	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if strings.TrimSpace(config.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{
		client:       client,
		apiKey:       config.APIKey,
		maxRetries:   config.MaxRetries,
		retryDelay:   config.RetryDelay,
		defaultModel: config.DefaultModel,
	}, nil
}

// Name returns the provider identifier used for routing and logging.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Models returns the supported Claude models and their capabilities.
func (p *AnthropicProvider) Models() []agent.Model {
	return []agent.Model{
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku", ContextSize: 200000, SupportsVision: true},
	}
}

// SupportsTools reports that Claude supports tool/function calling.
func (p *AnthropicProvider) SupportsTools() bool {
	return true
}

// Complete sends req to Claude and returns a channel of streaming chunks.
// The channel is closed when the stream ends; a terminal chunk carries
// either Done or Error.
func (p *AnthropicProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	chunks := make(chan *agent.CompletionChunk)

	go func() {
		defer close(chunks)

		var stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
		var err error

		for attempt := 0; attempt <= p.maxRetries; attempt++ {
			stream, err = p.createStream(ctx, req)
			if err == nil {
				break
			}

			wrappedErr := p.wrapError(err, p.getModel(req.Model))
			if !p.isRetryableError(wrappedErr) {
				chunks <- &agent.CompletionChunk{Error: wrappedErr}
				return
			}

			if attempt < p.maxRetries {
				backoff := p.retryDelay * time.Duration(math.Pow(2, float64(attempt)))
				select {
				case <-ctx.Done():
					chunks <- &agent.CompletionChunk{Error: ctx.Err()}
					return
				case <-time.After(backoff):
					continue
				}
			}
		}

		if err != nil {
			chunks <- &agent.CompletionChunk{Error: fmt.Errorf("anthropic: max retries exceeded: %w", p.wrapError(err, p.getModel(req.Model)))}
			return
		}

		p.processStream(stream, chunks, p.getModel(req.Model))
	}()

	return chunks, nil
}

// createStream builds an Anthropic streaming request from req.
func (p *AnthropicProvider) createStream(ctx context.Context, req *agent.CompletionRequest) (*ssestream.Stream[anthropic.MessageStreamEventUnion], error) {
	messages, err := p.convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to convert messages: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.getModel(req.Model)),
		Messages:  messages,
		MaxTokens: int64(p.getMaxTokens(req.MaxTokens)),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}

	if len(req.Tools) > 0 {
		tools, err := p.convertTools(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("anthropic: failed to convert tools: %w", err)
		}
		params.Tools = tools
	}

	if req.EnableThinking {
		budgetTokens := int64(req.ThinkingBudgetTokens)
		if budgetTokens < 1024 {
			budgetTokens = 10000
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budgetTokens)
	}

	return p.client.Messages.NewStreaming(ctx, params), nil
}

// maxEmptyStreamEvents bounds consecutive content-free events before a
// stream is treated as malformed, protecting against a flood that would
// otherwise spin this goroutine forever.
const maxEmptyStreamEvents = 300

// processStream consumes Claude's SSE stream and emits agent.CompletionChunk
// values: text deltas as they arrive, a tool call once its input JSON is
// fully assembled across delta events, then a terminal Done or Error chunk.
func (p *AnthropicProvider) processStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], chunks chan<- *agent.CompletionChunk, model string) {
	var currentToolCall *models.ToolCall
	var currentToolInput strings.Builder
	emptyEventCount := 0
	inThinkingBlock := false
	sawToolCall := false

	var inputTokens, outputTokens int

	for stream.Next() {
		event := stream.Current()
		eventProcessed := false

		switch event.Type {
		case "message_start":
			messageStart := event.AsMessageStart()
			if messageStart.Message.Usage.InputTokens > 0 {
				inputTokens = int(messageStart.Message.Usage.InputTokens)
			}
			eventProcessed = true

		case "content_block_start":
			contentBlock := event.AsContentBlockStart().ContentBlock
			switch contentBlock.Type {
			case "thinking":
				inThinkingBlock = true
				chunks <- &agent.CompletionChunk{ThinkingStart: true}
				eventProcessed = true
			case "tool_use":
				toolUse := contentBlock.AsToolUse()
				currentToolCall = &models.ToolCall{ID: toolUse.ID, Name: toolUse.Name}
				currentToolInput.Reset()
				eventProcessed = true
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					chunks <- &agent.CompletionChunk{Text: delta.Text}
					eventProcessed = true
				}
			case "thinking_delta":
				if delta.Thinking != "" {
					chunks <- &agent.CompletionChunk{Thinking: delta.Thinking}
					eventProcessed = true
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					currentToolInput.WriteString(delta.PartialJSON)
					eventProcessed = true
				}
			}

		case "content_block_stop":
			if inThinkingBlock {
				chunks <- &agent.CompletionChunk{ThinkingEnd: true}
				inThinkingBlock = false
				eventProcessed = true
			} else if currentToolCall != nil {
				currentToolCall.Input = json.RawMessage(currentToolInput.String())
				chunks <- &agent.CompletionChunk{ToolCall: currentToolCall}
				currentToolCall = nil
				sawToolCall = true
				eventProcessed = true
			}

		case "message_delta":
			if out := event.AsMessageDelta().Usage.OutputTokens; out > 0 {
				outputTokens = int(out)
			}
			eventProcessed = true

		case "message_stop":
			finishReason := agent.FinishReasonStop
			if sawToolCall {
				finishReason = agent.FinishReasonToolCalls
			}
			chunks <- &agent.CompletionChunk{Done: true, FinishReason: finishReason, InputTokens: inputTokens, OutputTokens: outputTokens}
			return

		case "error":
			chunks <- &agent.CompletionChunk{Error: p.wrapError(errors.New("anthropic stream error"), model)}
			return
		}

		if eventProcessed {
			emptyEventCount = 0
		} else {
			emptyEventCount++
			if emptyEventCount >= maxEmptyStreamEvents {
				chunks <- &agent.CompletionChunk{
					Error: p.wrapError(fmt.Errorf("stream appears malformed: received %d consecutive empty events", emptyEventCount), model),
				}
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		chunks <- &agent.CompletionChunk{Error: p.wrapError(err, model)}
	}
}

// convertMessages translates CompletionMessage history into Anthropic's
// content-block message format. System messages are filtered out; they are
// carried separately on params.System.
func (p *AnthropicProvider) convertMessages(messages []agent.CompletionMessage) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam

	for _, msg := range messages {
		if msg.Role == "system" {
			continue
		}

		var content []anthropic.ContentBlockParamUnion

		if msg.Content != "" {
			content = append(content, anthropic.NewTextBlock(msg.Content))
		}

		for _, toolResult := range msg.ToolResults {
			content = append(content, anthropic.NewToolResultBlock(toolResult.ToolCallID, toolResult.Content, toolResult.IsError))
		}

		for _, toolCall := range msg.ToolCalls {
			var input map[string]interface{}
			if err := json.Unmarshal(toolCall.Input, &input); err != nil {
				return nil, fmt.Errorf("invalid tool call input: %w", err)
			}
			content = append(content, anthropic.NewToolUseBlock(toolCall.ID, input, toolCall.Name))
		}

		var message anthropic.MessageParam
		if msg.Role == "assistant" {
			message = anthropic.NewAssistantMessage(content...)
		} else {
			message = anthropic.NewUserMessage(content...)
		}
		result = append(result, message)
	}

	return result, nil
}

// convertTools translates the current tool catalog into Anthropic's tool
// parameter format, carrying each tool's JSON Schema through unmodified.
func (p *AnthropicProvider) convertTools(tools []agent.Tool) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam

	for _, tool := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(tool.Schema(), &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name(), err)
		}

		toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name())
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", tool.Name())
		}
		toolParam.OfTool.Description = anthropic.String(tool.Description())
		result = append(result, toolParam)
	}

	return result, nil
}

// getModel returns req's model, defaulting to the provider's configured model.
func (p *AnthropicProvider) getModel(model string) string {
	if model == "" {
		return p.defaultModel
	}
	return model
}

// getMaxTokens returns req's max tokens, defaulting to 4096.
func (p *AnthropicProvider) getMaxTokens(maxTokens int) int {
	if maxTokens <= 0 {
		return 4096
	}
	return maxTokens
}

// isRetryableError classifies transient failures (rate limits, 5xx,
// timeouts, connection issues) as retryable.
func (p *AnthropicProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr.Reason.IsRetryable()
	}

	errMsg := err.Error()

	if strings.Contains(errMsg, "rate_limit") || strings.Contains(errMsg, "429") || strings.Contains(errMsg, "too many requests") {
		return true
	}
	if strings.Contains(errMsg, "500") || strings.Contains(errMsg, "502") || strings.Contains(errMsg, "503") ||
		strings.Contains(errMsg, "504") || strings.Contains(errMsg, "internal server error") ||
		strings.Contains(errMsg, "bad gateway") || strings.Contains(errMsg, "service unavailable") ||
		strings.Contains(errMsg, "gateway timeout") {
		return true
	}
	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded") {
		return true
	}
	if strings.Contains(errMsg, "connection reset") || strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return true
	}

	return false
}

type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

// wrapError normalizes a raw SDK error into a *ProviderError carrying
// status/code/request-id, for the retry and failover logic in errors.go.
func (p *AnthropicProvider) wrapError(err error, model string) error {
	if err == nil {
		return nil
	}
	if IsProviderError(err) {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		providerErr := &ProviderError{Provider: "anthropic", Model: model, Cause: err, Reason: FailoverUnknown}
		providerErr = providerErr.WithStatus(apiErr.StatusCode)

		message, code, requestID := "", "", apiErr.RequestID

		if raw := apiErr.RawJSON(); raw != "" {
			var payload anthropicErrorPayload
			if json.Unmarshal([]byte(raw), &payload) == nil {
				if payload.Error.Message != "" {
					message = payload.Error.Message
				}
				if payload.Error.Type != "" {
					code = payload.Error.Type
				}
				if payload.RequestID != "" {
					requestID = payload.RequestID
				}
			}
		}

		if message != "" {
			providerErr = providerErr.WithMessage(message)
		} else if providerErr.Message == "" {
			providerErr.Message = "anthropic request failed"
		}
		if code != "" {
			providerErr = providerErr.WithCode(code)
		}
		if requestID != "" {
			providerErr = providerErr.WithRequestID(requestID)
		}
		return providerErr
	}

	return NewProviderError("anthropic", model, err)
}

// CountTokens estimates token usage for req using a ~4-chars-per-token
// approximation, useful for a rough context-window check before sending.
func (p *AnthropicProvider) CountTokens(req *agent.CompletionRequest) int {
	total := len(req.System) / 4

	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
		total += len(msg.Role) / 4
		for _, tc := range msg.ToolCalls {
			total += len(tc.Name) / 4
			total += len(tc.Input) / 4
		}
		for _, tr := range msg.ToolResults {
			total += len(tr.Content) / 4
		}
	}

	for _, tool := range req.Tools {
		total += len(tool.Name()) / 4
		total += len(tool.Description()) / 4
		total += len(tool.Schema()) / 4
	}

	return total
}

// ParseSSEStream is a low-level SSE reader kept for callers that need to
// inspect raw event frames rather than go through the SDK's stream types.
// handler is invoked once per blank-line-terminated event with the
// accumulated event type and data (multiple "data:" lines join with "\n",
// per the SSE spec); a non-nil return from handler aborts the scan.
func ParseSSEStream(r io.Reader, handler func(eventType, data string) error) error {
	scanner := bufio.NewScanner(r)
	var eventType string
	var dataLines []string

	flush := func() error {
		if eventType == "" && len(dataLines) == 0 {
			return nil
		}
		err := handler(eventType, strings.Join(dataLines, "\n"))
		eventType = ""
		dataLines = nil
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := flush(); err != nil {
		return err
	}

	return scanner.Err()
}
