package agent

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/4ug-aug/envoy-v2/internal/bus"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// MaxSteps bounds a single turn's model-call / tool-execute / re-enter
// cycle. Reaching it is normal completion: whatever text has been
// accumulated so far is returned, not an error.
const MaxSteps = 10

// ToolSource supplies the tool set available to the model for one turn —
// the union of the catalog's custom tools (D), the integration manager's
// integration-scoped tools (E), and the runtime's own meta-tools (I).
type ToolSource interface {
	Tools(ctx context.Context) ([]Tool, error)
}

// PromptSource builds the system prompt for one turn. It is called fresh
// on every turn, never cached, because the tool/integration/task listing it
// enumerates changes dynamically between turns.
type PromptSource interface {
	SystemPrompt(ctx context.Context) (string, error)
}

// ProcessTurn runs the bounded step-by-step model-call / tool-execute /
// re-enter cycle described by spec §4.F and returns the final assistant
// text together with the full updated history (the input history plus
// every entry spliced on during this turn). Progress is published to bus
// for sessionID at each sub-step; a turn with no subscriber still runs to
// completion, it simply has no listener.
func (rt *Runtime) ProcessTurn(ctx context.Context, sessionID, userMessage string, history []models.ConversationEntry) (string, []models.ConversationEntry, error) {
	working := append(append([]models.ConversationEntry{}, repairHistory(history)...),
		models.ConversationEntry{Role: models.RoleUser, Content: userMessage})

	rt.Bus.Publish(sessionID, bus.Event{Kind: bus.KindStart})

	tools, err := rt.Tools.Tools(ctx)
	if err != nil {
		return "", working, err
	}
	registry := NewToolRegistry()
	for _, tool := range tools {
		registry.Register(tool)
	}
	executor := NewExecutor(registry, DefaultExecutorConfig())

	var fullText strings.Builder

	for step := 1; step <= MaxSteps; step++ {
		system, err := rt.Prompt.SystemPrompt(ctx)
		if err != nil {
			return fullText.String(), working, err
		}

		completionMessages, err := buildCompletionMessages(working)
		if err != nil {
			return fullText.String(), working, err
		}

		req := &CompletionRequest{
			Model:    rt.DefaultModel,
			System:   system,
			Messages: completionMessages,
			Tools:    tools,
		}

		stepText, toolCalls, finishedWithToolCalls, err := rt.runStep(ctx, sessionID, req)
		if err != nil {
			rt.Logger.Error(ctx, "agent loop: stream error", "session_id", sessionID, "step", step, "err", err)
			break
		}
		fullText.WriteString(stepText)

		parts := make([]models.Part, 0, len(toolCalls)+1)
		if stepText != "" {
			parts = append(parts, models.Part{Text: stepText})
		}
		for _, call := range toolCalls {
			callCopy := call
			parts = append(parts, models.Part{ToolCall: &callCopy})
		}
		if len(parts) > 0 {
			working = append(working, models.ConversationEntry{Role: models.RoleAssistant, Parts: parts})
		}

		if len(toolCalls) == 0 {
			break
		}

		toolsCtx, toolsSpan := rt.startSpan(ctx, "tool.execute_all", sessionID)
		results := executor.ExecuteAll(toolsCtx, toolCalls)
		rt.endSpan(toolsSpan, nil)
		for _, result := range results {
			status := "success"
			if result.Error != nil {
				status = "error"
			}
			if rt.Metrics != nil {
				rt.Metrics.RecordToolExecution(result.ToolName, status, result.Duration.Seconds())
			}
		}
		if AnyErrors(results) {
			rt.Logger.Warn(ctx, "agent loop: tool execution reported at least one error", "session_id", sessionID, "step", step)
		}

		messages := ResultsToMessages(results)
		toolInfos := make([]bus.ToolResultInfo, 0, len(messages))
		turnResults := make([]models.ToolTurnResult, 0, len(messages))
		for _, msg := range messages {
			turnResults = append(turnResults, models.ToolTurnResult{
				ToolCallID: msg.ToolCallID,
				Name:       msg.Name,
				Result:     msg.Content,
			})
			toolInfos = append(toolInfos, bus.ToolResultInfo{ID: msg.ToolCallID, Name: msg.Name, Result: msg.Content})
		}
		working = append(working, models.ConversationEntry{Role: models.RoleTool, Results: turnResults})
		rt.Bus.Publish(sessionID, bus.Event{Kind: bus.KindToolResults, Payload: toolInfos})

		if !finishedWithToolCalls {
			break
		}
	}

	rt.Bus.Publish(sessionID, bus.Event{Kind: bus.KindDone, Payload: bus.DonePayload{Content: fullText.String()}})
	return fullText.String(), working, nil
}

// runStep drives one model call to completion, emitting delta and
// tool_calls events as chunks arrive, and reports whether the model ended
// this step wanting to use tools.
func (rt *Runtime) runStep(ctx context.Context, sessionID string, req *CompletionRequest) (text string, calls []models.ToolCall, wantsTools bool, err error) {
	start := time.Now()
	spanCtx, span := rt.startSpan(ctx, "llm.complete", sessionID)
	if rt.Tracer != nil {
		rt.Tracer.SetAttributes(span, "provider", rt.Provider.Name(), "model", req.Model)
	}

	chunks, err := rt.Provider.Complete(spanCtx, req)
	if err != nil {
		rt.endSpan(span, err)
		rt.recordLLM(req.Model, "error", time.Since(start))
		return "", nil, false, err
	}

	var textBuf strings.Builder
	var toolCalls []models.ToolCall

	for chunk := range chunks {
		if chunk.Error != nil {
			rt.endSpan(span, chunk.Error)
			rt.recordLLM(req.Model, "error", time.Since(start))
			return textBuf.String(), toolCalls, wantsTools, chunk.Error
		}
		if chunk.Text != "" {
			textBuf.WriteString(chunk.Text)
			rt.Bus.Publish(sessionID, bus.Event{Kind: bus.KindDelta, Payload: bus.DeltaPayload{Content: chunk.Text}})
		}
		if chunk.ToolCall != nil {
			toolCalls = append(toolCalls, *chunk.ToolCall)
			rt.Bus.Publish(sessionID, bus.Event{Kind: bus.KindToolCalls, Payload: []bus.ToolCallInfo{
				{ID: chunk.ToolCall.ID, Name: chunk.ToolCall.Name, Args: chunk.ToolCall.Input},
			}})
		}
		if chunk.Done {
			wantsTools = chunk.FinishReason == FinishReasonToolCalls || len(toolCalls) > 0
		}
	}

	rt.endSpan(span, nil)
	rt.recordLLM(req.Model, "success", time.Since(start))
	return textBuf.String(), toolCalls, wantsTools, nil
}

// startSpan opens a tracing span for sessionID when rt.Tracer is configured,
// otherwise it is a no-op that returns ctx unchanged.
func (rt *Runtime) startSpan(ctx context.Context, name, sessionID string) (context.Context, trace.Span) {
	if rt.Tracer == nil {
		return ctx, nil
	}
	spanCtx, span := rt.Tracer.Start(ctx, name)
	rt.Tracer.SetAttributes(span, "session_id", sessionID)
	return spanCtx, span
}

func (rt *Runtime) endSpan(span trace.Span, err error) {
	if rt.Tracer == nil || span == nil {
		return
	}
	if err != nil {
		rt.Tracer.RecordError(span, err)
	}
	span.End()
}

func (rt *Runtime) recordLLM(model, status string, d time.Duration) {
	if rt.Metrics == nil {
		return
	}
	rt.Metrics.RecordLLMRequest(rt.Provider.Name(), model, status, d.Seconds(), 0, 0)
}

// buildCompletionMessages translates the authoritative conversation-state
// history into the provider-facing message format.
func buildCompletionMessages(history []models.ConversationEntry) ([]CompletionMessage, error) {
	out := make([]CompletionMessage, 0, len(history))

	for _, entry := range history {
		switch entry.Role {
		case models.RoleUser:
			out = append(out, CompletionMessage{Role: "user", Content: entry.Content})
		case models.RoleSystem:
			continue
		case models.RoleAssistant:
			msg := CompletionMessage{Role: "assistant"}
			var text strings.Builder
			for _, part := range entry.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
				if part.ToolCall != nil {
					msg.ToolCalls = append(msg.ToolCalls, *part.ToolCall)
				}
			}
			msg.Content = text.String()
			out = append(out, msg)
		case models.RoleTool:
			msg := CompletionMessage{Role: "tool"}
			for _, result := range entry.Results {
				msg.ToolResults = append(msg.ToolResults, models.ToolResult{
					ToolCallID: result.ToolCallID,
					Name:       result.Name,
					Content:    result.Result,
				})
			}
			out = append(out, msg)
		}
	}

	return out, nil
}
