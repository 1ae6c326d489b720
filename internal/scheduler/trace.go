package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// extractTrace turns the history ProcessTurn handed back into a TaskRun's
// structured trace. history's first entry is always the synthetic user
// message that kicked the task off; it carries no useful information for a
// trace and is skipped. Everything after it is either an assistant turn
// (text and/or tool-call parts) or a tool turn (results); either is skipped
// entirely if it has nothing worth recording, never raised as an error.
func extractTrace(history []models.ConversationEntry) []models.TraceEntry {
	if len(history) <= 1 {
		return nil
	}

	trace := make([]models.TraceEntry, 0, len(history)-1)

	for _, entry := range history[1:] {
		switch entry.Role {
		case models.RoleAssistant:
			var content string
			var calls []models.TraceToolCall
			for _, part := range entry.Parts {
				if part.Text != "" {
					content += part.Text
				}
				if part.ToolCall != nil {
					calls = append(calls, models.TraceToolCall{
						ToolName: part.ToolCall.Name,
						Args:     string(part.ToolCall.Input),
					})
				}
			}
			if content == "" && len(calls) == 0 {
				continue
			}
			trace = append(trace, models.TraceEntry{Role: models.RoleAssistant, Content: content, ToolCalls: calls})
		case models.RoleTool:
			var results []models.TraceResult
			for _, result := range entry.Results {
				results = append(results, models.TraceResult{ToolName: result.Name, Result: result.Result})
			}
			if len(results) == 0 {
				continue
			}
			trace = append(trace, models.TraceEntry{Role: models.RoleTool, Results: results})
		default:
			continue
		}
	}

	return trace
}

// encodeTrace serializes trace for storage in TaskRun.Output.
func encodeTrace(trace []models.TraceEntry) (string, error) {
	if len(trace) == 0 {
		return "[]", nil
	}
	payload, err := json.Marshal(trace)
	if err != nil {
		return "", fmt.Errorf("encode trace: %w", err)
	}
	return string(payload), nil
}
