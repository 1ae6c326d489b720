// Package tasks exposes the live scheduler as a meta-tool, so a model can
// inspect and trigger scheduled tasks from inside a turn the same way it
// would any other tool.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/internal/scheduler"
)

// Tool exposes scheduler actions: list/status the live job set, or run one
// immediately.
type Tool struct {
	scheduler *scheduler.Scheduler
}

// NewTool creates a scheduler-inspection tool.
func NewTool(sched *scheduler.Scheduler) *Tool {
	return &Tool{scheduler: sched}
}

func (t *Tool) Name() string { return "scheduled_tasks" }

func (t *Tool) Description() string {
	return "Inspect or immediately run a scheduled task (list/status/run)."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"description": "Action: list, status, run.",
			},
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Task name, required for the run action.",
			},
		},
		"required": []string{"action"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.scheduler == nil {
		return toolError("scheduler unavailable"), nil
	}
	var input struct {
		Action string `json:"action"`
		Name   string `json:"name"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	action := strings.ToLower(strings.TrimSpace(input.Action))
	if action == "" {
		return toolError("action is required"), nil
	}

	switch action {
	case "list", "status":
		return jsonResult(map[string]interface{}{
			"jobs": t.scheduler.Jobs(),
		}), nil
	case "run":
		name := strings.TrimSpace(input.Name)
		if name == "" {
			return toolError("name is required"), nil
		}
		if err := t.scheduler.RunJob(ctx, name); err != nil {
			return toolError(fmt.Sprintf("run task: %v", err)), nil
		}
		return jsonResult(map[string]interface{}{
			"status": "ran",
			"name":   name,
		}), nil
	default:
		return toolError("unsupported action"), nil
	}
}

func toolError(message string) *agent.ToolResult {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &agent.ToolResult{Content: message, IsError: true}
	}
	return &agent.ToolResult{Content: string(payload), IsError: true}
}

func jsonResult(payload any) *agent.ToolResult {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err))
	}
	return &agent.ToolResult{Content: string(encoded)}
}
