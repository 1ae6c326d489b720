package models

import "time"

// RunStatus is the lifecycle state of a TaskRun.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// ScheduledTask is a cron-bound directive that re-enters the agent loop
// under a synthetic session on fire (spec §3, §4.H).
type ScheduledTask struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Cron        string    `json:"cron"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TraceEntry is one entry of a TaskRun's structured output trace, per
// §4.H's trace-extraction algorithm. Exactly one of ToolCalls/Results is
// populated, selected by Role.
type TraceEntry struct {
	Role      Role            `json:"role"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []TraceToolCall `json:"tool_calls,omitempty"`
	Results   []TraceResult   `json:"results,omitempty"`
}

// TraceToolCall is the {toolName, args} pair extracted from an assistant
// turn's tool-call part.
type TraceToolCall struct {
	ToolName string `json:"tool_name"`
	Args     string `json:"args"`
}

// TraceResult is the {toolName, result} pair extracted from a tool turn.
type TraceResult struct {
	ToolName string `json:"tool_name"`
	Result   string `json:"result"`
}

// TaskRun is one execution record of a ScheduledTask (spec §3, §4.H).
type TaskRun struct {
	ID         string     `json:"id"`
	TaskID     string     `json:"task_id"`
	Status     RunStatus  `json:"status"`
	Result     string     `json:"result"`
	Output     string     `json:"output"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
