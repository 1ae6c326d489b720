package metatools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/internal/scheduler"
	"github.com/4ug-aug/envoy-v2/internal/store"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// ScheduleTaskTool implements schedule_task(name, description, cron).
type ScheduleTaskTool struct {
	store     store.Store
	scheduler *scheduler.Scheduler
}

// NewScheduleTaskTool creates a schedule_task meta-tool backed by s and sched.
func NewScheduleTaskTool(s store.Store, sched *scheduler.Scheduler) *ScheduleTaskTool {
	return &ScheduleTaskTool{store: s, scheduler: sched}
}

func (t *ScheduleTaskTool) Name() string { return "schedule_task" }
func (t *ScheduleTaskTool) Description() string {
	return "Create a new cron-scheduled task that fires a fresh agent turn."
}

func (t *ScheduleTaskTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{
		"name":        map[string]interface{}{"type": "string", "description": "Task identifier, matching ^[a-z][a-z0-9_]*$."},
		"description": map[string]interface{}{"type": "string", "description": "Instructions the scheduled turn runs with."},
		"cron":        map[string]interface{}{"type": "string", "description": "Standard five-field cron expression."},
	}, "name", "cron")
}

func (t *ScheduleTaskTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Cron        string `json:"cron"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if err := scheduler.ValidateCron(input.Cron); err != nil {
		return toolError(fmt.Sprintf("Invalid cron expression %q: %v", input.Cron, err)), nil
	}

	task := &models.ScheduledTask{
		Name:        input.Name,
		Description: input.Description,
		Cron:        input.Cron,
		Enabled:     true,
	}
	if err := t.store.CreateTask(ctx, task); err != nil {
		return toolError(err.Error()), nil
	}
	if err := t.scheduler.ScheduleTask(task); err != nil {
		return toolError(err.Error()), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf("Scheduled task %q (%s).", input.Name, input.Cron)}, nil
}

// UpdateScheduledTaskTool implements update_scheduled_task(name, {description?, cron?, enabled?}).
type UpdateScheduledTaskTool struct {
	store     store.Store
	scheduler *scheduler.Scheduler
}

// NewUpdateScheduledTaskTool creates an update_scheduled_task meta-tool backed by s and sched.
func NewUpdateScheduledTaskTool(s store.Store, sched *scheduler.Scheduler) *UpdateScheduledTaskTool {
	return &UpdateScheduledTaskTool{store: s, scheduler: sched}
}

func (t *UpdateScheduledTaskTool) Name() string { return "update_scheduled_task" }
func (t *UpdateScheduledTaskTool) Description() string {
	return "Update a scheduled task's description, cron expression, or enabled state."
}

func (t *UpdateScheduledTaskTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{
		"name":        map[string]interface{}{"type": "string"},
		"description": map[string]interface{}{"type": "string"},
		"cron":        map[string]interface{}{"type": "string"},
		"enabled":     map[string]interface{}{"type": "boolean"},
	}, "name")
}

func (t *UpdateScheduledTaskTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
		Cron        *string `json:"cron"`
		Enabled     *bool   `json:"enabled"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}

	task, err := t.store.GetTask(ctx, input.Name)
	if err != nil {
		return toolError(fmt.Sprintf("Task %q not found: %v", input.Name, err)), nil
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Cron != nil {
		if err := scheduler.ValidateCron(*input.Cron); err != nil {
			return toolError(fmt.Sprintf("Invalid cron expression %q: %v", *input.Cron, err)), nil
		}
		task.Cron = *input.Cron
	}
	if input.Enabled != nil {
		task.Enabled = *input.Enabled
	}

	if err := t.store.UpdateTask(ctx, task); err != nil {
		return toolError(err.Error()), nil
	}
	if err := t.scheduler.ScheduleTask(task); err != nil {
		return toolError(err.Error()), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf("Updated scheduled task %q.", input.Name)}, nil
}

// DeleteScheduledTaskTool implements delete_scheduled_task(name).
type DeleteScheduledTaskTool struct {
	store     store.Store
	scheduler *scheduler.Scheduler
}

// NewDeleteScheduledTaskTool creates a delete_scheduled_task meta-tool backed by s and sched.
func NewDeleteScheduledTaskTool(s store.Store, sched *scheduler.Scheduler) *DeleteScheduledTaskTool {
	return &DeleteScheduledTaskTool{store: s, scheduler: sched}
}

func (t *DeleteScheduledTaskTool) Name() string        { return "delete_scheduled_task" }
func (t *DeleteScheduledTaskTool) Description() string { return "Delete a scheduled task and stop its live cron job." }

func (t *DeleteScheduledTaskTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{
		"name": map[string]interface{}{"type": "string"},
	}, "name")
}

func (t *DeleteScheduledTaskTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if err := t.store.DeleteTask(ctx, input.Name); err != nil {
		return toolError(err.Error()), nil
	}
	t.scheduler.UnscheduleTask(input.Name)
	return &agent.ToolResult{Content: fmt.Sprintf("Deleted scheduled task %q.", input.Name)}, nil
}

// ListScheduledTasksTool implements list_scheduled_tasks().
type ListScheduledTasksTool struct {
	store     store.Store
	scheduler *scheduler.Scheduler
}

// NewListScheduledTasksTool creates a list_scheduled_tasks meta-tool backed by s and sched.
func NewListScheduledTasksTool(s store.Store, sched *scheduler.Scheduler) *ListScheduledTasksTool {
	return &ListScheduledTasksTool{store: s, scheduler: sched}
}

func (t *ListScheduledTasksTool) Name() string        { return "list_scheduled_tasks" }
func (t *ListScheduledTasksTool) Description() string { return "List every scheduled task and its next run time." }

func (t *ListScheduledTasksTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{})
}

type scheduledTaskView struct {
	*models.ScheduledTask
	Next *string `json:"next_run,omitempty"`
}

func (t *ListScheduledTasksTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	tasks, err := t.store.ListTasks(ctx)
	if err != nil {
		return toolError(err.Error()), nil
	}

	next := make(map[string]string, len(tasks))
	for _, job := range t.scheduler.Jobs() {
		when := job.Next.Format("2006-01-02T15:04:05Z07:00")
		next[job.Name] = when
	}

	views := make([]scheduledTaskView, 0, len(tasks))
	for _, task := range tasks {
		view := scheduledTaskView{ScheduledTask: task}
		if when, ok := next[task.Name]; ok {
			view.Next = &when
		}
		views = append(views, view)
	}

	payload, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}
