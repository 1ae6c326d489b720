package tasks

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/4ug-aug/envoy-v2/internal/scheduler"
	"github.com/4ug-aug/envoy-v2/internal/store"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

type fakeRuntime struct{}

func (fakeRuntime) ProcessTurn(ctx context.Context, sessionID, userMessage string, history []models.ConversationEntry) (string, []models.ConversationEntry, error) {
	return "ok", []models.ConversationEntry{{Role: models.RoleUser, Content: userMessage}}, nil
}

func newTestTool(t *testing.T) (*Tool, *scheduler.Scheduler) {
	t.Helper()
	s := store.NewMemoryStore()
	sched := scheduler.New(s, fakeRuntime{}, nil)
	task := &models.ScheduledTask{Name: "digest", Description: "send digest", Cron: "0 8 * * *", Enabled: true}
	if err := s.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if err := sched.ScheduleTask(task); err != nil {
		t.Fatalf("ScheduleTask() error = %v", err)
	}
	return NewTool(sched), sched
}

func TestToolListReturnsScheduledJobs(t *testing.T) {
	tool, _ := newTestTool(t)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"action":"list"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", result.Content)
	}
	if !strings.Contains(result.Content, "digest") {
		t.Fatalf("expected the scheduled task name in the result, got %s", result.Content)
	}
}

func TestToolRunRequiresName(t *testing.T) {
	tool, _ := newTestTool(t)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"action":"run"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result when name is missing")
	}
}

func TestToolRunUnknownTask(t *testing.T) {
	tool, _ := newTestTool(t)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"action":"run","name":"nonexistent"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for an unscheduled task")
	}
}

func TestToolRunExistingTask(t *testing.T) {
	tool, _ := newTestTool(t)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"action":"run","name":"digest"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", result.Content)
	}
}

func TestToolRejectsUnsupportedAction(t *testing.T) {
	tool, _ := newTestTool(t)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"action":"delete"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for an unsupported action")
	}
}
