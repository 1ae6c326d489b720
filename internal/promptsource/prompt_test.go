package promptsource

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/4ug-aug/envoy-v2/internal/catalog"
	"github.com/4ug-aug/envoy-v2/internal/integrations"
	"github.com/4ug-aug/envoy-v2/internal/sandbox"
	"github.com/4ug-aug/envoy-v2/internal/scheduler"
	"github.com/4ug-aug/envoy-v2/internal/store"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

func requireNode(t *testing.T) *sandbox.Executor {
	t.Helper()
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node not available on PATH")
	}
	return sandbox.NewExecutor()
}

type fakeRuntime struct{}

func (f *fakeRuntime) ProcessTurn(ctx context.Context, sessionID, userMessage string, history []models.ConversationEntry) (string, []models.ConversationEntry, error) {
	return "done", history, nil
}

func TestSystemPromptIncludesPreambleWhenNothingIsConfigured(t *testing.T) {
	s := store.NewMemoryStore()
	cat := catalog.New(s, requireNode(t), nil, nil)
	mgr := integrations.New(s, requireNode(t), filepath.Join(t.TempDir(), "envoy.env"))
	sched := scheduler.New(s, &fakeRuntime{}, nil)

	src := New("You are Envoy.", cat, mgr, s, sched)
	prompt, err := src.SystemPrompt(context.Background())
	if err != nil {
		t.Fatalf("SystemPrompt() error = %v", err)
	}
	if !strings.Contains(prompt, "You are Envoy.") {
		t.Fatalf("expected the preamble to appear in the prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "No custom tools exist yet") {
		t.Fatalf("expected an empty-catalog note, got %q", prompt)
	}
	if !strings.Contains(prompt, "No integrations exist yet") {
		t.Fatalf("expected an empty-integrations note, got %q", prompt)
	}
	if !strings.Contains(prompt, "No scheduled tasks exist yet") {
		t.Fatalf("expected an empty-tasks note, got %q", prompt)
	}
}

func TestSystemPromptEnumeratesToolsIntegrationsAndTasks(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	cat := catalog.New(s, requireNode(t), nil, nil)
	mgr := integrations.New(s, requireNode(t), filepath.Join(t.TempDir(), "envoy.env"))
	sched := scheduler.New(s, &fakeRuntime{}, nil)

	if err := cat.CreateTool(ctx, &models.CustomTool{Name: "greet", Description: "says hi", Code: "return 1;", Enabled: true}); err != nil {
		t.Fatalf("CreateTool() error = %v", err)
	}
	if err := mgr.CreateIntegration(ctx, &models.Integration{Name: "github", Description: "GitHub issues"}); err != nil {
		t.Fatalf("CreateIntegration() error = %v", err)
	}
	task := &models.ScheduledTask{Name: "nightly", Description: "nightly sweep", Cron: "0 0 * * *", Enabled: true}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if err := sched.ScheduleTask(task); err != nil {
		t.Fatalf("ScheduleTask() error = %v", err)
	}

	src := New("You are Envoy.", cat, mgr, s, sched)
	prompt, err := src.SystemPrompt(ctx)
	if err != nil {
		t.Fatalf("SystemPrompt() error = %v", err)
	}
	if !strings.Contains(prompt, "custom_greet") && !strings.Contains(prompt, "greet") {
		t.Fatalf("expected the tool to be listed, got %q", prompt)
	}
	if !strings.Contains(prompt, "github") || !strings.Contains(prompt, "needs setup") {
		t.Fatalf("expected the integration to be listed as needing setup, got %q", prompt)
	}
	if !strings.Contains(prompt, "nightly") || !strings.Contains(prompt, "next:") {
		t.Fatalf("expected the scheduled task to be listed with its next run, got %q", prompt)
	}
}
