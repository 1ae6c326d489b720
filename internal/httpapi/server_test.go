package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/internal/bus"
	"github.com/4ug-aug/envoy-v2/internal/catalog"
	"github.com/4ug-aug/envoy-v2/internal/integrations"
	"github.com/4ug-aug/envoy-v2/internal/observability"
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

type scriptedProvider struct {
	steps [][]*agent.CompletionChunk
	calls int
}

func (p *scriptedProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	idx := p.calls
	p.calls++
	ch := make(chan *agent.CompletionChunk, len(p.steps[idx]))
	for _, chunk := range p.steps[idx] {
		ch <- chunk
	}
	close(ch)
	return ch, nil
}

func (p *scriptedProvider) Name() string          { return "scripted" }
func (p *scriptedProvider) Models() []agent.Model { return nil }
func (p *scriptedProvider) SupportsTools() bool   { return true }

type staticToolSource struct{ tools []agent.Tool }

func (s staticToolSource) Tools(ctx context.Context) ([]agent.Tool, error) { return s.tools, nil }

type staticPromptSource struct{ prompt string }

func (s staticPromptSource) SystemPrompt(ctx context.Context) (string, error) { return s.prompt, nil }

type fakeSchedulerRuntime struct{}

func (f *fakeSchedulerRuntime) ProcessTurn(ctx context.Context, sessionID, userMessage string, history []models.ConversationEntry) (string, []models.ConversationEntry, error) {
	return "done", history, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := store.NewMemoryStore()
	bs := bus.New()

	provider := &scriptedProvider{steps: [][]*agent.CompletionChunk{
		{{Text: "hello there"}, {Done: true, FinishReason: agent.FinishReasonStop}},
	}}
	rt := agent.NewRuntime(provider, bs, staticToolSource{}, staticPromptSource{prompt: "you are envoy"}, "test-model", observability.MustNewLogger(observability.LogConfig{}))

	cat := catalog.New(s, requireNode(t), nil, nil)
	mgr := integrations.New(s, requireNode(t), filepath.Join(t.TempDir(), "envoy.env"))
	sched := scheduler.New(s, &fakeSchedulerRuntime{}, nil)

	return NewServer(Config{
		Store: s, Bus: bs, Runtime: rt, Catalog: cat, Integrations: mgr, Scheduler: sched,
	})
}

func TestHandleChatCreatesSessionAndReturnsReply(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(chatRequest{Message: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleChat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Message != "hello there" {
		t.Fatalf("expected the provider's reply, got %q", resp.Message)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a generated session id")
	}
}

func TestHandleChatTitlesSessionFromFirstMessage(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(chatRequest{Message: "what's the weather like in copenhagen today"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleChat(rec, req)

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	sess, err := srv.store.GetSession(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	want := titleFromMessage("what's the weather like in copenhagen today")
	if sess.Title != want {
		t.Fatalf("expected title %q, got %q", want, sess.Title)
	}
	if sess.Title == defaultSessionTitle {
		t.Fatal("expected the placeholder title to be replaced")
	}
}

func TestHandleChatRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(chatRequest{Message: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleChat(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleToolsListsBuiltinsAndCustom(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.catalog.CreateTool(context.Background(), &models.CustomTool{Name: "greet", Code: "return 1;", Enabled: true}); err != nil {
		t.Fatalf("CreateTool() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
	rec := httptest.NewRecorder()
	srv.handleTools(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp toolsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(resp.Custom) != 1 || resp.Custom[0].Name != "greet" {
		t.Fatalf("expected one custom tool named greet, got %+v", resp.Custom)
	}
}

func TestHandleToolByNameRejectsDeletingBuiltin(t *testing.T) {
	s := store.NewMemoryStore()
	srv := NewServer(Config{
		Store:   s,
		Catalog: catalog.New(s, requireNode(t), nil, nil),
	})
	srv.builtinNames["read"] = struct{}{}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tools/read", nil)
	rec := httptest.NewRecorder()
	srv.handleToolByName(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a built-in tool, got %d", rec.Code)
	}
}

func TestHandleIntegrationsReturnsConfiguredStatus(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.integrations.CreateIntegration(context.Background(), &models.Integration{
		Name: "github", ConfigSchema: []models.ConfigField{{Key: "GITHUB_TOKEN", Required: true}},
	}); err != nil {
		t.Fatalf("CreateIntegration() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/integrations", nil)
	rec := httptest.NewRecorder()
	srv.handleIntegrations(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var statuses []integrations.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &statuses); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Configured {
		t.Fatalf("expected one unconfigured integration, got %+v", statuses)
	}
}

func TestHandleIntegrationConfigPersistsAndReportsConfigured(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.integrations.CreateIntegration(context.Background(), &models.Integration{
		Name: "github", ConfigSchema: []models.ConfigField{{Key: "GITHUB_TOKEN", Required: true}},
	}); err != nil {
		t.Fatalf("CreateIntegration() error = %v", err)
	}

	body, _ := json.Marshal(map[string]string{"GITHUB_TOKEN": "abc123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/integrations/github/config", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleIntegrationByName(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var status integrations.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if !status.Configured {
		t.Fatal("expected configured=true after setting the required key")
	}
}

func TestHandleTasksListsWithLastRun(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	task := &models.ScheduledTask{Name: "nightly", Cron: "0 0 * * *", Enabled: true}
	if err := srv.store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if err := srv.store.CreateTaskRun(ctx, &models.TaskRun{TaskID: task.ID, Status: models.RunStatusSuccess, Output: `{"ok":true}`}); err != nil {
		t.Fatalf("CreateTaskRun() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	rec := httptest.NewRecorder()
	srv.handleTasks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var views []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 task, got %d", len(views))
	}
	lastRun, ok := views[0]["lastRun"].(map[string]any)
	if !ok || lastRun["ok"] != true {
		t.Fatalf("expected lastRun to be the parsed output JSON, got %v", views[0]["lastRun"])
	}
}
