package metatools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/4ug-aug/envoy-v2/internal/integrations"
	"github.com/4ug-aug/envoy-v2/internal/store"
)

func newTestManager(t *testing.T) *integrations.Manager {
	t.Helper()
	envPath := filepath.Join(t.TempDir(), "envoy.env")
	return integrations.New(store.NewMemoryStore(), requireNode(t), envPath)
}

func TestCreateIntegrationToolPersists(t *testing.T) {
	mgr := newTestManager(t)
	tool := NewCreateIntegrationTool(mgr)

	params, _ := json.Marshal(map[string]any{
		"name": "github", "description": "GitHub issues",
		"config_schema": []map[string]any{{"key": "GITHUB_TOKEN", "label": "Token", "required": true}},
	})
	result, err := tool.Execute(context.Background(), params)
	if err != nil || result.IsError {
		t.Fatalf("Execute() = %+v, err = %v", result, err)
	}

	if _, err := mgr.GetIntegration(context.Background(), "github"); err != nil {
		t.Fatalf("expected the integration to be persisted, GetIntegration() error = %v", err)
	}
}

func TestAddIntegrationToolToolGroupsUnderIntegration(t *testing.T) {
	mgr := newTestManager(t)
	create := NewCreateIntegrationTool(mgr)
	createParams, _ := json.Marshal(map[string]any{"name": "github"})
	if _, err := create.Execute(context.Background(), createParams); err != nil {
		t.Fatalf("create Execute() error = %v", err)
	}

	add := NewAddIntegrationToolTool(mgr)
	addParams, _ := json.Marshal(map[string]any{
		"integration_name": "github", "name": "open_issue", "code": "return 1;",
	})
	result, err := add.Execute(context.Background(), addParams)
	if err != nil || result.IsError {
		t.Fatalf("add Execute() = %+v, err = %v", result, err)
	}

	status, err := mgr.GetStatus(context.Background(), "github")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if len(status.Tools) != 1 || status.Tools[0].Name != "open_issue" {
		t.Fatalf("expected one grouped tool named open_issue, got %+v", status.Tools)
	}
}

func TestRemoveIntegrationToolToolRejectsCrossIntegration(t *testing.T) {
	mgr := newTestManager(t)
	create := NewCreateIntegrationTool(mgr)
	for _, name := range []string{"github", "slack"} {
		params, _ := json.Marshal(map[string]any{"name": name})
		if _, err := create.Execute(context.Background(), params); err != nil {
			t.Fatalf("create Execute() error = %v", err)
		}
	}

	add := NewAddIntegrationToolTool(mgr)
	addParams, _ := json.Marshal(map[string]any{
		"integration_name": "github", "name": "open_issue", "code": "return 1;",
	})
	if _, err := add.Execute(context.Background(), addParams); err != nil {
		t.Fatalf("add Execute() error = %v", err)
	}

	remove := NewRemoveIntegrationToolTool(mgr)
	removeParams, _ := json.Marshal(map[string]any{
		"integration_name": "slack", "name": "open_issue",
	})
	result, err := remove.Execute(context.Background(), removeParams)
	if err != nil {
		t.Fatalf("Execute() returned a Go error, expected a string result: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result when removing a tool from the wrong integration")
	}
}

func TestDeleteIntegrationToolCascades(t *testing.T) {
	mgr := newTestManager(t)
	create := NewCreateIntegrationTool(mgr)
	createParams, _ := json.Marshal(map[string]any{"name": "github"})
	if _, err := create.Execute(context.Background(), createParams); err != nil {
		t.Fatalf("create Execute() error = %v", err)
	}

	del := NewDeleteIntegrationTool(mgr)
	delParams, _ := json.Marshal(map[string]any{"name": "github"})
	result, err := del.Execute(context.Background(), delParams)
	if err != nil || result.IsError {
		t.Fatalf("delete Execute() = %+v, err = %v", result, err)
	}

	if _, err := mgr.GetIntegration(context.Background(), "github"); err == nil {
		t.Fatal("expected the integration to be gone after deletion")
	}
}

func TestListIntegrationsToolReturnsStatusPerIntegration(t *testing.T) {
	mgr := newTestManager(t)
	create := NewCreateIntegrationTool(mgr)
	params, _ := json.Marshal(map[string]any{
		"name":          "github",
		"config_schema": []map[string]any{{"key": "GITHUB_TOKEN", "label": "Token", "required": true}},
	})
	if _, err := create.Execute(context.Background(), params); err != nil {
		t.Fatalf("create Execute() error = %v", err)
	}

	list := NewListIntegrationsTool(mgr)
	result, err := list.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil || result.IsError {
		t.Fatalf("list Execute() = %+v, err = %v", result, err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(result.Content), &decoded); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 integration listed, got %d", len(decoded))
	}
	if decoded[0]["configured"] != false {
		t.Fatalf("expected configured=false with no credentials set, got %v", decoded[0]["configured"])
	}
}
