package integrations

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/4ug-aug/envoy-v2/internal/sandbox"
	"github.com/4ug-aug/envoy-v2/internal/store"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// requireNode skips a test if node isn't on PATH, matching the gate
// internal/sandbox's own tests use to exercise real tool code.
func requireNode(t *testing.T) *sandbox.Executor {
	t.Helper()
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node not available on PATH")
	}
	return sandbox.NewExecutor()
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	envPath := filepath.Join(t.TempDir(), "integrations.env")
	return New(store.NewMemoryStore(), requireNode(t), envPath)
}

func TestCreateIntegrationRejectsBadName(t *testing.T) {
	m := newTestManager(t)
	err := m.CreateIntegration(context.Background(), &models.Integration{Name: "GitHub"})
	if err == nil {
		t.Fatal("expected an error for a capitalized integration name")
	}
}

func TestCreateAndGetIntegration(t *testing.T) {
	m := newTestManager(t)
	in := &models.Integration{
		Name:        "github",
		Description: "GitHub API access",
		ConfigSchema: []models.ConfigField{
			{Key: "GITHUB_TOKEN", Label: "Personal access token", Required: true},
		},
		Enabled: true,
	}
	if err := m.CreateIntegration(context.Background(), in); err != nil {
		t.Fatalf("CreateIntegration() error = %v", err)
	}

	got, err := m.GetIntegration(context.Background(), "github")
	if err != nil {
		t.Fatalf("GetIntegration() error = %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected an auto-assigned id")
	}
}

func TestAddToolGroupsUnderIntegration(t *testing.T) {
	m := newTestManager(t)
	in := &models.Integration{Name: "github", Enabled: true}
	if err := m.CreateIntegration(context.Background(), in); err != nil {
		t.Fatalf("CreateIntegration() error = %v", err)
	}

	err := m.AddTool(context.Background(), "github", &models.CustomTool{
		Name: "open_issue", Code: `return 1;`, Enabled: true,
	})
	if err != nil {
		t.Fatalf("AddTool() error = %v", err)
	}

	status, err := m.GetStatus(context.Background(), "github")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if len(status.Tools) != 1 || status.Tools[0].Name != "open_issue" {
		t.Fatalf("expected the tool to be grouped under github, got %+v", status.Tools)
	}
	if status.Tools[0].IntegrationID == nil {
		t.Fatal("expected the tool's IntegrationID to be set")
	}
}

func TestAddToolRejectsUnknownIntegration(t *testing.T) {
	m := newTestManager(t)
	err := m.AddTool(context.Background(), "missing", &models.CustomTool{Name: "x", Code: `return 1;`})
	if err == nil {
		t.Fatal("expected an error for an unknown integration")
	}
}

func TestRemoveToolRejectsCrossIntegrationTool(t *testing.T) {
	m := newTestManager(t)
	for _, name := range []string{"github", "slack"} {
		if err := m.CreateIntegration(context.Background(), &models.Integration{Name: name, Enabled: true}); err != nil {
			t.Fatalf("CreateIntegration(%s) error = %v", name, err)
		}
	}
	if err := m.AddTool(context.Background(), "github", &models.CustomTool{
		Name: "open_issue", Code: `return 1;`, Enabled: true,
	}); err != nil {
		t.Fatalf("AddTool() error = %v", err)
	}

	if err := m.RemoveTool(context.Background(), "slack", "open_issue"); err == nil {
		t.Fatal("expected an error removing a tool from the wrong integration")
	}
	if err := m.RemoveTool(context.Background(), "github", "open_issue"); err != nil {
		t.Fatalf("RemoveTool() error = %v", err)
	}
}

func TestDeleteIntegrationCascadesToTools(t *testing.T) {
	m := newTestManager(t)
	if err := m.CreateIntegration(context.Background(), &models.Integration{Name: "github", Enabled: true}); err != nil {
		t.Fatalf("CreateIntegration() error = %v", err)
	}
	if err := m.AddTool(context.Background(), "github", &models.CustomTool{
		Name: "open_issue", Code: `return 1;`, Enabled: true,
	}); err != nil {
		t.Fatalf("AddTool() error = %v", err)
	}

	if err := m.DeleteIntegration(context.Background(), "github"); err != nil {
		t.Fatalf("DeleteIntegration() error = %v", err)
	}

	status, err := m.GetStatus(context.Background(), "github")
	if err == nil || status != nil {
		t.Fatal("expected the integration to be gone")
	}
}

func TestSetConfigFiltersToDeclaredKeysAndDropsEmpty(t *testing.T) {
	m := newTestManager(t)
	in := &models.Integration{
		Name: "github",
		ConfigSchema: []models.ConfigField{
			{Key: "GITHUB_TOKEN", Required: true},
		},
		Enabled: true,
	}
	if err := m.CreateIntegration(context.Background(), in); err != nil {
		t.Fatalf("CreateIntegration() error = %v", err)
	}
	defer os.Unsetenv("GITHUB_TOKEN")
	defer os.Unsetenv("UNDECLARED_KEY")

	if err := m.SetConfig(context.Background(), "github", map[string]string{
		"GITHUB_TOKEN":   "ghp_1234567890abcdef",
		"UNDECLARED_KEY": "should-be-dropped",
		"":                "",
	}); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	if os.Getenv("GITHUB_TOKEN") != "ghp_1234567890abcdef" {
		t.Fatalf("expected GITHUB_TOKEN to be set in the live environment, got %q", os.Getenv("GITHUB_TOKEN"))
	}
	if os.Getenv("UNDECLARED_KEY") != "" {
		t.Fatal("expected an undeclared key to be dropped")
	}
}

func TestConfiguredTrueOnlyWhenRequiredKeysAreSet(t *testing.T) {
	m := newTestManager(t)
	in := &models.Integration{
		Name: "github",
		ConfigSchema: []models.ConfigField{
			{Key: "GH_REQUIRED_KEY", Required: true},
			{Key: "GH_OPTIONAL_KEY", Required: false},
		},
		Enabled: true,
	}
	if err := m.CreateIntegration(context.Background(), in); err != nil {
		t.Fatalf("CreateIntegration() error = %v", err)
	}
	defer os.Unsetenv("GH_REQUIRED_KEY")

	status, err := m.GetStatus(context.Background(), "github")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.Configured {
		t.Fatal("expected not configured before the required key is set")
	}

	if err := m.SetConfig(context.Background(), "github", map[string]string{"GH_REQUIRED_KEY": "secretvalue"}); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	status, err = m.GetStatus(context.Background(), "github")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if !status.Configured {
		t.Fatal("expected configured once the required key is set")
	}
}

func TestMaskedValuesAppliesMaskingRule(t *testing.T) {
	m := newTestManager(t)
	in := &models.Integration{
		Name: "github",
		ConfigSchema: []models.ConfigField{
			{Key: "GH_SHORT_KEY"},
			{Key: "GH_LONG_KEY"},
			{Key: "GH_UNSET_KEY"},
		},
		Enabled: true,
	}
	if err := m.CreateIntegration(context.Background(), in); err != nil {
		t.Fatalf("CreateIntegration() error = %v", err)
	}
	defer os.Unsetenv("GH_SHORT_KEY")
	defer os.Unsetenv("GH_LONG_KEY")

	if err := m.SetConfig(context.Background(), "github", map[string]string{
		"GH_SHORT_KEY": "1234",
		"GH_LONG_KEY":  "abcdefghijklmnop",
	}); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	status, err := m.GetStatus(context.Background(), "github")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}

	byKey := make(map[string]*string, len(status.MaskedValues))
	for _, mv := range status.MaskedValues {
		byKey[mv.Key] = mv.Value
	}
	if byKey["GH_UNSET_KEY"] != nil {
		t.Fatalf("expected nil for an unset key, got %v", byKey["GH_UNSET_KEY"])
	}
	if byKey["GH_SHORT_KEY"] == nil || *byKey["GH_SHORT_KEY"] != "***" {
		t.Fatalf("expected *** for a short value, got %v", byKey["GH_SHORT_KEY"])
	}
	if byKey["GH_LONG_KEY"] == nil || *byKey["GH_LONG_KEY"] != "abc***nop" {
		t.Fatalf("expected first3***last3 for a long value, got %v", byKey["GH_LONG_KEY"])
	}
}
