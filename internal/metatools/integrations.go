package metatools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/internal/integrations"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// CreateIntegrationTool implements create_integration(name, description, config_schema).
type CreateIntegrationTool struct {
	manager *integrations.Manager
}

// NewCreateIntegrationTool creates a create_integration meta-tool backed by mgr.
func NewCreateIntegrationTool(mgr *integrations.Manager) *CreateIntegrationTool {
	return &CreateIntegrationTool{manager: mgr}
}

func (t *CreateIntegrationTool) Name() string { return "create_integration" }
func (t *CreateIntegrationTool) Description() string {
	return "Create a new integration: a named tool group behind a declared credential schema."
}

func (t *CreateIntegrationTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{
		"name":        map[string]interface{}{"type": "string", "description": "Integration identifier, matching ^[a-z][a-z0-9_]*$."},
		"description": map[string]interface{}{"type": "string"},
		"config_schema": map[string]interface{}{
			"type":        "array",
			"description": "Declared credential keys, each {key, label, required}.",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key":      map[string]interface{}{"type": "string"},
					"label":    map[string]interface{}{"type": "string"},
					"required": map[string]interface{}{"type": "boolean"},
				},
			},
		},
	}, "name")
}

func (t *CreateIntegrationTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Name         string               `json:"name"`
		Description  string               `json:"description"`
		ConfigSchema []models.ConfigField `json:"config_schema"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}

	in := &models.Integration{
		Name:         input.Name,
		Description:  input.Description,
		ConfigSchema: input.ConfigSchema,
		Enabled:      true,
	}
	if err := t.manager.CreateIntegration(ctx, in); err != nil {
		return toolError(err.Error()), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf("Created integration %q.", input.Name)}, nil
}

// AddIntegrationToolTool implements add_integration_tool(integration_name, name, description, input_schema, code).
type AddIntegrationToolTool struct {
	manager *integrations.Manager
}

// NewAddIntegrationToolTool creates an add_integration_tool meta-tool backed by mgr.
func NewAddIntegrationToolTool(mgr *integrations.Manager) *AddIntegrationToolTool {
	return &AddIntegrationToolTool{manager: mgr}
}

func (t *AddIntegrationToolTool) Name() string { return "add_integration_tool" }
func (t *AddIntegrationToolTool) Description() string {
	return "Add a new tool grouped under an existing integration."
}

func (t *AddIntegrationToolTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{
		"integration_name": map[string]interface{}{"type": "string"},
		"name":              map[string]interface{}{"type": "string"},
		"description":       map[string]interface{}{"type": "string"},
		"input_schema":      map[string]interface{}{"type": "string"},
		"code":              map[string]interface{}{"type": "string"},
	}, "integration_name", "name", "code")
}

func (t *AddIntegrationToolTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		IntegrationName string `json:"integration_name"`
		Name            string `json:"name"`
		Description     string `json:"description"`
		InputSchema     string `json:"input_schema"`
		Code            string `json:"code"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}

	tool := &models.CustomTool{
		Name:        input.Name,
		Description: input.Description,
		InputSchema: input.InputSchema,
		Code:        input.Code,
		Enabled:     true,
	}
	if err := t.manager.AddTool(ctx, input.IntegrationName, tool); err != nil {
		return toolError(err.Error()), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf("Added tool %q to integration %q.", input.Name, input.IntegrationName)}, nil
}

// RemoveIntegrationToolTool implements remove_integration_tool(integration_name, name).
type RemoveIntegrationToolTool struct {
	manager *integrations.Manager
}

// NewRemoveIntegrationToolTool creates a remove_integration_tool meta-tool backed by mgr.
func NewRemoveIntegrationToolTool(mgr *integrations.Manager) *RemoveIntegrationToolTool {
	return &RemoveIntegrationToolTool{manager: mgr}
}

func (t *RemoveIntegrationToolTool) Name() string { return "remove_integration_tool" }
func (t *RemoveIntegrationToolTool) Description() string {
	return "Remove a tool from an integration it belongs to."
}

func (t *RemoveIntegrationToolTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{
		"integration_name": map[string]interface{}{"type": "string"},
		"name":              map[string]interface{}{"type": "string"},
	}, "integration_name", "name")
}

func (t *RemoveIntegrationToolTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		IntegrationName string `json:"integration_name"`
		Name            string `json:"name"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if err := t.manager.RemoveTool(ctx, input.IntegrationName, input.Name); err != nil {
		return toolError(err.Error()), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf("Removed tool %q from integration %q.", input.Name, input.IntegrationName)}, nil
}

// DeleteIntegrationTool implements delete_integration(name).
type DeleteIntegrationTool struct {
	manager *integrations.Manager
}

// NewDeleteIntegrationTool creates a delete_integration meta-tool backed by mgr.
func NewDeleteIntegrationTool(mgr *integrations.Manager) *DeleteIntegrationTool {
	return &DeleteIntegrationTool{manager: mgr}
}

func (t *DeleteIntegrationTool) Name() string { return "delete_integration" }
func (t *DeleteIntegrationTool) Description() string {
	return "Delete an integration and every tool grouped under it."
}

func (t *DeleteIntegrationTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{
		"name": map[string]interface{}{"type": "string"},
	}, "name")
}

func (t *DeleteIntegrationTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if err := t.manager.DeleteIntegration(ctx, input.Name); err != nil {
		return toolError(err.Error()), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf("Deleted integration %q.", input.Name)}, nil
}

// ListIntegrationsTool implements list_integrations().
type ListIntegrationsTool struct {
	manager *integrations.Manager
}

// NewListIntegrationsTool creates a list_integrations meta-tool backed by mgr.
func NewListIntegrationsTool(mgr *integrations.Manager) *ListIntegrationsTool {
	return &ListIntegrationsTool{manager: mgr}
}

func (t *ListIntegrationsTool) Name() string { return "list_integrations" }
func (t *ListIntegrationsTool) Description() string {
	return "List every integration with its configured status and masked credential values."
}

func (t *ListIntegrationsTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{})
}

func (t *ListIntegrationsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	list, err := t.manager.ListIntegrations(ctx)
	if err != nil {
		return toolError(err.Error()), nil
	}

	statuses := make([]*integrations.Status, 0, len(list))
	for _, in := range list {
		status, err := t.manager.GetStatus(ctx, in.Name)
		if err != nil {
			return toolError(err.Error()), nil
		}
		statuses = append(statuses, status)
	}

	payload, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}
