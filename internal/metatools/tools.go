// Package metatools implements Envoy's self-extension surface (spec §4.I):
// built-in tools, exposed to the model like any other, that mutate D's tool
// catalog, E's integrations, and H's scheduled tasks. Every meta-tool
// returns a human-readable string on success and on failure alike — errors
// are surfaced into the model's context as data, never as a thrown error,
// so the model can recover by retrying with corrected arguments.
package metatools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/internal/catalog"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

func toolError(message string) *agent.ToolResult {
	return &agent.ToolResult{Content: message, IsError: true}
}

func jsonSchema(properties map[string]interface{}, required ...string) json.RawMessage {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// CreateToolTool implements create_tool(name, description, input_schema, code).
type CreateToolTool struct {
	catalog *catalog.Catalog
}

// NewCreateToolTool creates a create_tool meta-tool backed by cat.
func NewCreateToolTool(cat *catalog.Catalog) *CreateToolTool {
	return &CreateToolTool{catalog: cat}
}

func (t *CreateToolTool) Name() string { return "create_tool" }

func (t *CreateToolTool) Description() string {
	return "Create a new standalone custom tool, sandbox-executed, available on the next turn."
}

func (t *CreateToolTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{
		"name":         map[string]interface{}{"type": "string", "description": "Tool identifier, matching ^[a-z][a-z0-9_]*$."},
		"description":  map[string]interface{}{"type": "string"},
		"input_schema": map[string]interface{}{"type": "string", "description": "JSON Schema for the tool's input, as a string."},
		"code":         map[string]interface{}{"type": "string", "description": "Body of an async function of (input, fetch, env)."},
	}, "name", "code")
}

func (t *CreateToolTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		InputSchema string `json:"input_schema"`
		Code        string `json:"code"`
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
	if err := t.catalog.CreateTool(ctx, tool); err != nil {
		return toolError(err.Error()), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf("Created tool %q.", input.Name)}, nil
}

// UpdateToolTool implements update_tool(name, {description?, input_schema?, code?, enabled?}).
type UpdateToolTool struct {
	catalog *catalog.Catalog
}

// NewUpdateToolTool creates an update_tool meta-tool backed by cat.
func NewUpdateToolTool(cat *catalog.Catalog) *UpdateToolTool {
	return &UpdateToolTool{catalog: cat}
}

func (t *UpdateToolTool) Name() string { return "update_tool" }

func (t *UpdateToolTool) Description() string {
	return "Update an existing custom tool's description, input schema, code, or enabled state."
}

func (t *UpdateToolTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{
		"name":         map[string]interface{}{"type": "string"},
		"description":  map[string]interface{}{"type": "string"},
		"input_schema": map[string]interface{}{"type": "string"},
		"code":         map[string]interface{}{"type": "string"},
		"enabled":      map[string]interface{}{"type": "boolean"},
	}, "name")
}

func (t *UpdateToolTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
		InputSchema *string `json:"input_schema"`
		Code        *string `json:"code"`
		Enabled     *bool   `json:"enabled"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}

	existing, err := t.catalog.GetTool(ctx, input.Name)
	if err != nil {
		return toolError(fmt.Sprintf("Tool %q not found: %v", input.Name, err)), nil
	}
	if input.Description != nil {
		existing.Description = *input.Description
	}
	if input.InputSchema != nil {
		existing.InputSchema = *input.InputSchema
	}
	if input.Code != nil {
		existing.Code = *input.Code
	}
	if input.Enabled != nil {
		existing.Enabled = *input.Enabled
	}

	if err := t.catalog.UpdateTool(ctx, existing); err != nil {
		return toolError(err.Error()), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf("Updated tool %q.", input.Name)}, nil
}

// DeleteToolTool implements delete_tool(name).
type DeleteToolTool struct {
	catalog *catalog.Catalog
}

// NewDeleteToolTool creates a delete_tool meta-tool backed by cat.
func NewDeleteToolTool(cat *catalog.Catalog) *DeleteToolTool {
	return &DeleteToolTool{catalog: cat}
}

func (t *DeleteToolTool) Name() string        { return "delete_tool" }
func (t *DeleteToolTool) Description() string { return "Delete a standalone custom tool by name." }

func (t *DeleteToolTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{
		"name": map[string]interface{}{"type": "string"},
	}, "name")
}

func (t *DeleteToolTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if err := t.catalog.DeleteTool(ctx, input.Name); err != nil {
		return toolError(err.Error()), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf("Deleted tool %q.", input.Name)}, nil
}

// ListToolsTool implements list_tools().
type ListToolsTool struct {
	catalog *catalog.Catalog
}

// NewListToolsTool creates a list_tools meta-tool backed by cat.
func NewListToolsTool(cat *catalog.Catalog) *ListToolsTool {
	return &ListToolsTool{catalog: cat}
}

func (t *ListToolsTool) Name() string        { return "list_tools" }
func (t *ListToolsTool) Description() string { return "List every custom tool, standalone or integration-grouped." }
func (t *ListToolsTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{})
}

func (t *ListToolsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	tools, err := t.catalog.ListTools(ctx)
	if err != nil {
		return toolError(err.Error()), nil
	}
	payload, err := json.MarshalIndent(tools, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}

// TestToolTool implements test_tool(name, test_input): runs a stored
// tool's body through the sandbox with model-supplied input, without
// going through the model-facing Execute wrapper.
type TestToolTool struct {
	catalog *catalog.Catalog
}

// NewTestToolTool creates a test_tool meta-tool backed by cat.
func NewTestToolTool(cat *catalog.Catalog) *TestToolTool {
	return &TestToolTool{catalog: cat}
}

func (t *TestToolTool) Name() string        { return "test_tool" }
func (t *TestToolTool) Description() string { return "Run a stored tool's body against test input and return its result." }

func (t *TestToolTool) Schema() json.RawMessage {
	return jsonSchema(map[string]interface{}{
		"name":       map[string]interface{}{"type": "string"},
		"test_input": map[string]interface{}{"description": "Input object passed to the tool body."},
	}, "name")
}

func (t *TestToolTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Name      string          `json:"name"`
		TestInput json.RawMessage `json:"test_input"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}

	tool, err := t.catalog.GetTool(ctx, input.Name)
	if err != nil {
		return toolError(fmt.Sprintf("Tool %q not found: %v", input.Name, err)), nil
	}

	testInput := input.TestInput
	if len(testInput) == 0 {
		testInput = json.RawMessage(`{}`)
	}
	result, err := t.catalog.TestTool(ctx, tool.Code, testInput)
	if err != nil {
		return toolError(err.Error()), nil
	}
	return &agent.ToolResult{Content: result}, nil
}
