package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/4ug-aug/envoy-v2/internal/agent"
)

// ListTool implements a directory listing within the workspace.
type ListTool struct {
	resolver Resolver
}

// NewListTool creates a list tool scoped to the workspace.
func NewListTool(cfg Config) *ListTool {
	return &ListTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *ListTool) Name() string { return "list_dir" }

func (t *ListTool) Description() string {
	return "List the entries of a directory in the workspace."
}

func (t *ListTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to list (relative to workspace, default: \".\").",
			},
		},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *ListTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Path string `json:"path"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &input); err != nil {
			return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
		}
	}
	if strings.TrimSpace(input.Path) == "" {
		input.Path = "."
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return toolError(fmt.Sprintf("read directory: %v", err)), nil
	}

	names := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		size := int64(0)
		if err == nil {
			size = info.Size()
		}
		names = append(names, map[string]interface{}{
			"name":   entry.Name(),
			"is_dir": entry.IsDir(),
			"size":   size,
		})
	}

	result := map[string]interface{}{
		"path":    input.Path,
		"entries": names,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}

	return &agent.ToolResult{Content: string(payload)}, nil
}
