package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// ToolRegistry holds the tool set available to the model for one turn:
// built-ins plus whatever the catalog and integration managers assembled
// (components D and E). It is rebuilt fresh at the start of every turn, so
// it carries no persistence of its own.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry returns an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool by name.
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Unregister removes a tool by name. A no-op if the tool isn't present.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool registered under name, if any.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Execute runs the named tool with params, or returns ErrToolNotFound
// wrapped as a *ToolError if it isn't registered.
func (r *ToolRegistry) Execute(ctx context.Context, name string, params json.RawMessage) (*ToolResult, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, NewToolError(name, fmt.Errorf("tool %q is not registered: %w", name, ErrToolNotFound)).WithType(ToolErrorNotFound)
	}
	return tool.Execute(ctx, params)
}

// AsSlice returns every registered tool, in no particular order. Callers
// that need a stable model-facing order should sort by Name themselves.
func (r *ToolRegistry) AsSlice() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, tool)
	}
	return out
}

// Len reports the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
