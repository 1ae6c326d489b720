// Package catalog implements Envoy's dynamic tool catalog (spec §4.D):
// CRUD of sandbox-executed CustomTools plus the fixed built-ins, assembled
// into one []agent.Tool fresh at the start of every turn.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/internal/observability"
	"github.com/4ug-aug/envoy-v2/internal/sandbox"
	"github.com/4ug-aug/envoy-v2/internal/store"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// Catalog owns standalone CustomTools (IntegrationID == nil) and the fixed
// built-in tool set every turn gets regardless of what's stored.
type Catalog struct {
	store    store.Store
	sandbox  *sandbox.Executor
	builtins []agent.Tool
	logger   *observability.Logger
}

// New builds a Catalog backed by s, executing dynamic tool bodies in sb.
// builtins is the fixed tool set (file read/write/edit/list, web search,
// ...) that always wins a name collision against a dynamic tool. logger
// may be nil, in which case a default logger is used.
func New(s store.Store, sb *sandbox.Executor, builtins []agent.Tool, logger *observability.Logger) *Catalog {
	if logger == nil {
		logger = observability.MustNewLogger(observability.LogConfig{})
	}
	return &Catalog{store: s, sandbox: sb, builtins: builtins, logger: logger}
}

// CreateTool validates name, input schema, and code, then persists t.
func (c *Catalog) CreateTool(ctx context.Context, t *models.CustomTool) error {
	if err := validateTool(ctx, c.sandbox, t); err != nil {
		return err
	}
	return c.store.CreateTool(ctx, t)
}

// UpdateTool re-validates t and persists the change.
func (c *Catalog) UpdateTool(ctx context.Context, t *models.CustomTool) error {
	if err := validateTool(ctx, c.sandbox, t); err != nil {
		return err
	}
	return c.store.UpdateTool(ctx, t)
}

// DeleteTool removes the named tool.
func (c *Catalog) DeleteTool(ctx context.Context, name string) error {
	return c.store.DeleteTool(ctx, name)
}

// GetTool returns the named tool.
func (c *Catalog) GetTool(ctx context.Context, name string) (*models.CustomTool, error) {
	return c.store.GetTool(ctx, name)
}

// ListTools returns every standalone and integration-grouped CustomTool.
func (c *Catalog) ListTools(ctx context.Context) ([]*models.CustomTool, error) {
	return c.store.ListTools(ctx)
}

// TestTool runs code against input in the sandbox without persisting
// anything, for a meta-tool to try a tool body before saving it.
func (c *Catalog) TestTool(ctx context.Context, code string, input json.RawMessage) (string, error) {
	return c.sandbox.Execute(ctx, code, input)
}

// Assemble builds the []agent.Tool for one turn: the built-ins, every
// enabled standalone (IntegrationID == nil) CustomTool exposed as
// custom_<name>, and every enabled CustomTool belonging to an enabled
// Integration, exposed as <integration_name>_<tool_name>. A name collision
// with a built-in is resolved in the built-in's favor — the dynamic tool is
// silently skipped rather than shadowing it.
func (c *Catalog) Assemble(ctx context.Context) ([]agent.Tool, error) {
	seen := make(map[string]struct{}, len(c.builtins))
	out := make([]agent.Tool, 0, len(c.builtins))
	for _, b := range c.builtins {
		seen[b.Name()] = struct{}{}
		out = append(out, b)
	}

	integrations, err := c.store.ListIntegrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list integrations: %w", err)
	}
	enabledIntegrationNames := make(map[string]string, len(integrations)) // id -> name
	for _, in := range integrations {
		if in.Enabled {
			enabledIntegrationNames[in.ID] = in.Name
		}
	}

	tools, err := c.store.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list tools: %w", err)
	}
	for _, t := range tools {
		if !t.Enabled {
			continue
		}

		var exposed string
		if t.IntegrationID == nil {
			exposed = "custom_" + t.Name
		} else {
			name, ok := enabledIntegrationNames[*t.IntegrationID]
			if !ok {
				continue
			}
			exposed = name + "_" + t.Name
		}

		if _, collide := seen[exposed]; collide {
			continue
		}
		seen[exposed] = struct{}{}
		out = append(out, newDynamicTool(c.sandbox, exposed, t, c.logger))
	}
	return out, nil
}

// validateTool checks that t's input schema parses as a JSON Schema whose
// root type, if declared, is "object", and that its code compiles in the
// sandbox runtime, before the caller is allowed to persist it.
func validateTool(ctx context.Context, sb *sandbox.Executor, t *models.CustomTool) error {
	if err := ValidateName(t.Name); err != nil {
		return fmt.Errorf("catalog: invalid tool name: %w", err)
	}
	if err := ValidateSchema(t.InputSchema); err != nil {
		return fmt.Errorf("catalog: invalid input schema: %w", err)
	}
	if ok, message := sb.Validate(ctx, t.Code); !ok {
		return fmt.Errorf("catalog: invalid tool code: %s", message)
	}
	return nil
}

// dynamicTool adapts a persisted CustomTool to agent.Tool, executing its
// body through the sandbox on every call.
type dynamicTool struct {
	sandbox *sandbox.Executor
	name    string
	tool    *models.CustomTool
	logger  *observability.Logger
}

func newDynamicTool(sb *sandbox.Executor, exposedName string, t *models.CustomTool, logger *observability.Logger) *dynamicTool {
	return &dynamicTool{sandbox: sb, name: exposedName, tool: t, logger: logger}
}

func (d *dynamicTool) Name() string        { return d.name }
func (d *dynamicTool) Description() string { return d.tool.Description }

func (d *dynamicTool) Schema() json.RawMessage {
	return normalizeSchema(context.Background(), d.logger, d.tool.Name, d.tool.InputSchema)
}

func (d *dynamicTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	output, err := d.sandbox.Execute(ctx, d.tool.Code, params)
	if err != nil {
		return &agent.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return &agent.ToolResult{Content: output}, nil
}
