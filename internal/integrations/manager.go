// Package integrations implements Envoy's integration manager (spec §4.E):
// CRUD of named tool groups behind a declared credential schema, credential
// persistence to an on-disk env file plus the live process environment, and
// config-status reporting for the UI and meta-tools.
package integrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/4ug-aug/envoy-v2/internal/catalog"
	"github.com/4ug-aug/envoy-v2/internal/sandbox"
	"github.com/4ug-aug/envoy-v2/internal/store"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// Manager owns Integrations and their grouped CustomTools.
type Manager struct {
	store   store.Store
	sandbox *sandbox.Executor
	env     *envFile
}

// New builds a Manager backed by s, validating tool code in sb and
// persisting credentials to the env file at envPath.
func New(s store.Store, sb *sandbox.Executor, envPath string) *Manager {
	return &Manager{store: s, sandbox: sb, env: newEnvFile(envPath)}
}

// CreateIntegration validates name and config_schema, then persists in.
func (m *Manager) CreateIntegration(ctx context.Context, in *models.Integration) error {
	if err := validateIntegration(in); err != nil {
		return err
	}
	return m.store.CreateIntegration(ctx, in)
}

// UpdateIntegration re-validates in and persists the change. Tools are not
// touched by this call; use AddTool/RemoveTool for those.
func (m *Manager) UpdateIntegration(ctx context.Context, in *models.Integration) error {
	if err := validateIntegration(in); err != nil {
		return err
	}
	return m.store.UpdateIntegration(ctx, in)
}

// DeleteIntegration removes the named integration; the store cascades the
// deletion to its grouped tools.
func (m *Manager) DeleteIntegration(ctx context.Context, name string) error {
	return m.store.DeleteIntegration(ctx, name)
}

// GetIntegration returns the named integration.
func (m *Manager) GetIntegration(ctx context.Context, name string) (*models.Integration, error) {
	return m.store.GetIntegration(ctx, name)
}

// ListIntegrations returns every integration.
func (m *Manager) ListIntegrations(ctx context.Context) ([]*models.Integration, error) {
	return m.store.ListIntegrations(ctx)
}

// AddTool validates t and groups it under integrationName's integration.
func (m *Manager) AddTool(ctx context.Context, integrationName string, t *models.CustomTool) error {
	in, err := m.store.GetIntegration(ctx, integrationName)
	if err != nil {
		return fmt.Errorf("integrations: lookup %q: %w", integrationName, err)
	}
	if err := catalog.ValidateName(t.Name); err != nil {
		return fmt.Errorf("integrations: invalid tool name: %w", err)
	}
	if err := catalog.ValidateSchema(t.InputSchema); err != nil {
		return fmt.Errorf("integrations: invalid input schema: %w", err)
	}
	if ok, message := m.sandbox.Validate(ctx, t.Code); !ok {
		return fmt.Errorf("integrations: invalid tool code: %s", message)
	}
	t.IntegrationID = &in.ID
	return m.store.CreateTool(ctx, t)
}

// RemoveTool deletes toolName, but only if it belongs to integrationName —
// guards against a meta-tool accidentally reaching across integrations.
func (m *Manager) RemoveTool(ctx context.Context, integrationName, toolName string) error {
	in, err := m.store.GetIntegration(ctx, integrationName)
	if err != nil {
		return fmt.Errorf("integrations: lookup %q: %w", integrationName, err)
	}
	t, err := m.store.GetTool(ctx, toolName)
	if err != nil {
		return fmt.Errorf("integrations: lookup tool %q: %w", toolName, err)
	}
	if t.IntegrationID == nil || *t.IntegrationID != in.ID {
		return fmt.Errorf("integrations: tool %q does not belong to integration %q", toolName, integrationName)
	}
	return m.store.DeleteTool(ctx, toolName)
}

// Status is the UI/meta-tool-facing view of one integration: its declared
// schema, its grouped tools, whether it's fully configured, and masked
// credential values for display.
type Status struct {
	Integration  *models.Integration  `json:"integration"`
	Tools        []*models.CustomTool `json:"tools"`
	Configured   bool                 `json:"configured"`
	MaskedValues []models.MaskedValue `json:"masked_values"`
}

// GetStatus assembles integrationName's Status.
func (m *Manager) GetStatus(ctx context.Context, integrationName string) (*Status, error) {
	in, err := m.store.GetIntegration(ctx, integrationName)
	if err != nil {
		return nil, fmt.Errorf("integrations: lookup %q: %w", integrationName, err)
	}

	allTools, err := m.store.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("integrations: list tools: %w", err)
	}
	tools := make([]*models.CustomTool, 0)
	for _, t := range allTools {
		if t.IntegrationID != nil && *t.IntegrationID == in.ID {
			tools = append(tools, t)
		}
	}

	return &Status{
		Integration:  in,
		Tools:        tools,
		Configured:   m.configured(in),
		MaskedValues: m.maskedValues(in),
	}, nil
}

// configured is true iff every required config key in in.ConfigSchema
// resolves to a non-empty value in the live process environment.
func (m *Manager) configured(in *models.Integration) bool {
	for _, field := range in.ConfigSchema {
		if !field.Required {
			continue
		}
		if strings.TrimSpace(m.env.Getenv(field.Key)) == "" {
			return false
		}
	}
	return true
}

// maskedValues returns in's UI-facing masked presentation of every
// declared config key.
func (m *Manager) maskedValues(in *models.Integration) []models.MaskedValue {
	out := make([]models.MaskedValue, 0, len(in.ConfigSchema))
	for _, field := range in.ConfigSchema {
		raw := m.env.Getenv(field.Key)
		out = append(out, models.MaskedValue{
			Key:   field.Key,
			Value: models.Mask(raw, raw != ""),
		})
	}
	return out
}

// SetConfig filters values to the keys integrationName declares, drops
// empty strings, persists the rest to the env file, and updates the live
// process environment so the very next turn sees them.
func (m *Manager) SetConfig(ctx context.Context, integrationName string, values map[string]string) error {
	in, err := m.store.GetIntegration(ctx, integrationName)
	if err != nil {
		return fmt.Errorf("integrations: lookup %q: %w", integrationName, err)
	}

	declared := make(map[string]struct{}, len(in.ConfigSchema))
	for _, field := range in.ConfigSchema {
		declared[field.Key] = struct{}{}
	}

	filtered := make(map[string]string, len(values))
	for key, value := range values {
		if _, ok := declared[key]; !ok {
			continue
		}
		if value == "" {
			continue
		}
		filtered[key] = value
	}
	if len(filtered) == 0 {
		return nil
	}

	return m.env.Upsert(filtered)
}

// validateIntegration checks name and config_schema shape before the
// caller is allowed to persist in.
func validateIntegration(in *models.Integration) error {
	if err := catalog.ValidateName(in.Name); err != nil {
		return fmt.Errorf("integrations: invalid integration name: %w", err)
	}
	for _, field := range in.ConfigSchema {
		if strings.TrimSpace(field.Key) == "" {
			return fmt.Errorf("integrations: config_schema entry is missing a key")
		}
	}
	return nil
}
