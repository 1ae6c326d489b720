// Package promptsource builds the system prompt every agent turn opens
// with, enumerating the dynamic tool catalog (D), integrations (E), and
// scheduled tasks (H) fresh each time so the model always sees the
// self-extended surface as it currently stands.
package promptsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/4ug-aug/envoy-v2/internal/catalog"
	"github.com/4ug-aug/envoy-v2/internal/integrations"
	"github.com/4ug-aug/envoy-v2/internal/scheduler"
	"github.com/4ug-aug/envoy-v2/internal/store"
)

// Source assembles a system prompt from D/E/H's current state plus a fixed
// identity preamble. It implements agent.PromptSource.
type Source struct {
	Preamble     string
	Catalog      *catalog.Catalog
	Integrations *integrations.Manager
	Store        store.Store
	Scheduler    *scheduler.Scheduler
}

// New builds a Source with the given fixed preamble text.
func New(preamble string, cat *catalog.Catalog, mgr *integrations.Manager, s store.Store, sched *scheduler.Scheduler) *Source {
	return &Source{Preamble: preamble, Catalog: cat, Integrations: mgr, Store: s, Scheduler: sched}
}

// SystemPrompt builds the prompt for one turn.
func (src *Source) SystemPrompt(ctx context.Context) (string, error) {
	lines := make([]string, 0, 8)

	if preamble := strings.TrimSpace(src.Preamble); preamble != "" {
		lines = append(lines, preamble)
	}

	if toolsSection, err := src.toolsSection(ctx); err != nil {
		return "", fmt.Errorf("promptsource: tools section: %w", err)
	} else if toolsSection != "" {
		lines = append(lines, toolsSection)
	}

	if integrationsSection, err := src.integrationsSection(ctx); err != nil {
		return "", fmt.Errorf("promptsource: integrations section: %w", err)
	} else if integrationsSection != "" {
		lines = append(lines, integrationsSection)
	}

	if tasksSection, err := src.tasksSection(ctx); err != nil {
		return "", fmt.Errorf("promptsource: tasks section: %w", err)
	} else if tasksSection != "" {
		lines = append(lines, tasksSection)
	}

	lines = append(lines, "You can extend yourself: create_tool/update_tool/delete_tool manage standalone tools, create_integration/add_integration_tool/remove_integration_tool/delete_integration manage integration-grouped tools, and schedule_task/update_scheduled_task/delete_scheduled_task manage cron-bound tasks that fire a fresh turn on their own.")
	lines = append(lines, "Never fabricate a tool result. If a tool call fails, say so plainly rather than guessing at what it would have returned.")

	return strings.TrimSpace(strings.Join(lines, "\n\n")), nil
}

func (src *Source) toolsSection(ctx context.Context) (string, error) {
	if src.Catalog == nil {
		return "", nil
	}
	tools, err := src.Catalog.ListTools(ctx)
	if err != nil {
		return "", err
	}
	if len(tools) == 0 {
		return "No custom tools exist yet. Use create_tool to add one when a task calls for it.", nil
	}
	descriptions := make([]string, 0, len(tools))
	for _, t := range tools {
		state := "enabled"
		if !t.Enabled {
			state = "disabled"
		}
		descriptions = append(descriptions, fmt.Sprintf("- %s (%s): %s", t.Name, state, t.Description))
	}
	return fmt.Sprintf("Custom tools:\n%s", strings.Join(descriptions, "\n")), nil
}

func (src *Source) integrationsSection(ctx context.Context) (string, error) {
	if src.Integrations == nil {
		return "", nil
	}
	list, err := src.Integrations.ListIntegrations(ctx)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "No integrations exist yet. Use create_integration to add one.", nil
	}
	descriptions := make([]string, 0, len(list))
	for _, in := range list {
		status, err := src.Integrations.GetStatus(ctx, in.Name)
		if err != nil {
			return "", err
		}
		badge := "needs setup"
		if status.Configured {
			badge = "configured"
		}
		descriptions = append(descriptions, fmt.Sprintf("- %s (%s, %d tools): %s", in.Name, badge, len(status.Tools), in.Description))
	}
	return fmt.Sprintf("Integrations:\n%s", strings.Join(descriptions, "\n")), nil
}

func (src *Source) tasksSection(ctx context.Context) (string, error) {
	if src.Store == nil {
		return "", nil
	}
	tasks, err := src.Store.ListTasks(ctx)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "No scheduled tasks exist yet. Use schedule_task to add one.", nil
	}

	next := make(map[string]string)
	if src.Scheduler != nil {
		for _, job := range src.Scheduler.Jobs() {
			next[job.Name] = job.Next.Format("2006-01-02T15:04:05Z07:00")
		}
	}

	descriptions := make([]string, 0, len(tasks))
	for _, task := range tasks {
		state := "enabled"
		if !task.Enabled {
			state = "disabled"
		}
		when, scheduled := next[task.Name]
		if !scheduled {
			when = "not scheduled"
		}
		descriptions = append(descriptions, fmt.Sprintf("- %s (%s, %s, next: %s): %s", task.Name, task.Cron, state, when, task.Description))
	}
	return fmt.Sprintf("Scheduled tasks:\n%s", strings.Join(descriptions, "\n")), nil
}
