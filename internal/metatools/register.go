package metatools

import (
	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/internal/catalog"
	"github.com/4ug-aug/envoy-v2/internal/integrations"
	"github.com/4ug-aug/envoy-v2/internal/scheduler"
	"github.com/4ug-aug/envoy-v2/internal/store"
)

// All returns every meta-tool Envoy exposes for extending its own tool
// catalog, integrations, and schedule — the self-extension surface that
// always rides alongside the catalog's built-ins and dynamic tools.
func All(cat *catalog.Catalog, mgr *integrations.Manager, s store.Store, sched *scheduler.Scheduler) []agent.Tool {
	return []agent.Tool{
		NewCreateToolTool(cat),
		NewUpdateToolTool(cat),
		NewDeleteToolTool(cat),
		NewListToolsTool(cat),
		NewTestToolTool(cat),

		NewCreateIntegrationTool(mgr),
		NewAddIntegrationToolTool(mgr),
		NewRemoveIntegrationToolTool(mgr),
		NewDeleteIntegrationTool(mgr),
		NewListIntegrationsTool(mgr),

		NewScheduleTaskTool(s, sched),
		NewUpdateScheduledTaskTool(s, sched),
		NewDeleteScheduledTaskTool(s, sched),
		NewListScheduledTasksTool(s, sched),
	}
}
