package store

import (
	"context"
	"time"

	"github.com/4ug-aug/envoy-v2/internal/observability"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// Instrumented wraps a Store with the database-write metrics and tracing
// spec §5 asks for around one of the agent loop's suspension points. It
// delegates every call unchanged; the only addition is a timed
// Metrics.RecordDatabaseQuery and Tracer.TraceDatabaseQuery span per call.
type Instrumented struct {
	inner   Store
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// NewInstrumented wraps inner with metrics and tracer. Either may be nil,
// in which case the corresponding recording is skipped.
func NewInstrumented(inner Store, metrics *observability.Metrics, tracer *observability.Tracer) *Instrumented {
	return &Instrumented{inner: inner, metrics: metrics, tracer: tracer}
}

func (i *Instrumented) record(ctx context.Context, operation, table string, fn func(ctx context.Context) error) error {
	start := time.Now()
	if i.tracer != nil {
		spanCtx, span := i.tracer.TraceDatabaseQuery(ctx, operation, table)
		ctx = spanCtx
		defer span.End()
	}
	err := fn(ctx)
	if i.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		i.metrics.RecordDatabaseQuery(operation, table, status, time.Since(start).Seconds())
	}
	return err
}

func (i *Instrumented) CreateSession(ctx context.Context, s *models.Session) error {
	return i.record(ctx, "insert", "sessions", func(ctx context.Context) error { return i.inner.CreateSession(ctx, s) })
}

func (i *Instrumented) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return i.inner.GetSession(ctx, id)
}

func (i *Instrumented) ListSessions(ctx context.Context) ([]*models.Session, error) {
	return i.inner.ListSessions(ctx)
}

func (i *Instrumented) UpdateSessionState(ctx context.Context, sessionID string, state []models.ConversationEntry) error {
	return i.record(ctx, "update", "sessions", func(ctx context.Context) error { return i.inner.UpdateSessionState(ctx, sessionID, state) })
}

func (i *Instrumented) UpdateSessionMeta(ctx context.Context, s *models.Session) error {
	return i.record(ctx, "update", "sessions", func(ctx context.Context) error { return i.inner.UpdateSessionMeta(ctx, s) })
}

func (i *Instrumented) DeleteSession(ctx context.Context, id string) error {
	return i.record(ctx, "delete", "sessions", func(ctx context.Context) error { return i.inner.DeleteSession(ctx, id) })
}

func (i *Instrumented) AppendMessage(ctx context.Context, m *models.TranscriptMessage) error {
	return i.record(ctx, "insert", "messages", func(ctx context.Context) error { return i.inner.AppendMessage(ctx, m) })
}

func (i *Instrumented) ListMessages(ctx context.Context, sessionID string) ([]*models.TranscriptMessage, error) {
	return i.inner.ListMessages(ctx, sessionID)
}

func (i *Instrumented) CreateTool(ctx context.Context, t *models.CustomTool) error {
	return i.record(ctx, "insert", "tools", func(ctx context.Context) error { return i.inner.CreateTool(ctx, t) })
}

func (i *Instrumented) GetTool(ctx context.Context, name string) (*models.CustomTool, error) {
	return i.inner.GetTool(ctx, name)
}

func (i *Instrumented) ListTools(ctx context.Context) ([]*models.CustomTool, error) {
	return i.inner.ListTools(ctx)
}

func (i *Instrumented) UpdateTool(ctx context.Context, t *models.CustomTool) error {
	return i.record(ctx, "update", "tools", func(ctx context.Context) error { return i.inner.UpdateTool(ctx, t) })
}

func (i *Instrumented) DeleteTool(ctx context.Context, name string) error {
	return i.record(ctx, "delete", "tools", func(ctx context.Context) error { return i.inner.DeleteTool(ctx, name) })
}

func (i *Instrumented) DeleteToolsByIntegration(ctx context.Context, integrationID string) error {
	return i.record(ctx, "delete", "tools", func(ctx context.Context) error { return i.inner.DeleteToolsByIntegration(ctx, integrationID) })
}

func (i *Instrumented) CreateIntegration(ctx context.Context, in *models.Integration) error {
	return i.record(ctx, "insert", "integrations", func(ctx context.Context) error { return i.inner.CreateIntegration(ctx, in) })
}

func (i *Instrumented) GetIntegration(ctx context.Context, name string) (*models.Integration, error) {
	return i.inner.GetIntegration(ctx, name)
}

func (i *Instrumented) ListIntegrations(ctx context.Context) ([]*models.Integration, error) {
	return i.inner.ListIntegrations(ctx)
}

func (i *Instrumented) UpdateIntegration(ctx context.Context, in *models.Integration) error {
	return i.record(ctx, "update", "integrations", func(ctx context.Context) error { return i.inner.UpdateIntegration(ctx, in) })
}

func (i *Instrumented) DeleteIntegration(ctx context.Context, name string) error {
	return i.record(ctx, "delete", "integrations", func(ctx context.Context) error { return i.inner.DeleteIntegration(ctx, name) })
}

func (i *Instrumented) CreateTask(ctx context.Context, t *models.ScheduledTask) error {
	return i.record(ctx, "insert", "tasks", func(ctx context.Context) error { return i.inner.CreateTask(ctx, t) })
}

func (i *Instrumented) GetTask(ctx context.Context, name string) (*models.ScheduledTask, error) {
	return i.inner.GetTask(ctx, name)
}

func (i *Instrumented) ListTasks(ctx context.Context) ([]*models.ScheduledTask, error) {
	return i.inner.ListTasks(ctx)
}

func (i *Instrumented) UpdateTask(ctx context.Context, t *models.ScheduledTask) error {
	return i.record(ctx, "update", "tasks", func(ctx context.Context) error { return i.inner.UpdateTask(ctx, t) })
}

func (i *Instrumented) DeleteTask(ctx context.Context, name string) error {
	return i.record(ctx, "delete", "tasks", func(ctx context.Context) error { return i.inner.DeleteTask(ctx, name) })
}

func (i *Instrumented) CreateTaskRun(ctx context.Context, r *models.TaskRun) error {
	return i.record(ctx, "insert", "task_runs", func(ctx context.Context) error { return i.inner.CreateTaskRun(ctx, r) })
}

func (i *Instrumented) UpdateTaskRun(ctx context.Context, r *models.TaskRun) error {
	return i.record(ctx, "update", "task_runs", func(ctx context.Context) error { return i.inner.UpdateTaskRun(ctx, r) })
}

func (i *Instrumented) GetRunningTaskRun(ctx context.Context, taskID string) (*models.TaskRun, error) {
	return i.inner.GetRunningTaskRun(ctx, taskID)
}

func (i *Instrumented) ListTaskRuns(ctx context.Context, taskID string, limit int) ([]*models.TaskRun, error) {
	return i.inner.ListTaskRuns(ctx, taskID, limit)
}

func (i *Instrumented) Close() error {
	return i.inner.Close()
}
