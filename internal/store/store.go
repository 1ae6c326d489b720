// Package store implements the single-writer persistent store described in
// spec §4.B: durable tables for sessions, messages, conversation state,
// custom tools, integrations, scheduled tasks, and task runs.
package store

import (
	"context"
	"errors"

	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// Sentinel errors. Callers compare with errors.Is.
var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the persistence contract every component in this module depends
// on. SQLiteStore is the production implementation; MemoryStore is the
// in-memory fallback used by tests and by any process run without
// DATABASE_PATH configured.
type Store interface {
	// Sessions

	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context) ([]*models.Session, error)
	UpdateSessionState(ctx context.Context, sessionID string, state []models.ConversationEntry) error
	UpdateSessionMeta(ctx context.Context, s *models.Session) error
	DeleteSession(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, m *models.TranscriptMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]*models.TranscriptMessage, error)

	// Custom tools

	CreateTool(ctx context.Context, t *models.CustomTool) error
	GetTool(ctx context.Context, name string) (*models.CustomTool, error)
	ListTools(ctx context.Context) ([]*models.CustomTool, error)
	UpdateTool(ctx context.Context, t *models.CustomTool) error
	DeleteTool(ctx context.Context, name string) error
	DeleteToolsByIntegration(ctx context.Context, integrationID string) error

	// Integrations

	CreateIntegration(ctx context.Context, in *models.Integration) error
	GetIntegration(ctx context.Context, name string) (*models.Integration, error)
	ListIntegrations(ctx context.Context) ([]*models.Integration, error)
	UpdateIntegration(ctx context.Context, in *models.Integration) error
	DeleteIntegration(ctx context.Context, name string) error

	// Scheduled tasks

	CreateTask(ctx context.Context, t *models.ScheduledTask) error
	GetTask(ctx context.Context, name string) (*models.ScheduledTask, error)
	ListTasks(ctx context.Context) ([]*models.ScheduledTask, error)
	UpdateTask(ctx context.Context, t *models.ScheduledTask) error
	DeleteTask(ctx context.Context, name string) error

	// Task runs

	CreateTaskRun(ctx context.Context, r *models.TaskRun) error
	UpdateTaskRun(ctx context.Context, r *models.TaskRun) error
	GetRunningTaskRun(ctx context.Context, taskID string) (*models.TaskRun, error)
	ListTaskRuns(ctx context.Context, taskID string, limit int) ([]*models.TaskRun, error)

	Close() error
}
