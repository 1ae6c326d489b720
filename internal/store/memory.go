package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// MemoryStore is an in-memory Store implementation used as the fallback
// backend when no DATABASE_PATH is configured, and as the fixture for
// higher-level package tests.
type MemoryStore struct {
	mu           sync.RWMutex
	sessions     map[string]*models.Session
	messages     map[string][]*models.TranscriptMessage
	tools        map[string]*models.CustomTool
	integrations map[string]*models.Integration
	tasks        map[string]*models.ScheduledTask
	taskRuns     map[string][]*models.TaskRun
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:     map[string]*models.Session{},
		messages:     map[string][]*models.TranscriptMessage{},
		tools:        map[string]*models.CustomTool{},
		integrations: map[string]*models.Integration{},
		tasks:        map[string]*models.ScheduledTask{},
		taskRuns:     map[string][]*models.TaskRun{},
	}
}

func (m *MemoryStore) Close() error { return nil }

// --- Sessions ---

func (m *MemoryStore) CreateSession(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Title == "" {
		s.Title = "New chat"
	}
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(s), nil
}

func (m *MemoryStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, cloneSession(s))
	}
	return out, nil
}

func (m *MemoryStore) UpdateSessionState(ctx context.Context, sessionID string, state []models.ConversationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.ConversationState = cloneEntries(state)
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) UpdateSessionMeta(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = s.Title
	existing.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	delete(m.messages, id)
	return nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, msg *models.TranscriptMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	clone := *msg
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], &clone)
	return nil
}

func (m *MemoryStore) ListMessages(ctx context.Context, sessionID string) ([]*models.TranscriptMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	existing := m.messages[sessionID]
	out := make([]*models.TranscriptMessage, len(existing))
	for i, msg := range existing {
		clone := *msg
		out[i] = &clone
	}
	return out, nil
}

// --- Custom tools ---

func (m *MemoryStore) CreateTool(ctx context.Context, t *models.CustomTool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tools[t.Name]; exists {
		return ErrAlreadyExists
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	m.tools[t.Name] = cloneTool(t)
	return nil
}

func (m *MemoryStore) GetTool(ctx context.Context, name string) (*models.CustomTool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tools[name]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTool(t), nil
}

func (m *MemoryStore) ListTools(ctx context.Context) ([]*models.CustomTool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.CustomTool, 0, len(m.tools))
	for _, t := range m.tools {
		out = append(out, cloneTool(t))
	}
	return out, nil
}

func (m *MemoryStore) UpdateTool(ctx context.Context, t *models.CustomTool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tools[t.Name]
	if !ok {
		return ErrNotFound
	}
	existing.Description = t.Description
	existing.InputSchema = t.InputSchema
	existing.Code = t.Code
	existing.Enabled = t.Enabled
	existing.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DeleteTool(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tools[name]; !ok {
		return ErrNotFound
	}
	delete(m.tools, name)
	return nil
}

func (m *MemoryStore) DeleteToolsByIntegration(ctx context.Context, integrationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, t := range m.tools {
		if t.IntegrationID != nil && *t.IntegrationID == integrationID {
			delete(m.tools, name)
		}
	}
	return nil
}

// --- Integrations ---

func (m *MemoryStore) CreateIntegration(ctx context.Context, in *models.Integration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.integrations[in.Name]; exists {
		return ErrAlreadyExists
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	now := time.Now()
	in.CreatedAt, in.UpdatedAt = now, now
	m.integrations[in.Name] = cloneIntegration(in)
	return nil
}

func (m *MemoryStore) GetIntegration(ctx context.Context, name string) (*models.Integration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	in, ok := m.integrations[name]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneIntegration(in), nil
}

func (m *MemoryStore) ListIntegrations(ctx context.Context) ([]*models.Integration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Integration, 0, len(m.integrations))
	for _, in := range m.integrations {
		out = append(out, cloneIntegration(in))
	}
	return out, nil
}

func (m *MemoryStore) UpdateIntegration(ctx context.Context, in *models.Integration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.integrations[in.Name]
	if !ok {
		return ErrNotFound
	}
	existing.Description = in.Description
	existing.ConfigSchema = append([]models.ConfigField{}, in.ConfigSchema...)
	existing.Enabled = in.Enabled
	existing.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DeleteIntegration(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	in, ok := m.integrations[name]
	if !ok {
		return ErrNotFound
	}
	delete(m.integrations, name)
	for toolName, t := range m.tools {
		if t.IntegrationID != nil && *t.IntegrationID == in.ID {
			delete(m.tools, toolName)
		}
	}
	return nil
}

// --- Scheduled tasks ---

func (m *MemoryStore) CreateTask(ctx context.Context, t *models.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[t.Name]; exists {
		return ErrAlreadyExists
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	clone := *t
	m.tasks[t.Name] = &clone
	return nil
}

func (m *MemoryStore) GetTask(ctx context.Context, name string) (*models.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[name]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *MemoryStore) ListTasks(ctx context.Context) ([]*models.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		clone := *t
		out = append(out, &clone)
	}
	return out, nil
}

func (m *MemoryStore) UpdateTask(ctx context.Context, t *models.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tasks[t.Name]
	if !ok {
		return ErrNotFound
	}
	existing.Description = t.Description
	existing.Cron = t.Cron
	existing.Enabled = t.Enabled
	existing.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DeleteTask(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[name]
	if !ok {
		return ErrNotFound
	}
	delete(m.tasks, name)
	delete(m.taskRuns, t.ID)
	return nil
}

// --- Task runs ---

func (m *MemoryStore) CreateTaskRun(ctx context.Context, r *models.TaskRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	clone := *r
	m.taskRuns[r.TaskID] = append(m.taskRuns[r.TaskID], &clone)
	return nil
}

func (m *MemoryStore) UpdateTaskRun(ctx context.Context, r *models.TaskRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.taskRuns[r.TaskID] {
		if existing.ID == r.ID {
			existing.Status = r.Status
			existing.Result = r.Result
			existing.Output = r.Output
			existing.FinishedAt = r.FinishedAt
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) GetRunningTaskRun(ctx context.Context, taskID string) (*models.TaskRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.taskRuns[taskID] {
		if r.Status == models.RunStatusRunning {
			clone := *r
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListTaskRuns(ctx context.Context, taskID string, limit int) ([]*models.TaskRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := m.taskRuns[taskID]
	if limit <= 0 || limit > len(runs) {
		limit = len(runs)
	}
	out := make([]*models.TaskRun, 0, limit)
	// Most recent first, matching SQLiteStore's ORDER BY started_at DESC.
	for i := len(runs) - 1; i >= 0 && len(out) < limit; i-- {
		clone := *runs[i]
		out = append(out, &clone)
	}
	return out, nil
}

// --- deep-clone helpers ---

func cloneSession(s *models.Session) *models.Session {
	clone := *s
	clone.ConversationState = cloneEntries(s.ConversationState)
	return &clone
}

func cloneEntries(entries []models.ConversationEntry) []models.ConversationEntry {
	out := make([]models.ConversationEntry, len(entries))
	for i, e := range entries {
		clone := e
		clone.Parts = append([]models.Part{}, e.Parts...)
		clone.Results = append([]models.ToolTurnResult{}, e.Results...)
		out[i] = clone
	}
	return out
}

func cloneTool(t *models.CustomTool) *models.CustomTool {
	clone := *t
	if t.IntegrationID != nil {
		id := *t.IntegrationID
		clone.IntegrationID = &id
	}
	return &clone
}

func cloneIntegration(in *models.Integration) *models.Integration {
	clone := *in
	clone.ConfigSchema = append([]models.ConfigField{}, in.ConfigSchema...)
	return &clone
}
