package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/4ug-aug/envoy-v2/pkg/models"
	_ "modernc.org/sqlite" // pure-Go driver, registered as "sqlite"
)

// SQLiteStore is the production Store backend: a single sqlite file at a
// configured path, opened once per process (spec §4.B's "singleton handle").
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and brings its
// schema up to date. path may be ":memory:" for tests.
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single-writer model (spec §5): serialize writes at the driver level
	// rather than fan out connections that would contend on the same file.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT 'New chat',
			conversation_state TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id)`,
		`CREATE TABLE IF NOT EXISTS custom_tools (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			input_schema TEXT NOT NULL DEFAULT '{}',
			code TEXT NOT NULL DEFAULT '',
			enabled INTEGER NOT NULL DEFAULT 1,
			integration_id TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_custom_tools_integration ON custom_tools(integration_id)`,
		`CREATE TABLE IF NOT EXISTS integrations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			config_schema TEXT NOT NULL DEFAULT '[]',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scheduled_tasks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			cron TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS task_runs (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			status TEXT NOT NULL,
			result TEXT NOT NULL DEFAULT '',
			output TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_task_runs_task ON task_runs(task_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	// Forward-only additive migrations: attempted every startup, failures
	// from an already-applied column are swallowed (spec §4.B).
	migrations := []string{
		`ALTER TABLE custom_tools ADD COLUMN integration_id TEXT`,
	}
	for _, m := range migrations {
		_, _ = s.db.Exec(m)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			_ = err
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Sessions ---

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.Title == "" {
		sess.Title = "New chat"
	}
	now := time.Now()
	sess.CreatedAt, sess.UpdatedAt = now, now
	stateJSON, err := json.Marshal(sess.ConversationState)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, conversation_state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Title, string(stateJSON), sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, conversation_state, created_at, updated_at FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var sess models.Session
	var stateJSON string
	if err := row.Scan(&sess.ID, &sess.Title, &stateJSON, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	// An unparseable or missing conversation_state column resolves to an
	// empty log rather than an error (spec §4.G).
	_ = json.Unmarshal([]byte(stateJSON), &sess.ConversationState)
	return &sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, conversation_state, created_at, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		var sess models.Session
		var stateJSON string
		if err := rows.Scan(&sess.ID, &sess.Title, &stateJSON, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		_ = json.Unmarshal([]byte(stateJSON), &sess.ConversationState)
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateSessionState(ctx context.Context, sessionID string, state []models.ConversationEntry) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET conversation_state = ?, updated_at = ? WHERE id = ?`,
		string(stateJSON), time.Now(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("update conversation state: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) UpdateSessionMeta(ctx context.Context, sess *models.Session) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`,
		sess.Title, time.Now(), sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return checkRowsAffected(res)
	})
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, m *models.TranscriptMessage) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, string(m.Role), m.Content, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]*models.TranscriptMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*models.TranscriptMessage
	for rows.Next() {
		var m models.TranscriptMessage
		var role string
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = models.Role(role)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Custom tools ---

func (s *SQLiteStore) CreateTool(ctx context.Context, t *models.CustomTool) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO custom_tools (id, name, description, input_schema, code, enabled, integration_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.InputSchema, t.Code, t.Enabled, nullableString(t.IntegrationID), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create tool %q: %w", t.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("create tool: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTool(ctx context.Context, name string) (*models.CustomTool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, input_schema, code, enabled, integration_id, created_at, updated_at
		 FROM custom_tools WHERE name = ?`, name)
	return scanTool(row)
}

func scanTool(row *sql.Row) (*models.CustomTool, error) {
	var t models.CustomTool
	var integrationID sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.InputSchema, &t.Code, &t.Enabled, &integrationID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get tool: %w", err)
	}
	if integrationID.Valid {
		t.IntegrationID = &integrationID.String
	}
	return &t, nil
}

func (s *SQLiteStore) ListTools(ctx context.Context) ([]*models.CustomTool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, input_schema, code, enabled, integration_id, created_at, updated_at
		 FROM custom_tools ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer rows.Close()

	var out []*models.CustomTool
	for rows.Next() {
		var t models.CustomTool
		var integrationID sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.InputSchema, &t.Code, &t.Enabled, &integrationID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tool: %w", err)
		}
		if integrationID.Valid {
			t.IntegrationID = &integrationID.String
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateTool(ctx context.Context, t *models.CustomTool) error {
	t.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE custom_tools SET description = ?, input_schema = ?, code = ?, enabled = ?, updated_at = ? WHERE name = ?`,
		t.Description, t.InputSchema, t.Code, t.Enabled, t.UpdatedAt, t.Name,
	)
	if err != nil {
		return fmt.Errorf("update tool: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) DeleteTool(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_tools WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete tool: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) DeleteToolsByIntegration(ctx context.Context, integrationID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM custom_tools WHERE integration_id = ?`, integrationID)
	if err != nil {
		return fmt.Errorf("delete tools by integration: %w", err)
	}
	return nil
}

// --- Integrations ---

func (s *SQLiteStore) CreateIntegration(ctx context.Context, in *models.Integration) error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	now := time.Now()
	in.CreatedAt, in.UpdatedAt = now, now
	schemaJSON, err := json.Marshal(in.ConfigSchema)
	if err != nil {
		return fmt.Errorf("marshal config schema: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO integrations (id, name, description, config_schema, enabled, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.Description, string(schemaJSON), in.Enabled, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create integration %q: %w", in.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("create integration: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetIntegration(ctx context.Context, name string) (*models.Integration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, config_schema, enabled, created_at, updated_at FROM integrations WHERE name = ?`, name)
	return scanIntegration(row)
}

func scanIntegration(row *sql.Row) (*models.Integration, error) {
	var in models.Integration
	var schemaJSON string
	if err := row.Scan(&in.ID, &in.Name, &in.Description, &schemaJSON, &in.Enabled, &in.CreatedAt, &in.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get integration: %w", err)
	}
	_ = json.Unmarshal([]byte(schemaJSON), &in.ConfigSchema)
	return &in, nil
}

func (s *SQLiteStore) ListIntegrations(ctx context.Context) ([]*models.Integration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, config_schema, enabled, created_at, updated_at FROM integrations ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()

	var out []*models.Integration
	for rows.Next() {
		var in models.Integration
		var schemaJSON string
		if err := rows.Scan(&in.ID, &in.Name, &in.Description, &schemaJSON, &in.Enabled, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		_ = json.Unmarshal([]byte(schemaJSON), &in.ConfigSchema)
		out = append(out, &in)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateIntegration(ctx context.Context, in *models.Integration) error {
	in.UpdatedAt = time.Now()
	schemaJSON, err := json.Marshal(in.ConfigSchema)
	if err != nil {
		return fmt.Errorf("marshal config schema: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE integrations SET description = ?, config_schema = ?, enabled = ?, updated_at = ? WHERE name = ?`,
		in.Description, string(schemaJSON), in.Enabled, in.UpdatedAt, in.Name,
	)
	if err != nil {
		return fmt.Errorf("update integration: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) DeleteIntegration(ctx context.Context, name string) error {
	in, err := s.GetIntegration(ctx, name)
	if err != nil {
		return err
	}
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM custom_tools WHERE integration_id = ?`, in.ID); err != nil {
			return fmt.Errorf("cascade delete tools: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM integrations WHERE id = ?`, in.ID)
		if err != nil {
			return fmt.Errorf("delete integration: %w", err)
		}
		return checkRowsAffected(res)
	})
}

// --- Scheduled tasks ---

func (s *SQLiteStore) CreateTask(ctx context.Context, t *models.ScheduledTask) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_tasks (id, name, description, cron, enabled, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.Cron, t.Enabled, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create task %q: %w", t.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, name string) (*models.ScheduledTask, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, cron, enabled, created_at, updated_at FROM scheduled_tasks WHERE name = ?`, name)
	return scanTask(row)
}

func scanTask(row *sql.Row) (*models.ScheduledTask, error) {
	var t models.ScheduledTask
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Cron, &t.Enabled, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context) ([]*models.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, cron, enabled, created_at, updated_at FROM scheduled_tasks ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*models.ScheduledTask
	for rows.Next() {
		var t models.ScheduledTask
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Cron, &t.Enabled, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, t *models.ScheduledTask) error {
	t.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_tasks SET description = ?, cron = ?, enabled = ?, updated_at = ? WHERE name = ?`,
		t.Description, t.Cron, t.Enabled, t.UpdatedAt, t.Name,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, name string) error {
	t, err := s.GetTask(ctx, name)
	if err != nil {
		return err
	}
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_runs WHERE task_id = ?`, t.ID); err != nil {
			return fmt.Errorf("cascade delete task runs: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = ?`, t.ID)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return checkRowsAffected(res)
	})
}

// --- Task runs ---

func (s *SQLiteStore) CreateTaskRun(ctx context.Context, r *models.TaskRun) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_runs (id, task_id, status, result, output, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TaskID, string(r.Status), r.Result, r.Output, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("create task run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateTaskRun(ctx context.Context, r *models.TaskRun) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE task_runs SET status = ?, result = ?, output = ?, finished_at = ? WHERE id = ?`,
		string(r.Status), r.Result, r.Output, r.FinishedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update task run: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) GetRunningTaskRun(ctx context.Context, taskID string) (*models.TaskRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, status, result, output, started_at, finished_at FROM task_runs WHERE task_id = ? AND status = ? LIMIT 1`,
		taskID, string(models.RunStatusRunning),
	)
	r, err := scanTaskRun(row)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func scanTaskRun(row *sql.Row) (*models.TaskRun, error) {
	var r models.TaskRun
	var status string
	var finishedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.TaskID, &status, &r.Result, &r.Output, &r.StartedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task run: %w", err)
	}
	r.Status = models.RunStatus(status)
	if finishedAt.Valid {
		r.FinishedAt = &finishedAt.Time
	}
	return &r, nil
}

func (s *SQLiteStore) ListTaskRuns(ctx context.Context, taskID string, limit int) ([]*models.TaskRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, status, result, output, started_at, finished_at FROM task_runs
		 WHERE task_id = ? ORDER BY started_at DESC LIMIT ?`,
		taskID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list task runs: %w", err)
	}
	defer rows.Close()

	var out []*models.TaskRun
	for rows.Next() {
		var r models.TaskRun
		var status string
		var finishedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.TaskID, &status, &r.Result, &r.Output, &r.StartedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan task run: %w", err)
		}
		r.Status = models.RunStatus(status)
		if finishedAt.Valid {
			r.FinishedAt = &finishedAt.Time
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint violations via a plain error
	// string; there is no typed sentinel to compare against.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
