package history

import (
	"context"
	"database/sql"
	"time"
)

// Repository persists the edit journal. All writes are best-effort from the
// caller's point of view: a journal failure must never block an edit.
type Repository interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, limit int) ([]*Session, error)
	CloseSession(ctx context.Context, id, status string) error

	AppendEntry(ctx context.Context, e *Entry) error
	ListEntries(ctx context.Context, sessionID string) ([]*Entry, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, original_path, working_dir, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.OriginalPath, s.WorkingDir, s.Status, s.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, original_path, working_dir, status, created_at, closed_at
		FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

func (r *SQLiteRepository) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, original_path, working_dir, status, created_at, closed_at
		FROM sessions ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		var createdAt string
		var closedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.OriginalPath, &s.WorkingDir, &s.Status, &createdAt, &closedAt); err != nil {
			return nil, err
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if closedAt.Valid {
			t, _ := time.Parse(time.RFC3339, closedAt.String)
			s.ClosedAt = &t
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

func (r *SQLiteRepository) CloseSession(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, closed_at = ? WHERE id = ?
	`, status, time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) AppendEntry(ctx context.Context, e *Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO edits (id, session_id, seq, kind, action, artifact_path, params_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.SessionID, e.Seq, e.Kind, e.Action, e.ArtifactPath, e.ParamsJSON, e.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) ListEntries(ctx context.Context, sessionID string) ([]*Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, seq, kind, action, artifact_path, params_json, created_at
		FROM edits WHERE session_id = ? ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &e.Kind, &e.Action, &e.ArtifactPath, &e.ParamsJSON, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	var createdAt string
	var closedAt sql.NullString

	err := row.Scan(&s.ID, &s.OriginalPath, &s.WorkingDir, &s.Status, &createdAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if closedAt.Valid {
		t, _ := time.Parse(time.RFC3339, closedAt.String)
		s.ClosedAt = &t
	}
	return &s, nil
}
