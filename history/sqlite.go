package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore implements Store on a local SQLite database, for single-node
// deployments and development.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	store := &SqliteStore{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SqliteStore) initSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES chat_sessions (id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			image_url TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chat_messages_session_id ON chat_messages (session_id);
		CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES chat_sessions (id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			markdown TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reports_session_id ON reports (session_id);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session.
func (s *SqliteStore) CreateSession(ctx context.Context, title string) (*Session, error) {
	session := &Session{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: nowUTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, title, created_at) VALUES (?, ?, ?)`,
		session.ID.String(), session.Title, session.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession loads one session by id.
func (s *SqliteStore) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	var session Session
	var rawID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at FROM chat_sessions WHERE id = ?`, id.String(),
	).Scan(&rawID, &session.Title, &session.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	session.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", rawID, err)
	}
	return &session, nil
}

// ListSessions returns all sessions, newest first.
func (s *SqliteStore) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at FROM chat_sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var session Session
		var rawID string
		if err := rows.Scan(&rawID, &session.Title, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		session.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", rawID, err)
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// AppendMessage inserts one chat turn.
func (s *SqliteStore) AppendMessage(ctx context.Context, msg *Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID.String(), msg.SessionID.String(), msg.Role, msg.Content, msg.ImageURL, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListMessages returns a session's messages in chronological order.
func (s *SqliteStore) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, image_url, created_at
		 FROM chat_messages WHERE session_id = ? ORDER BY created_at ASC`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var rawID, rawSessionID string
		if err := rows.Scan(&rawID, &rawSessionID, &msg.Role, &msg.Content, &msg.ImageURL, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if msg.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("invalid message id %q: %w", rawID, err)
		}
		if msg.SessionID, err = uuid.Parse(rawSessionID); err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", rawSessionID, err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// SaveReport inserts a generated report.
func (s *SqliteStore) SaveReport(ctx context.Context, report *Report) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, session_id, title, markdown, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		report.ID.String(), report.SessionID.String(), report.Title, report.Markdown, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport loads one report by id.
func (s *SqliteStore) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	var report Report
	var rawID, rawSessionID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, title, markdown, created_at FROM reports WHERE id = ?`, id.String(),
	).Scan(&rawID, &rawSessionID, &report.Title, &report.Markdown, &report.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if report.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("invalid report id %q: %w", rawID, err)
	}
	if report.SessionID, err = uuid.Parse(rawSessionID); err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", rawSessionID, err)
	}
	return &report, nil
}

// ListReports returns a session's reports, newest first.
func (s *SqliteStore) ListReports(ctx context.Context, sessionID uuid.UUID) ([]*Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, title, markdown, created_at
		 FROM reports WHERE session_id = ? ORDER BY created_at DESC`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		var report Report
		var rawID, rawSessionID string
		if err := rows.Scan(&rawID, &rawSessionID, &report.Title, &report.Markdown, &report.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		if report.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("invalid report id %q: %w", rawID, err)
		}
		if report.SessionID, err = uuid.Parse(rawSessionID); err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", rawSessionID, err)
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}
