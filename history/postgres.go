package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPool is the slice of the pgx pool the store needs. Declared as an
// interface so tests can substitute a mock pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store on a Postgres database.
type PostgresStore struct {
	pool DBPool
}

// NewPostgresStore connects a new pool to the given DSN.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool builds the store over an existing pool. Useful
// for testing with mocks.
func NewPostgresStoreWithPool(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InitSchema creates the session, message and report tables if needed.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS chat_sessions (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chat_messages (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES chat_sessions (id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			image_url TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chat_messages_session_id ON chat_messages (session_id);
		CREATE TABLE IF NOT EXISTS reports (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES chat_sessions (id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			markdown TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reports_session_id ON reports (session_id);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// CreateSession inserts a new session.
func (s *PostgresStore) CreateSession(ctx context.Context, title string) (*Session, error) {
	session := &Session{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: nowUTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_sessions (id, title, created_at) VALUES ($1, $2, $3)`,
		session.ID, session.Title, session.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession loads one session by id.
func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	var session Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, created_at FROM chat_sessions WHERE id = $1`, id,
	).Scan(&session.ID, &session.Title, &session.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

// ListSessions returns all sessions, newest first.
func (s *PostgresStore) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, created_at FROM chat_sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(&session.ID, &session.Title, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return sessions, nil
}

// AppendMessage inserts one chat turn.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *Message) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, image_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.ImageURL, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListMessages returns a session's messages in chronological order.
func (s *PostgresStore) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, role, content, image_url, created_at
		 FROM chat_messages WHERE session_id = $1 ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.ImageURL, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}

// SaveReport inserts a generated report.
func (s *PostgresStore) SaveReport(ctx context.Context, report *Report) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reports (id, session_id, title, markdown, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		report.ID, report.SessionID, report.Title, report.Markdown, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport loads one report by id.
func (s *PostgresStore) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	var report Report
	err := s.pool.QueryRow(ctx,
		`SELECT id, session_id, title, markdown, created_at FROM reports WHERE id = $1`, id,
	).Scan(&report.ID, &report.SessionID, &report.Title, &report.Markdown, &report.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return &report, nil
}

// ListReports returns a session's reports, newest first.
func (s *PostgresStore) ListReports(ctx context.Context, sessionID uuid.UUID) ([]*Report, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, title, markdown, created_at
		 FROM reports WHERE session_id = $1 ORDER BY created_at DESC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		var report Report
		if err := rows.Scan(&report.ID, &report.SessionID, &report.Title, &report.Markdown, &report.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}
	return reports, nil
}
