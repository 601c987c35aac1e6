// Package history persists chat sessions, their messages and generated
// reports. Postgres is the production backend, SQLite serves single-node
// deployments, and a Redis cache fronts recent-message reads.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNotFound is returned when a session, message or report does not exist.
var ErrNotFound = errors.New("not found")

// Session is one conversation thread.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single chat turn within a session.
type Message struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Report is a rendered summary generated from a session's history.
type Report struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Title     string    `json:"title"`
	Markdown  string    `json:"markdown"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence contract shared by the Postgres and SQLite
// backends.
type Store interface {
	CreateSession(ctx context.Context, title string) (*Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	ListSessions(ctx context.Context) ([]*Session, error)

	AppendMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*Message, error)

	SaveReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*Report, error)
	ListReports(ctx context.Context, sessionID uuid.UUID) ([]*Report, error)
}

// NewMessage builds a message with a fresh id and timestamp.
func NewMessage(sessionID uuid.UUID, role, content string) *Message {
	return &Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: nowUTC(),
	}
}

// Timestamps are stored in UTC; truncation keeps SQLite and Postgres
// round-trips comparable.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
