package history

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresTestStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStoreWithPool(mock), mock
}

func TestPostgresCreateSession(t *testing.T) {
	store, mock := newPostgresTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_sessions (id, title, created_at)")).
		WithArgs(pgxmock.AnyArg(), "wheat questions", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	session, err := store.CreateSession(context.Background(), "wheat questions")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Equal(t, "wheat questions", session.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSessionNotFound(t *testing.T) {
	store, mock := newPostgresTestStore(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, created_at FROM chat_sessions WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "created_at"}))

	_, err := store.GetSession(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendAndListMessages(t *testing.T) {
	store, mock := newPostgresTestStore(t)

	sessionID := uuid.New()
	msg := NewMessage(sessionID, RoleUser, "How do I treat wheat rust?")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_messages")).
		WithArgs(msg.ID, sessionID, RoleUser, msg.Content, "", msg.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.AppendMessage(context.Background(), msg))

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "session_id", "role", "content", "image_url", "created_at"}).
		AddRow(msg.ID, sessionID, RoleUser, msg.Content, "", now).
		AddRow(uuid.New(), sessionID, RoleAssistant, "Use a triazole fungicide.", "", now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM chat_messages WHERE session_id = $1 ORDER BY created_at ASC")).
		WithArgs(sessionID).
		WillReturnRows(rows)

	messages, err := store.ListMessages(context.Background(), sessionID)
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveAndGetReport(t *testing.T) {
	store, mock := newPostgresTestStore(t)

	report := &Report{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Title:     "Session summary",
		Markdown:  "## Findings\n- wheat rust confirmed",
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).
		WithArgs(report.ID, report.SessionID, report.Title, report.Markdown, report.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveReport(context.Background(), report))

	mock.ExpectQuery(regexp.QuoteMeta("FROM reports WHERE id = $1")).
		WithArgs(report.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "title", "markdown", "created_at"}).
			AddRow(report.ID, report.SessionID, report.Title, report.Markdown, report.CreatedAt))

	loaded, err := store.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Markdown, loaded.Markdown)
	assert.NoError(t, mock.ExpectationsWereMet())
}
