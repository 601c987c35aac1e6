package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSqliteTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	store, err := NewSqliteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSqliteSessionRoundTrip(t *testing.T) {
	t.Parallel()

	store := newSqliteTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "soil health")
	require.NoError(t, err)

	loaded, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, "soil health", loaded.Title)

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	_, err = store.GetSession(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSqliteMessagesChronological(t *testing.T) {
	t.Parallel()

	store := newSqliteTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "pests")
	require.NoError(t, err)

	first := NewMessage(session.ID, RoleUser, "aphids on my beans")
	second := NewMessage(session.ID, RoleAssistant, "introduce ladybirds or use neem oil")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, store.AppendMessage(ctx, first))
	require.NoError(t, store.AppendMessage(ctx, second))

	messages, err := store.ListMessages(ctx, session.ID)
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, "aphids on my beans", messages[0].Content)
	assert.Equal(t, RoleAssistant, messages[1].Role)
}

func TestSqliteReportRoundTrip(t *testing.T) {
	t.Parallel()

	store := newSqliteTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "harvest planning")
	require.NoError(t, err)

	report := &Report{
		ID:        uuid.New(),
		SessionID: session.ID,
		Title:     "Harvest report",
		Markdown:  "## Plan\n- harvest week 34",
		CreatedAt: nowUTC(),
	}
	require.NoError(t, store.SaveReport(ctx, report))

	loaded, err := store.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Markdown, loaded.Markdown)

	reports, err := store.ListReports(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}
