package reply

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestielabs/bestie-platform/internal/compose"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func TestEnsureUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO users \(phone\)`).
		WithArgs("+15551234567").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := store.EnsureUser(context.Background(), "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestConversationCreatesLazily(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id FROM conversations`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO conversations`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := store.LatestConversation(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertInboundDuplicateIsNoOp(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO messages .*ON CONFLICT \(direction, external_id\) DO NOTHING`).
		WithArgs(int64(7), "SM123", "hi bestie").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(int64(7), "SM123", "hi bestie").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := store.InsertInbound(context.Background(), 7, "SM123", "hi bestie")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.InsertInbound(context.Background(), 7, "SM123", "hi bestie")
	require.NoError(t, err)
	assert.False(t, inserted, "redelivered webhook must not write a second row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertInboundRequiresExternalID(t *testing.T) {
	store, _ := newMockStore(t)

	_, err := store.InsertInbound(context.Background(), 7, "", "hi")
	assert.Error(t, err)
}

func TestHistoryChronologicalOrder(t *testing.T) {
	store, mock := newMockStore(t)

	// Query returns newest-first; History must flip to chronological.
	rows := pgxmock.NewRows([]string{"direction", "body"}).
		AddRow("out", "third").
		AddRow("in", "second").
		AddRow("out", "first")
	mock.ExpectQuery(`SELECT direction, body FROM messages`).
		WithArgs(int64(7), 20).
		WillReturnRows(rows)

	history, err := store.History(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, compose.ChatTurn{Role: compose.ChatRoleAssistant, Content: "first"}, history[0])
	assert.Equal(t, compose.ChatTurn{Role: compose.ChatRoleUser, Content: "second"}, history[1])
	assert.Equal(t, compose.ChatTurn{Role: compose.ChatRoleAssistant, Content: "third"}, history[2])
}

func TestMessageCount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM messages`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))

	n, err := store.MessageCount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
