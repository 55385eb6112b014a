package reply

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDeliveryLog(t *testing.T) (*DeliveryLog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDeliveryLog(db), mock
}

func TestInsertOutbound(t *testing.T) {
	log, mock := newMockDeliveryLog(t)

	mock.ExpectExec(`INSERT INTO messages .*'out'.*ON CONFLICT \(direction, external_id\) DO NOTHING`).
		WithArgs(int64(7), "ext-1", "[1/2] hey babe").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, log.InsertOutbound(context.Background(), 7, "ext-1", "[1/2] hey babe"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentOutbound(t *testing.T) {
	log, mock := newMockDeliveryLog(t)

	since := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"body", "created_at"}).
		AddRow("older pitch", since.Add(time.Hour)).
		AddRow("newer pitch", since.Add(2*time.Hour))

	mock.ExpectQuery(`SELECT body, created_at FROM messages`).
		WithArgs(int64(7), since).
		WillReturnRows(rows)

	entries, err := log.RecentOutbound(context.Background(), 7, since)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "older pitch", entries[0].Body)
	assert.True(t, entries[0].CreatedAt.Before(entries[1].CreatedAt), "oldest first")
}

func TestStaleConversations(t *testing.T) {
	log, mock := newMockDeliveryLog(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "phone"}).
		AddRow(int64(7), int64(42), "+15551234567")

	mock.ExpectQuery(`SELECT c\.id, c\.user_id, u\.phone`).
		WithArgs(sqlmock.AnyArg(), 10).
		WillReturnRows(rows)

	stale, err := log.StaleConversations(context.Background(), 48*time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, StaleConversation{ConversationID: 7, UserID: 42, Phone: "+15551234567"}, stale[0])
}

func TestDeliveryLogNilHandle(t *testing.T) {
	var log *DeliveryLog
	assert.Error(t, log.InsertOutbound(context.Background(), 1, "x", "y"))
	_, err := log.RecentOutbound(context.Background(), 1, time.Now())
	assert.Error(t, err)
}
