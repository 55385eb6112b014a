package reply

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bestielabs/bestie-platform/internal/compose"
)

// PgxPool is the subset of pgxpool.Pool the store depends on.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists users, conversations, and inbound messages in Postgres.
// Outbound rows are owned by the DeliveryLog.
type Store struct {
	pool PgxPool
}

// NewStore wraps a pgx pool.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// EnsureUser returns the user ID for a phone number, creating the row on
// first contact. The no-op DO UPDATE makes RETURNING work for existing rows.
func (s *Store) EnsureUser(ctx context.Context, phoneE164 string) (int64, error) {
	if phoneE164 == "" {
		return 0, errors.New("reply: phone required")
	}
	query := `
		INSERT INTO users (phone)
		VALUES ($1)
		ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING id
	`
	var id int64
	if err := s.pool.QueryRow(ctx, query, phoneE164).Scan(&id); err != nil {
		return 0, fmt.Errorf("reply: ensure user: %w", err)
	}
	return id, nil
}

// LatestConversation returns the most-recently-created conversation for a
// user, creating one lazily when none exists.
func (s *Store) LatestConversation(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM conversations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("reply: latest conversation: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO conversations (user_id) VALUES ($1) RETURNING id
	`, userID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("reply: create conversation: %w", err)
	}
	return id, nil
}

// InsertInbound stores an inbound message. The (direction, external_id)
// unique constraint turns webhook re-deliveries into no-ops; the return value
// reports whether a row was actually written.
func (s *Store) InsertInbound(ctx context.Context, conversationID int64, externalID, body string) (bool, error) {
	if externalID == "" {
		return false, errors.New("reply: external id required")
	}
	query := `
		INSERT INTO messages (conversation_id, direction, external_id, body)
		VALUES ($1, 'in', $2, $3)
		ON CONFLICT (direction, external_id) DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, query, conversationID, externalID, body)
	if err != nil {
		return false, fmt.Errorf("reply: insert inbound message: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MessageCount returns the total number of messages in a conversation,
// including the inbound message that triggered the current job.
func (s *Store) MessageCount(ctx context.Context, conversationID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE conversation_id = $1
	`, conversationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("reply: message count: %w", err)
	}
	return n, nil
}

// History returns the most recent turns in chronological order for
// generation context.
func (s *Store) History(ctx context.Context, conversationID int64, limit int) ([]compose.ChatTurn, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT direction, body FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("reply: load history: %w", err)
	}
	defer rows.Close()

	var reversed []compose.ChatTurn
	for rows.Next() {
		var direction, body string
		if err := rows.Scan(&direction, &body); err != nil {
			return nil, fmt.Errorf("reply: scan history row: %w", err)
		}
		role := compose.ChatRoleUser
		if direction == "out" {
			role = compose.ChatRoleAssistant
		}
		reversed = append(reversed, compose.ChatTurn{Role: role, Content: body})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reply: iterate history: %w", err)
	}

	out := make([]compose.ChatTurn, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		out = append(out, reversed[i])
	}
	return out, nil
}
