package reply

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bestielabs/bestie-platform/internal/promo"
)

// DeliveryLog is the append-only record of outbound chunks. It backs the
// promotion frequency checks and post-hoc delivery reconciliation.
type DeliveryLog struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewDeliveryLog wraps the database handle.
func NewDeliveryLog(db *sql.DB) *DeliveryLog {
	if db == nil {
		return nil
	}
	return &DeliveryLog{
		db:     db,
		tracer: otel.Tracer("bestie.internal.reply.delivery_log"),
	}
}

// InsertOutbound appends one sent chunk. external_id is fresh per chunk, so
// the uniqueness constraint never fires on this path.
func (l *DeliveryLog) InsertOutbound(ctx context.Context, conversationID int64, externalID, body string) error {
	if l == nil || l.db == nil {
		return errors.New("reply: delivery log not configured")
	}

	ctx, span := l.tracer.Start(ctx, "reply.delivery_log.insert")
	defer span.End()

	query := `
		INSERT INTO messages (conversation_id, direction, external_id, body)
		VALUES ($1, 'out', $2, $3)
		ON CONFLICT (direction, external_id) DO NOTHING
	`
	if _, err := l.db.ExecContext(ctx, query, conversationID, externalID, body); err != nil {
		span.RecordError(err)
		return fmt.Errorf("reply: insert outbound message: %w", err)
	}
	return nil
}

// RecentOutbound lists outbound entries newer than since, oldest first.
func (l *DeliveryLog) RecentOutbound(ctx context.Context, conversationID int64, since time.Time) ([]promo.LogEntry, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("reply: delivery log not configured")
	}

	ctx, span := l.tracer.Start(ctx, "reply.delivery_log.recent")
	defer span.End()

	rows, err := l.db.QueryContext(ctx, `
		SELECT body, created_at FROM messages
		WHERE conversation_id = $1 AND direction = 'out' AND created_at >= $2
		ORDER BY created_at ASC
	`, conversationID, since)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reply: list recent outbound: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []promo.LogEntry
	for rows.Next() {
		var e promo.LogEntry
		if err := rows.Scan(&e.Body, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("reply: scan outbound row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reply: iterate outbound rows: %w", err)
	}
	return out, nil
}

// StaleConversation identifies a conversation eligible for a re-engagement
// nudge.
type StaleConversation struct {
	ConversationID int64
	UserID         int64
	Phone          string
}

// StaleConversations finds subscribed conversations whose latest message is
// older than the cutoff.
func (l *DeliveryLog) StaleConversations(ctx context.Context, olderThan time.Duration, limit int) ([]StaleConversation, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("reply: delivery log not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	cutoff := time.Now().UTC().Add(-olderThan)

	rows, err := l.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, u.phone
		FROM conversations c
		JOIN users u ON u.id = c.user_id
		JOIN user_profiles p ON p.user_id = c.user_id
		WHERE p.plan_status IN ('trial', 'intro', 'active')
		GROUP BY c.id, c.user_id, u.phone
		HAVING COALESCE((SELECT MAX(m.created_at) FROM messages m WHERE m.conversation_id = c.id), 'epoch') < $1
		ORDER BY c.id
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("reply: list stale conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StaleConversation
	for rows.Next() {
		var sc StaleConversation
		if err := rows.Scan(&sc.ConversationID, &sc.UserID, &sc.Phone); err != nil {
			return nil, fmt.Errorf("reply: scan stale conversation: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reply: iterate stale conversations: %w", err)
	}
	return out, nil
}
