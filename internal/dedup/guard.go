// Package dedup provides a short-TTL distributed guard against sending the
// same outbound content twice in one conversation.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bestielabs/bestie-platform/pkg/logging"
)

const defaultTTL = 120 * time.Second

// Guard marks finalized outbound content in Redis with SET NX. A second
// identical send inside the TTL window is suppressed. On Redis failure the
// guard fails open: duplicates are cosmetic, a dropped reply is not.
type Guard struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	logger *logging.Logger
}

// NewGuard builds a guard around the provided Redis client.
func NewGuard(redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) *Guard {
	if redisClient == nil {
		panic("dedup: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Guard{
		redis:  redisClient,
		ttl:    ttl,
		tracer: otel.Tracer("bestie.internal.dedup"),
		logger: logger,
	}
}

// ShouldSend reports whether this exact content may be sent to the
// conversation right now. Call it immediately before the terminal send, after
// the output pipeline has finalized the body — not at job start.
func (g *Guard) ShouldSend(ctx context.Context, conversationID int64, content string) bool {
	if g == nil || g.redis == nil {
		return true
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := g.tracer.Start(ctx, "dedup.should_send")
	defer span.End()

	key := Key(conversationID, content)
	ok, err := g.redis.SetNX(ctx, key, 1, g.ttl).Result()
	if err != nil {
		span.RecordError(err)
		g.logger.Warn("dedup check failed, proceeding with send", "error", err, "conversation_id", conversationID)
		return true
	}
	if !ok {
		g.logger.Info("suppressing duplicate outbound content", "conversation_id", conversationID, "key", key)
	}
	return ok
}

// Key returns the Redis key guarding the given conversation/content pair.
func Key(conversationID int64, content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("dedup:out:%d:%s", conversationID, hex.EncodeToString(sum[:8]))
}
