package reply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bestielabs/bestie-platform/internal/promo"
)

const (
	transcriptKeyPrefix = "outbound_log:"
	transcriptTTL       = 48 * time.Hour
)

type cachedEntry struct {
	Body      string    `json:"body"`
	Timestamp time.Time `json:"ts"`
}

// TranscriptCache keeps a TTL-bounded Redis list of recent outbound bodies
// per conversation so the promotion injector can check frequency without a
// database scan.
type TranscriptCache struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
}

// NewTranscriptCache wraps a Redis client; returns nil on a nil client so
// callers can treat the cache as optional.
func NewTranscriptCache(redisClient *redis.Client) *TranscriptCache {
	if redisClient == nil {
		return nil
	}
	return &TranscriptCache{
		redis:       redisClient,
		tracer:      otel.Tracer("bestie.internal.reply.transcript_cache"),
		maxMessages: 100,
	}
}

// Append records one sent body. Nil-safe: a missing cache is a no-op.
func (c *TranscriptCache) Append(ctx context.Context, conversationID int64, body string) error {
	if c == nil || c.redis == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := json.Marshal(cachedEntry{Body: body, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("reply: marshal transcript entry: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "reply.transcript_cache.append")
	defer span.End()

	key := transcriptKey(conversationID)
	pipe := c.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	if c.maxMessages > 0 {
		pipe.LTrim(ctx, key, -c.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("reply: append transcript entry: %w", err)
	}
	return nil
}

// Recent returns cached entries newer than since, oldest first.
func (c *TranscriptCache) Recent(ctx context.Context, conversationID int64, since time.Time) ([]promo.LogEntry, error) {
	if c == nil || c.redis == nil {
		return nil, errors.New("reply: transcript cache not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := c.tracer.Start(ctx, "reply.transcript_cache.recent")
	defer span.End()

	raw, err := c.redis.LRange(ctx, transcriptKey(conversationID), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("reply: read transcript cache: %w", err)
	}

	var out []promo.LogEntry
	for _, item := range raw {
		var entry cachedEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			span.RecordError(err)
			continue
		}
		if entry.Timestamp.Before(since) {
			continue
		}
		out = append(out, promo.LogEntry{Body: entry.Body, CreatedAt: entry.Timestamp})
	}
	return out, nil
}

func transcriptKey(conversationID int64) string {
	return fmt.Sprintf("%s%d", transcriptKeyPrefix, conversationID)
}

// LogReader serves the promotion injector: the Redis cache first, the
// durable delivery log when the cache is empty or unavailable.
type LogReader struct {
	cache *TranscriptCache
	log   *DeliveryLog
}

// NewLogReader combines the cache and the delivery log; either may be nil.
func NewLogReader(cache *TranscriptCache, log *DeliveryLog) *LogReader {
	return &LogReader{cache: cache, log: log}
}

// RecentOutbound implements promo.DeliveryReader.
func (r *LogReader) RecentOutbound(ctx context.Context, conversationID int64, since time.Time) ([]promo.LogEntry, error) {
	if r == nil {
		return nil, errors.New("reply: log reader not configured")
	}
	if r.cache != nil {
		entries, err := r.cache.Recent(ctx, conversationID, since)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
	}
	if r.log != nil {
		return r.log.RecentOutbound(ctx, conversationID, since)
	}
	return nil, errors.New("reply: no outbound log backend configured")
}
