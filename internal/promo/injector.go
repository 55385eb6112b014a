// Package promo decides whether an outbound reply gets the VIP soft pitch
// appended, honoring opt-outs, a daily cap, and a cooldown computed from the
// delivery log.
package promo

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/bestielabs/bestie-platform/pkg/logging"
)

// PitchLine is the exact call-to-action appended to a reply. It only ever
// appears when the reply does not already link the program.
const PitchLine = "First week free, then $17/month. Cancel anytime."

// marketingToken identifies promotional content in past outbound messages.
const marketingToken = "gumroad.com"

var optOutRe = regexp.MustCompile(`(?i)stop( trying)? to sell|don['’]?t sell|no vip|quit pitching|stop pitching`)

var frictionWords = []string{
	"ugh", "frustrated", "frustrating", "annoyed", "overwhelmed", "confused",
	"doesn't work", "doesnt work", "not working", "help me", "i give up", "so tired of",
}

var momentumWords = []string{
	"what else", "more like this", "upgrade", "better one", "next step",
	"compare", "vs", "love it", "love this", "obsessed", "keep them coming",
}

// LogEntry is one outbound delivery-log row the injector inspects.
type LogEntry struct {
	Body      string
	CreatedAt time.Time
}

// DeliveryReader reads recent outbound messages for a conversation.
type DeliveryReader interface {
	RecentOutbound(ctx context.Context, conversationID int64, since time.Time) ([]LogEntry, error)
}

// Injector applies the soft-pitch decision function.
type Injector struct {
	reader   DeliveryReader
	enabled  bool
	dailyMax int
	cooldown time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

// NewInjector builds an injector over the delivery log.
func NewInjector(reader DeliveryReader, enabled bool, dailyMax int, cooldown time.Duration, logger *logging.Logger) *Injector {
	if reader == nil {
		panic("promo: delivery reader cannot be nil")
	}
	if dailyMax <= 0 {
		dailyMax = 2
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Injector{
		reader:   reader,
		enabled:  enabled,
		dailyMax: dailyMax,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// MaybeInject returns the reply, possibly with the pitch line appended. It
// must run before the output pipeline so chunking accounts for the extra
// text.
func (i *Injector) MaybeInject(ctx context.Context, reply string, conversationID int64, userText string) string {
	if i == nil || !i.enabled || strings.TrimSpace(reply) == "" {
		return reply
	}

	// Hard veto: the user told us to knock it off.
	if optOutRe.MatchString(userText) {
		return reply
	}

	now := i.now().UTC()
	entries, err := i.reader.RecentOutbound(ctx, conversationID, now.Add(-24*time.Hour))
	if err != nil {
		// Without the log we cannot enforce the cap, so we do not pitch.
		i.logger.Warn("promo frequency lookup failed, skipping pitch", "error", err, "conversation_id", conversationID)
		return reply
	}

	var mentions int
	var lastMention time.Time
	for _, e := range entries {
		lower := strings.ToLower(e.Body)
		if strings.Contains(lower, marketingToken) || strings.Contains(lower, "vip") {
			mentions++
			if e.CreatedAt.After(lastMention) {
				lastMention = e.CreatedAt
			}
		}
	}
	if mentions >= i.dailyMax {
		return reply
	}
	if !lastMention.IsZero() && now.Sub(lastMention) < i.cooldown {
		return reply
	}

	if !i.shouldTrigger(userText, reply) {
		return reply
	}
	if strings.Contains(strings.ToLower(reply), marketingToken) {
		return reply
	}
	return strings.TrimRight(reply, " \n") + "\n\n" + PitchLine
}

// shouldTrigger looks for friction or momentum language, or an explicit
// program mention, in the combined user+reply text.
func (i *Injector) shouldTrigger(userText, reply string) bool {
	combined := strings.ToLower(userText + " " + reply)
	if strings.Contains(combined, "vip") {
		return true
	}
	for _, w := range frictionWords {
		if strings.Contains(combined, w) {
			return true
		}
	}
	for _, w := range momentumWords {
		if strings.Contains(combined, w) {
			return true
		}
	}
	return false
}
