package entitlement

import (
	"context"
	"time"

	"github.com/bestielabs/bestie-platform/internal/phone"
	"github.com/bestielabs/bestie-platform/pkg/logging"
)

type recordStore interface {
	GetRecord(ctx context.Context, userID int64) (*Record, error)
	RolloverDailyCounter(ctx context.Context, userID int64) error
}

// Gate evaluates whether a user may receive a substantive reply.
type Gate struct {
	store       recordStore
	trialDays   int
	enforce     bool
	bypassPhone string
	checkoutURL string
	logger      *logging.Logger
	now         func() time.Time
}

// GateOption customizes gate behavior.
type GateOption func(*Gate)

// WithBypassPhone allow-lists one operator phone number. Matching is by exact
// normalized E.164 comparison, never substring.
func WithBypassPhone(p string) GateOption {
	return func(g *Gate) { g.bypassPhone = p }
}

// WithEnforcement toggles gating entirely; disabled environments answer
// everyone as active.
func WithEnforcement(on bool) GateOption {
	return func(g *Gate) { g.enforce = on }
}

// WithCheckoutURL sets the signup link woven into denial messages.
func WithCheckoutURL(url string) GateOption {
	return func(g *Gate) { g.checkoutURL = url }
}

func withClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// NewGate builds a gate over the entitlement store.
func NewGate(store recordStore, trialDays int, logger *logging.Logger, opts ...GateOption) *Gate {
	if store == nil {
		panic("entitlement: store cannot be nil")
	}
	if trialDays <= 0 {
		trialDays = 7
	}
	if logger == nil {
		logger = logging.Default()
	}
	g := &Gate{
		store:     store,
		trialDays: trialDays,
		enforce:   true,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate loads the user's entitlement record, performs the idempotent
// daily-counter rollover, and applies the plan-status transition table.
// Storage failures deny with reason pending: monetization gating fails
// closed, unlike the dedup guard.
func (g *Gate) Evaluate(ctx context.Context, userID int64, userPhone string) Decision {
	if !g.enforce {
		return Decision{Allowed: true, Reason: StatusActive}
	}

	dec := g.evaluateRecord(ctx, userID)
	if !dec.Allowed && g.bypassAllows(dec.Reason, userPhone) {
		return Decision{Allowed: true, Reason: StatusActive}
	}
	return dec
}

// bypassAllows overrides pending and canceled denials for the operator
// allow-list number. An elapsed trial stays denied: the bypass exists to
// reach unprovisioned accounts, not to waive expiry.
func (g *Gate) bypassAllows(reason Status, userPhone string) bool {
	if g.bypassPhone == "" {
		return false
	}
	if reason != StatusPending && reason != StatusCanceled {
		return false
	}
	return phone.Equal(userPhone, g.bypassPhone)
}

func (g *Gate) evaluateRecord(ctx context.Context, userID int64) Decision {
	rec, err := g.store.GetRecord(ctx, userID)
	if err != nil {
		g.logger.Error("entitlement lookup failed, denying", "error", err, "user_id", userID)
		return Decision{Allowed: false, Reason: StatusPending}
	}
	if rec == nil {
		return Decision{Allowed: false, Reason: StatusPending}
	}

	if err := g.store.RolloverDailyCounter(ctx, userID); err != nil {
		// The reset is bookkeeping; a failed write does not change the verdict.
		g.logger.Warn("daily counter rollover failed", "error", err, "user_id", userID)
	}

	switch rec.PlanStatus {
	case StatusActive, StatusIntro:
		return Decision{Allowed: true, Reason: rec.PlanStatus}
	case StatusTrial:
		if rec.TrialStartDate == nil {
			// Billing stamps the start date asynchronously; until then the
			// trial window cannot have elapsed.
			return Decision{Allowed: true, Reason: StatusTrial}
		}
		if g.now().UTC().Sub(rec.TrialStartDate.UTC()) >= time.Duration(g.trialDays)*24*time.Hour {
			return Decision{Allowed: false, Reason: StatusExpired}
		}
		return Decision{Allowed: true, Reason: StatusTrial}
	case StatusPending, StatusCanceled, StatusExpired:
		return Decision{Allowed: false, Reason: rec.PlanStatus}
	default:
		return Decision{Allowed: false, Reason: StatusPending}
	}
}

// DenialMessage is the user-visible paywall copy for a denied reason.
func (g *Gate) DenialMessage(reason Status) string {
	link := g.checkoutURL
	if link != "" {
		link = " " + link
	}
	switch reason {
	case StatusExpired:
		return "Your free week just wrapped! Keep me in your pocket for $17/month — cancel anytime." + link
	case StatusCanceled:
		return "We broke up but I still think about you. Restart anytime — $17/month, cancel whenever." + link
	default:
		return "Hey babe! Finish signing up to unlock me — first week's free, then $17/month. Cancel anytime." + link
	}
}
