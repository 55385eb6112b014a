// Package billing applies subscription-provider webhook events to the
// persisted plan state. It owns every plan_status transition except the
// entitlement gate's daily-counter rollover.
package billing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bestielabs/bestie-platform/internal/entitlement"
	"github.com/bestielabs/bestie-platform/internal/phone"
	"github.com/bestielabs/bestie-platform/pkg/logging"
)

// EventKind is the provider's alert name.
type EventKind string

const (
	EventSale              EventKind = "sale"
	EventRecurringCharge   EventKind = "recurring_charge"
	EventSubscriptionAlive EventKind = "subscription_restarted"
	EventCancellation      EventKind = "cancellation"
	EventSubscriptionEnded EventKind = "subscription_ended"
	EventRefund            EventKind = "refund"
)

// Event is one parsed billing webhook delivery.
type Event struct {
	Kind  EventKind
	Phone string
	Email string
}

// ErrNoPhone indicates the event carried no phone number to key the plan
// update on.
var ErrNoPhone = errors.New("billing: event has no phone number")

// ParseEvent decodes a form-encoded provider POST. The phone rides either a
// top-level field or the checkout URL params the bot links include.
func ParseEvent(values url.Values) Event {
	ev := Event{
		Kind:  EventKind(strings.TrimSpace(values.Get("alert_name"))),
		Email: strings.TrimSpace(values.Get("email")),
	}
	for _, key := range []string{"phone", "url_params[phone]", "custom_fields[phone]"} {
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			ev.Phone = phone.Normalize(v)
			break
		}
	}
	return ev
}

// PlanWriter is the subset of the entitlement store billing needs.
type PlanWriter interface {
	SetPlanStatusByPhone(ctx context.Context, phoneE164 string, status entitlement.Status) error
	PromoteExpiredTrials(ctx context.Context, trialDays int) (int64, error)
}

// Processor maps provider events onto plan_status transitions.
type Processor struct {
	plans     PlanWriter
	trialDays int
	logger    *logging.Logger
}

// NewProcessor builds a processor over the plan store.
func NewProcessor(plans PlanWriter, trialDays int, logger *logging.Logger) *Processor {
	if plans == nil {
		panic("billing: plan writer cannot be nil")
	}
	if trialDays <= 0 {
		trialDays = 7
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{plans: plans, trialDays: trialDays, logger: logger}
}

// Apply performs the plan transition for one event. Unknown event kinds are
// acknowledged and dropped so the provider does not redeliver them forever.
func (p *Processor) Apply(ctx context.Context, ev Event) error {
	status, ok := statusFor(ev.Kind)
	if !ok {
		p.logger.Info("billing: ignoring unhandled event", "kind", string(ev.Kind), "email", ev.Email)
		return nil
	}
	if ev.Phone == "" {
		return ErrNoPhone
	}

	if err := p.plans.SetPlanStatusByPhone(ctx, ev.Phone, status); err != nil {
		return fmt.Errorf("billing: apply %s: %w", ev.Kind, err)
	}
	p.logger.Info("billing: plan updated", "kind", string(ev.Kind), "status", string(status))
	return nil
}

// statusFor is the event-to-plan transition table. A fresh sale opens the
// free week; a charge or restart confirms a paying subscriber.
func statusFor(kind EventKind) (entitlement.Status, bool) {
	switch kind {
	case EventSale:
		return entitlement.StatusTrial, true
	case EventRecurringCharge, EventSubscriptionAlive:
		return entitlement.StatusActive, true
	case EventCancellation, EventSubscriptionEnded, EventRefund:
		return entitlement.StatusCanceled, true
	default:
		return "", false
	}
}

// RolloverExpiredTrials promotes trials older than the trial window to
// active. The first post-trial charge is the provider's job; this keeps the
// gate from paywalling a subscriber whose charge event is still in flight.
func (p *Processor) RolloverExpiredTrials(ctx context.Context) (int64, error) {
	n, err := p.plans.PromoteExpiredTrials(ctx, p.trialDays)
	if err != nil {
		return 0, fmt.Errorf("billing: promote expired trials: %w", err)
	}
	if n > 0 {
		p.logger.Info("billing: trials promoted", "count", n)
	}
	return n, nil
}
