package billing

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestielabs/bestie-platform/internal/entitlement"
	"github.com/bestielabs/bestie-platform/pkg/logging"
)

type stubPlanWriter struct {
	phones   []string
	statuses []entitlement.Status
	setErr   error
	promoted int64
}

func (s *stubPlanWriter) SetPlanStatusByPhone(ctx context.Context, phoneE164 string, status entitlement.Status) error {
	s.phones = append(s.phones, phoneE164)
	s.statuses = append(s.statuses, status)
	return s.setErr
}

func (s *stubPlanWriter) PromoteExpiredTrials(ctx context.Context, trialDays int) (int64, error) {
	return s.promoted, nil
}

func TestParseEventPhoneSources(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		phone  string
	}{
		{
			name:   "top level phone normalized",
			values: url.Values{"alert_name": {"sale"}, "phone": {"(555) 123-4567"}},
			phone:  "+15551234567",
		},
		{
			name:   "url params phone",
			values: url.Values{"alert_name": {"sale"}, "url_params[phone]": {"+15559876543"}},
			phone:  "+15559876543",
		},
		{
			name:   "custom fields phone",
			values: url.Values{"alert_name": {"sale"}, "custom_fields[phone]": {"5550001111"}},
			phone:  "+15550001111",
		},
		{
			name:   "no phone",
			values: url.Values{"alert_name": {"sale"}, "email": {"babe@example.com"}},
			phone:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := ParseEvent(tt.values)
			assert.Equal(t, EventSale, ev.Kind)
			assert.Equal(t, tt.phone, ev.Phone)
		})
	}
}

func TestApplyTransitions(t *testing.T) {
	tests := []struct {
		kind   EventKind
		status entitlement.Status
	}{
		{EventSale, entitlement.StatusTrial},
		{EventRecurringCharge, entitlement.StatusActive},
		{EventSubscriptionAlive, entitlement.StatusActive},
		{EventCancellation, entitlement.StatusCanceled},
		{EventSubscriptionEnded, entitlement.StatusCanceled},
		{EventRefund, entitlement.StatusCanceled},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			plans := &stubPlanWriter{}
			p := NewProcessor(plans, 7, logging.New("error"))

			err := p.Apply(context.Background(), Event{Kind: tt.kind, Phone: "+15551234567"})
			require.NoError(t, err)
			require.Len(t, plans.statuses, 1)
			assert.Equal(t, tt.status, plans.statuses[0])
			assert.Equal(t, "+15551234567", plans.phones[0])
		})
	}
}

func TestApplyUnknownEventIsAcknowledged(t *testing.T) {
	plans := &stubPlanWriter{}
	p := NewProcessor(plans, 7, logging.New("error"))

	err := p.Apply(context.Background(), Event{Kind: "dispute_opened", Phone: "+15551234567"})
	require.NoError(t, err)
	assert.Empty(t, plans.statuses, "unhandled events must not touch the plan")
}

func TestApplyMissingPhone(t *testing.T) {
	plans := &stubPlanWriter{}
	p := NewProcessor(plans, 7, logging.New("error"))

	err := p.Apply(context.Background(), Event{Kind: EventSale})
	assert.ErrorIs(t, err, ErrNoPhone)
}

func TestApplyStoreFailure(t *testing.T) {
	plans := &stubPlanWriter{setErr: errors.New("db down")}
	p := NewProcessor(plans, 7, logging.New("error"))

	err := p.Apply(context.Background(), Event{Kind: EventSale, Phone: "+15551234567"})
	assert.Error(t, err)
}

func TestRolloverExpiredTrials(t *testing.T) {
	plans := &stubPlanWriter{promoted: 3}
	p := NewProcessor(plans, 7, logging.New("error"))

	n, err := p.RolloverExpiredTrials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
