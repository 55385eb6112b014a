package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubStore struct {
	rec         *Record
	getErr      error
	rollovers   int
	rolloverErr error
}

func (s *stubStore) GetRecord(_ context.Context, _ int64) (*Record, error) {
	return s.rec, s.getErr
}

func (s *stubStore) RolloverDailyCounter(_ context.Context, _ int64) error {
	s.rollovers++
	return s.rolloverErr
}

func dateDaysAgo(now time.Time, days int) *time.Time {
	d := now.AddDate(0, 0, -days)
	return &d
}

func TestEvaluateTransitionTable(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		rec         *Record
		wantAllowed bool
		wantReason  Status
	}{
		{name: "no record is pending", rec: nil, wantAllowed: false, wantReason: StatusPending},
		{name: "pending denied", rec: &Record{PlanStatus: StatusPending}, wantAllowed: false, wantReason: StatusPending},
		{name: "canceled denied", rec: &Record{PlanStatus: StatusCanceled}, wantAllowed: false, wantReason: StatusCanceled},
		{name: "active always allowed", rec: &Record{PlanStatus: StatusActive, DailyMsgsUsed: 9999}, wantAllowed: true, wantReason: StatusActive},
		{name: "intro always allowed", rec: &Record{PlanStatus: StatusIntro, DailyMsgsUsed: 9999}, wantAllowed: true, wantReason: StatusIntro},
		{name: "trial inside window", rec: &Record{PlanStatus: StatusTrial, TrialStartDate: dateDaysAgo(now, 3)}, wantAllowed: true, wantReason: StatusTrial},
		{name: "trial at window boundary expires", rec: &Record{PlanStatus: StatusTrial, TrialStartDate: dateDaysAgo(now, 7)}, wantAllowed: false, wantReason: StatusExpired},
		{name: "trial without start date allowed", rec: &Record{PlanStatus: StatusTrial}, wantAllowed: true, wantReason: StatusTrial},
		{name: "unknown status denied as pending", rec: &Record{PlanStatus: Status("weird")}, wantAllowed: false, wantReason: StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{rec: tt.rec}
			gate := NewGate(store, 7, nil, withClock(func() time.Time { return now }))

			got := gate.Evaluate(context.Background(), 1, "+15551234567")
			assert.Equal(t, tt.wantAllowed, got.Allowed)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestEvaluateFailsClosedOnStorageError(t *testing.T) {
	store := &stubStore{getErr: errors.New("connection refused")}
	gate := NewGate(store, 7, nil)

	got := gate.Evaluate(context.Background(), 1, "")
	assert.False(t, got.Allowed)
	assert.Equal(t, StatusPending, got.Reason)
}

func TestEvaluateBypassPhoneExactMatchOnly(t *testing.T) {
	store := &stubStore{rec: &Record{PlanStatus: StatusPending}}
	gate := NewGate(store, 7, nil, WithBypassPhone("+15551234567"))

	assert.True(t, gate.Evaluate(context.Background(), 1, "(555) 123-4567").Allowed,
		"normalized forms of the bypass number must match")
	assert.False(t, gate.Evaluate(context.Background(), 1, "+155512345").Allowed,
		"prefix of the bypass number must not match")
	assert.False(t, gate.Evaluate(context.Background(), 1, "").Allowed)
}

func TestEvaluateBypassScopedToUnprovisionedDenials(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	const operator = "+15551234567"

	tests := []struct {
		name        string
		rec         *Record
		wantAllowed bool
		wantReason  Status
	}{
		{name: "pending overridden", rec: &Record{PlanStatus: StatusPending}, wantAllowed: true, wantReason: StatusActive},
		{name: "canceled overridden", rec: &Record{PlanStatus: StatusCanceled}, wantAllowed: true, wantReason: StatusActive},
		{name: "missing record overridden", rec: nil, wantAllowed: true, wantReason: StatusActive},
		{name: "expired trial stays denied", rec: &Record{PlanStatus: StatusTrial, TrialStartDate: dateDaysAgo(now, 10)}, wantAllowed: false, wantReason: StatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{rec: tt.rec}
			gate := NewGate(store, 7, nil, WithBypassPhone(operator), withClock(func() time.Time { return now }))

			got := gate.Evaluate(context.Background(), 1, operator)
			assert.Equal(t, tt.wantAllowed, got.Allowed)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestEvaluateBypassDoesNotSkipRollover(t *testing.T) {
	store := &stubStore{rec: &Record{PlanStatus: StatusActive}}
	gate := NewGate(store, 7, nil, WithBypassPhone("+15551234567"))

	got := gate.Evaluate(context.Background(), 1, "+15551234567")
	assert.True(t, got.Allowed)
	assert.Equal(t, StatusActive, got.Reason)
	assert.Equal(t, 1, store.rollovers, "the allow-list number still gets normal bookkeeping")
}

func TestEvaluateEnforcementDisabled(t *testing.T) {
	store := &stubStore{rec: &Record{PlanStatus: StatusCanceled}}
	gate := NewGate(store, 7, nil, WithEnforcement(false))

	got := gate.Evaluate(context.Background(), 1, "")
	assert.True(t, got.Allowed)
	assert.Zero(t, store.rollovers, "disabled gate must not touch the store")
}

func TestEvaluateRolloverFailureDoesNotChangeVerdict(t *testing.T) {
	store := &stubStore{
		rec:         &Record{PlanStatus: StatusActive},
		rolloverErr: errors.New("write timeout"),
	}
	gate := NewGate(store, 7, nil)

	assert.True(t, gate.Evaluate(context.Background(), 1, "").Allowed)
	assert.Equal(t, 1, store.rollovers)
}

func TestDenialMessagePerReason(t *testing.T) {
	gate := NewGate(&stubStore{}, 7, nil, WithCheckoutURL("https://bestie.gumroad.com/l/vip"))

	for _, reason := range []Status{StatusPending, StatusExpired, StatusCanceled} {
		msg := gate.DenialMessage(reason)
		assert.NotEmpty(t, msg)
		assert.Contains(t, msg, "https://bestie.gumroad.com/l/vip")
	}
	assert.NotEqual(t, gate.DenialMessage(StatusExpired), gate.DenialMessage(StatusPending))
}
