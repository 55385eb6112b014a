// Package entitlement decides whether a user may receive a substantive reply,
// based on their persisted subscription state.
package entitlement

import "time"

// Status enumerates plan states. The billing webhook collaborator owns every
// transition except the daily-counter rollover.
type Status string

const (
	StatusPending  Status = "pending"
	StatusTrial    Status = "trial"
	StatusIntro    Status = "intro"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
)

// Record is a per-user subscription snapshot.
type Record struct {
	UserID           int64
	BotName          string
	PlanStatus       Status
	TrialStartDate   *time.Time
	PlanRenewsAt     *time.Time
	DailyMsgsUsed    int
	DailyCounterDate *time.Time
}

// Decision is the gate's verdict for one inbound message.
type Decision struct {
	Allowed bool
	Reason  Status
}
