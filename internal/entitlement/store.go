package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store depends on.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists entitlement records in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// GetRecord loads the entitlement snapshot for a user. A missing profile
// returns (nil, nil); the gate treats that as pending.
func (s *Store) GetRecord(ctx context.Context, userID int64) (*Record, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("entitlement: store not configured")
	}
	query := `
		SELECT user_id, COALESCE(bot_name, ''), plan_status,
			trial_start_date, plan_renews_at, daily_msgs_used, daily_counter_date
		FROM user_profiles
		WHERE user_id = $1
	`
	var rec Record
	var status string
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&rec.UserID, &rec.BotName, &status,
		&rec.TrialStartDate, &rec.PlanRenewsAt, &rec.DailyMsgsUsed, &rec.DailyCounterDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("entitlement: load record: %w", err)
	}
	rec.PlanStatus = Status(status)
	return &rec, nil
}

// EnsureProfile creates an empty pending profile if none exists.
func (s *Store) EnsureProfile(ctx context.Context, userID int64) error {
	query := `
		INSERT INTO user_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("entitlement: ensure profile: %w", err)
	}
	return nil
}

// RolloverDailyCounter resets the daily usage counter once per UTC calendar
// day. The WHERE clause makes concurrent rollovers for the same user
// idempotent: a second job observing an already-current date updates nothing.
func (s *Store) RolloverDailyCounter(ctx context.Context, userID int64) error {
	query := `
		UPDATE user_profiles
		SET daily_msgs_used = 0, daily_counter_date = CURRENT_DATE, updated_at = now()
		WHERE user_id = $1
		  AND (daily_counter_date IS NULL OR daily_counter_date <> CURRENT_DATE)
	`
	if _, err := s.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("entitlement: rollover daily counter: %w", err)
	}
	return nil
}

// IncrementDailyUsed bumps the per-day message counter after a reply is sent.
func (s *Store) IncrementDailyUsed(ctx context.Context, userID int64) error {
	query := `
		UPDATE user_profiles
		SET daily_msgs_used = daily_msgs_used + 1, updated_at = now()
		WHERE user_id = $1
	`
	if _, err := s.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("entitlement: increment daily used: %w", err)
	}
	return nil
}

// SetPlanStatusByPhone applies a billing-webhook transition keyed by the
// buyer's phone number. Starting a trial stamps trial_start_date once.
func (s *Store) SetPlanStatusByPhone(ctx context.Context, phoneE164 string, status Status) error {
	phoneE164 = strings.TrimSpace(phoneE164)
	if phoneE164 == "" {
		return errors.New("entitlement: phone required")
	}
	query := `
		UPDATE user_profiles p
		SET plan_status = $2,
			trial_start_date = CASE
				WHEN $2 = 'trial' AND p.trial_start_date IS NULL THEN CURRENT_DATE
				ELSE p.trial_start_date
			END,
			updated_at = now()
		FROM users u
		WHERE u.id = p.user_id AND u.phone = $1
	`
	tag, err := s.pool.Exec(ctx, query, phoneE164, string(status))
	if err != nil {
		return fmt.Errorf("entitlement: set plan status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entitlement: no profile for phone %s", phoneE164)
	}
	return nil
}

// PromoteExpiredTrials flips trials older than the window to active. The
// billing collaborator cancels the ones that did not convert, so the gate
// keeps answering in the meantime.
func (s *Store) PromoteExpiredTrials(ctx context.Context, trialDays int) (int64, error) {
	query := `
		UPDATE user_profiles
		SET plan_status = 'active', updated_at = now()
		WHERE plan_status = 'trial'
		  AND trial_start_date IS NOT NULL
		  AND trial_start_date <= CURRENT_DATE - $1::int
	`
	tag, err := s.pool.Exec(ctx, query, trialDays)
	if err != nil {
		return 0, fmt.Errorf("entitlement: promote expired trials: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetBotName persists the user's chosen display name for the bot.
func (s *Store) SetBotName(ctx context.Context, userID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("entitlement: bot name required")
	}
	query := `
		INSERT INTO user_profiles (user_id, bot_name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET bot_name = EXCLUDED.bot_name, updated_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, userID, name); err != nil {
		return fmt.Errorf("entitlement: set bot name: %w", err)
	}
	return nil
}
