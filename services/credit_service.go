package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"jastalkAPI/internal/types/catalog"
	"jastalkAPI/internal/types/subscription"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Minutes granted on the free tier when a user first signs up.
const StarterGrantMinutes = 10

var (
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrUnknownPackage       = errors.New("unknown credit package")
	ErrInvalidElapsed       = errors.New("elapsed seconds must not be negative")
	ErrDuplicateEvent       = errors.New("payment event already processed")
	ErrConflict             = errors.New("subscription changed concurrently")
)

type CreditService struct {
	db *pgxpool.Pool
}

func NewCreditService(db *pgxpool.Pool) *CreditService {
	return &CreditService{db: db}
}

// AggregateBalance folds a set of active subscription rows into one effective
// balance. The primary row is the newest row of the best tier; with no rows
// the balance is zero on the free tier.
func AggregateBalance(rows []*subscription.Subscription) *subscription.Balance {
	balance := &subscription.Balance{Tier: subscription.TierFree}

	for _, row := range rows {
		balance.TotalMinutesRemaining += row.InterviewTimeRemaining
		balance.TotalMinutesGranted += row.InterviewTimeTotal
		if row.Tier == subscription.TierPro {
			balance.Tier = subscription.TierPro
		}
	}

	for _, row := range rows {
		if row.Tier != balance.Tier {
			continue
		}
		if balance.Primary == nil || row.CreatedAt.After(balance.Primary.CreatedAt) {
			balance.Primary = row
		}
	}
	if balance.Primary == nil && len(rows) > 0 {
		balance.Primary = rows[0]
	}

	return balance
}

// applyElapsed is the ledger arithmetic: accumulated leftover seconds plus the
// new elapsed time roll over into whole minutes, and the remaining balance is
// clamped at zero. The leftover counter still rolls over when the balance is
// already exhausted.
//
// The SQL in deductFromRow encodes the same rule so the update stays a single
// conditional statement; any change here must be mirrored there.
func applyElapsed(remaining, leftover, elapsed int) (newRemaining, newLeftover, deducted int) {
	combined := leftover + elapsed
	minutes := combined / 60
	newLeftover = combined % 60

	newRemaining = remaining - minutes
	deducted = minutes
	if newRemaining < 0 {
		deducted = remaining
		newRemaining = 0
	}
	return newRemaining, newLeftover, deducted
}

func (s *CreditService) listActive(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	query := `
	SELECT id, user_id, tier, status, interview_time_remaining, interview_time_total, leftover_seconds, created_at, updated_at
	FROM subscriptions
	WHERE user_id = $1 AND status = 'active'
	ORDER BY CASE tier WHEN 'pro' THEN 0 ELSE 1 END, created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		sub := &subscription.Subscription{}
		err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.Tier,
			&sub.Status,
			&sub.InterviewTimeRemaining,
			&sub.InterviewTimeTotal,
			&sub.LeftoverSeconds,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subscriptions: %w", err)
	}

	return subs, nil
}

// GetBalance returns the aggregated balance across all active rows. Read-only.
func (s *CreditService) GetBalance(ctx context.Context, userID string) (*subscription.Balance, error) {
	subs, err := s.listActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return AggregateBalance(subs), nil
}

// DeductUsage charges elapsedSeconds against the user's primary active row.
// The update is a single conditional statement so a racing purchase or second
// deduction cannot produce a lost update; on a conflict the aggregate-then-
// deduct sequence is retried once before giving up.
func (s *CreditService) DeductUsage(ctx context.Context, userID string, elapsedSeconds int) (*subscription.DeductionResult, error) {
	if elapsedSeconds < 0 {
		return nil, ErrInvalidElapsed
	}

	for attempt := 0; attempt < 2; attempt++ {
		balance, err := s.GetBalance(ctx, userID)
		if err != nil {
			return nil, err
		}
		if balance.Primary == nil {
			return nil, ErrNoActiveSubscription
		}

		result, err := s.deductFromRow(ctx, balance.Primary.ID, elapsedSeconds)
		if errors.Is(err, ErrConflict) {
			log.Printf("DeductUsage: subscription %s changed under us, retrying (attempt %d)", balance.Primary.ID, attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	return nil, ErrConflict
}

// deductFromRow is the SQL twin of applyElapsed; keep the two in sync.
func (s *CreditService) deductFromRow(ctx context.Context, subscriptionID string, elapsedSeconds int) (*subscription.DeductionResult, error) {
	query := `
	WITH prior AS (
		SELECT id, interview_time_remaining, leftover_seconds
		FROM subscriptions
		WHERE id = $1 AND status = 'active'
		FOR UPDATE
	)
	UPDATE subscriptions s
	SET interview_time_remaining = GREATEST(0, p.interview_time_remaining - (p.leftover_seconds + $2) / 60),
	    leftover_seconds = (p.leftover_seconds + $2) % 60,
	    updated_at = NOW()
	FROM prior p
	WHERE s.id = p.id
	RETURNING p.interview_time_remaining, s.interview_time_remaining, s.leftover_seconds
	`

	var priorRemaining int
	result := &subscription.DeductionResult{}
	err := s.db.QueryRow(ctx, query, subscriptionID, elapsedSeconds).Scan(
		&priorRemaining,
		&result.MinutesRemaining,
		&result.LeftoverSeconds,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to deduct usage: %w", err)
	}

	result.MinutesDeducted = priorRemaining - result.MinutesRemaining
	result.Exhausted = result.MinutesRemaining == 0
	return result, nil
}

// FulfillPurchase credits a paid package to the user. It is keyed on the
// payment provider's event id: a replayed event is detected inside the same
// transaction and applies nothing. Tops up the primary active row, or creates
// a fresh pro row when the user has none.
func (s *CreditService) FulfillPurchase(ctx context.Context, userID, packageID, eventID string) (*subscription.Subscription, error) {
	pkg, ok := catalog.Find(packageID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, packageID)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO processed_payment_events (event_id, user_id, package_id, minutes, amount_cents, processed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, userID, pkg.ID, pkg.Minutes, pkg.PriceCents)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEvent, eventID)
	}

	sub := &subscription.Subscription{}
	topUp := `
	UPDATE subscriptions
	SET interview_time_remaining = interview_time_remaining + $2,
	    interview_time_total = interview_time_total + $2,
	    updated_at = NOW()
	WHERE id = (
		SELECT id FROM subscriptions
		WHERE user_id = $1 AND status = 'active'
		ORDER BY CASE tier WHEN 'pro' THEN 0 ELSE 1 END, created_at DESC
		LIMIT 1
	)
	RETURNING id, user_id, tier, status, interview_time_remaining, interview_time_total, leftover_seconds, created_at, updated_at
	`
	err = tx.QueryRow(ctx, topUp, userID, pkg.Minutes).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Tier,
		&sub.Status,
		&sub.InterviewTimeRemaining,
		&sub.InterviewTimeTotal,
		&sub.LeftoverSeconds,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		insert := `
		INSERT INTO subscriptions (id, user_id, tier, status, interview_time_remaining, interview_time_total, leftover_seconds, created_at, updated_at)
		VALUES ($1, $2, 'pro', 'active', $3, $3, 0, NOW(), NOW())
		RETURNING id, user_id, tier, status, interview_time_remaining, interview_time_total, leftover_seconds, created_at, updated_at
		`
		err = tx.QueryRow(ctx, insert, uuid.New().String(), userID, pkg.Minutes).Scan(
			&sub.ID,
			&sub.UserID,
			&sub.Tier,
			&sub.Status,
			&sub.InterviewTimeRemaining,
			&sub.InterviewTimeTotal,
			&sub.LeftoverSeconds,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply purchase: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase: %w", err)
	}

	log.Printf("Fulfilled purchase: user=%s package=%s minutes=%d event=%s", userID, pkg.ID, pkg.Minutes, eventID)
	return sub, nil
}

// GrantStarterMinutes creates the initial free-tier row for a new user. A
// conditional insert keeps it to one active row even if the signup webhook is
// redelivered.
func (s *CreditService) GrantStarterMinutes(ctx context.Context, userID string) error {
	query := `
	INSERT INTO subscriptions (id, user_id, tier, status, interview_time_remaining, interview_time_total, leftover_seconds, created_at, updated_at)
	SELECT $1, $2, 'free', 'active', $3, $3, 0, NOW(), NOW()
	WHERE NOT EXISTS (
		SELECT 1 FROM subscriptions WHERE user_id = $2 AND status = 'active'
	)
	`

	_, err := s.db.Exec(ctx, query, uuid.New().String(), userID, StarterGrantMinutes)
	if err != nil {
		return fmt.Errorf("failed to grant starter minutes: %w", err)
	}
	return nil
}

// ResolveDuplicates collapses multiple active rows into one. The newest row of
// the best tier stays active; the rest are marked inactive. Balances are not
// merged into the survivor. Per-row failures are collected, not fatal.
func (s *CreditService) ResolveDuplicates(ctx context.Context, userID string) (*subscription.ResolutionReport, error) {
	subs, err := s.listActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &subscription.ResolutionReport{}
	if len(subs) == 0 {
		return report, nil
	}

	// listActive orders pro-first then newest-first, so the head is the keeper.
	report.Primary = subs[0]
	if len(subs) == 1 {
		return report, nil
	}

	for _, dup := range subs[1:] {
		tag, err := s.db.Exec(ctx, `
			UPDATE subscriptions
			SET status = 'inactive', updated_at = NOW()
			WHERE id = $1 AND status = 'active'
		`, dup.ID)
		if err != nil {
			log.Printf("ResolveDuplicates: failed to deactivate %s: %v", dup.ID, err)
			report.FailedIDs = append(report.FailedIDs, dup.ID)
			continue
		}
		if tag.RowsAffected() > 0 {
			report.DeactivatedCount++
		}
	}

	return report, nil
}
