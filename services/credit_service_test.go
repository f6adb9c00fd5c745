package services

import (
	"testing"
	"time"

	"jastalkAPI/internal/types/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyElapsedRollsLeftoverIntoMinutes(t *testing.T) {
	remaining, leftover, deducted := applyElapsed(10, 30, 95)

	// 30 + 95 = 125 seconds = 2 minutes + 5 seconds
	assert.Equal(t, 8, remaining)
	assert.Equal(t, 5, leftover)
	assert.Equal(t, 2, deducted)
}

func TestApplyElapsedSubMinuteOnlyAccumulates(t *testing.T) {
	remaining, leftover, deducted := applyElapsed(10, 0, 45)

	assert.Equal(t, 10, remaining)
	assert.Equal(t, 45, leftover)
	assert.Equal(t, 0, deducted)
}

func TestApplyElapsedConservesTime(t *testing.T) {
	// Over any sequence of deductions without exhaustion, the balance stays
	// consistent with the seconds consumed. leftover counts seconds already
	// consumed but not yet charged as a minute, so it offsets remaining:
	// remaining*60 - leftover == initial*60 - consumed.
	remaining, leftover := 100, 0
	elapsed := []int{45, 20, 125, 59, 1, 60, 3600, 7, 53}

	consumed := 0
	for _, e := range elapsed {
		remaining, leftover, _ = applyElapsed(remaining, leftover, e)
		consumed += e

		assert.GreaterOrEqual(t, leftover, 0)
		assert.Less(t, leftover, 60)
	}

	assert.Equal(t, 100*60-consumed, remaining*60-leftover)
}

func TestApplyElapsedClampsAtZero(t *testing.T) {
	remaining, leftover, deducted := applyElapsed(2, 0, 600)

	assert.Equal(t, 0, remaining, "remaining must clamp to exactly zero")
	assert.Equal(t, 0, leftover)
	assert.Equal(t, 2, deducted, "only the available minutes are deducted")
}

func TestApplyElapsedExhaustedBalanceStillRollsLeftover(t *testing.T) {
	// remaining=0, leftover=45, elapsed=20: the counter rolls over to a full
	// minute that cannot be charged, leaving 5 seconds behind.
	remaining, leftover, deducted := applyElapsed(0, 45, 20)

	assert.Equal(t, 0, remaining)
	assert.Equal(t, 5, leftover)
	assert.Equal(t, 0, deducted)
}

func TestAggregateBalanceNoRows(t *testing.T) {
	balance := AggregateBalance(nil)

	assert.Equal(t, 0, balance.TotalMinutesRemaining)
	assert.Equal(t, 0, balance.TotalMinutesGranted)
	assert.Equal(t, subscription.TierFree, balance.Tier)
	assert.Nil(t, balance.Primary)
}

func TestAggregateBalanceMixedTiers(t *testing.T) {
	now := time.Now()
	free := &subscription.Subscription{
		ID: "sub_free", Tier: subscription.TierFree, Status: subscription.StatusActive,
		InterviewTimeRemaining: 10, InterviewTimeTotal: 10, CreatedAt: now,
	}
	pro := &subscription.Subscription{
		ID: "sub_pro", Tier: subscription.TierPro, Status: subscription.StatusActive,
		InterviewTimeRemaining: 5, InterviewTimeTotal: 100, CreatedAt: now.Add(-time.Hour),
	}

	balance := AggregateBalance([]*subscription.Subscription{free, pro})

	assert.Equal(t, 15, balance.TotalMinutesRemaining)
	assert.Equal(t, 110, balance.TotalMinutesGranted)
	assert.Equal(t, subscription.TierPro, balance.Tier)
	require.NotNil(t, balance.Primary)
	assert.Equal(t, "sub_pro", balance.Primary.ID)
}

func TestAggregateBalancePrimaryIsNewestOfBestTier(t *testing.T) {
	t1 := time.Now().Add(-2 * time.Hour)
	t2 := time.Now().Add(-time.Hour)
	older := &subscription.Subscription{ID: "sub_old", Tier: subscription.TierPro, CreatedAt: t1}
	newer := &subscription.Subscription{ID: "sub_new", Tier: subscription.TierPro, CreatedAt: t2}

	balance := AggregateBalance([]*subscription.Subscription{older, newer})

	require.NotNil(t, balance.Primary)
	assert.Equal(t, "sub_new", balance.Primary.ID)
}
