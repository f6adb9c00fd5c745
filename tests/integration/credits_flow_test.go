package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jastalkAPI/internal/types/subscription"
	"jastalkAPI/services"
	"jastalkAPI/tests/helpers"
)

func TestFulfillPurchaseCreatesProSubscription(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	ctx := context.Background()
	userID := helpers.NewTestClerkID()

	sub, err := creditService.FulfillPurchase(ctx, userID, "practice", "evt_"+userID)
	require.NoError(t, err)
	assert.Equal(t, subscription.TierPro, sub.Tier)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.Equal(t, 100, sub.InterviewTimeRemaining)
	assert.Equal(t, 100, sub.InterviewTimeTotal)
}

func TestFulfillPurchaseIsAdditive(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	ctx := context.Background()
	userID := helpers.NewTestClerkID()
	helpers.SeedActiveSubscription(t, pool, userID, "free", 7, 10, 30, time.Now())

	sub, err := creditService.FulfillPurchase(ctx, userID, "starter", "evt_"+userID)
	require.NoError(t, err)

	// Top-up adds to both remaining and total; leftover is untouched.
	assert.Equal(t, 37, sub.InterviewTimeRemaining)
	assert.Equal(t, 40, sub.InterviewTimeTotal)
	assert.Equal(t, 30, sub.LeftoverSeconds)
}

func TestFulfillPurchaseRejectsReplayedEvent(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	ctx := context.Background()
	userID := helpers.NewTestClerkID()
	eventID := "evt_replay_" + userID

	_, err := creditService.FulfillPurchase(ctx, userID, "starter", eventID)
	require.NoError(t, err)

	_, err = creditService.FulfillPurchase(ctx, userID, "starter", eventID)
	require.ErrorIs(t, err, services.ErrDuplicateEvent)

	balance, err := creditService.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 30, balance.TotalMinutesRemaining, "replayed event must not double-credit")
}

func TestFulfillPurchaseUnknownPackage(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	userID := helpers.NewTestClerkID()

	_, err := creditService.FulfillPurchase(context.Background(), userID, "galactic", "evt_"+userID)
	require.ErrorIs(t, err, services.ErrUnknownPackage)

	balance, err := creditService.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance.TotalMinutesRemaining, "rejected purchase must not mutate anything")
}

func TestDeductUsageCarriesLeftoverSeconds(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	ctx := context.Background()
	userID := helpers.NewTestClerkID()
	helpers.SeedActiveSubscription(t, pool, userID, "pro", 10, 10, 0, time.Now())

	result, err := creditService.DeductUsage(ctx, userID, 125)
	require.NoError(t, err)
	assert.Equal(t, 2, result.MinutesDeducted)
	assert.Equal(t, 8, result.MinutesRemaining)
	assert.Equal(t, 5, result.LeftoverSeconds)

	// 5 + 55 crosses the minute boundary.
	result, err = creditService.DeductUsage(ctx, userID, 55)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MinutesDeducted)
	assert.Equal(t, 7, result.MinutesRemaining)
	assert.Equal(t, 0, result.LeftoverSeconds)
}

func TestDeductUsageClampsAtZero(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	ctx := context.Background()
	userID := helpers.NewTestClerkID()
	helpers.SeedActiveSubscription(t, pool, userID, "pro", 2, 2, 0, time.Now())

	result, err := creditService.DeductUsage(ctx, userID, 600)
	require.NoError(t, err)
	assert.Equal(t, 0, result.MinutesRemaining)
	assert.True(t, result.Exhausted)
}

func TestDeductUsageWithoutSubscription(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	userID := helpers.NewTestClerkID()

	_, err := creditService.DeductUsage(context.Background(), userID, 60)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrNoActiveSubscription))
}

func TestDeductUsageRejectsNegativeElapsed(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	userID := helpers.NewTestClerkID()

	_, err := creditService.DeductUsage(context.Background(), userID, -1)
	require.ErrorIs(t, err, services.ErrInvalidElapsed)
}

func TestGetBalanceAggregatesAcrossRows(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	userID := helpers.NewTestClerkID()
	now := time.Now()
	helpers.SeedActiveSubscription(t, pool, userID, "free", 10, 10, 0, now.Add(-time.Hour))
	proID := helpers.SeedActiveSubscription(t, pool, userID, "pro", 5, 100, 0, now)

	balance, err := creditService.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 15, balance.TotalMinutesRemaining)
	assert.Equal(t, 110, balance.TotalMinutesGranted)
	assert.Equal(t, subscription.TierPro, balance.Tier)
	require.NotNil(t, balance.Primary)
	assert.Equal(t, proID, balance.Primary.ID)
}

func TestResolveDuplicatesKeepsNewestProRow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	ctx := context.Background()
	userID := helpers.NewTestClerkID()
	now := time.Now()
	helpers.SeedActiveSubscription(t, pool, userID, "free", 10, 10, 0, now.Add(-3*time.Hour))
	helpers.SeedActiveSubscription(t, pool, userID, "pro", 5, 100, 0, now.Add(-2*time.Hour))
	newestPro := helpers.SeedActiveSubscription(t, pool, userID, "pro", 3, 50, 0, now.Add(-time.Hour))

	report, err := creditService.ResolveDuplicates(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, report.Primary)
	assert.Equal(t, newestPro, report.Primary.ID)
	assert.Equal(t, 2, report.DeactivatedCount)
	assert.Empty(t, report.FailedIDs)

	balance, err := creditService.GetBalance(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, balance.Primary)
	assert.Equal(t, newestPro, balance.Primary.ID)
	assert.Equal(t, 3, balance.TotalMinutesRemaining, "deactivated balances are not merged")
}

func TestResolveDuplicatesSingleRowNoOp(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	userID := helpers.NewTestClerkID()
	subID := helpers.SeedActiveSubscription(t, pool, userID, "pro", 5, 100, 0, time.Now())

	report, err := creditService.ResolveDuplicates(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, report.Primary)
	assert.Equal(t, subID, report.Primary.ID)
	assert.Equal(t, 0, report.DeactivatedCount)
}

func TestGrantStarterMinutesIsIdempotent(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	creditService := services.NewCreditService(pool)
	ctx := context.Background()
	userID := helpers.NewTestClerkID()

	require.NoError(t, creditService.GrantStarterMinutes(ctx, userID))
	require.NoError(t, creditService.GrantStarterMinutes(ctx, userID))

	balance, err := creditService.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, services.StarterGrantMinutes, balance.TotalMinutesRemaining)
	assert.Equal(t, subscription.TierFree, balance.Tier)
}
