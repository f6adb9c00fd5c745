package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jastalkAPI/internal/types/subscription"
	"jastalkAPI/services"
	"jastalkAPI/tests/helpers"

	"jastalkAPI/handlers"
)

const testClerkWebhookSecret = "whsec_test_secret"

// signedClerkRequest builds a webhook request carrying valid svix headers.
func signedClerkRequest(payload []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	svixID := "msg_test"
	svixTimestamp := fmt.Sprintf("%d", time.Now().Unix())
	req.Header.Set("svix-id", svixID)
	req.Header.Set("svix-timestamp", svixTimestamp)
	req.Header.Set("svix-signature", helpers.SignClerkWebhook(testClerkWebhookSecret, svixID, svixTimestamp, payload))
	return req
}

func TestClerkWebhookUserCreatedGrantsStarterMinutes(t *testing.T) {
	// Setup
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	creditService := services.NewCreditService(pool)
	notificationService := services.NewNotificationService(pool)
	webhookHandler := handlers.NewWebhookHandler(userService, creditService, notificationService)

	t.Setenv("CLERK_WEBHOOK_SECRET", testClerkWebhookSecret)

	clerkID := helpers.NewTestClerkID()
	payload := helpers.MockClerkWebhookPayload("user.created", clerkID)

	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, signedClerkRequest(payload))

	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200")

	var response map[string]bool
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.True(t, response["success"])

	// User mirrored into the database
	ctx := context.Background()
	user, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err, "User should be created")
	assert.Equal(t, clerkID, user.ClerkID)
	assert.Equal(t, "test.user@example.com", user.Email)
	assert.True(t, user.EmailVerified)

	// New accounts start on the free tier with the starter grant
	balance, err := creditService.GetBalance(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, subscription.TierFree, balance.Tier)
	assert.Equal(t, services.StarterGrantMinutes, balance.TotalMinutesRemaining)
}

func TestClerkWebhookUserDeleted(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	creditService := services.NewCreditService(pool)
	notificationService := services.NewNotificationService(pool)
	webhookHandler := handlers.NewWebhookHandler(userService, creditService, notificationService)

	t.Setenv("CLERK_WEBHOOK_SECRET", testClerkWebhookSecret)

	clerkID := helpers.NewTestClerkID()

	rr1 := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr1, signedClerkRequest(helpers.MockClerkWebhookPayload("user.created", clerkID)))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr2, signedClerkRequest(helpers.MockClerkWebhookPayload("user.deleted", clerkID)))

	assert.Equal(t, http.StatusOK, rr2.Code)

	_, err := userService.GetUserByClerkID(context.Background(), clerkID)
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestClerkWebhookRejectsBadSignature(t *testing.T) {
	// Rejection happens before any service call, so no database is needed.
	webhookHandler := handlers.NewWebhookHandler(nil, nil, nil)

	t.Setenv("CLERK_WEBHOOK_SECRET", testClerkWebhookSecret)

	payload := helpers.MockClerkWebhookPayload("user.created", helpers.NewTestClerkID())
	req := signedClerkRequest(payload)
	req.Header.Set("svix-signature", "v1,deadbeef")

	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestClerkWebhookRejectsMissingSignatureHeaders(t *testing.T) {
	webhookHandler := handlers.NewWebhookHandler(nil, nil, nil)

	t.Setenv("CLERK_WEBHOOK_SECRET", testClerkWebhookSecret)

	payload := helpers.MockClerkWebhookPayload("user.created", helpers.NewTestClerkID())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestClerkWebhookFailsClosedWithoutSecret(t *testing.T) {
	webhookHandler := handlers.NewWebhookHandler(nil, nil, nil)

	// No secret configured and not a developer machine: reject everything.
	t.Setenv("CLERK_WEBHOOK_SECRET", "")
	t.Setenv("APP_ENV", "production")

	payload := helpers.MockClerkWebhookPayload("user.created", helpers.NewTestClerkID())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
