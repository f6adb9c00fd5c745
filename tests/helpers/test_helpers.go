package helpers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SetupTestDB creates a test database connection
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL must be set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	return pool
}

// CleanupTestDB cleans up test data
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	statements := []string{
		"DELETE FROM processed_payment_events WHERE user_id LIKE 'user_test_%'",
		"DELETE FROM subscriptions WHERE user_id LIKE 'user_test_%'",
		"DELETE FROM interviews WHERE user_id LIKE 'user_test_%'",
		"DELETE FROM notifications WHERE user_id LIKE 'user_test_%'",
		"DELETE FROM users WHERE email LIKE 'test%@example.com'",
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Logf("Warning: failed to cleanup test data: %v", err)
		}
	}
	pool.Close()
}

// NewTestClerkID returns a unique id that CleanupTestDB will sweep.
func NewTestClerkID() string {
	return "user_test_" + time.Now().Format("20060102150405") + "_" + uuid.New().String()[:8]
}

// GenerateMockClerkJWT generates a mock JWT token for testing
func GenerateMockClerkJWT(clerkID string) (string, error) {
	secretKey := []byte("test-secret-key-for-testing-only")

	claims := jwt.MapClaims{
		"sub": clerkID,
		"iss": "https://clerk.test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour * 24).Unix(),
		"azp": "test-app-id",
		"sid": "sess_test123",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// MockClerkWebhookPayload creates a mock webhook payload
func MockClerkWebhookPayload(eventType string, clerkID string) []byte {
	payload := ""

	switch eventType {
	case "user.created":
		payload = fmt.Sprintf(`{
			"data": {
				"id": "%s",
				"first_name": "Test",
				"last_name": "User",
				"email_addresses": [{
					"id": "email_123",
					"email_address": "test.user@example.com",
					"verification": {"status": "verified"}
				}],
				"primary_email_address_id": "email_123",
				"username": "testuser",
				"image_url": "https://example.com/image.jpg"
			},
			"object": "event",
			"type": "%s"
		}`, clerkID, eventType)

	case "user.deleted":
		payload = fmt.Sprintf(`{
			"data": {"id": "%s"},
			"object": "event",
			"type": "%s"
		}`, clerkID, eventType)
	}

	return []byte(payload)
}

// SignClerkWebhook computes the svix v1 signature for a webhook payload.
func SignClerkWebhook(secret, svixID, svixTimestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s.%s", svixID, svixTimestamp, body)
	return "v1," + hex.EncodeToString(mac.Sum(nil))
}

// SeedActiveSubscription inserts an active subscription row directly.
func SeedActiveSubscription(t *testing.T, pool *pgxpool.Pool, userID, tier string, remaining, total, leftover int, createdAt time.Time) string {
	id := uuid.New().String()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO subscriptions (id, user_id, tier, status, interview_time_remaining, interview_time_total, leftover_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, 'active', $4, $5, $6, $7, $7)
	`, id, userID, tier, remaining, total, leftover, createdAt)
	if err != nil {
		t.Fatalf("Failed to seed subscription: %v", err)
	}
	return id
}
