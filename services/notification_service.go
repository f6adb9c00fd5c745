package services

import (
	"context"
	"fmt"
	"log"

	"jastalkAPI/internal/types/notification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PushProvider abstracts the FCM client so the service keeps working
// (DB-only) when push credentials are not configured.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db   *pgxpool.Pool
	push PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.push = p
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	if req.Token == "" {
		return fmt.Errorf("device token is required")
	}

	query := `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
	`

	_, err := s.db.Exec(ctx, query, clerkID, req.Token, req.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) getDeviceTokens(ctx context.Context, clerkID string) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// Notify stores the notification and best-effort pushes it. Push failures are
// logged, never surfaced: billing flows must not fail because FCM is down.
func (s *NotificationService) Notify(ctx context.Context, clerkID string, ntype notification.NotificationType, title, message string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, is_read, data, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6, NOW())
	`, uuid.New(), clerkID, ntype, title, message, data)
	if err != nil {
		log.Printf("Notify: failed to store notification for %s: %v", clerkID, err)
	}

	if s.push == nil {
		return
	}

	tokens, err := s.getDeviceTokens(ctx, clerkID)
	if err != nil {
		log.Printf("Notify: failed to load device tokens for %s: %v", clerkID, err)
		return
	}
	if err := s.push.SendPush(ctx, tokens, title, message, data); err != nil {
		log.Printf("Notify: push delivery failed for %s: %v", clerkID, err)
	}
}

func (s *NotificationService) ListNotifications(ctx context.Context, clerkID string) ([]*notification.Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, title, message, is_read, data, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 50
	`, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var list []*notification.Notification
	for rows.Next() {
		n := &notification.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.Data, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}
