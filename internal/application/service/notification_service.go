package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
)

// maxDeliveryAttempts bounds retries per notification. After the last
// failure the row is marked FAILED and stays visible in the outbox.
const maxDeliveryAttempts = 3

// NotificationService persists notifications as outbox rows and pushes
// them through the configured deliverer. It implements port.Notifier
// for the services that trigger notifications.
type NotificationService interface {
	port.Notifier

	ListNotifications(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	deliverer        port.Deliverer
	logger           Logger
}

// NewNotificationService creates a new NotificationService. deliverer
// may be nil; notifications are then in-app only and the persisted row
// counts as delivered.
func NewNotificationService(
	notificationRepo port.NotificationRepository,
	deliverer port.Deliverer,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		deliverer:        deliverer,
		logger:           logger,
	}
}

// Notify writes the outbox row first, then attempts delivery. The row
// survives delivery failure, so a failed push is an observable FAILED
// row rather than a lost message.
func (s *notificationServiceImpl) Notify(ctx context.Context, userID, kind, title, message string, taskID *string) error {
	notification := &entity.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		TaskID:    taskID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Status:    entity.NotificationStatusPending,
		CreatedAt: time.Now(),
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}

	s.dispatch(ctx, notification)
	return nil
}

// dispatch pushes one persisted notification with bounded retries.
func (s *notificationServiceImpl) dispatch(ctx context.Context, notification *entity.Notification) {
	if s.deliverer == nil {
		if err := s.notificationRepo.MarkSent(ctx, notification.ID); err != nil {
			s.logger.Error("Failed to mark notification sent", "id", notification.ID, "error", err)
		}
		return
	}

	var lastErr error
	for attempt := 1; attempt <= maxDeliveryAttempts; attempt++ {
		lastErr = s.deliverer.Deliver(ctx, notification)
		if lastErr == nil {
			if err := s.notificationRepo.MarkSent(ctx, notification.ID); err != nil {
				s.logger.Error("Failed to mark notification sent", "id", notification.ID, "error", err)
			}
			return
		}
		if markErr := s.notificationRepo.MarkFailed(ctx, notification.ID, attempt, lastErr.Error()); markErr != nil {
			s.logger.Error("Failed to record delivery failure", "id", notification.ID, "error", markErr)
		}
	}

	s.logger.Error("Notification delivery exhausted",
		"id", notification.ID,
		"user_id", notification.UserID,
		"attempts", maxDeliveryAttempts,
		"error", lastErr)
}

// ListNotifications retrieves a user's notifications newest-first.
func (s *notificationServiceImpl) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, error) {
	return s.notificationRepo.ListByUserID(ctx, userID, limit, offset)
}

// UnreadCount returns the user's unread notification count.
func (s *notificationServiceImpl) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notificationRepo.UnreadCount(ctx, userID)
}

// MarkRead marks one of the user's notifications as read.
func (s *notificationServiceImpl) MarkRead(ctx context.Context, id, userID string) error {
	return s.notificationRepo.MarkRead(ctx, id, userID)
}

// MarkAllRead marks all of the user's notifications as read.
func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, userID string) error {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}

var _ NotificationService = (*notificationServiceImpl)(nil)
