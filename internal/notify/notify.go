// Package notify is the fire-and-forget notification sink plus the read
// APIs backing the notification endpoints.
package notify

import (
	"context"
	"errors"
	"log"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/config"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/store"
)

// Storage is the slice of the store the notification service depends on.
type Storage interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

type Service struct {
	Storage Storage
}

func NewService(s Storage) *Service {
	return &Service{Storage: s}
}

// Notify records "userID should hear about this". Fire-and-forget: failures
// are logged, never returned, so notifying can never fail the caller.
func (s *Service) Notify(ctx context.Context, userID, kind, message, link string) {
	n := &models.Notification{
		UserID:  userID,
		Type:    kind,
		Message: message,
		Link:    link,
	}
	if err := s.Storage.CreateNotification(ctx, n); err != nil {
		log.Printf("ERROR: create %s notification for user %s: %v", kind, userID, err)
	}
}

// List returns the user's most recent notifications, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.Notification, error) {
	ns, err := s.Storage.ListNotifications(ctx, userID, config.NotificationPageSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Server error", err)
	}
	return ns, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.Storage.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "Server error", err)
	}
	return n, nil
}

// MarkRead acknowledges one notification owned by userID.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	err := s.Storage.MarkNotificationRead(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.New(apperr.NotFound, "Notification not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "Server error", err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.Storage.MarkAllNotificationsRead(ctx, userID); err != nil {
		return apperr.Wrap(apperr.Internal, "Server error", err)
	}
	return nil
}
