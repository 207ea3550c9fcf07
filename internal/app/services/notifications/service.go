package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/notification"
	"github.com/pulsedesk/pulsedesk/internal/app/storage"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// Service manages user notifications.
type Service struct {
	store storage.NotificationStore
	log   *logger.Logger
}

// New constructs a notification service.
func New(store storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notifications")
	}
	return &Service{store: store, log: log}
}

// Notify creates a notification for a user.
func (s *Service) Notify(ctx context.Context, userID string, typ notification.Type, title, body string) (notification.Notification, error) {
	userID = strings.TrimSpace(userID)
	title = strings.TrimSpace(title)

	if userID == "" {
		return notification.Notification{}, fmt.Errorf("user_id is required")
	}
	if title == "" {
		return notification.Notification{}, fmt.Errorf("title is required")
	}
	if typ == "" {
		typ = notification.TypeInfo
	}

	n := notification.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   strings.TrimSpace(body),
	}
	return s.store.CreateNotification(ctx, n)
}

// List returns a user's notifications, optionally unread only.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly)
}

// MarkRead flags a notification as read, enforcing ownership.
func (s *Service) MarkRead(ctx context.Context, userID, id string) (notification.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return notification.Notification{}, err
	}
	if n.UserID != userID {
		return notification.Notification{}, fmt.Errorf("notification %s not owned by %s", id, userID)
	}
	return s.store.MarkRead(ctx, id)
}

// UnreadCount returns the number of unread notifications for a user.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.UnreadCount(ctx, userID)
}
