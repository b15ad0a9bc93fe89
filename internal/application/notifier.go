package application

import (
	"context"
	"fmt"
	"time"
)

// StoredNotifier delivers notifications by writing them to the notification
// repository, where clients pick them up with their next snapshot.
type StoredNotifier struct {
	notifications NotificationRepository
	idGenerator   func() string
	now           func() time.Time
}

// NewStoredNotifier wires a notifier backed by the notification repository.
func NewStoredNotifier(notifications NotificationRepository, idGenerator func() string, now func() time.Time) *StoredNotifier {
	if now == nil {
		now = time.Now
	}
	return &StoredNotifier{notifications: notifications, idGenerator: idGenerator, now: now}
}

// Notify records a notification for userID.
func (n *StoredNotifier) Notify(ctx context.Context, userID, title, message string) error {
	if n == nil || n.notifications == nil || n.idGenerator == nil {
		return fmt.Errorf("notifier not configured")
	}

	at := n.now()
	err := n.notifications.CreateNotification(ctx, Notification{
		ID:        n.idGenerator(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Kind:      "sync",
		CreatedAt: at,
		UpdatedAt: at,
	})
	if err != nil {
		return fmt.Errorf("store notification: %w", mapRepoError(err))
	}
	return nil
}
