package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/persistence"
)

// NotificationRepository implements persistence.NotificationRepository using SQLite.
type NotificationRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewNotificationRepository creates a new SQLite notification repository.
func NewNotificationRepository(pool *ConnectionPool) *NotificationRepository {
	return &NotificationRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreateNotification inserts a notification.
func (r *NotificationRepository) CreateNotification(ctx context.Context, n persistence.Notification) error {
	if strings.TrimSpace(n.ID) == "" || strings.TrimSpace(n.UserID) == "" {
		return persistence.ErrConstraintViolation
	}

	createdAt := nowIfZero(n.CreatedAt)
	updatedAt := n.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	kind := n.Kind
	if kind == "" {
		kind = "info"
	}

	query := `
		INSERT INTO notifications (id, user_id, title, message, kind, is_read, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.conn(ctx).ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		kind,
		boolToInt(n.Read),
		formatTimestamp(createdAt),
		formatTimestamp(updatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// ListNotifications returns the user's notifications, newest first. When
// updatedAfter is set only rows changed after it are returned.
func (r *NotificationRepository) ListNotifications(ctx context.Context, userID string, updatedAfter *time.Time) ([]persistence.Notification, error) {
	query := `
		SELECT id, user_id, title, message, kind, is_read, created_at, updated_at
		FROM notifications
		WHERE user_id = ?
	`
	args := []any{userID}
	if updatedAfter != nil {
		query += " AND updated_at > ?"
		args = append(args, formatTimestamp(*updatedAfter))
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := r.pool.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	notifications := make([]persistence.Notification, 0)
	for rows.Next() {
		var (
			n                    persistence.Notification
			read                 int
			createdAt, updatedAt string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Kind, &read, &createdAt, &updatedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		n.Read = read != 0
		if n.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
			return nil, err
		}
		if n.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return notifications, nil
}

// MarkNotificationRead flags a notification owned by userID as read.
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error {
	result, err := r.pool.conn(ctx).ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, updated_at = ? WHERE id = ? AND user_id = ?`,
		formatTimestamp(nowIfZero(at)), id, userID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return rowsAffected(result)
}

// DeleteNotification removes a notification owned by userID.
func (r *NotificationRepository) DeleteNotification(ctx context.Context, id, userID string) error {
	result, err := r.pool.conn(ctx).ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return rowsAffected(result)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ persistence.NotificationRepository = (*NotificationRepository)(nil)
