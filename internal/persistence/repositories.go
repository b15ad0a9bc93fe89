package persistence

import (
	"context"
	"time"
)

// ExamFilter narrows exam queries.
type ExamFilter struct {
	Date         *string
	Status       *string
	UpdatedAfter *time.Time
}

// ExamRepository exposes CRUD operations for exam bookings.
type ExamRepository interface {
	CreateExam(ctx context.Context, exam Exam) (int64, error)
	UpdateExam(ctx context.Context, exam Exam) error
	GetExam(ctx context.Context, id int64) (Exam, error)
	ListExams(ctx context.Context, filter ExamFilter) ([]Exam, error)
	DeleteExam(ctx context.Context, id int64) error
}

// PendingChangeRepository stores parked offline changes keyed by change id.
type PendingChangeRepository interface {
	SavePendingChange(ctx context.Context, change PendingChange) error
	GetPendingChange(ctx context.Context, changeID, userID string) (PendingChange, error)
	ListPendingChanges(ctx context.Context, userID string) ([]PendingChange, error)
	DeletePendingChange(ctx context.Context, changeID, userID string) error
}

// NotificationRepository stores per-user notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) error
	ListNotifications(ctx context.Context, userID string, updatedAfter *time.Time) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error
	DeleteNotification(ctx context.Context, id, userID string) error
}

// PreferenceRepository stores per-user preferences.
type PreferenceRepository interface {
	UpsertPreference(ctx context.Context, preference UserPreference) error
	ListPreferences(ctx context.Context, userID string, updatedAfter *time.Time) ([]UserPreference, error)
}
