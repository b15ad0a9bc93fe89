package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/snapshot"
)

// PreferenceRepository exposes user preference reads.
type PreferenceRepository interface {
	ListPreferences(ctx context.Context, userID string, updatedAfter *time.Time) ([]Preference, error)
}

// SnapshotService assembles versioned data snapshots for offline clients.
type SnapshotService struct {
	exams         ExamRepository
	notifications NotificationRepository
	preferences   PreferenceRepository
	now           func() time.Time
	logger        *slog.Logger
}

// NewSnapshotService wires dependencies for snapshot operations.
func NewSnapshotService(exams ExamRepository, notifications NotificationRepository, preferences PreferenceRepository, now func() time.Time, logger *slog.Logger) *SnapshotService {
	if now == nil {
		now = time.Now
	}
	return &SnapshotService{
		exams:         exams,
		notifications: notifications,
		preferences:   preferences,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

type snapshotPayload struct {
	Exams           []snapshotExam         `json:"exams"`
	Notifications   []snapshotNotification `json:"notifications"`
	UserPreferences []snapshotPreference   `json:"userPreferences"`
}

type snapshotExam struct {
	ID         int64  `json:"id"`
	CourseCode string `json:"courseCode"`
	CourseName string `json:"courseName"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Venue      string `json:"venue"`
	Duration   int    `json:"duration"`
	Status     string `json:"status"`
	CreatedBy  string `json:"createdBy"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

type snapshotNotification struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type snapshotPreference struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updatedAt"`
}

// Snapshot returns every exam together with the principal's notifications and
// preferences. With lastSync set only rows updated after it are included.
// Version fingerprints the encoded payload.
func (s *SnapshotService) Snapshot(ctx context.Context, principal Principal, lastSync *time.Time) (Snapshot, error) {
	if s == nil || s.exams == nil || s.notifications == nil || s.preferences == nil {
		return Snapshot{}, fmt.Errorf("snapshot service not configured")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return Snapshot{}, ErrPermission
	}

	exams, err := s.exams.ListExams(ctx, ExamFilter{UpdatedAfter: lastSync})
	if err != nil {
		return Snapshot{}, mapRepoError(err)
	}
	notifications, err := s.notifications.ListNotifications(ctx, principal.UserID, lastSync)
	if err != nil {
		return Snapshot{}, mapRepoError(err)
	}
	preferences, err := s.preferences.ListPreferences(ctx, principal.UserID, lastSync)
	if err != nil {
		return Snapshot{}, mapRepoError(err)
	}

	data := SnapshotData{Exams: exams, Notifications: notifications, Preferences: preferences}
	payload, err := json.Marshal(encodeSnapshot(data))
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}

	snap := Snapshot{
		Timestamp: s.now().UTC(),
		Version:   snapshot.Fingerprint(string(payload)),
		Data:      data,
		Payload:   payload,
	}

	serviceLogger(ctx, s.logger, "SnapshotService", "Snapshot", "user_id", principal.UserID).
		DebugContext(ctx, "snapshot built",
			"incremental", lastSync != nil,
			"exams", len(exams),
			"notifications", len(notifications),
			"preferences", len(preferences),
			"version", snap.Version,
		)
	return snap, nil
}

func encodeSnapshot(data SnapshotData) snapshotPayload {
	payload := snapshotPayload{
		Exams:           make([]snapshotExam, 0, len(data.Exams)),
		Notifications:   make([]snapshotNotification, 0, len(data.Notifications)),
		UserPreferences: make([]snapshotPreference, 0, len(data.Preferences)),
	}
	for _, exam := range data.Exams {
		payload.Exams = append(payload.Exams, snapshotExam{
			ID:         exam.ID,
			CourseCode: exam.CourseCode,
			CourseName: exam.CourseName,
			Date:       exam.Date,
			Time:       exam.StartTime,
			Venue:      exam.Venue,
			Duration:   exam.Duration,
			Status:     exam.Status,
			CreatedBy:  exam.OwnerID,
			CreatedAt:  formatInstant(exam.CreatedAt),
			UpdatedAt:  formatInstant(exam.UpdatedAt),
		})
	}
	for _, n := range data.Notifications {
		payload.Notifications = append(payload.Notifications, snapshotNotification{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Kind,
			Read:      n.Read,
			CreatedAt: formatInstant(n.CreatedAt),
			UpdatedAt: formatInstant(n.UpdatedAt),
		})
	}
	for _, p := range data.Preferences {
		payload.UserPreferences = append(payload.UserPreferences, snapshotPreference{
			Key:       p.Key,
			Value:     p.Value,
			UpdatedAt: formatInstant(p.UpdatedAt),
		})
	}
	return payload
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
