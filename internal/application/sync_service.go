package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// PendingChangeStore persists changes parked for resolution. Every operation is
// scoped to the owning user.
type PendingChangeStore interface {
	SavePending(ctx context.Context, change PendingChange) error
	GetPending(ctx context.Context, changeID, userID string) (PendingChange, error)
	ListPending(ctx context.Context, userID string) ([]PendingChange, error)
	DeletePending(ctx context.Context, changeID, userID string) error
}

// NotificationRepository exposes the notification operations used by sync and snapshots.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) error
	ListNotifications(ctx context.Context, userID string, updatedAfter *time.Time) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error
	DeleteNotification(ctx context.Context, id, userID string) error
}

// Notifier informs a user about the outcome of a sync.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string) error
}

// SyncConfig tunes the reconciler.
type SyncConfig struct {
	// RecheckOnUpdate parks exam updates that collide with other bookings,
	// the same way colliding creates are parked. Off by default.
	RecheckOnUpdate bool
	// MaxBatchSize rejects batches with more changes. Zero disables the limit.
	MaxBatchSize int
	// HealthCheck reports whether storage is reachable. When set, a batch
	// fails as a whole with ErrUnavailable instead of failing item by item.
	HealthCheck func(ctx context.Context) error
}

// SyncService reconciles change batches uploaded by offline clients and
// resolves the changes it had to park.
type SyncService struct {
	exams         *ExamService
	pending       PendingChangeStore
	notifications NotificationRepository
	notifier      Notifier
	config        SyncConfig
	now           func() time.Time
	logger        *slog.Logger
	resolving     *keyLocks
}

// NewSyncService wires dependencies for sync operations.
func NewSyncService(exams *ExamService, pending PendingChangeStore, notifications NotificationRepository, notifier Notifier, config SyncConfig, now func() time.Time, logger *slog.Logger) *SyncService {
	if now == nil {
		now = time.Now
	}
	return &SyncService{
		exams:         exams,
		pending:       pending,
		notifications: notifications,
		notifier:      notifier,
		config:        config,
		now:           now,
		logger:        defaultLogger(logger),
		resolving:     newKeyLocks(),
	}
}

type applied struct {
	outcome   string
	exam      *Exam
	conflicts []Conflict
}

// ApplyBatch applies the changes in the order given. A failing change is
// recorded in the result and does not stop the ones after it. Creates that
// collide with existing exams are parked as pending changes. An error is
// returned only when the batch as a whole is unacceptable or storage is
// unavailable.
func (s *SyncService) ApplyBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if s == nil || s.exams == nil || s.pending == nil {
		return BatchResult{}, fmt.Errorf("sync service not configured")
	}
	if strings.TrimSpace(req.Principal.UserID) == "" {
		return BatchResult{}, ErrPermission
	}
	if s.config.MaxBatchSize > 0 && len(req.Changes) > s.config.MaxBatchSize {
		return BatchResult{}, missingField("changes", fmt.Sprintf("at most %d changes are accepted per batch", s.config.MaxBatchSize))
	}

	logger := serviceLogger(ctx, s.logger, "SyncService", "ApplyBatch",
		"user_id", req.Principal.UserID, "device_id", req.DeviceID)

	if err := s.checkStorage(ctx); err != nil {
		logger.ErrorContext(ctx, "storage unavailable before batch", "error", err)
		return BatchResult{}, err
	}

	result := BatchResult{
		Summary:    BatchSummary{Total: len(req.Changes)},
		Successful: make([]BatchItem, 0, len(req.Changes)),
		Failed:     make([]BatchItem, 0),
		Conflicts:  make([]BatchItem, 0),
	}

	for index, raw := range req.Changes {
		item := BatchItem{ChangeID: raw.ID, Type: raw.Type, Action: raw.Action}
		outcome, err := s.applyItem(ctx, req.Principal, req.DeviceID, raw)
		result.Summary.Processed++

		if err != nil {
			item.ErrorKind = ErrorKind(err)
			if item.ErrorKind == "unexpected" {
				if healthErr := s.checkStorage(ctx); healthErr != nil {
					logger.ErrorContext(ctx, "storage unavailable during batch",
						"index", index,
						"change_id", raw.ID,
						"processed", result.Summary.Processed,
						"error", err,
					)
					return BatchResult{}, healthErr
				}
			}
			item.Error = SafeMessage(err)
			result.Failed = append(result.Failed, item)
			result.Summary.Failed++
			logger.WarnContext(ctx, "change failed",
				"index", index,
				"change_id", raw.ID,
				"type", raw.Type,
				"action", raw.Action,
				"error_kind", item.ErrorKind,
				"error", err,
			)
			continue
		}

		item.Outcome = outcome.outcome
		item.Exam = outcome.exam
		item.Conflicts = outcome.conflicts
		result.Successful = append(result.Successful, item)
		result.Summary.Successful++
		if outcome.outcome == OutcomePendingResolution {
			result.Conflicts = append(result.Conflicts, item)
			result.Summary.Pending++
		}
	}

	s.notifyCompletion(ctx, logger, req.Principal.UserID, result.Summary)

	logger.InfoContext(ctx, "batch applied",
		"total", result.Summary.Total,
		"successful", result.Summary.Successful,
		"failed", result.Summary.Failed,
		"pending", result.Summary.Pending,
	)
	return result, nil
}

// ListPending returns the principal's parked changes, oldest first.
func (s *SyncService) ListPending(ctx context.Context, principal Principal) ([]PendingChange, error) {
	if s == nil || s.pending == nil {
		return nil, fmt.Errorf("pending change store not configured")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return nil, ErrPermission
	}

	changes, err := s.pending.ListPending(ctx, principal.UserID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return changes, nil
}

func (s *SyncService) applyItem(ctx context.Context, principal Principal, deviceID string, raw RawChange) (res applied, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("change %q panicked: %v", raw.ID, r)
		}
	}()

	if strings.TrimSpace(raw.ID) == "" {
		return applied{}, missingField("id", "change id is required")
	}

	change, err := DecodeChange(raw)
	if err != nil {
		return applied{}, err
	}
	return s.apply(ctx, principal, deviceID, raw, change, true)
}

// apply executes a decoded change. With detect unset, exam writes skip the
// conflict detector entirely.
func (s *SyncService) apply(ctx context.Context, principal Principal, deviceID string, raw RawChange, change Change, detect bool) (applied, error) {
	switch c := change.(type) {
	case ExamCreate:
		exam, conflicts, err := s.exams.CreateExam(ctx, principal, c.Input, detect)
		if err != nil {
			return applied{}, err
		}
		if len(conflicts) > 0 {
			return s.park(ctx, principal, deviceID, raw, conflicts)
		}
		return applied{outcome: OutcomeCreated, exam: &exam}, nil

	case ExamUpdate:
		exam, conflicts, err := s.exams.UpdateExam(ctx, principal, c.ExamID, c.Patch, detect && s.config.RecheckOnUpdate)
		if err != nil {
			return applied{}, err
		}
		if len(conflicts) > 0 {
			return s.park(ctx, principal, deviceID, raw, conflicts)
		}
		return applied{outcome: OutcomeUpdated, exam: &exam}, nil

	case ExamDelete:
		if err := s.exams.DeleteExam(ctx, principal, c.ExamID); err != nil {
			return applied{}, err
		}
		return applied{outcome: OutcomeDeleted}, nil

	case NotificationMarkRead:
		if err := s.requireNotifications(); err != nil {
			return applied{}, err
		}
		if err := s.notifications.MarkNotificationRead(ctx, c.NotificationID, principal.UserID, s.now()); err != nil {
			return applied{}, mapRepoError(err)
		}
		return applied{outcome: OutcomeMarkedRead}, nil

	case NotificationDelete:
		if err := s.requireNotifications(); err != nil {
			return applied{}, err
		}
		if err := s.notifications.DeleteNotification(ctx, c.NotificationID, principal.UserID); err != nil {
			return applied{}, mapRepoError(err)
		}
		return applied{outcome: OutcomeDeleted}, nil
	}

	return applied{}, fmt.Errorf("unhandled change %T", change)
}

func (s *SyncService) park(ctx context.Context, principal Principal, deviceID string, raw RawChange, conflicts []Conflict) (applied, error) {
	pending := PendingChange{
		ChangeID:  raw.ID,
		UserID:    principal.UserID,
		DeviceID:  deviceID,
		Type:      raw.Type,
		Action:    raw.Action,
		Data:      append(json.RawMessage(nil), raw.Data...),
		Conflicts: conflicts,
		CreatedAt: s.now(),
	}
	if err := s.pending.SavePending(ctx, pending); err != nil {
		return applied{}, mapRepoError(err)
	}
	return applied{outcome: OutcomePendingResolution, conflicts: conflicts}, nil
}

// checkStorage runs the configured health check and wraps its failure in
// ErrUnavailable.
func (s *SyncService) checkStorage(ctx context.Context) error {
	if s.config.HealthCheck == nil {
		return nil
	}
	if err := s.config.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SyncService) requireNotifications() error {
	if s.notifications == nil {
		return fmt.Errorf("notification repository not configured")
	}
	return nil
}

func (s *SyncService) notifyCompletion(ctx context.Context, logger *slog.Logger, userID string, summary BatchSummary) {
	if s.notifier == nil {
		return
	}
	message := fmt.Sprintf("%d successful, %d failed", summary.Successful, summary.Failed)
	if err := s.notifier.Notify(ctx, userID, "Sync completed", message); err != nil {
		logger.WarnContext(ctx, "sync notification failed", "error_kind", ErrorKind(err), "error", err)
	}
}
