package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/application"
	"github.com/thekillacodar/Sparo-Exam-Sync/internal/config"
	httptransport "github.com/thekillacodar/Sparo-Exam-Sync/internal/http"
	"github.com/thekillacodar/Sparo-Exam-Sync/internal/logging"
	"github.com/thekillacodar/Sparo-Exam-Sync/internal/persistence"
	"github.com/thekillacodar/Sparo-Exam-Sync/internal/persistence/sqlite"
)

func main() {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, "timetable")
	if err != nil {
		bootstrap.Error("failed to build logger", "error", err)
		os.Exit(1)
	}

	sqliteConfig := sqlite.DefaultConfig(cfg.SQLiteDSN)
	sqliteConfig.BusyTimeout = cfg.SQLiteBusyTimeout

	storage, err := sqlite.Open(ctx, sqliteConfig, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHandler(storage, cfg, uuid.NewString, time.Now, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("timetable API listening", "addr", server.Addr, "recheck_on_update", cfg.RecheckOnUpdate)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// newHandler wires repositories, services and handlers over storage.
func newHandler(storage *sqlite.Storage, cfg config.Config, idGenerator func() string, now func() time.Time, logger *slog.Logger) http.Handler {
	examRepo := newExamRepositoryAdapter(storage)
	pendingStore := newPendingStoreAdapter(storage)
	notificationRepo := newNotificationRepositoryAdapter(storage)
	preferenceRepo := newPreferenceRepositoryAdapter(storage)

	examService := application.NewExamService(examRepo, storage, now, logger)
	notifier := application.NewStoredNotifier(notificationRepo, idGenerator, now)
	syncService := application.NewSyncService(examService, pendingStore, notificationRepo, notifier, application.SyncConfig{
		RecheckOnUpdate: cfg.RecheckOnUpdate,
		MaxBatchSize:    cfg.MaxBatchSize,
		HealthCheck:     storage.Ping,
	}, now, logger)
	snapshotService := application.NewSnapshotService(examRepo, notificationRepo, preferenceRepo, now, logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Exams:        httptransport.NewExamHandler(examService, logger),
		Sync:         httptransport.NewSyncHandler(syncService, snapshotService, logger),
		Authenticate: httptransport.RequirePrincipal(cfg.AdminRole, logger),
		Health:       storage.Ping,
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
}

type examRepositoryAdapter struct {
	repo persistence.ExamRepository
}

func newExamRepositoryAdapter(repo persistence.ExamRepository) *examRepositoryAdapter {
	return &examRepositoryAdapter{repo: repo}
}

func (a *examRepositoryAdapter) CreateExam(ctx context.Context, exam application.Exam) (application.Exam, error) {
	id, err := a.repo.CreateExam(ctx, toPersistenceExam(exam))
	if err != nil {
		return application.Exam{}, err
	}
	exam.ID = id
	return exam, nil
}

func (a *examRepositoryAdapter) GetExam(ctx context.Context, id int64) (application.Exam, error) {
	model, err := a.repo.GetExam(ctx, id)
	if err != nil {
		return application.Exam{}, err
	}
	return toApplicationExam(model), nil
}

func (a *examRepositoryAdapter) UpdateExam(ctx context.Context, exam application.Exam) (application.Exam, error) {
	if err := a.repo.UpdateExam(ctx, toPersistenceExam(exam)); err != nil {
		return application.Exam{}, err
	}
	return a.GetExam(ctx, exam.ID)
}

func (a *examRepositoryAdapter) DeleteExam(ctx context.Context, id int64) error {
	return a.repo.DeleteExam(ctx, id)
}

func (a *examRepositoryAdapter) ListExams(ctx context.Context, filter application.ExamFilter) ([]application.Exam, error) {
	models, err := a.repo.ListExams(ctx, persistence.ExamFilter{
		Date:         filter.Date,
		Status:       filter.Status,
		UpdatedAfter: filter.UpdatedAfter,
	})
	if err != nil {
		return nil, err
	}
	exams := make([]application.Exam, 0, len(models))
	for _, model := range models {
		exams = append(exams, toApplicationExam(model))
	}
	return exams, nil
}

// pendingPayload is the stored form of a parked change's data and conflicts.
type pendingPayload struct {
	Data      json.RawMessage   `json:"data"`
	Conflicts []pendingConflict `json:"conflicts"`
}

type pendingConflict struct {
	ExamID     int64  `json:"examId"`
	CourseCode string `json:"courseCode"`
	Type       string `json:"conflictType"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
}

type pendingStoreAdapter struct {
	repo persistence.PendingChangeRepository
}

func newPendingStoreAdapter(repo persistence.PendingChangeRepository) *pendingStoreAdapter {
	return &pendingStoreAdapter{repo: repo}
}

func (a *pendingStoreAdapter) SavePending(ctx context.Context, change application.PendingChange) error {
	model, err := toPersistencePendingChange(change)
	if err != nil {
		return err
	}
	return a.repo.SavePendingChange(ctx, model)
}

func (a *pendingStoreAdapter) GetPending(ctx context.Context, changeID, userID string) (application.PendingChange, error) {
	model, err := a.repo.GetPendingChange(ctx, changeID, userID)
	if err != nil {
		return application.PendingChange{}, err
	}
	return toApplicationPendingChange(model)
}

func (a *pendingStoreAdapter) ListPending(ctx context.Context, userID string) ([]application.PendingChange, error) {
	models, err := a.repo.ListPendingChanges(ctx, userID)
	if err != nil {
		return nil, err
	}
	changes := make([]application.PendingChange, 0, len(models))
	for _, model := range models {
		change, err := toApplicationPendingChange(model)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, nil
}

func (a *pendingStoreAdapter) DeletePending(ctx context.Context, changeID, userID string) error {
	return a.repo.DeletePendingChange(ctx, changeID, userID)
}

type notificationRepositoryAdapter struct {
	repo persistence.NotificationRepository
}

func newNotificationRepositoryAdapter(repo persistence.NotificationRepository) *notificationRepositoryAdapter {
	return &notificationRepositoryAdapter{repo: repo}
}

func (a *notificationRepositoryAdapter) CreateNotification(ctx context.Context, n application.Notification) error {
	return a.repo.CreateNotification(ctx, persistence.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Kind:      n.Kind,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	})
}

func (a *notificationRepositoryAdapter) ListNotifications(ctx context.Context, userID string, updatedAfter *time.Time) ([]application.Notification, error) {
	models, err := a.repo.ListNotifications(ctx, userID, updatedAfter)
	if err != nil {
		return nil, err
	}
	notifications := make([]application.Notification, 0, len(models))
	for _, model := range models {
		notifications = append(notifications, application.Notification{
			ID:        model.ID,
			UserID:    model.UserID,
			Title:     model.Title,
			Message:   model.Message,
			Kind:      model.Kind,
			Read:      model.Read,
			CreatedAt: model.CreatedAt,
			UpdatedAt: model.UpdatedAt,
		})
	}
	return notifications, nil
}

func (a *notificationRepositoryAdapter) MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error {
	return a.repo.MarkNotificationRead(ctx, id, userID, at)
}

func (a *notificationRepositoryAdapter) DeleteNotification(ctx context.Context, id, userID string) error {
	return a.repo.DeleteNotification(ctx, id, userID)
}

type preferenceRepositoryAdapter struct {
	repo persistence.PreferenceRepository
}

func newPreferenceRepositoryAdapter(repo persistence.PreferenceRepository) *preferenceRepositoryAdapter {
	return &preferenceRepositoryAdapter{repo: repo}
}

func (a *preferenceRepositoryAdapter) ListPreferences(ctx context.Context, userID string, updatedAfter *time.Time) ([]application.Preference, error) {
	models, err := a.repo.ListPreferences(ctx, userID, updatedAfter)
	if err != nil {
		return nil, err
	}
	preferences := make([]application.Preference, 0, len(models))
	for _, model := range models {
		preferences = append(preferences, application.Preference{
			Key:       model.Key,
			Value:     model.Value,
			UpdatedAt: model.UpdatedAt,
		})
	}
	return preferences, nil
}

func toApplicationExam(model persistence.Exam) application.Exam {
	return application.Exam{
		ID:         model.ID,
		CourseCode: model.CourseCode,
		CourseName: model.CourseName,
		Date:       model.ExamDate,
		StartTime:  model.StartTime,
		Venue:      model.Venue,
		Duration:   model.Duration,
		Status:     model.Status,
		OwnerID:    model.CreatedBy,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

func toPersistenceExam(exam application.Exam) persistence.Exam {
	return persistence.Exam{
		ID:         exam.ID,
		CourseCode: exam.CourseCode,
		CourseName: exam.CourseName,
		ExamDate:   exam.Date,
		StartTime:  exam.StartTime,
		Venue:      exam.Venue,
		Duration:   exam.Duration,
		Status:     exam.Status,
		CreatedBy:  exam.OwnerID,
		CreatedAt:  exam.CreatedAt,
		UpdatedAt:  exam.UpdatedAt,
	}
}

func toPersistencePendingChange(change application.PendingChange) (persistence.PendingChange, error) {
	payload := pendingPayload{
		Data:      change.Data,
		Conflicts: make([]pendingConflict, 0, len(change.Conflicts)),
	}
	if len(payload.Data) == 0 {
		payload.Data = json.RawMessage("null")
	}
	for _, c := range change.Conflicts {
		payload.Conflicts = append(payload.Conflicts, pendingConflict{
			ExamID:     c.ExamID,
			CourseCode: c.CourseCode,
			Type:       c.Type,
			Severity:   c.Severity,
			Message:    c.Message,
		})
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return persistence.PendingChange{}, fmt.Errorf("encode pending change %s: %w", change.ChangeID, err)
	}

	return persistence.PendingChange{
		ChangeID:   change.ChangeID,
		UserID:     change.UserID,
		DeviceID:   change.DeviceID,
		ChangeType: change.Type,
		Action:     change.Action,
		Payload:    encoded,
		CreatedAt:  change.CreatedAt,
	}, nil
}

func toApplicationPendingChange(model persistence.PendingChange) (application.PendingChange, error) {
	var payload pendingPayload
	if err := json.Unmarshal(model.Payload, &payload); err != nil {
		return application.PendingChange{}, fmt.Errorf("decode pending change %s: %w", model.ChangeID, err)
	}

	conflicts := make([]application.Conflict, 0, len(payload.Conflicts))
	for _, c := range payload.Conflicts {
		conflicts = append(conflicts, application.Conflict{
			ExamID:     c.ExamID,
			CourseCode: c.CourseCode,
			Type:       c.Type,
			Severity:   c.Severity,
			Message:    c.Message,
		})
	}

	return application.PendingChange{
		ChangeID:  model.ChangeID,
		UserID:    model.UserID,
		DeviceID:  model.DeviceID,
		Type:      model.ChangeType,
		Action:    model.Action,
		Data:      payload.Data,
		Conflicts: conflicts,
		CreatedAt: model.CreatedAt,
	}, nil
}
