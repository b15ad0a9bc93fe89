package testfixtures

import (
	"log/slog"
	"time"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("notification"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("notification")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// ServiceDeps captures the repositories behind the application services.
type ServiceDeps struct {
	Exams         application.ExamRepository
	Transactor    application.Transactor
	Pending       application.PendingChangeStore
	Notifications application.NotificationRepository
	Preferences   application.PreferenceRepository
	Sync          application.SyncConfig
	Logger        *slog.Logger
}

// Services bundles the application services built by the factory.
type Services struct {
	Exams     *application.ExamService
	Sync      *application.SyncService
	Snapshots *application.SnapshotService
}

// NewServices builds the exam, sync and snapshot services over deps. Sync
// notifications are stored through the notification repository with ids from
// the factory generator.
func (f *ServiceFactory) NewServices(deps ServiceDeps) Services {
	now := f.Clock.NowFunc()

	exams := application.NewExamService(deps.Exams, deps.Transactor, now, deps.Logger)

	var notifier application.Notifier
	if deps.Notifications != nil {
		notifier = application.NewStoredNotifier(deps.Notifications, f.IDGenerator.NextFunc(), now)
	}

	return Services{
		Exams:     exams,
		Sync:      application.NewSyncService(exams, deps.Pending, deps.Notifications, notifier, deps.Sync, now, deps.Logger),
		Snapshots: application.NewSnapshotService(deps.Exams, deps.Notifications, deps.Preferences, now, deps.Logger),
	}
}
