package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/persistence"
	"github.com/thekillacodar/Sparo-Exam-Sync/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite database for integration-style tests.
type SQLiteHarness struct {
	Storage       *sqlite.Storage
	Exams         persistence.ExamRepository
	Pending       persistence.PendingChangeRepository
	Notifications persistence.NotificationRepository
	Preferences   persistence.PreferenceRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a database file under tb.TempDir and applies all
// migrations. Close is registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "timetable.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := context.Background()
	storage, err := sqlite.Open(ctx, sqlite.DefaultConfig(path), logger)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:       storage,
		Exams:         storage,
		Pending:       storage,
		Notifications: storage,
		Preferences:   storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedExams inserts the fixtures and returns them with their assigned IDs.
func (h *SQLiteHarness) SeedExams(tb testing.TB, fixtures ...ExamFixture) []ExamFixture {
	tb.Helper()

	seeded := make([]ExamFixture, 0, len(fixtures))
	for _, fixture := range fixtures {
		id, err := h.Exams.CreateExam(context.Background(), fixture.Persistence())
		if err != nil {
			tb.Fatalf("failed to seed exam %s: %v", fixture.CourseCode, err)
		}
		fixture.ID = id
		seeded = append(seeded, fixture)
	}
	return seeded
}
