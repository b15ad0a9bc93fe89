package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/application"
)

type capturingExamRepo struct {
	created application.Exam
}

func (c *capturingExamRepo) CreateExam(_ context.Context, exam application.Exam) (application.Exam, error) {
	exam.ID = 1
	c.created = exam
	return exam, nil
}

func (c *capturingExamRepo) GetExam(context.Context, int64) (application.Exam, error) {
	return application.Exam{}, application.ErrNotFound
}

func (c *capturingExamRepo) UpdateExam(_ context.Context, exam application.Exam) (application.Exam, error) {
	return exam, nil
}

func (c *capturingExamRepo) DeleteExam(context.Context, int64) error {
	return nil
}

func (c *capturingExamRepo) ListExams(context.Context, application.ExamFilter) ([]application.Exam, error) {
	return []application.Exam{}, nil
}

func TestServiceFactoryNewServices(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingExamRepo{}

	services := factory.NewServices(ServiceDeps{Exams: repo})
	fixture := NewExamFixture()

	exam, conflicts, err := services.Exams.CreateExam(context.Background(), Principal("lecturer-9"), fixture.Input(), true)
	if err != nil {
		t.Fatalf("CreateExam returned error: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts %+v", conflicts)
	}
	if exam.ID != 1 || repo.created.OwnerID != "lecturer-9" {
		t.Fatalf("unexpected exam %+v", repo.created)
	}
	if !repo.created.CreatedAt.Equal(ReferenceTime()) {
		t.Fatalf("expected timestamp %v, got %v", ReferenceTime(), repo.created.CreatedAt)
	}
}

func TestExamFixtureConversions(t *testing.T) {
	created := time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC)
	fixture := NewExamFixture(
		WithExamID(4),
		WithCourse("MA201", "Linear Algebra"),
		WithSlot("2025-02-01", "13:30", 90),
		WithVenue("Hall B"),
		WithOwner("lecturer-2"),
		WithExamTimestamps(created, created),
	)

	model := fixture.Persistence()
	if model.ExamDate != "2025-02-01" || model.CreatedBy != "lecturer-2" || model.Duration != 90 {
		t.Fatalf("unexpected persistence model %+v", model)
	}

	exam := fixture.Application()
	if exam.StartTime != "13:30" || exam.Venue != "Hall B" || exam.Status != application.StatusUpcoming {
		t.Fatalf("unexpected application exam %+v", exam)
	}

	change, err := application.DecodeChange(RawChange("c1", "exam", "update", fixture.ChangeData()))
	if err != nil {
		t.Fatalf("DecodeChange returned error: %v", err)
	}
	update, ok := change.(application.ExamUpdate)
	if !ok || update.ExamID != 4 {
		t.Fatalf("unexpected change %#v", change)
	}
}
