package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/scheduler"
)

// ExamRepository captures the persistence interactions needed by the exam service.
type ExamRepository interface {
	CreateExam(ctx context.Context, exam Exam) (Exam, error)
	GetExam(ctx context.Context, id int64) (Exam, error)
	UpdateExam(ctx context.Context, exam Exam) (Exam, error)
	DeleteExam(ctx context.Context, id int64) error
	ListExams(ctx context.Context, filter ExamFilter) ([]Exam, error)
}

// Transactor runs fn inside a storage transaction. Repository calls made with
// the context passed to fn take part in it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type passthroughTransactor struct{}

func (passthroughTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ExamService checks exam bookings for conflicts and applies exam writes.
type ExamService struct {
	exams  ExamRepository
	tx     Transactor
	locks  *keyLocks
	now    func() time.Time
	logger *slog.Logger
}

// NewExamService wires dependencies for exam operations.
func NewExamService(exams ExamRepository, tx Transactor, now func() time.Time, logger *slog.Logger) *ExamService {
	if tx == nil {
		tx = passthroughTransactor{}
	}
	if now == nil {
		now = time.Now
	}
	return &ExamService{
		exams:  exams,
		tx:     tx,
		locks:  newKeyLocks(),
		now:    now,
		logger: defaultLogger(logger),
	}
}

// CheckConflicts reports how a proposed booking collides with the upcoming
// exams already scheduled on its date. Nothing is written.
func (s *ExamService) CheckConflicts(ctx context.Context, input ConflictCheckInput) (ConflictCheckResult, error) {
	if s == nil || s.exams == nil {
		return ConflictCheckResult{}, fmt.Errorf("exam repository not configured")
	}

	candidate := Exam{
		CourseCode: strings.TrimSpace(input.CourseCode),
		CourseName: strings.TrimSpace(input.CourseName),
		Date:       input.Date,
		StartTime:  input.StartTime,
		Venue:      input.Venue,
		Duration:   input.Duration,
		Status:     StatusUpcoming,
	}
	vErr := &ValidationError{}
	normalizeSchedule(&candidate, vErr)
	if vErr.HasErrors() {
		return ConflictCheckResult{}, vErr
	}

	conflicts, err := s.detect(ctx, candidate, input.ExcludeID)
	if err != nil {
		return ConflictCheckResult{}, err
	}

	result := ConflictCheckResult{
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
		Summary:      ConflictSummary{Total: len(conflicts)},
	}
	for _, conflict := range conflicts {
		if conflict.Severity == string(scheduler.SeverityError) {
			result.Summary.Errors++
		} else {
			result.Summary.Warnings++
		}
	}
	return result, nil
}

// ConflictReport lists every conflicting pair among upcoming exams, optionally
// restricted to a single date.
func (s *ExamService) ConflictReport(ctx context.Context, date *string) ([]ConflictPair, error) {
	if s == nil || s.exams == nil {
		return nil, fmt.Errorf("exam repository not configured")
	}

	filter := ExamFilter{Status: ptr(StatusUpcoming)}
	if date != nil && strings.TrimSpace(*date) != "" {
		normalized, err := scheduler.ParseDate(*date)
		if err != nil {
			vErr := &ValidationError{}
			vErr.add("date", "must be a valid YYYY-MM-DD date")
			return nil, vErr
		}
		filter.Date = &normalized
	}

	exams, err := s.exams.ListExams(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}

	byID := make(map[int64]Exam, len(exams))
	bookings := make([]scheduler.Booking, 0, len(exams))
	for _, exam := range exams {
		booking, err := toBooking(exam)
		if err != nil {
			serviceLogger(ctx, s.logger, "ExamService", "ConflictReport").
				WarnContext(ctx, "skipping exam with unreadable schedule", "exam_id", exam.ID, "error", err)
			continue
		}
		byID[exam.ID] = exam
		bookings = append(bookings, booking)
	}

	found := scheduler.DetectAll(bookings)
	pairs := make([]ConflictPair, 0, len(found))
	for _, pair := range found {
		pairs = append(pairs, ConflictPair{
			First:    byID[pair.First.ID],
			Second:   byID[pair.Second.ID],
			Type:     string(pair.Type),
			Severity: string(pair.Severity),
			Message:  pair.Message,
		})
	}
	return pairs, nil
}

// CreateExam validates input and stores a new exam owned by the principal.
// When checkConflicts is set and the booking collides, the conflicts are
// returned and nothing is written. The conflict check and the insert run under
// a per-date lock inside one transaction.
func (s *ExamService) CreateExam(ctx context.Context, principal Principal, input ExamInput, checkConflicts bool) (Exam, []Conflict, error) {
	if s == nil || s.exams == nil {
		return Exam{}, nil, fmt.Errorf("exam repository not configured")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return Exam{}, nil, ErrPermission
	}

	exam := Exam{
		CourseCode: strings.TrimSpace(input.CourseCode),
		CourseName: strings.TrimSpace(input.CourseName),
		Date:       input.Date,
		StartTime:  input.StartTime,
		Venue:      input.Venue,
		Duration:   input.Duration,
		Status:     input.Status,
		OwnerID:    principal.UserID,
	}
	if exam.Status == "" {
		exam.Status = StatusUpcoming
	}

	vErr := &ValidationError{}
	validateExam(&exam, vErr)
	if vErr.HasErrors() {
		return Exam{}, nil, vErr
	}

	unlock := s.locks.lock(exam.Date)
	defer unlock()

	var (
		created   Exam
		conflicts []Conflict
	)
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if checkConflicts {
			found, err := s.detect(txCtx, exam, nil)
			if err != nil {
				return err
			}
			if len(found) > 0 {
				conflicts = found
				return nil
			}
		}

		now := s.now()
		exam.CreatedAt = now
		exam.UpdatedAt = now
		persisted, err := s.exams.CreateExam(txCtx, exam)
		if err != nil {
			return mapRepoError(err)
		}
		created = persisted
		return nil
	})
	if err != nil {
		return Exam{}, nil, err
	}
	if len(conflicts) > 0 {
		return Exam{}, conflicts, nil
	}

	serviceLogger(ctx, s.logger, "ExamService", "CreateExam").
		DebugContext(ctx, "exam created", "exam_id", created.ID, "date", created.Date, "venue", created.Venue)
	return created, nil, nil
}

// UpdateExam overwrites the fields present in patch. Only the owner or an admin
// may update an exam. When checkConflicts is set a colliding update is not
// written and its conflicts are returned.
func (s *ExamService) UpdateExam(ctx context.Context, principal Principal, id int64, patch ExamPatch, checkConflicts bool) (Exam, []Conflict, error) {
	if s == nil || s.exams == nil {
		return Exam{}, nil, fmt.Errorf("exam repository not configured")
	}

	existing, err := s.loadOwned(ctx, principal, id)
	if err != nil {
		return Exam{}, nil, err
	}
	target, err := applyPatch(existing, patch)
	if err != nil {
		return Exam{}, nil, err
	}

	unlock := s.locks.lock(target.Date)
	defer unlock()

	var (
		updated   Exam
		conflicts []Conflict
	)
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.loadOwned(txCtx, principal, id)
		if err != nil {
			return err
		}
		next, err := applyPatch(current, patch)
		if err != nil {
			return err
		}

		if checkConflicts {
			found, err := s.detect(txCtx, next, &id)
			if err != nil {
				return err
			}
			if len(found) > 0 {
				conflicts = found
				return nil
			}
		}

		next.UpdatedAt = s.now()
		persisted, err := s.exams.UpdateExam(txCtx, next)
		if err != nil {
			return mapRepoError(err)
		}
		updated = persisted
		return nil
	})
	if err != nil {
		return Exam{}, nil, err
	}
	if len(conflicts) > 0 {
		return Exam{}, conflicts, nil
	}
	return updated, nil, nil
}

// DeleteExam removes an exam owned by the principal, or any exam for admins.
func (s *ExamService) DeleteExam(ctx context.Context, principal Principal, id int64) error {
	if s == nil || s.exams == nil {
		return fmt.Errorf("exam repository not configured")
	}

	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.loadOwned(txCtx, principal, id); err != nil {
			return err
		}
		return mapRepoError(s.exams.DeleteExam(txCtx, id))
	})
}

func (s *ExamService) loadOwned(ctx context.Context, principal Principal, id int64) (Exam, error) {
	if id <= 0 {
		return Exam{}, ErrNotFound
	}
	exam, err := s.exams.GetExam(ctx, id)
	if err != nil {
		return Exam{}, mapRepoError(err)
	}
	if !canModify(principal, exam) {
		return Exam{}, ErrPermission
	}
	return exam, nil
}

// detect runs the conflict detector for candidate against the upcoming exams on its date.
func (s *ExamService) detect(ctx context.Context, candidate Exam, excludeID *int64) ([]Conflict, error) {
	sameDate, err := s.exams.ListExams(ctx, ExamFilter{Date: ptr(candidate.Date), Status: ptr(StatusUpcoming)})
	if err != nil {
		return nil, mapRepoError(err)
	}

	proposed, err := toBooking(candidate)
	if err != nil {
		return nil, err
	}

	existing := make([]scheduler.Booking, 0, len(sameDate))
	for _, exam := range sameDate {
		booking, err := toBooking(exam)
		if err != nil {
			serviceLogger(ctx, s.logger, "ExamService", "detect").
				WarnContext(ctx, "skipping exam with unreadable schedule", "exam_id", exam.ID, "error", err)
			continue
		}
		existing = append(existing, booking)
	}

	found := scheduler.Detect(proposed, existing, excludeID)
	conflicts := make([]Conflict, 0, len(found))
	for _, c := range found {
		conflicts = append(conflicts, Conflict{
			ExamID:     c.ExamID,
			CourseCode: c.CourseCode,
			Type:       string(c.Type),
			Severity:   string(c.Severity),
			Message:    c.Message,
		})
	}
	return conflicts, nil
}

func canModify(principal Principal, exam Exam) bool {
	if principal.IsAdmin {
		return true
	}
	return principal.UserID != "" && exam.OwnerID == principal.UserID
}

func applyPatch(exam Exam, patch ExamPatch) (Exam, error) {
	if patch.CourseCode != nil {
		exam.CourseCode = strings.TrimSpace(*patch.CourseCode)
	}
	if patch.CourseName != nil {
		exam.CourseName = strings.TrimSpace(*patch.CourseName)
	}
	if patch.Date != nil {
		exam.Date = *patch.Date
	}
	if patch.StartTime != nil {
		exam.StartTime = *patch.StartTime
	}
	if patch.Venue != nil {
		exam.Venue = *patch.Venue
	}
	if patch.Duration != nil {
		exam.Duration = *patch.Duration
	}
	if patch.Status != nil {
		exam.Status = *patch.Status
	}

	vErr := &ValidationError{}
	validateExam(&exam, vErr)
	if vErr.HasErrors() {
		return Exam{}, vErr
	}
	return exam, nil
}

// validateExam checks and normalises every stored field of exam.
func validateExam(exam *Exam, vErr *ValidationError) {
	if exam.CourseCode == "" {
		vErr.add("courseCode", "is required")
	}
	if exam.CourseName == "" {
		vErr.add("courseName", "is required")
	}
	switch exam.Status {
	case StatusUpcoming, StatusOngoing, StatusCompleted, StatusCancelled:
	default:
		vErr.add("status", "must be one of upcoming, ongoing, completed, cancelled")
	}
	normalizeSchedule(exam, vErr)
}

// normalizeSchedule validates the fields the conflict detector depends on.
func normalizeSchedule(exam *Exam, vErr *ValidationError) {
	if date, err := scheduler.ParseDate(exam.Date); err != nil {
		vErr.add("date", "must be a valid YYYY-MM-DD date")
	} else {
		exam.Date = date
	}

	if minutes, err := scheduler.ParseTimeOfDay(exam.StartTime); err != nil {
		vErr.add("time", "must be a valid HH:MM time")
	} else {
		exam.StartTime = scheduler.FormatTimeOfDay(minutes)
	}

	exam.Venue = strings.TrimSpace(exam.Venue)
	if exam.Venue == "" {
		vErr.add("venue", "is required")
	}
	if exam.Duration <= 0 {
		vErr.add("duration", "must be a positive number of minutes")
	}
}

func toBooking(exam Exam) (scheduler.Booking, error) {
	start, err := scheduler.ParseTimeOfDay(exam.StartTime)
	if err != nil {
		return scheduler.Booking{}, err
	}
	return scheduler.Booking{
		ID:         exam.ID,
		CourseCode: exam.CourseCode,
		CourseName: exam.CourseName,
		Date:       exam.Date,
		Start:      start,
		Duration:   exam.Duration,
		Venue:      exam.Venue,
		Status:     exam.Status,
	}, nil
}

func ptr[T any](v T) *T {
	return &v
}
