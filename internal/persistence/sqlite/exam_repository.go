package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/persistence"
)

// ExamRepository implements persistence.ExamRepository using SQLite.
type ExamRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewExamRepository creates a new SQLite exam repository.
func NewExamRepository(pool *ConnectionPool) *ExamRepository {
	return &ExamRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

const examColumns = `id, course_code, course_name, exam_date, start_time, venue, duration, status, created_by, created_at, updated_at`

// CreateExam inserts a new exam and returns its generated id.
func (r *ExamRepository) CreateExam(ctx context.Context, exam persistence.Exam) (int64, error) {
	if exam.Duration <= 0 {
		return 0, persistence.ErrConstraintViolation
	}

	createdAt := nowIfZero(exam.CreatedAt)
	updatedAt := exam.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	query := `
		INSERT INTO exams (course_code, course_name, exam_date, start_time, venue, duration, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.pool.conn(ctx).ExecContext(ctx, query,
		exam.CourseCode,
		exam.CourseName,
		exam.ExamDate,
		exam.StartTime,
		exam.Venue,
		exam.Duration,
		exam.Status,
		exam.CreatedBy,
		formatTimestamp(createdAt),
		formatTimestamp(updatedAt),
	)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted exam id: %w", err)
	}
	return id, nil
}

// UpdateExam overwrites the mutable fields of an existing exam. The creator
// and creation time are left untouched.
func (r *ExamRepository) UpdateExam(ctx context.Context, exam persistence.Exam) error {
	if exam.ID <= 0 {
		return persistence.ErrNotFound
	}
	if exam.Duration <= 0 {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE exams
		SET course_code = ?, course_name = ?, exam_date = ?, start_time = ?, venue = ?, duration = ?, status = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.pool.conn(ctx).ExecContext(ctx, query,
		exam.CourseCode,
		exam.CourseName,
		exam.ExamDate,
		exam.StartTime,
		exam.Venue,
		exam.Duration,
		exam.Status,
		formatTimestamp(nowIfZero(exam.UpdatedAt)),
		exam.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return rowsAffected(result)
}

// GetExam retrieves an exam by id.
func (r *ExamRepository) GetExam(ctx context.Context, id int64) (persistence.Exam, error) {
	if id <= 0 {
		return persistence.Exam{}, persistence.ErrNotFound
	}

	row := r.pool.conn(ctx).QueryRowContext(ctx, `SELECT `+examColumns+` FROM exams WHERE id = ?`, id)
	exam, err := scanExam(row)
	if err != nil {
		return persistence.Exam{}, r.mapper.MapError(err)
	}
	return exam, nil
}

// ListExams returns the exams matching filter ordered by date, start time and id.
func (r *ExamRepository) ListExams(ctx context.Context, filter persistence.ExamFilter) ([]persistence.Exam, error) {
	query, args := buildExamListQuery(filter)

	rows, err := r.pool.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	exams := make([]persistence.Exam, 0)
	for rows.Next() {
		exam, err := scanExam(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		exams = append(exams, exam)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return exams, nil
}

// DeleteExam removes an exam by id.
func (r *ExamRepository) DeleteExam(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}

	result, err := r.pool.conn(ctx).ExecContext(ctx, `DELETE FROM exams WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return rowsAffected(result)
}

func buildExamListQuery(filter persistence.ExamFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if filter.Date != nil {
		conditions = append(conditions, "exam_date = ?")
		args = append(args, *filter.Date)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.UpdatedAfter != nil {
		conditions = append(conditions, "updated_at > ?")
		args = append(args, formatTimestamp(*filter.UpdatedAfter))
	}

	query := `SELECT ` + examColumns + ` FROM exams`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY exam_date ASC, start_time ASC, id ASC"
	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(row rowScanner) (persistence.Exam, error) {
	var (
		exam                 persistence.Exam
		createdAt, updatedAt string
	)
	err := row.Scan(
		&exam.ID,
		&exam.CourseCode,
		&exam.CourseName,
		&exam.ExamDate,
		&exam.StartTime,
		&exam.Venue,
		&exam.Duration,
		&exam.Status,
		&exam.CreatedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Exam{}, err
	}

	if exam.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Exam{}, err
	}
	if exam.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.Exam{}, err
	}
	return exam, nil
}

var _ persistence.ExamRepository = (*ExamRepository)(nil)
