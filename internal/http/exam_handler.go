package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/application"
)

type examService interface {
	CheckConflicts(ctx context.Context, input application.ConflictCheckInput) (application.ConflictCheckResult, error)
	ConflictReport(ctx context.Context, date *string) ([]application.ConflictPair, error)
}

// ExamHandler serves the conflict check endpoints.
type ExamHandler struct {
	service   examService
	responder responder
	logger    *slog.Logger
}

// NewExamHandler wires the exam endpoints to the service.
func NewExamHandler(service examService, logger *slog.Logger) *ExamHandler {
	logger = defaultLogger(logger)
	return &ExamHandler{service: service, responder: newResponder(logger), logger: logger}
}

// CheckConflicts handles POST /exams/conflicts.
func (h *ExamHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req conflictCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	result, err := h.service.CheckConflicts(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "ExamHandler", "CheckConflicts").
		DebugContext(r.Context(), "conflict check completed", "date", req.Date, "conflicts", result.Summary.Total)

	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictCheckResponse{
		HasConflicts: result.HasConflicts,
		Conflicts:    toConflictDTOs(result.Conflicts),
		Summary: conflictSummaryDTO{
			Total:    result.Summary.Total,
			Errors:   result.Summary.Errors,
			Warnings: result.Summary.Warnings,
		},
	})
}

// Report handles GET /exams/conflicts/report.
func (h *ExamHandler) Report(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var date *string
	if value := r.URL.Query().Get("date"); value != "" {
		date = &value
	}

	pairs, err := h.service.ConflictReport(r.Context(), date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := conflictReportResponse{Total: len(pairs), Conflicts: make([]conflictPairDTO, 0, len(pairs))}
	for _, pair := range pairs {
		resp.Conflicts = append(resp.Conflicts, conflictPairDTO{
			Exam1:        toExamDTO(pair.First),
			Exam2:        toExamDTO(pair.Second),
			ConflictType: pair.Type,
			Severity:     pair.Severity,
			Message:      pair.Message,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type conflictCheckRequest struct {
	CourseCode string `json:"courseCode"`
	CourseName string `json:"courseName"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Venue      string `json:"venue"`
	Duration   int    `json:"duration"`
	ExcludeID  *int64 `json:"excludeId,omitempty"`
}

func (r conflictCheckRequest) toInput() application.ConflictCheckInput {
	return application.ConflictCheckInput{
		CourseCode: r.CourseCode,
		CourseName: r.CourseName,
		Date:       r.Date,
		StartTime:  r.Time,
		Venue:      r.Venue,
		Duration:   r.Duration,
		ExcludeID:  r.ExcludeID,
	}
}

type conflictDTO struct {
	ExamID       int64  `json:"examId"`
	CourseCode   string `json:"courseCode"`
	ConflictType string `json:"conflictType"`
	Severity     string `json:"severity"`
	Message      string `json:"message"`
}

type conflictSummaryDTO struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

type conflictCheckResponse struct {
	HasConflicts bool               `json:"hasConflicts"`
	Conflicts    []conflictDTO      `json:"conflicts"`
	Summary      conflictSummaryDTO `json:"summary"`
}

type conflictPairDTO struct {
	Exam1        examDTO `json:"exam1"`
	Exam2        examDTO `json:"exam2"`
	ConflictType string  `json:"conflictType"`
	Severity     string  `json:"severity"`
	Message      string  `json:"message"`
}

type conflictReportResponse struct {
	Total     int               `json:"total"`
	Conflicts []conflictPairDTO `json:"conflicts"`
}

type examDTO struct {
	ID         int64  `json:"id"`
	CourseCode string `json:"courseCode"`
	CourseName string `json:"courseName"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Venue      string `json:"venue"`
	Duration   int    `json:"duration"`
	Status     string `json:"status"`
	CreatedBy  string `json:"createdBy"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

func toExamDTO(exam application.Exam) examDTO {
	return examDTO{
		ID:         exam.ID,
		CourseCode: exam.CourseCode,
		CourseName: exam.CourseName,
		Date:       exam.Date,
		Time:       exam.StartTime,
		Venue:      exam.Venue,
		Duration:   exam.Duration,
		Status:     exam.Status,
		CreatedBy:  exam.OwnerID,
		CreatedAt:  formatTime(exam.CreatedAt),
		UpdatedAt:  formatTime(exam.UpdatedAt),
	}
}

func toConflictDTOs(conflicts []application.Conflict) []conflictDTO {
	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictDTO{
			ExamID:       c.ExamID,
			CourseCode:   c.CourseCode,
			ConflictType: c.Type,
			Severity:     c.Severity,
			Message:      c.Message,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
