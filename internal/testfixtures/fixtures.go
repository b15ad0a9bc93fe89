package testfixtures

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/application"
	"github.com/thekillacodar/Sparo-Exam-Sync/internal/persistence"
)

var examCounter uint64

var referenceTime = time.Date(2024, time.December, 1, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ExamDate is the default exam day used by fixtures.
const ExamDate = "2025-01-15"

// ExamFixture represents a deterministic exam booking.
type ExamFixture struct {
	ID         int64
	CourseCode string
	CourseName string
	Date       string
	StartTime  string
	Venue      string
	Duration   int
	Status     string
	OwnerID    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExamOption configures the generated exam fixture.
type ExamOption func(*ExamFixture)

// NewExamFixture returns an upcoming two hour exam at 09:00 on ExamDate with
// a unique course code and venue.
func NewExamFixture(opts ...ExamOption) ExamFixture {
	idx := atomic.AddUint64(&examCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ExamFixture{
		CourseCode: fmt.Sprintf("CS%03d", idx),
		CourseName: fmt.Sprintf("Course %03d", idx),
		Date:       ExamDate,
		StartTime:  "09:00",
		Venue:      fmt.Sprintf("Hall %03d", idx),
		Duration:   120,
		Status:     application.StatusUpcoming,
		OwnerID:    "lecturer-1",
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithExamID sets the exam ID.
func WithExamID(id int64) ExamOption {
	return func(f *ExamFixture) {
		f.ID = id
	}
}

// WithCourse overrides the course code and name.
func WithCourse(code, name string) ExamOption {
	return func(f *ExamFixture) {
		f.CourseCode = code
		f.CourseName = name
	}
}

// WithSlot places the exam on date at start for duration minutes.
func WithSlot(date, start string, duration int) ExamOption {
	return func(f *ExamFixture) {
		f.Date = date
		f.StartTime = start
		f.Duration = duration
	}
}

// WithVenue overrides the venue.
func WithVenue(venue string) ExamOption {
	return func(f *ExamFixture) {
		f.Venue = venue
	}
}

// WithStatus overrides the status.
func WithStatus(status string) ExamOption {
	return func(f *ExamFixture) {
		f.Status = status
	}
}

// WithOwner overrides the creating user.
func WithOwner(userID string) ExamOption {
	return func(f *ExamFixture) {
		f.OwnerID = userID
	}
}

// WithExamTimestamps sets both created and updated timestamps on the fixture.
func WithExamTimestamps(created, updated time.Time) ExamOption {
	return func(f *ExamFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Exam value.
func (f ExamFixture) Application() application.Exam {
	return application.Exam{
		ID:         f.ID,
		CourseCode: f.CourseCode,
		CourseName: f.CourseName,
		Date:       f.Date,
		StartTime:  f.StartTime,
		Venue:      f.Venue,
		Duration:   f.Duration,
		Status:     f.Status,
		OwnerID:    f.OwnerID,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Input returns the fixture as an application.ExamInput.
func (f ExamFixture) Input() application.ExamInput {
	return application.ExamInput{
		CourseCode: f.CourseCode,
		CourseName: f.CourseName,
		Date:       f.Date,
		StartTime:  f.StartTime,
		Venue:      f.Venue,
		Duration:   f.Duration,
		Status:     f.Status,
	}
}

// Persistence returns the fixture as a persistence.Exam value.
func (f ExamFixture) Persistence() persistence.Exam {
	return persistence.Exam{
		ID:         f.ID,
		CourseCode: f.CourseCode,
		CourseName: f.CourseName,
		ExamDate:   f.Date,
		StartTime:  f.StartTime,
		Venue:      f.Venue,
		Duration:   f.Duration,
		Status:     f.Status,
		CreatedBy:  f.OwnerID,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// ChangeData renders the fixture as the data object of an offline exam change.
// The id is included only when the fixture has one.
func (f ExamFixture) ChangeData() json.RawMessage {
	payload := map[string]any{
		"courseCode": f.CourseCode,
		"courseName": f.CourseName,
		"date":       f.Date,
		"time":       f.StartTime,
		"venue":      f.Venue,
		"duration":   f.Duration,
		"status":     f.Status,
	}
	if f.ID != 0 {
		payload["id"] = f.ID
	}
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return data
}

// RawChange wraps data into an offline change record.
func RawChange(id, changeType, action string, data json.RawMessage) application.RawChange {
	return application.RawChange{
		ID:        id,
		Type:      changeType,
		Action:    action,
		Data:      data,
		Timestamp: referenceTime.Format(time.RFC3339),
	}
}

// Principal returns a non-admin principal for userID.
func Principal(userID string) application.Principal {
	return application.Principal{UserID: userID}
}

// Admin returns an admin principal for userID.
func Admin(userID string) application.Principal {
	return application.Principal{UserID: userID, IsAdmin: true}
}
