package persistence

import "time"

// Exam is a timetable booking row.
type Exam struct {
	ID         int64
	CourseCode string
	CourseName string
	ExamDate   string
	StartTime  string
	Venue      string
	Duration   int
	Status     string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PendingChange is an offline mutation parked until a user resolves it.
// Payload holds the original change data and the detected conflicts as JSON.
type PendingChange struct {
	ChangeID   string
	UserID     string
	DeviceID   string
	ChangeType string
	Action     string
	Payload    []byte
	CreatedAt  time.Time
}

// Notification is a message addressed to a single user.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Kind      string
	Read      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserPreference is a single key/value setting owned by a user.
type UserPreference struct {
	UserID    string
	Key       string
	Value     string
	UpdatedAt time.Time
}
