package application

import (
	"encoding/json"
	"time"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// Exam statuses.
const (
	StatusUpcoming  = "upcoming"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Exam represents a persisted exam booking.
type Exam struct {
	ID         int64
	CourseCode string
	CourseName string
	Date       string // YYYY-MM-DD
	StartTime  string // HH:MM
	Venue      string
	Duration   int // minutes
	Status     string
	OwnerID    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExamInput captures caller provided fields for a new exam.
type ExamInput struct {
	CourseCode string
	CourseName string
	Date       string
	StartTime  string
	Venue      string
	Duration   int
	Status     string
}

// ExamPatch carries the fields of an update. Nil fields keep their current value.
type ExamPatch struct {
	CourseCode *string
	CourseName *string
	Date       *string
	StartTime  *string
	Venue      *string
	Duration   *int
	Status     *string
}

// ExamFilter narrows exam repository queries.
type ExamFilter struct {
	Date         *string
	Status       *string
	UpdatedAfter *time.Time
}

// Conflict describes a collision between a candidate and an existing exam.
type Conflict struct {
	ExamID     int64
	CourseCode string
	Type       string
	Severity   string
	Message    string
}

// ConflictCheckInput is the request shape of a standalone conflict check.
type ConflictCheckInput struct {
	CourseCode string
	CourseName string
	Date       string
	StartTime  string
	Venue      string
	Duration   int
	ExcludeID  *int64
}

// ConflictSummary counts conflicts by severity.
type ConflictSummary struct {
	Total    int
	Errors   int
	Warnings int
}

// ConflictCheckResult reports the outcome of a conflict check.
type ConflictCheckResult struct {
	HasConflicts bool
	Conflicts    []Conflict
	Summary      ConflictSummary
}

// ConflictPair is an entry of the system wide conflict report.
type ConflictPair struct {
	First    Exam
	Second   Exam
	Type     string
	Severity string
	Message  string
}

// PendingChange is an offline change parked until its owner resolves it.
type PendingChange struct {
	ChangeID  string
	UserID    string
	DeviceID  string
	Type      string
	Action    string
	Data      json.RawMessage
	Conflicts []Conflict
	CreatedAt time.Time
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

// Preference is a key/value user setting.
type Preference struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// RawChange is a change record as uploaded by an offline client.
type RawChange struct {
	ID        string
	Type      string
	Action    string
	Data      json.RawMessage
	Timestamp string
}

// BatchRequest wraps the data required to reconcile an offline batch.
type BatchRequest struct {
	Principal Principal
	DeviceID  string
	Changes   []RawChange
}

// Batch item outcomes.
const (
	OutcomeCreated           = "created"
	OutcomeUpdated           = "updated"
	OutcomeDeleted           = "deleted"
	OutcomeMarkedRead        = "marked_read"
	OutcomePendingResolution = "pending_resolution"
	OutcomeRejected          = "rejected"
)

// BatchItem is the per-change result of a batch.
type BatchItem struct {
	ChangeID  string
	Type      string
	Action    string
	Outcome   string
	Exam      *Exam
	Conflicts []Conflict
	ErrorKind string
	Error     string
}

// BatchSummary counts the outcomes of a batch.
type BatchSummary struct {
	Total      int
	Processed  int
	Successful int
	Failed     int
	Pending    int
}

// BatchResult is the outcome of ApplyBatch. Items parked for resolution appear
// in both Successful and Conflicts.
type BatchResult struct {
	Summary    BatchSummary
	Successful []BatchItem
	Failed     []BatchItem
	Conflicts  []BatchItem
}

// ResolveRequest wraps the data required to resolve a pending change.
type ResolveRequest struct {
	Principal    Principal
	ChangeID     string
	Decision     string
	ModifiedData json.RawMessage
}

// ResolveResult reports what a resolution did.
type ResolveResult struct {
	ChangeID string
	Decision Decision
	Outcome  string
	Exam     *Exam
}

// SnapshotData is the content of a snapshot.
type SnapshotData struct {
	Exams         []Exam
	Notifications []Notification
	Preferences   []Preference
}

// Snapshot is a versioned view of the data visible to a user. Payload holds the
// encoded Data that Version fingerprints.
type Snapshot struct {
	Timestamp time.Time
	Version   string
	Data      SnapshotData
	Payload   json.RawMessage
}
