package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Change type and action tags accepted from offline clients.
const (
	ChangeTypeExam         = "exam"
	ChangeTypeNotification = "notification"

	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionMarkRead = "mark_read"
)

// Change is a decoded offline mutation. The set of implementations is closed;
// dispatch on it with a type switch.
type Change interface {
	ChangeID() string
	sealed()
}

// ExamCreate schedules a new exam.
type ExamCreate struct {
	ID    string
	Input ExamInput
}

// ExamUpdate overwrites fields of an existing exam.
type ExamUpdate struct {
	ID     string
	ExamID int64
	Patch  ExamPatch
}

// ExamDelete removes an exam.
type ExamDelete struct {
	ID     string
	ExamID int64
}

// NotificationMarkRead marks one of the actor's notifications as read.
type NotificationMarkRead struct {
	ID             string
	NotificationID string
}

// NotificationDelete removes one of the actor's notifications.
type NotificationDelete struct {
	ID             string
	NotificationID string
}

func (c ExamCreate) ChangeID() string           { return c.ID }
func (c ExamUpdate) ChangeID() string           { return c.ID }
func (c ExamDelete) ChangeID() string           { return c.ID }
func (c NotificationMarkRead) ChangeID() string { return c.ID }
func (c NotificationDelete) ChangeID() string   { return c.ID }

func (ExamCreate) sealed()           {}
func (ExamUpdate) sealed()           {}
func (ExamDelete) sealed()           {}
func (NotificationMarkRead) sealed() {}
func (NotificationDelete) sealed()   {}

type examPayload struct {
	ID         flexibleID `json:"id"`
	CourseCode *string    `json:"courseCode"`
	CourseName *string    `json:"courseName"`
	Date       *string    `json:"date"`
	Time       *string    `json:"time"`
	Venue      *string    `json:"venue"`
	Duration   *int       `json:"duration"`
	Status     *string    `json:"status"`
}

type notificationPayload struct {
	ID             string `json:"id"`
	NotificationID string `json:"notificationId"`
}

// flexibleID accepts ids sent as JSON numbers or numeric strings.
type flexibleID int64

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if text == "" || text == "null" {
		*f = 0
		return nil
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", data)
	}
	*f = flexibleID(id)
	return nil
}

// DecodeChange turns a raw change record into its typed form. Unknown types or
// actions yield UnknownChangeTypeError or UnknownActionError; malformed data
// yields a ValidationError.
func DecodeChange(raw RawChange) (Change, error) {
	switch raw.Type {
	case ChangeTypeExam:
		switch raw.Action {
		case ActionCreate, ActionUpdate, ActionDelete:
		default:
			return nil, &UnknownActionError{Type: raw.Type, Action: raw.Action}
		}

		var payload examPayload
		if err := decodeData(raw.Data, &payload); err != nil {
			return nil, err
		}

		switch raw.Action {
		case ActionCreate:
			return ExamCreate{ID: raw.ID, Input: payload.input()}, nil
		case ActionUpdate:
			if payload.ID <= 0 {
				return nil, missingField("id", "exam id is required")
			}
			return ExamUpdate{ID: raw.ID, ExamID: int64(payload.ID), Patch: payload.patch()}, nil
		default:
			if payload.ID <= 0 {
				return nil, missingField("id", "exam id is required")
			}
			return ExamDelete{ID: raw.ID, ExamID: int64(payload.ID)}, nil
		}

	case ChangeTypeNotification:
		switch raw.Action {
		case ActionMarkRead, ActionDelete:
		default:
			return nil, &UnknownActionError{Type: raw.Type, Action: raw.Action}
		}

		var payload notificationPayload
		if err := decodeData(raw.Data, &payload); err != nil {
			return nil, err
		}
		id := payload.ID
		if id == "" {
			id = payload.NotificationID
		}
		if strings.TrimSpace(id) == "" {
			return nil, missingField("id", "notification id is required")
		}

		if raw.Action == ActionMarkRead {
			return NotificationMarkRead{ID: raw.ID, NotificationID: id}, nil
		}
		return NotificationDelete{ID: raw.ID, NotificationID: id}, nil
	}

	return nil, &UnknownChangeTypeError{Type: raw.Type}
}

func decodeData(data json.RawMessage, target any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return missingField("data", "is required")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return missingField("data", "is not a valid change payload")
	}
	return nil
}

func missingField(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

func (p examPayload) input() ExamInput {
	return ExamInput{
		CourseCode: deref(p.CourseCode),
		CourseName: deref(p.CourseName),
		Date:       deref(p.Date),
		StartTime:  deref(p.Time),
		Venue:      deref(p.Venue),
		Duration:   deref(p.Duration),
		Status:     deref(p.Status),
	}
}

func (p examPayload) patch() ExamPatch {
	return ExamPatch{
		CourseCode: p.CourseCode,
		CourseName: p.CourseName,
		Date:       p.Date,
		StartTime:  p.Time,
		Venue:      p.Venue,
		Duration:   p.Duration,
		Status:     p.Status,
	}
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
