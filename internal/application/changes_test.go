package application

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeChange(t *testing.T) {
	t.Parallel()

	create, err := DecodeChange(RawChange{
		ID: "c-1", Type: "exam", Action: "create",
		Data: json.RawMessage(`{"courseCode":"CS101","courseName":"Intro","date":"2024-12-15","time":"09:00","venue":"Room 101","duration":120}`),
	})
	if err != nil {
		t.Fatalf("DecodeChange create returned error: %v", err)
	}
	examCreate, ok := create.(ExamCreate)
	if !ok {
		t.Fatalf("expected ExamCreate, got %T", create)
	}
	if examCreate.ChangeID() != "c-1" || examCreate.Input.StartTime != "09:00" || examCreate.Input.Duration != 120 {
		t.Fatalf("unexpected create payload: %#v", examCreate)
	}

	update, err := DecodeChange(RawChange{ID: "c-2", Type: "exam", Action: "update", Data: json.RawMessage(`{"id":"7","venue":"Room 202"}`)})
	if err != nil {
		t.Fatalf("DecodeChange update returned error: %v", err)
	}
	examUpdate, ok := update.(ExamUpdate)
	if !ok || examUpdate.ExamID != 7 {
		t.Fatalf("expected ExamUpdate for exam 7, got %#v", update)
	}
	if examUpdate.Patch.Venue == nil || *examUpdate.Patch.Venue != "Room 202" || examUpdate.Patch.Date != nil {
		t.Fatalf("expected only venue in patch, got %#v", examUpdate.Patch)
	}

	del, err := DecodeChange(RawChange{ID: "c-3", Type: "exam", Action: "delete", Data: json.RawMessage(`{"id":7}`)})
	if err != nil {
		t.Fatalf("DecodeChange delete returned error: %v", err)
	}
	if got, ok := del.(ExamDelete); !ok || got.ExamID != 7 {
		t.Fatalf("expected ExamDelete for exam 7, got %#v", del)
	}

	read, err := DecodeChange(RawChange{ID: "c-4", Type: "notification", Action: "mark_read", Data: json.RawMessage(`{"notificationId":"n-1"}`)})
	if err != nil {
		t.Fatalf("DecodeChange mark_read returned error: %v", err)
	}
	if got, ok := read.(NotificationMarkRead); !ok || got.NotificationID != "n-1" {
		t.Fatalf("expected NotificationMarkRead for n-1, got %#v", read)
	}

	remove, err := DecodeChange(RawChange{ID: "c-5", Type: "notification", Action: "delete", Data: json.RawMessage(`{"id":"n-2"}`)})
	if err != nil {
		t.Fatalf("DecodeChange notification delete returned error: %v", err)
	}
	if got, ok := remove.(NotificationDelete); !ok || got.NotificationID != "n-2" {
		t.Fatalf("expected NotificationDelete for n-2, got %#v", remove)
	}
}

func TestDecodeChange_Errors(t *testing.T) {
	t.Parallel()

	_, err := DecodeChange(RawChange{ID: "c-1", Type: "room", Action: "create", Data: json.RawMessage(`{}`)})
	var typeErr *UnknownChangeTypeError
	if !errors.As(err, &typeErr) || typeErr.Type != "room" {
		t.Fatalf("expected UnknownChangeTypeError carrying room, got %v", err)
	}

	_, err = DecodeChange(RawChange{ID: "c-2", Type: "exam", Action: "archive", Data: json.RawMessage(`{}`)})
	var actionErr *UnknownActionError
	if !errors.As(err, &actionErr) || actionErr.Type != "exam" || actionErr.Action != "archive" {
		t.Fatalf("expected UnknownActionError carrying exam/archive, got %v", err)
	}

	_, err = DecodeChange(RawChange{ID: "c-3", Type: "notification", Action: "create", Data: json.RawMessage(`{}`)})
	if !errors.As(err, &actionErr) || actionErr.Action != "create" {
		t.Fatalf("expected UnknownActionError for notification create, got %v", err)
	}

	invalid := []RawChange{
		{ID: "c-4", Type: "exam", Action: "update", Data: json.RawMessage(`{"venue":"Room 1"}`)},
		{ID: "c-5", Type: "exam", Action: "delete", Data: json.RawMessage(`{"id":"abc"}`)},
		{ID: "c-6", Type: "exam", Action: "create"},
		{ID: "c-7", Type: "notification", Action: "delete", Data: json.RawMessage(`{}`)},
		{ID: "c-8", Type: "exam", Action: "create", Data: json.RawMessage(`[1,2]`)},
	}
	for _, raw := range invalid {
		_, err := DecodeChange(raw)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("%s: expected ValidationError, got %v", raw.ID, err)
		}
	}
}

func TestParseDecision(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  Decision
		known bool
	}{
		{"accept", DecisionAccept, true},
		{"modify", DecisionModify, true},
		{"reject", DecisionReject, true},
		{"ACCEPT", DecisionReject, false},
		{" modify ", DecisionReject, false},
		{"approve", DecisionReject, false},
		{"", DecisionReject, false},
	}
	for _, tc := range cases {
		got, known := ParseDecision(tc.input)
		if got != tc.want || known != tc.known {
			t.Errorf("ParseDecision(%q) = %s, %v; want %s, %v", tc.input, got, known, tc.want, tc.known)
		}
	}
}
