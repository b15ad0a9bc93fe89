package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type syncFixture struct {
	exams         *examRepoStub
	pending       *pendingStoreStub
	notifications *notificationRepoStub
	notifier      *notifierStub
	svc           *SyncService
}

func newSyncFixture(config SyncConfig, exams ...Exam) *syncFixture {
	f := &syncFixture{
		exams:    newExamRepoStub(exams...),
		pending:  newPendingStoreStub(),
		notifier: &notifierStub{},
		notifications: newNotificationRepoStub(
			Notification{ID: "n-1", UserID: "lecturer-1", Title: "Reminder"},
			Notification{ID: "n-2", UserID: "lecturer-2", Title: "Reminder"},
		),
	}
	examService := NewExamService(f.exams, nil, fixedNow, nil)
	f.svc = NewSyncService(examService, f.pending, f.notifications, f.notifier, config, fixedNow, nil)
	return f
}

func examData(t *testing.T, fields map[string]any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("failed to encode change data: %v", err)
	}
	return data
}

func createChange(t *testing.T, id, date, start, venue string, duration int) RawChange {
	return RawChange{
		ID:     id,
		Type:   "exam",
		Action: "create",
		Data: examData(t, map[string]any{
			"courseCode": "MA201",
			"courseName": "Calculus",
			"date":       date,
			"time":       start,
			"venue":      venue,
			"duration":   duration,
		}),
	}
}

func TestSyncService_ApplyBatch_FaultIsolation(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(SyncConfig{}, upcomingExam(1, "CS101", "2024-12-15", "09:00", "Room 101", 60, "lecturer-1"))
	principal := Principal{UserID: "lecturer-1"}

	result, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
		Principal: principal,
		DeviceID:  "tablet",
		Changes: []RawChange{
			createChange(t, "c-1", "2024-12-16", "09:00", "Room 101", 60),
			{ID: "c-2", Type: "exam", Action: "delete", Data: json.RawMessage(`{"id":99}`)},
			{ID: "c-3", Type: "notification", Action: "mark_read", Data: json.RawMessage(`{"id":"n-1"}`)},
		},
	})
	if err != nil {
		t.Fatalf("ApplyBatch returned error: %v", err)
	}

	want := BatchSummary{Total: 3, Processed: 3, Successful: 2, Failed: 1}
	if result.Summary != want {
		t.Fatalf("expected summary %#v, got %#v", want, result.Summary)
	}
	if len(result.Successful) != 2 || result.Successful[0].ChangeID != "c-1" || result.Successful[1].ChangeID != "c-3" {
		t.Fatalf("expected items 1 and 3 to succeed in order, got %#v", result.Successful)
	}
	if result.Successful[0].Outcome != OutcomeCreated || result.Successful[0].Exam == nil || result.Successful[0].Exam.OwnerID != "lecturer-1" {
		t.Fatalf("unexpected create result: %#v", result.Successful[0])
	}
	if result.Successful[1].Outcome != OutcomeMarkedRead {
		t.Fatalf("unexpected mark_read result: %#v", result.Successful[1])
	}
	failed := result.Failed[0]
	if failed.ChangeID != "c-2" || failed.ErrorKind != "not_found" || failed.Error != "not found" {
		t.Fatalf("unexpected failure: %#v", failed)
	}

	if len(f.notifier.calls) != 1 || f.notifier.calls[0] != "lecturer-1|Sync completed|2 successful, 1 failed" {
		t.Fatalf("unexpected notifier calls: %v", f.notifier.calls)
	}
}

func TestSyncService_ApplyBatch_ParksConflicts(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(SyncConfig{}, upcomingExam(1, "CS101", "2024-12-15", "10:00", "Room 101", 60, "lecturer-1"))
	principal := Principal{UserID: "lecturer-2"}
	change := createChange(t, "c-1", "2024-12-15", "09:00", "Room 101", 120)

	for i := 0; i < 2; i++ {
		result, err := f.svc.ApplyBatch(context.Background(), BatchRequest{Principal: principal, DeviceID: "phone", Changes: []RawChange{change}})
		if err != nil {
			t.Fatalf("ApplyBatch returned error: %v", err)
		}
		if result.Summary.Pending != 1 || result.Summary.Successful != 1 || len(result.Conflicts) != 1 {
			t.Fatalf("expected the create to be parked, got %#v", result)
		}
		item := result.Conflicts[0]
		if item.Outcome != OutcomePendingResolution || len(item.Conflicts) != 1 || item.Conflicts[0].Type != "both" {
			t.Fatalf("unexpected conflict item: %#v", item)
		}
	}

	pending, err := f.svc.ListPending(context.Background(), principal)
	if err != nil {
		t.Fatalf("ListPending returned error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected re-uploading the change to keep a single pending record, got %d", len(pending))
	}
	if pending[0].DeviceID != "phone" || pending[0].Type != "exam" || pending[0].Action != "create" || len(pending[0].Conflicts) != 1 {
		t.Fatalf("unexpected pending record: %#v", pending[0])
	}
	if f.exams.count() != 1 {
		t.Fatalf("expected no exam to be committed, have %d", f.exams.count())
	}

	others, err := f.svc.ListPending(context.Background(), Principal{UserID: "lecturer-1"})
	if err != nil {
		t.Fatalf("ListPending for other user returned error: %v", err)
	}
	if len(others) != 0 {
		t.Fatalf("expected pending changes to be private, got %#v", others)
	}
}

func TestSyncService_ScenarioD_AcceptCommitsPendingCreate(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(SyncConfig{}, upcomingExam(1, "CS101", "2024-12-15", "10:00", "Room 101", 60, "lecturer-1"))
	principal := Principal{UserID: "lecturer-2"}

	if _, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
		Principal: principal,
		Changes:   []RawChange{createChange(t, "c-1", "2024-12-15", "09:00", "Room 101", 120)},
	}); err != nil {
		t.Fatalf("ApplyBatch returned error: %v", err)
	}

	result, err := f.svc.Resolve(context.Background(), ResolveRequest{Principal: principal, ChangeID: "c-1", Decision: "accept"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Decision != DecisionAccept || result.Outcome != OutcomeCreated || result.Exam == nil {
		t.Fatalf("unexpected resolve result: %#v", result)
	}
	if result.Exam.OwnerID != "lecturer-2" || result.Exam.Venue != "Room 101" {
		t.Fatalf("unexpected committed exam: %#v", result.Exam)
	}
	if f.exams.count() != 2 {
		t.Fatalf("expected accepted exam to be committed, have %d exams", f.exams.count())
	}
	if _, err := f.pending.GetPending(context.Background(), "c-1", "lecturer-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected pending record to be deleted, got %v", err)
	}
}

func TestSyncService_Resolve_Modify(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(SyncConfig{}, upcomingExam(1, "CS101", "2024-12-15", "10:00", "Room 101", 60, "lecturer-1"))
	principal := Principal{UserID: "lecturer-2"}
	if _, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
		Principal: principal,
		Changes:   []RawChange{createChange(t, "c-1", "2024-12-15", "09:00", "Room 101", 120)},
	}); err != nil {
		t.Fatalf("ApplyBatch returned error: %v", err)
	}

	if _, err := f.svc.Resolve(context.Background(), ResolveRequest{Principal: principal, ChangeID: "c-1", Decision: "modify"}); err == nil {
		t.Fatalf("expected modify without data to fail")
	}
	if _, err := f.pending.GetPending(context.Background(), "c-1", "lecturer-2"); err != nil {
		t.Fatalf("expected pending record to survive a failed resolution, got %v", err)
	}

	modified := examData(t, map[string]any{
		"courseCode": "MA201", "courseName": "Calculus", "date": "2024-12-15", "time": "13:00", "venue": "Room 303", "duration": 90,
	})
	result, err := f.svc.Resolve(context.Background(), ResolveRequest{Principal: principal, ChangeID: "c-1", Decision: "modify", ModifiedData: modified})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Outcome != OutcomeCreated || result.Exam.Venue != "Room 303" || result.Exam.StartTime != "13:00" {
		t.Fatalf("expected modified data to be applied, got %#v", result)
	}
	if _, err := f.pending.GetPending(context.Background(), "c-1", "lecturer-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected pending record to be deleted, got %v", err)
	}
}

func TestSyncService_Resolve_RejectAndUnknownDecision(t *testing.T) {
	t.Parallel()

	for _, decision := range []string{"reject", "postpone", "ACCEPT", " Modify "} {
		decision := decision
		t.Run(decision, func(t *testing.T) {
			t.Parallel()

			f := newSyncFixture(SyncConfig{}, upcomingExam(1, "CS101", "2024-12-15", "10:00", "Room 101", 60, "lecturer-1"))
			principal := Principal{UserID: "lecturer-2"}
			if _, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
				Principal: principal,
				Changes:   []RawChange{createChange(t, "c-1", "2024-12-15", "09:00", "Room 101", 120)},
			}); err != nil {
				t.Fatalf("ApplyBatch returned error: %v", err)
			}

			result, err := f.svc.Resolve(context.Background(), ResolveRequest{Principal: principal, ChangeID: "c-1", Decision: decision})
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if result.Decision != DecisionReject || result.Outcome != OutcomeRejected || result.Exam != nil {
				t.Fatalf("expected a reject, got %#v", result)
			}
			if f.exams.count() != 1 {
				t.Fatalf("expected no mutation, have %d exams", f.exams.count())
			}
			if _, err := f.pending.GetPending(context.Background(), "c-1", "lecturer-2"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected pending record to be deleted, got %v", err)
			}
		})
	}
}

func TestSyncService_Resolve_ConcurrentAcceptsCommitOnce(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(SyncConfig{}, upcomingExam(1, "CS101", "2024-12-15", "10:00", "Room 101", 60, "lecturer-1"))
	principal := Principal{UserID: "lecturer-2"}
	if _, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
		Principal: principal,
		Changes:   []RawChange{createChange(t, "c-1", "2024-12-15", "09:00", "Room 101", 120)},
	}); err != nil {
		t.Fatalf("ApplyBatch returned error: %v", err)
	}

	const attempts = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		missing  int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Resolve(context.Background(), ResolveRequest{Principal: principal, ChangeID: "c-1", Decision: "accept"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrNotFound):
				missing++
			default:
				t.Errorf("unexpected resolve error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if accepted != 1 || missing != attempts-1 {
		t.Fatalf("expected one accept and %d not found, got %d accepted and %d not found", attempts-1, accepted, missing)
	}
	if f.exams.count() != 2 {
		t.Fatalf("expected the pending create to be committed once, have %d exams", f.exams.count())
	}
	if f.svc.resolving.held() != 0 {
		t.Fatalf("expected resolution locks to be released, %d remain", f.svc.resolving.held())
	}
}

func TestSyncService_Resolve_ScopedToOwner(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(SyncConfig{}, upcomingExam(1, "CS101", "2024-12-15", "10:00", "Room 101", 60, "lecturer-1"))
	if _, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
		Principal: Principal{UserID: "lecturer-2"},
		Changes:   []RawChange{createChange(t, "c-1", "2024-12-15", "09:00", "Room 101", 120)},
	}); err != nil {
		t.Fatalf("ApplyBatch returned error: %v", err)
	}

	_, err := f.svc.Resolve(context.Background(), ResolveRequest{Principal: Principal{UserID: "lecturer-1", IsAdmin: true}, ChangeID: "c-1", Decision: "accept"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's change, got %v", err)
	}
	if _, err := f.svc.Resolve(context.Background(), ResolveRequest{Principal: Principal{UserID: "lecturer-2"}, ChangeID: "missing", Decision: "accept"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown change, got %v", err)
	}
}

func TestSyncService_ApplyBatch_UpdateAndDeletePermissions(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(SyncConfig{},
		upcomingExam(1, "CS101", "2024-12-15", "09:00", "Room 101", 60, "lecturer-1"),
		upcomingExam(2, "CS102", "2024-12-15", "13:00", "Room 202", 60, "lecturer-1"),
	)

	result, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
		Principal: Principal{UserID: "lecturer-2"},
		Changes: []RawChange{
			{ID: "c-1", Type: "exam", Action: "update", Data: json.RawMessage(`{"id":1,"venue":"Room 303"}`)},
			{ID: "c-2", Type: "exam", Action: "delete", Data: json.RawMessage(`{"id":2}`)},
			{ID: "c-3", Type: "notification", Action: "delete", Data: json.RawMessage(`{"id":"n-1"}`)},
		},
	})
	if err != nil {
		t.Fatalf("ApplyBatch returned error: %v", err)
	}
	if result.Summary.Failed != 3 {
		t.Fatalf("expected every change to fail for a non owner, got %#v", result.Summary)
	}
	for i, kind := range []string{"permission", "permission", "not_found"} {
		if result.Failed[i].ErrorKind != kind {
			t.Errorf("item %d: expected %s, got %s", i, kind, result.Failed[i].ErrorKind)
		}
	}

	result, err = f.svc.ApplyBatch(context.Background(), BatchRequest{
		Principal: Principal{UserID: "registrar", IsAdmin: true},
		Changes: []RawChange{
			{ID: "c-4", Type: "exam", Action: "update", Data: json.RawMessage(`{"id":1,"venue":"Room 202"}`)},
			{ID: "c-5", Type: "exam", Action: "delete", Data: json.RawMessage(`{"id":2}`)},
		},
	})
	if err != nil {
		t.Fatalf("ApplyBatch returned error: %v", err)
	}
	if result.Summary.Successful != 2 || result.Successful[0].Outcome != OutcomeUpdated || result.Successful[1].Outcome != OutcomeDeleted {
		t.Fatalf("expected admin update and delete to succeed, got %#v", result)
	}
	if result.Successful[0].Exam.Venue != "Room 202" {
		t.Fatalf("expected update without recheck to be written, got %#v", result.Successful[0].Exam)
	}
}

func TestSyncService_ApplyBatch_RecheckOnUpdate(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(SyncConfig{RecheckOnUpdate: true},
		upcomingExam(1, "CS101", "2024-12-15", "09:00", "Room 101", 60, "lecturer-1"),
		upcomingExam(2, "CS102", "2024-12-15", "13:00", "Room 202", 60, "lecturer-1"),
	)
	principal := Principal{UserID: "lecturer-1"}

	result, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
		Principal: principal,
		Changes:   []RawChange{{ID: "c-1", Type: "exam", Action: "update", Data: json.RawMessage(`{"id":1,"venue":"Room 202"}`)}},
	})
	if err != nil {
		t.Fatalf("ApplyBatch returned error: %v", err)
	}
	if result.Summary.Pending != 1 || result.Conflicts[0].Conflicts[0].Type != "venue_conflict" {
		t.Fatalf("expected colliding update to be parked, got %#v", result)
	}
	if exam, _ := f.exams.GetExam(context.Background(), 1); exam.Venue != "Room 101" {
		t.Fatalf("expected parked update not to be written, venue is %q", exam.Venue)
	}

	resolved, err := f.svc.Resolve(context.Background(), ResolveRequest{Principal: principal, ChangeID: "c-1", Decision: "accept"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.Outcome != OutcomeUpdated || resolved.Exam.Venue != "Room 202" {
		t.Fatalf("expected accepted update to be written, got %#v", resolved)
	}
}

func TestSyncService_ApplyBatch_UnknownChanges(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(SyncConfig{})
	result, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
		Principal: Principal{UserID: "lecturer-1"},
		Changes: []RawChange{
			{ID: "c-1", Type: "room", Action: "create", Data: json.RawMessage(`{}`)},
			{ID: "c-2", Type: "exam", Action: "archive", Data: json.RawMessage(`{}`)},
			{Type: "exam", Action: "create", Data: json.RawMessage(`{}`)},
		},
	})
	if err != nil {
		t.Fatalf("ApplyBatch returned error: %v", err)
	}
	if result.Summary.Failed != 3 {
		t.Fatalf("expected all items to fail, got %#v", result.Summary)
	}
	if result.Failed[0].ErrorKind != "unknown_change_type" || !strings.Contains(result.Failed[0].Error, "room") {
		t.Fatalf("unexpected unknown type failure: %#v", result.Failed[0])
	}
	if result.Failed[1].ErrorKind != "unknown_action" || !strings.Contains(result.Failed[1].Error, "archive") {
		t.Fatalf("unexpected unknown action failure: %#v", result.Failed[1])
	}
	if result.Failed[2].ErrorKind != "validation" {
		t.Fatalf("expected missing change id to fail validation, got %#v", result.Failed[2])
	}
	if f.notifier.calls[0] != "lecturer-1|Sync completed|0 successful, 3 failed" {
		t.Fatalf("unexpected notification: %v", f.notifier.calls)
	}
}

func TestSyncService_ApplyBatch_StorageErrorsAreNotLeaked(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(SyncConfig{})
	f.pending.saveErr = errStorageDown
	f.exams.exams[1] = upcomingExam(1, "CS101", "2024-12-15", "10:00", "Room 101", 60, "lecturer-1")
	f.notifier.err = errors.New("mail relay down")

	result, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
		Principal: Principal{UserID: "lecturer-2"},
		Changes:   []RawChange{createChange(t, "c-1", "2024-12-15", "09:00", "Room 101", 120)},
	})
	if err != nil {
		t.Fatalf("ApplyBatch returned error: %v", err)
	}
	if result.Summary.Failed != 1 || result.Failed[0].ErrorKind != "unexpected" || result.Failed[0].Error != "internal error" {
		t.Fatalf("expected a generic failure, got %#v", result.Failed)
	}
}

func TestSyncService_ApplyBatch_StorageUnavailable(t *testing.T) {
	t.Parallel()

	t.Run("before the batch", func(t *testing.T) {
		t.Parallel()

		f := newSyncFixture(SyncConfig{HealthCheck: func(context.Context) error { return errStorageDown }})
		_, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
			Principal: Principal{UserID: "lecturer-1"},
			Changes:   []RawChange{createChange(t, "c-1", "2024-12-15", "09:00", "Room 101", 60)},
		})
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
		if f.exams.count() != 0 || len(f.notifier.calls) != 0 {
			t.Fatalf("expected nothing to be applied or announced")
		}
	})

	t.Run("during the batch", func(t *testing.T) {
		t.Parallel()

		var checks atomic.Int32
		f := newSyncFixture(SyncConfig{HealthCheck: func(context.Context) error {
			if checks.Add(1) > 1 {
				return errStorageDown
			}
			return nil
		}})
		f.pending.saveErr = errStorageDown
		f.exams.exams[1] = upcomingExam(1, "CS101", "2024-12-15", "10:00", "Room 101", 60, "lecturer-1")

		_, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
			Principal: Principal{UserID: "lecturer-2"},
			Changes: []RawChange{
				createChange(t, "c-1", "2024-12-15", "09:00", "Room 101", 120),
				createChange(t, "c-2", "2024-12-16", "09:00", "Room 101", 60),
			},
		})
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
		if checks.Load() != 2 {
			t.Fatalf("expected a health check before the batch and after the failure, got %d", checks.Load())
		}
		if f.exams.count() != 1 {
			t.Fatalf("expected the batch to stop at the storage failure, have %d exams", f.exams.count())
		}
	})

	t.Run("healthy storage keeps item failures", func(t *testing.T) {
		t.Parallel()

		f := newSyncFixture(SyncConfig{HealthCheck: func(context.Context) error { return nil }})
		f.pending.saveErr = errStorageDown
		f.exams.exams[1] = upcomingExam(1, "CS101", "2024-12-15", "10:00", "Room 101", 60, "lecturer-1")

		result, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
			Principal: Principal{UserID: "lecturer-2"},
			Changes:   []RawChange{createChange(t, "c-1", "2024-12-15", "09:00", "Room 101", 120)},
		})
		if err != nil {
			t.Fatalf("ApplyBatch returned error: %v", err)
		}
		if result.Summary.Failed != 1 || result.Failed[0].ErrorKind != "unexpected" {
			t.Fatalf("expected a per item failure, got %#v", result.Failed)
		}
	})
}

func TestSyncService_ApplyBatch_RejectsOversizedBatches(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(SyncConfig{MaxBatchSize: 1})
	_, err := f.svc.ApplyBatch(context.Background(), BatchRequest{
		Principal: Principal{UserID: "lecturer-1"},
		Changes: []RawChange{
			createChange(t, "c-1", "2024-12-15", "09:00", "Room 101", 60),
			createChange(t, "c-2", "2024-12-16", "09:00", "Room 101", 60),
		},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(f.notifier.calls) != 0 {
		t.Fatalf("expected no notification for a rejected batch")
	}

	if _, err := f.svc.ApplyBatch(context.Background(), BatchRequest{}); !errors.Is(err, ErrPermission) {
		t.Fatalf("expected ErrPermission for anonymous batch, got %v", err)
	}
}

func TestStoredNotifier(t *testing.T) {
	t.Parallel()

	repo := newNotificationRepoStub()
	notifier := NewStoredNotifier(repo, func() string { return "n-42" }, fixedNow)

	if err := notifier.Notify(context.Background(), "lecturer-1", "Sync completed", "1 successful, 0 failed"); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	stored := repo.byTitle("lecturer-1", "Sync completed")
	if len(stored) != 1 || stored[0].ID != "n-42" || stored[0].Kind != "sync" || !stored[0].CreatedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected stored notification: %#v", stored)
	}

	repo.createErr = errStorageDown
	if err := notifier.Notify(context.Background(), "lecturer-1", "Sync completed", "x"); !errors.Is(err, errStorageDown) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
