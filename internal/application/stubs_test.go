package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type examRepoStub struct {
	mu      sync.Mutex
	nextID  int64
	exams   map[int64]Exam
	listErr error
	created []Exam
}

func newExamRepoStub(exams ...Exam) *examRepoStub {
	repo := &examRepoStub{exams: make(map[int64]Exam)}
	for _, exam := range exams {
		repo.exams[exam.ID] = exam
		if exam.ID > repo.nextID {
			repo.nextID = exam.ID
		}
	}
	return repo
}

func (r *examRepoStub) CreateExam(ctx context.Context, exam Exam) (Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	exam.ID = r.nextID
	r.exams[exam.ID] = exam
	r.created = append(r.created, exam)
	return exam, nil
}

func (r *examRepoStub) GetExam(ctx context.Context, id int64) (Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exam, ok := r.exams[id]
	if !ok {
		return Exam{}, ErrNotFound
	}
	return exam, nil
}

func (r *examRepoStub) UpdateExam(ctx context.Context, exam Exam) (Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exams[exam.ID]; !ok {
		return Exam{}, ErrNotFound
	}
	r.exams[exam.ID] = exam
	return exam, nil
}

func (r *examRepoStub) DeleteExam(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exams[id]; !ok {
		return ErrNotFound
	}
	delete(r.exams, id)
	return nil
}

func (r *examRepoStub) ListExams(ctx context.Context, filter ExamFilter) ([]Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}

	out := make([]Exam, 0, len(r.exams))
	for _, exam := range r.exams {
		if filter.Date != nil && exam.Date != *filter.Date {
			continue
		}
		if filter.Status != nil && exam.Status != *filter.Status {
			continue
		}
		if filter.UpdatedAfter != nil && !exam.UpdatedAt.After(*filter.UpdatedAfter) {
			continue
		}
		out = append(out, exam)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *examRepoStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exams)
}

type pendingKey struct {
	changeID string
	userID   string
}

type pendingStoreStub struct {
	mu      sync.Mutex
	changes map[pendingKey]PendingChange
	saveErr error
	saves   int
}

func newPendingStoreStub() *pendingStoreStub {
	return &pendingStoreStub{changes: make(map[pendingKey]PendingChange)}
}

func (p *pendingStoreStub) SavePending(ctx context.Context, change PendingChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saves++
	p.changes[pendingKey{change.ChangeID, change.UserID}] = change
	return nil
}

func (p *pendingStoreStub) GetPending(ctx context.Context, changeID, userID string) (PendingChange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	change, ok := p.changes[pendingKey{changeID, userID}]
	if !ok {
		return PendingChange{}, ErrNotFound
	}
	return change, nil
}

func (p *pendingStoreStub) ListPending(ctx context.Context, userID string) ([]PendingChange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PendingChange, 0)
	for key, change := range p.changes {
		if key.userID == userID {
			out = append(out, change)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangeID < out[j].ChangeID })
	return out, nil
}

func (p *pendingStoreStub) DeletePending(ctx context.Context, changeID, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := pendingKey{changeID, userID}
	if _, ok := p.changes[key]; !ok {
		return ErrNotFound
	}
	delete(p.changes, key)
	return nil
}

type notificationRepoStub struct {
	mu            sync.Mutex
	notifications map[string]Notification
	createErr     error
}

func newNotificationRepoStub(notifications ...Notification) *notificationRepoStub {
	repo := &notificationRepoStub{notifications: make(map[string]Notification)}
	for _, n := range notifications {
		repo.notifications[n.ID] = n
	}
	return repo
}

func (n *notificationRepoStub) CreateNotification(ctx context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.createErr != nil {
		return n.createErr
	}
	n.notifications[notification.ID] = notification
	return nil
}

func (n *notificationRepoStub) ListNotifications(ctx context.Context, userID string, updatedAfter *time.Time) ([]Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, 0)
	for _, notification := range n.notifications {
		if notification.UserID != userID {
			continue
		}
		if updatedAfter != nil && !notification.UpdatedAt.After(*updatedAfter) {
			continue
		}
		out = append(out, notification)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (n *notificationRepoStub) MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	notification, ok := n.notifications[id]
	if !ok || notification.UserID != userID {
		return ErrNotFound
	}
	notification.Read = true
	notification.UpdatedAt = at
	n.notifications[id] = notification
	return nil
}

func (n *notificationRepoStub) DeleteNotification(ctx context.Context, id, userID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	notification, ok := n.notifications[id]
	if !ok || notification.UserID != userID {
		return ErrNotFound
	}
	delete(n.notifications, id)
	return nil
}

func (n *notificationRepoStub) byTitle(userID, title string) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Notification
	for _, notification := range n.notifications {
		if notification.UserID == userID && notification.Title == title {
			out = append(out, notification)
		}
	}
	return out
}

type preferenceRepoStub struct {
	preferences []Preference
	err         error
}

func (p *preferenceRepoStub) ListPreferences(ctx context.Context, userID string, updatedAfter *time.Time) ([]Preference, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([]Preference, 0, len(p.preferences))
	for _, pref := range p.preferences {
		if updatedAfter != nil && !pref.UpdatedAt.After(*updatedAfter) {
			continue
		}
		out = append(out, pref)
	}
	return out, nil
}

type notifierStub struct {
	calls []string
	err   error
}

func (n *notifierStub) Notify(ctx context.Context, userID, title, message string) error {
	n.calls = append(n.calls, userID+"|"+title+"|"+message)
	return n.err
}

type transactorStub struct {
	calls int
	err   error
}

func (t *transactorStub) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	if t.err != nil {
		return t.err
	}
	return fn(ctx)
}

var errStorageDown = errors.New("storage unavailable")

func fixedNow() time.Time {
	return time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)
}

func upcomingExam(id int64, code, date, start, venue string, duration int, owner string) Exam {
	return Exam{
		ID:         id,
		CourseCode: code,
		CourseName: code + " Exam",
		Date:       date,
		StartTime:  start,
		Venue:      venue,
		Duration:   duration,
		Status:     StatusUpcoming,
		OwnerID:    owner,
		CreatedAt:  fixedNow().Add(-time.Hour),
		UpdatedAt:  fixedNow().Add(-time.Hour),
	}
}
