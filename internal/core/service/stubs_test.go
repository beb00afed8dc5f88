package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/insights/issue-tracker/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories shared by the service tests
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // keyed by ID
	err   error                   // if set, every call returns this error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context, page domain.Page) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.User
	for _, u := range r.users {
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	return window(all, page), nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for id, u := range r.users {
		if id != user.ID && u.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// put seeds an identity directly, bypassing the service.
func (r *stubUserRepo) put(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = cloneUser(u)
}

type stubIssueRepo struct {
	mu     sync.Mutex
	issues map[string]*domain.Issue

	// staleWrites makes the next n Update calls fail with ErrStaleWrite.
	staleWrites int
	updates     int
	lastFilter  domain.IssueFilter
	countErr    error
}

func newStubIssueRepo() *stubIssueRepo {
	return &stubIssueRepo{issues: make(map[string]*domain.Issue)}
}

func cloneIssue(i *domain.Issue) *domain.Issue {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

func (r *stubIssueRepo) Create(_ context.Context, issue *domain.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	issue.Version = 1
	r.issues[issue.ID] = cloneIssue(issue)
	return nil
}

func (r *stubIssueRepo) FindByID(_ context.Context, id string) (*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.issues[id]
	if !ok {
		return nil, domain.ErrIssueNotFound
	}
	return cloneIssue(i), nil
}

func (r *stubIssueRepo) List(_ context.Context, f domain.IssueFilter) ([]*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f
	var matched []*domain.Issue
	for _, i := range r.issues {
		if f.OwnerID != "" && i.OwnerID != f.OwnerID {
			continue
		}
		matched = append(matched, cloneIssue(i))
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].CreatedAt.After(matched[b].CreatedAt) })
	return window(matched, f.Page), nil
}

func (r *stubIssueRepo) Update(_ context.Context, issue *domain.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	stored, ok := r.issues[issue.ID]
	if !ok {
		return domain.ErrIssueNotFound
	}
	if r.staleWrites > 0 {
		r.staleWrites--
		// a concurrent writer bumped the row
		stored.Version++
		return domain.ErrStaleWrite
	}
	if stored.Version != issue.Version {
		return domain.ErrStaleWrite
	}
	issue.Version++
	r.issues[issue.ID] = cloneIssue(issue)
	return nil
}

func (r *stubIssueRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.issues[id]; !ok {
		return domain.ErrIssueNotFound
	}
	delete(r.issues, id)
	return nil
}

func (r *stubIssueRepo) CountByStatus(_ context.Context) (domain.StatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return nil, r.countErr
	}
	counts := domain.NewStatusCounts()
	for _, i := range r.issues {
		counts[i.Status]++
	}
	return counts, nil
}

func (r *stubIssueRepo) put(i *domain.Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i.Version == 0 {
		i.Version = 1
	}
	r.issues[i.ID] = cloneIssue(i)
}

type stubSnapshotRepo struct {
	mu        sync.Mutex
	snapshots map[time.Time]*domain.DailySnapshot
	creates   int
	createErr error
}

func newStubSnapshotRepo() *stubSnapshotRepo {
	return &stubSnapshotRepo{snapshots: make(map[time.Time]*domain.DailySnapshot)}
}

func (r *stubSnapshotRepo) FindByDate(_ context.Context, date time.Time) (*domain.DailySnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snapshots[domain.SnapshotDate(date)]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *stubSnapshotRepo) CreateIfAbsent(_ context.Context, s *domain.DailySnapshot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return false, r.createErr
	}
	key := domain.SnapshotDate(s.Date)
	if _, ok := r.snapshots[key]; ok {
		return false, nil
	}
	r.creates++
	clone := *s
	r.snapshots[key] = &clone
	return true, nil
}

func (r *stubSnapshotRepo) List(_ context.Context, from, to time.Time) ([]*domain.DailySnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.DailySnapshot
	for d, s := range r.snapshots {
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && d.After(to) {
			continue
		}
		clone := *s
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *stubSnapshotRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func window[T any](items []T, page domain.Page) []T {
	page = page.Normalize()
	if page.Skip >= len(items) {
		return nil
	}
	end := page.Skip + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Skip:end]
}

func ptr[T any](v T) *T { return &v }
