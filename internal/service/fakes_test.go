package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"subtrack/internal/model"
	"subtrack/internal/repository"

	"google.golang.org/api/calendar/v3"
)

// fakeStore backs the user, subscription and credential repositories with maps.
type fakeStore struct {
	mu    sync.Mutex
	users map[string]*model.User
	subs  map[string]*model.Subscription
	order []string
	creds map[string]*model.CalendarCredential
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[string]*model.User{},
		subs:  map[string]*model.Subscription{},
		creds: map[string]*model.CalendarCredential{},
	}
}

func (f *fakeStore) withSubscriptions(u *model.User) *model.User {
	cp := *u
	cp.Subscriptions = []model.Subscription{}
	for _, id := range f.order {
		if s, ok := f.subs[id]; ok && s.UserID == u.UserID {
			cp.Subscriptions = append(cp.Subscriptions, *s)
		}
	}
	return &cp
}

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
	}
	cp := *u
	f.users[u.UserID] = &cp
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return f.withSubscriptions(u), nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return f.withSubscriptions(u), nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindUserBySubscriptionID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return nil, nil
	}
	u, ok := f.users[s.UserID]
	if !ok {
		return nil, nil
	}
	return f.withSubscriptions(u), nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, u := range f.users {
		out = append(out, *f.withSubscriptions(u))
	}
	return out, nil
}

func (f *fakeStore) update(id string, fn func(u *model.User)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		fn(u)
	}
}

func (f *fakeStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	f.update(id, func(u *model.User) { u.LastLogin = &at })
	return nil
}

func (f *fakeStore) UpdatePreferences(_ context.Context, id string, prefs model.UserPreferences, enabled bool) error {
	f.update(id, func(u *model.User) { u.Preferences = prefs; u.RemindersEnabled = enabled })
	return nil
}

func (f *fakeStore) SetActive(_ context.Context, id string, active bool) error {
	f.update(id, func(u *model.User) { u.IsActive = active })
	return nil
}

func (f *fakeStore) SetAdmin(_ context.Context, id string, admin bool) error {
	f.update(id, func(u *model.User) { u.IsAdmin = admin })
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return false, nil
	}
	delete(f.users, id)
	return true, nil
}

func (f *fakeStore) CreateSubscription(_ context.Context, s *model.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.subs[s.ID] = &cp
	f.order = append(f.order, s.ID)
	return nil
}

func (f *fakeStore) GetSubscriptionByID(_ context.Context, id string) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID string) ([]model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Subscription{}
	for _, id := range f.order {
		if s, ok := f.subs[id]; ok && s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateSubscription(_ context.Context, s *model.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.subs[s.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteSubscription(_ context.Context, userID, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok || s.UserID != userID {
		return false, nil
	}
	delete(f.subs, id)
	return true, nil
}

func (f *fakeStore) GetCredential(_ context.Context, userID string) (*model.CalendarCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) UpsertCredential(_ context.Context, userID string, cred *model.CalendarCredential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *cred
	f.creds[userID] = &cp
	return nil
}

func (f *fakeStore) DeleteCredential(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.creds, userID)
	return nil
}

var (
	_ repository.UserRepository         = (*fakeStore)(nil)
	_ repository.SubscriptionRepository = (*fakeStore)(nil)
	_ repository.CredentialRepository   = (*fakeStore)(nil)
)

// fakeCalendar records every inserted event.
type fakeCalendar struct {
	mu      sync.Mutex
	events  []*calendar.Event
	opened  int
	err     error
	nextSeq int
}

func (c *fakeCalendar) Client(_ context.Context, _ string, _ *model.CalendarCredential) (CalendarClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened++
	return c, nil
}

func (c *fakeCalendar) InsertEvent(_ context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.events = append(c.events, event)
	c.nextSeq++
	created := *event
	created.Id = fmt.Sprintf("evt-%d", c.nextSeq)
	created.HtmlLink = "https://calendar.example.com/" + calendarID + "/" + created.Id
	return &created, nil
}

func (c *fakeCalendar) inserts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []model.ReminderLedgerEntry
}

func (l *fakeLedger) Record(_ context.Context, e *model.ReminderLedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *e)
	return nil
}

func (l *fakeLedger) Last(_ context.Context, subscriptionID string) (*model.ReminderLedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].SubscriptionID == subscriptionID {
			e := l.entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return "msg-1", nil
}
