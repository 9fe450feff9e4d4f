package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"subtrack/internal/middleware"
	"subtrack/internal/model"
	"subtrack/internal/service"
	"subtrack/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := util.IssueJWT(userID, userID+"@example.com", false, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func do(t *testing.T, h http.Handler, method, target, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type stubOAuth struct {
	begin    func(ctx context.Context, userID string) (string, error)
	complete func(ctx context.Context, code, state string) (*model.CalendarCredential, error)
	status   service.AuthorizationStatus
}

func (s *stubOAuth) BeginAuthorization(ctx context.Context, userID string) (string, error) {
	return s.begin(ctx, userID)
}

func (s *stubOAuth) CompleteAuthorization(ctx context.Context, code, state string) (*model.CalendarCredential, error) {
	return s.complete(ctx, code, state)
}

func (s *stubOAuth) Status(context.Context, string) (service.AuthorizationStatus, error) {
	return s.status, nil
}

func (s *stubOAuth) Disconnect(context.Context, string) error { return nil }

type stubReminders struct {
	calls []string
	err   error
}

func (s *stubReminders) ScheduleReminder(_ context.Context, userID, subscriptionID string) (*model.ScheduledReminder, error) {
	s.calls = append(s.calls, userID+"/"+subscriptionID)
	if s.err != nil {
		return nil, s.err
	}
	return &model.ScheduledReminder{EventID: "evt-1", HTMLLink: "https://calendar.example.com/evt-1"}, nil
}

func (s *stubReminders) LastReminder(_ context.Context, userID, subscriptionID string) (*model.ReminderLedgerEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.ReminderLedgerEntry{
		SubscriptionID: subscriptionID,
		UserID:         userID,
		EventID:        "evt-1",
		HTMLLink:       "https://calendar.example.com/evt-1",
		ScheduledAt:    time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}, nil
}

func newReminderMux(oauth service.OAuthService, reminders service.ReminderService) *http.ServeMux {
	mux := http.NewServeMux()
	h := NewReminderHandler(oauth, reminders, zerolog.Nop())
	h.RegisterRoutes(mux,
		middleware.AuthMiddleware(testSecret, zerolog.Nop()),
		middleware.BrowserAuthMiddleware(testSecret, zerolog.Nop()))
	return mux
}

func TestSetReminderResponses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"not connected", service.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated"},
		{"malformed id", service.ErrInvalidSubscriptionID, http.StatusBadRequest, "validation"},
		{"unknown subscription", service.ErrSubscriptionNotFound, http.StatusNotFound, "not_found"},
		{"provider failure", &service.SchedulingError{StatusCode: 403, Detail: "quota secret detail"}, http.StatusInternalServerError, "external_scheduling"},
		{"storage failure", errors.New("connection refused"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newReminderMux(&stubOAuth{}, &stubReminders{err: tt.err})
			rec := do(t, mux, http.MethodGet, "/reminders/set-reminder/abc", "user-1", "")
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.kind, body["kind"])
			assert.NotContains(t, rec.Body.String(), "quota secret detail")
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestSetReminderSuccess(t *testing.T) {
	reminders := &stubReminders{}
	mux := newReminderMux(&stubOAuth{}, reminders)

	rec := do(t, mux, http.MethodGet, "/reminders/set-reminder/sub-9", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Reminder created successfully!","link":"https://calendar.example.com/evt-1","event_id":"evt-1"}`, rec.Body.String())
	assert.Equal(t, []string{"user-1/sub-9"}, reminders.calls)

	rec = do(t, mux, http.MethodGet, "/reminders/set-reminder/sub-9", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Len(t, reminders.calls, 1)
}

func TestLastReminder(t *testing.T) {
	mux := newReminderMux(&stubOAuth{}, &stubReminders{})
	rec := do(t, mux, http.MethodGet, "/reminders/last/sub-9", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subscription_id":"sub-9","event_id":"evt-1","link":"https://calendar.example.com/evt-1","scheduled_at":"2026-10-01T09:00:00Z"}`, rec.Body.String())

	mux = newReminderMux(&stubOAuth{}, &stubReminders{err: service.ErrReminderNotRecorded})
	rec = do(t, mux, http.MethodGet, "/reminders/last/sub-9", "user-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec)["kind"])
}

func TestBeginAuthRedirects(t *testing.T) {
	oauth := &stubOAuth{begin: func(_ context.Context, userID string) (string, error) {
		return "https://accounts.example.com/auth?state=s&user=" + userID, nil
	}}
	mux := newReminderMux(oauth, &stubReminders{})

	rec := do(t, mux, http.MethodGet, "/reminders/auth", "user-1", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://accounts.example.com/auth?state=s&user=user-1", rec.Header().Get("Location"))

	rec = do(t, mux, http.MethodGet, "/reminders/auth?token="+tokenFor(t, "user-2"), "", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "user=user-2")

	rec = do(t, mux, http.MethodGet, "/reminders/auth", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOAuthCallback(t *testing.T) {
	oauth := &stubOAuth{complete: func(_ context.Context, code, state string) (*model.CalendarCredential, error) {
		switch code {
		case "":
			return nil, service.ErrMissingAuthCode
		case "replayed":
			return nil, &service.AuthExchangeError{Cause: service.ErrCodeAlreadyUsed}
		}
		return &model.CalendarCredential{AccessToken: "a"}, nil
	}}
	mux := newReminderMux(oauth, &stubReminders{})

	rec := do(t, mux, http.MethodGet, "/reminders/oauth2callback?code=ok&state=s", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Google Calendar connected")

	rec = do(t, mux, http.MethodGet, "/reminders/oauth2callback?state=s", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodGet, "/reminders/oauth2callback?code=replayed&state=s", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": "Failed to authenticate with Google.", "kind": "auth_exchange"}, decodeError(t, rec))

	rec = do(t, mux, http.MethodGet, "/reminders/oauth2callback?error=access_denied&state=s", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReminderStatus(t *testing.T) {
	mux := newReminderMux(&stubOAuth{status: service.StatusTokensIssued}, &stubReminders{})
	rec := do(t, mux, http.MethodGet, "/reminders/status", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"tokens_issued","connected":true}`, rec.Body.String())

	rec = do(t, mux, http.MethodDelete, "/reminders/auth", "user-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

type stubUsers struct {
	users map[string]*model.User
}

func (s *stubUsers) Get(_ context.Context, id string) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return u, nil
}

type stubAdmin struct {
	service.AdminService
	promoted []string
}

func (s *stubAdmin) Promote(_ context.Context, _, id string) (*model.User, error) {
	s.promoted = append(s.promoted, id)
	return &model.User{UserID: id, Name: "Bob", IsAdmin: true}, nil
}

func (s *stubAdmin) Demote(_ context.Context, actorID, id string) (*model.User, error) {
	if actorID == id {
		return nil, service.ErrSelfModification
	}
	return &model.User{UserID: id, Name: "Bob"}, nil
}

func (s *stubAdmin) DeleteUser(_ context.Context, _, id string) (*model.User, error) {
	if id == "bad" {
		return nil, service.ErrInvalidUserID
	}
	return nil, service.ErrUserNotFound
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	users := &stubUsers{users: map[string]*model.User{
		"root":   {UserID: "root", IsAdmin: true, IsActive: true},
		"member": {UserID: "member", IsActive: true},
	}}
	admin := &stubAdmin{}
	mux := http.NewServeMux()
	NewAdminHandler(admin, zerolog.Nop()).RegisterRoutes(mux,
		middleware.AuthMiddleware(testSecret, zerolog.Nop()),
		middleware.AdminMiddleware(users, zerolog.Nop()))

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/admin/users"},
		{http.MethodGet, "/admin/users/u1"},
		{http.MethodPut, "/admin/user/u1/status"},
		{http.MethodDelete, "/admin/user/u1"},
		{http.MethodPost, "/admin/user/u1/promote"},
		{http.MethodPost, "/admin/user/u1/demote"},
	} {
		assert.Equal(t, http.StatusUnauthorized, do(t, mux, route.method, route.path, "", "").Code, route.path)
		assert.Equal(t, http.StatusForbidden, do(t, mux, route.method, route.path, "member", "").Code, route.path)
	}
	assert.Empty(t, admin.promoted)

	rec := do(t, mux, http.MethodPost, "/admin/user/u1/promote", "root", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "User Bob promoted to admin")
	assert.Equal(t, []string{"u1"}, admin.promoted)

	assert.Equal(t, http.StatusForbidden, do(t, mux, http.MethodPost, "/admin/user/root/demote", "root", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodDelete, "/admin/user/bad", "root", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, mux, http.MethodDelete, "/admin/user/u2", "root", "").Code)
}

type stubSubscriptions struct {
	service.SubscriptionService
	created *model.Subscription
}

func (s *stubSubscriptions) Create(_ context.Context, userID string, sub *model.Subscription) (*model.Subscription, error) {
	sub.ID = "sub-1"
	sub.UserID = userID
	s.created = sub
	return sub, nil
}

func TestCreateSubscriptionValidation(t *testing.T) {
	subs := &stubSubscriptions{}
	mux := http.NewServeMux()
	NewSubscriptionHandler(subs, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop()).
		RegisterRoutes(mux, middleware.AuthMiddleware(testSecret, zerolog.Nop()))

	rec := do(t, mux, http.MethodPost, "/subscriptions", "user-1",
		`{"service_name":"Spotify","cost":9.99,"billing_cycle":"daily","category":"music","next_payment_date":"2026-11-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, subs.created)

	rec = do(t, mux, http.MethodPost, "/subscriptions", "user-1",
		`{"service_name":"Spotify","cost":9.99,"billing_cycle":"monthly","category":"music"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "next_payment_date is required")

	rec = do(t, mux, http.MethodPost, "/subscriptions", "user-1",
		`{"service_name":"Spotify","cost":9.99,"billing_cycle":"monthly","category":"music","next_payment_date":"2026-11-01T00:00:00Z","is_recurring":false}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, subs.created)
	assert.Equal(t, "user-1", subs.created.UserID)
	assert.True(t, subs.created.IsActive)
	assert.False(t, subs.created.IsRecurring)
	assert.Equal(t, model.BillingMonthly, subs.created.BillingCycle)
}
