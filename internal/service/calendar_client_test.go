package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"subtrack/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
)

type calendarServer struct {
	refreshes     atomic.Int32
	rejectRefresh bool
	status        int
	lastAuth      atomic.Value
	lastEvent     calendar.Event
	*httptest.Server
}

func newCalendarServer(t *testing.T) *calendarServer {
	t.Helper()
	cs := &calendarServer{status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		cs.refreshes.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if cs.rejectRefresh {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant", "error_description": "Token has been expired or revoked."})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "refreshed",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("POST /calendars/{calendarId}/events", func(w http.ResponseWriter, r *http.Request) {
		cs.lastAuth.Store(r.Header.Get("Authorization"))
		assert.Equal(t, "primary", r.PathValue("calendarId"))
		w.Header().Set("Content-Type", "application/json")
		if cs.status != http.StatusOK {
			w.WriteHeader(cs.status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": cs.status, "message": "Rate Limit Exceeded"},
			})
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&cs.lastEvent))
		json.NewEncoder(w).Encode(map[string]any{
			"id":       "evt-1",
			"htmlLink": "https://www.google.com/calendar/event?eid=evt-1",
		})
	})
	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

func (cs *calendarServer) provider(creds CredentialStore) CalendarProvider {
	conf := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint:     oauth2.Endpoint{TokenURL: cs.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
	}
	return NewGoogleCalendarProvider(conf, creds, cs.URL+"/", zerolog.Nop())
}

func insertTestEvent(t *testing.T, p CalendarProvider, cred *model.CalendarCredential) (*calendar.Event, error) {
	t.Helper()
	ctx := context.Background()
	client, err := p.Client(ctx, "user-1", cred)
	require.NoError(t, err)
	return client.InsertEvent(ctx, PrimaryCalendar, &calendar.Event{
		Summary: "Payment Reminder: Spotify",
		Start:   &calendar.EventDateTime{DateTime: "2026-11-01T09:30:00+05:30", TimeZone: "Asia/Kolkata"},
		End:     &calendar.EventDateTime{DateTime: "2026-11-01T10:30:00+05:30", TimeZone: "Asia/Kolkata"},
	})
}

func TestCalendarInsertWithValidToken(t *testing.T) {
	cs := newCalendarServer(t)
	creds := NewDatabaseCredentialStore(newFakeStore())
	cred := &model.CalendarCredential{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, creds.Set(context.Background(), "user-1", cred))

	ev, err := insertTestEvent(t, cs.provider(creds), cred)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", ev.Id)
	assert.Equal(t, "https://www.google.com/calendar/event?eid=evt-1", ev.HtmlLink)
	assert.Equal(t, "Bearer access", cs.lastAuth.Load())
	assert.Equal(t, "Payment Reminder: Spotify", cs.lastEvent.Summary)
	assert.Equal(t, "Asia/Kolkata", cs.lastEvent.Start.TimeZone)
	assert.Zero(t, cs.refreshes.Load())
}

func TestCalendarRefreshIsPersisted(t *testing.T) {
	cs := newCalendarServer(t)
	creds := NewDatabaseCredentialStore(newFakeStore())
	cred := &model.CalendarCredential{AccessToken: "stale", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Now().Add(-time.Hour)}
	require.NoError(t, creds.Set(context.Background(), "user-1", cred))

	_, err := insertTestEvent(t, cs.provider(creds), cred)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cs.refreshes.Load())
	assert.Equal(t, "Bearer refreshed", cs.lastAuth.Load())

	stored, err := creds.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "refreshed", stored.AccessToken)
	assert.Equal(t, "refresh", stored.RefreshToken)
	assert.True(t, stored.Expiry.After(time.Now()))
}

func TestCalendarRefreshRejected(t *testing.T) {
	cs := newCalendarServer(t)
	cs.rejectRefresh = true
	creds := NewDatabaseCredentialStore(newFakeStore())
	cred := &model.CalendarCredential{AccessToken: "stale", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Hour)}

	_, err := insertTestEvent(t, cs.provider(creds), cred)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.NotErrorIs(t, err, ErrExternalScheduling)
}

func TestCalendarProviderRejection(t *testing.T) {
	cs := newCalendarServer(t)
	cs.status = http.StatusForbidden
	creds := NewDatabaseCredentialStore(newFakeStore())
	cred := &model.CalendarCredential{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}

	_, err := insertTestEvent(t, cs.provider(creds), cred)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExternalScheduling)
	var schedErr *SchedulingError
	require.True(t, errors.As(err, &schedErr))
	assert.Equal(t, http.StatusForbidden, schedErr.StatusCode)
	assert.Equal(t, "Rate Limit Exceeded", schedErr.Detail)
}

func TestCalendarUnauthorized(t *testing.T) {
	cs := newCalendarServer(t)
	cs.status = http.StatusUnauthorized
	creds := NewDatabaseCredentialStore(newFakeStore())
	cred := &model.CalendarCredential{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}

	_, err := insertTestEvent(t, cs.provider(creds), cred)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
