package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"subtrack/internal/model"
	"subtrack/internal/util"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromContext(r.Context())
	w.Write([]byte(id))
}

func TestAuthMiddleware(t *testing.T) {
	token, err := util.IssueJWT("user-1", "a@b.co", false, "secret", time.Hour)
	require.NoError(t, err)
	h := AuthMiddleware("secret", zerolog.Nop())(http.HandlerFunc(echoUser))

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{"bearer", "Bearer " + token, "", http.StatusOK, "user-1"},
		{"missing", "", "", http.StatusUnauthorized, "Authorization header missing"},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized, "Authorization header missing"},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized, "Invalid or expired token"},
		{"query not accepted", "", "?token=" + token, http.StatusUnauthorized, "Authorization header missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestBrowserAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	token, err := util.IssueJWT("user-2", "a@b.co", false, "secret", time.Hour)
	require.NoError(t, err)
	h := BrowserAuthMiddleware("secret", zerolog.Nop())(http.HandlerFunc(echoUser))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x?token="+token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-2", rec.Body.String())
}

type lookupFunc func(ctx context.Context, id string) (*model.User, error)

func (f lookupFunc) Get(ctx context.Context, id string) (*model.User, error) { return f(ctx, id) }

func TestAdminMiddleware(t *testing.T) {
	users := lookupFunc(func(_ context.Context, id string) (*model.User, error) {
		switch id {
		case "admin":
			return &model.User{UserID: id, IsAdmin: true, IsActive: true}, nil
		case "member":
			return &model.User{UserID: id, IsActive: true}, nil
		}
		return nil, errors.New("user not found")
	})
	h := AdminMiddleware(users, zerolog.Nop())(http.HandlerFunc(echoUser))

	for id, status := range map[string]int{"admin": http.StatusOK, "member": http.StatusForbidden, "ghost": http.StatusUnauthorized} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req = req.WithContext(context.WithValue(req.Context(), UserContextKey, id))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, id)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoggerMiddlewareOmitsQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	h := LoggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/reminders/auth?token=secret-jwt", nil))
	assert.Contains(t, buf.String(), `"status":201`)
	assert.Contains(t, buf.String(), `"path":"/v1/reminders/auth"`)
	assert.NotContains(t, buf.String(), "secret-jwt")
}
