package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"subtrack/internal/model"
	"subtrack/internal/util"

	"github.com/rs/zerolog"
)

// Injected key type to avoid context collisions
type contextKey string

const UserContextKey = contextKey("user")

// UserIDFromContext returns the authenticated user id set by the auth middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserContextKey).(string)
	return id, ok && id != ""
}

// AuthMiddleware requires a bearer token in the Authorization header.
func AuthMiddleware(jwtSecret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return authenticate(jwtSecret, false, logger)
}

// BrowserAuthMiddleware also accepts the token as a "token" query parameter, for routes the
// browser reaches by navigation where headers cannot be set.
func BrowserAuthMiddleware(jwtSecret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return authenticate(jwtSecret, true, logger)
}

func authenticate(jwtSecret string, allowQuery bool, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok && allowQuery {
				tokenString = r.URL.Query().Get("token")
				ok = tokenString != ""
			}
			if !ok {
				logger.Debug().Str("uri", r.URL.Path).Msg("Authorization header missing")
				writeError(w, http.StatusUnauthorized, "Authorization header missing", "unauthorized")
				return
			}

			claims, err := util.ValidateJWT(tokenString, jwtSecret)
			if err != nil {
				logger.Warn().Err(err).Msg("Invalid token")
				writeError(w, http.StatusUnauthorized, "Invalid or expired token", "unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// UserLookup loads the account behind an authenticated request.
type UserLookup interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

// AdminMiddleware must run after AuthMiddleware. The admin flag is read from the account store,
// so a demotion takes effect before the token expires.
func AdminMiddleware(users UserLookup, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authorization header missing", "unauthorized")
				return
			}
			u, err := users.Get(r.Context(), userID)
			if err != nil || u == nil {
				logger.Warn().Err(err).Str("user_id", userID).Msg("Admin check failed to load user")
				writeError(w, http.StatusUnauthorized, "User not found", "unauthorized")
				return
			}
			if !u.IsAdmin || !u.IsActive {
				writeError(w, http.StatusForbidden, "Admin access required", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": kind})
}
