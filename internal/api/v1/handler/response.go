package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"subtrack/internal/api/v1/dto"
	"subtrack/internal/middleware"
	"subtrack/internal/service"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, dto.ErrorResponseDTO{Error: msg, Kind: kind})
}

// writeServiceError maps service errors to HTTP responses. Provider and storage detail is logged, never returned.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrMissingAuthCode):
		writeError(w, http.StatusBadRequest, err.Error(), "validation")
	case errors.Is(err, service.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "Google Calendar not connected. Please authenticate first.", "not_authenticated")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error(), "invalid_credentials")
	case errors.Is(err, service.ErrAccountInactive):
		writeError(w, http.StatusForbidden, err.Error(), "account_inactive")
	case errors.Is(err, service.ErrSelfModification):
		writeError(w, http.StatusForbidden, err.Error(), "self_modification")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error(), "forbidden")
	case errors.Is(err, service.ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, "Subscription not found.", "not_found")
	case errors.Is(err, service.ErrReminderNotRecorded):
		writeError(w, http.StatusNotFound, "No reminder recorded for this subscription.", "not_found")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found.", "not_found")
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		writeError(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, service.ErrAuthExchange):
		logger.Error().Err(err).Msg("OAuth callback failed")
		writeError(w, http.StatusInternalServerError, "Failed to authenticate with Google.", "auth_exchange")
	case errors.Is(err, service.ErrExternalScheduling):
		logger.Error().Err(err).Msg("Calendar provider rejected reminder")
		writeError(w, http.StatusInternalServerError, "Failed to set reminder.", "external_scheduling")
	default:
		logger.Error().Err(err).Msg("Unhandled service error")
		writeError(w, http.StatusInternalServerError, "Internal server error", "internal")
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v structValidator, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error(), "validation")
		return false
	}
	if err := v.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error(), "validation")
		return false
	}
	return true
}

type structValidator interface {
	Struct(s interface{}) error
}

func currentUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized: user ID not found in context", "unauthorized")
	}
	return userID, ok
}
