package handler

import (
	"net/http"

	"subtrack/internal/api/v1/dto"
	"subtrack/internal/service"

	"github.com/rs/zerolog"
)

type ReminderHandler struct {
	oauthService    service.OAuthService
	reminderService service.ReminderService
	logger          zerolog.Logger
}

func NewReminderHandler(oauthService service.OAuthService, reminderService service.ReminderService, logger zerolog.Logger) *ReminderHandler {
	return &ReminderHandler{
		oauthService:    oauthService,
		reminderService: reminderService,
		logger:          logger.With().Str("handler", "ReminderHandler").Logger(),
	}
}

// RegisterRoutes mounts v1 reminder routes. browserAuthMw guards the consent redirect, which is reached by navigation.
func (h *ReminderHandler) RegisterRoutes(mux *http.ServeMux, authMw, browserAuthMw func(http.Handler) http.Handler) {
	mux.Handle("GET /reminders/auth", browserAuthMw(http.HandlerFunc(h.beginAuth)))
	mux.Handle("DELETE /reminders/auth", authMw(http.HandlerFunc(h.disconnect)))
	mux.HandleFunc("GET /reminders/oauth2callback", h.oauthCallback)
	mux.Handle("GET /reminders/status", authMw(http.HandlerFunc(h.status)))
	mux.Handle("GET /reminders/set-reminder/{subscriptionId}", authMw(http.HandlerFunc(h.setReminder)))
	mux.Handle("GET /reminders/last/{subscriptionId}", authMw(http.HandlerFunc(h.lastReminder)))
}

// beginAuth godoc
// @Summary Connect Google Calendar
// @Description Redirects to the Google consent screen. The session token may be passed as the token query parameter.
// @Tags reminders
// @Param token query string false "Session token when no Authorization header can be sent"
// @Success 302 {string} string "Redirect to Google consent"
// @Failure 401 {object} dto.ErrorResponseDTO
// @Failure 500 {object} dto.ErrorResponseDTO
// @Router /reminders/auth [get]
func (h *ReminderHandler) beginAuth(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	url, err := h.oauthService.BeginAuthorization(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// oauthCallback godoc
// @Summary Google OAuth callback
// @Description Exchanges the one-time authorization code and stores the calendar credential.
// @Tags reminders
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by /reminders/auth"
// @Success 200 {object} dto.MessageResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 500 {object} dto.ErrorResponseDTO "Failed to authenticate with Google."
// @Router /reminders/oauth2callback [get]
func (h *ReminderHandler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		h.logger.Warn().Str("error", errParam).Msg("Consent was not granted")
		writeError(w, http.StatusBadRequest, "Google authorization was not granted: "+errParam, "consent_denied")
		return
	}

	if _, err := h.oauthService.CompleteAuthorization(r.Context(), q.Get("code"), q.Get("state")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponseDTO{Message: "Google Calendar connected! You can now set reminders."})
}

// status godoc
// @Summary Calendar connection status
// @Tags reminders
// @Produce json
// @Success 200 {object} dto.ReminderStatusResponseDTO
// @Failure 401 {object} dto.ErrorResponseDTO
// @Router /reminders/status [get]
func (h *ReminderHandler) status(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	st, err := h.oauthService.Status(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReminderStatusResponseDTO{
		Status:    string(st),
		Connected: st == service.StatusTokensIssued,
	})
}

// disconnect godoc
// @Summary Disconnect Google Calendar
// @Tags reminders
// @Success 204
// @Failure 401 {object} dto.ErrorResponseDTO
// @Router /reminders/auth [delete]
func (h *ReminderHandler) disconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	if err := h.oauthService.Disconnect(r.Context(), userID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setReminder godoc
// @Summary Create a payment reminder
// @Description Creates a Google Calendar event at the subscription's next payment date. Each call creates a new event.
// @Tags reminders
// @Produce json
// @Param subscriptionId path string true "Subscription ID"
// @Success 200 {object} dto.ReminderResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "Invalid subscription id"
// @Failure 401 {object} dto.ErrorResponseDTO "Google Calendar not connected"
// @Failure 404 {object} dto.ErrorResponseDTO "Subscription not found"
// @Failure 500 {object} dto.ErrorResponseDTO "Failed to set reminder."
// @Router /reminders/set-reminder/{subscriptionId} [get]
func (h *ReminderHandler) setReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	reminder, err := h.reminderService.ScheduleReminder(r.Context(), userID, r.PathValue("subscriptionId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReminderResponseDTO{
		Message: "Reminder created successfully!",
		Link:    reminder.HTMLLink,
		EventID: reminder.EventID,
	})
}

// lastReminder godoc
// @Summary Latest reminder for a subscription
// @Description Returns the most recently created calendar event. Requires REMINDER_LEDGER=true.
// @Tags reminders
// @Produce json
// @Param subscriptionId path string true "Subscription ID"
// @Success 200 {object} dto.LastReminderResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /reminders/last/{subscriptionId} [get]
func (h *ReminderHandler) lastReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	entry, err := h.reminderService.LastReminder(r.Context(), userID, r.PathValue("subscriptionId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewLastReminderResponseDTO(entry))
}
