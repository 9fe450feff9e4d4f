package handler

import (
	"net/http"

	"subtrack/internal/api/v1/dto"
	"subtrack/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewUserHandler(userService service.UserService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{userService: userService, validate: v, logger: logger.With().Str("handler", "UserHandler").Logger()}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("GET /users/me", authMw(http.HandlerFunc(h.getUser)))
	mux.Handle("GET /users/me/preferences", authMw(http.HandlerFunc(h.getPreferences)))
	mux.Handle("PUT /users/me/preferences", authMw(http.HandlerFunc(h.updatePreferences)))
}

// getUser godoc
// @Summary Get the current user
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserResponseDTO
// @Failure 401 {object} dto.ErrorResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /users/me [get]
func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	u, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponseDTO(u, true))
}

// getPreferences godoc
// @Summary Get reminder preferences
// @Tags users
// @Produce json
// @Success 200 {object} dto.PreferencesDTO
// @Failure 401 {object} dto.ErrorResponseDTO
// @Router /users/me/preferences [get]
func (h *UserHandler) getPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	u, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPreferencesDTO(u))
}

// updatePreferences godoc
// @Summary Update reminder preferences
// @Tags users
// @Accept json
// @Produce json
// @Param body body dto.PreferencesUpdateDTO true "Fields to change"
// @Success 200 {object} dto.PreferencesDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 401 {object} dto.ErrorResponseDTO
// @Router /users/me/preferences [put]
func (h *UserHandler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req dto.PreferencesUpdateDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	prefs, enabled := u.Preferences, u.RemindersEnabled
	if req.EmailReminders != nil {
		prefs.EmailReminders = *req.EmailReminders
	}
	if req.ReminderDays != nil {
		prefs.ReminderDays = *req.ReminderDays
	}
	if req.WeeklyDigest != nil {
		prefs.WeeklyDigest = *req.WeeklyDigest
	}
	if req.MonthlyReport != nil {
		prefs.MonthlyReport = *req.MonthlyReport
	}
	if req.RemindersEnabled != nil {
		enabled = *req.RemindersEnabled
	}

	updated, err := h.userService.UpdatePreferences(r.Context(), userID, prefs, enabled)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPreferencesDTO(updated))
}
