package handler

import (
	"fmt"
	"net/http"

	"subtrack/internal/api/v1/dto"
	"subtrack/internal/service"

	"github.com/rs/zerolog"
)

type AdminHandler struct {
	adminService service.AdminService
	logger       zerolog.Logger
}

func NewAdminHandler(adminService service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{adminService: adminService, logger: logger.With().Str("handler", "AdminHandler").Logger()}
}

// RegisterRoutes mounts the admin routes. Every route runs behind authMw then adminMw.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMw, adminMw func(http.Handler) http.Handler) {
	guard := func(f http.HandlerFunc) http.Handler { return authMw(adminMw(f)) }
	mux.Handle("GET /admin/users", guard(h.listUsers))
	mux.Handle("GET /admin/users/{userId}", guard(h.getUser))
	mux.Handle("PUT /admin/user/{userId}/status", guard(h.toggleStatus))
	mux.Handle("DELETE /admin/user/{userId}", guard(h.deleteUser))
	mux.Handle("POST /admin/user/{userId}/promote", guard(h.promote))
	mux.Handle("POST /admin/user/{userId}/demote", guard(h.demote))
}

// listUsers godoc
// @Summary List all users
// @Tags admin
// @Produce json
// @Success 200 {array} dto.UserResponseDTO
// @Failure 401 {object} dto.ErrorResponseDTO
// @Failure 403 {object} dto.ErrorResponseDTO
// @Router /admin/users [get]
func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := make([]dto.UserResponseDTO, 0, len(users))
	for i := range users {
		resp = append(resp, dto.NewUserResponseDTO(&users[i], true))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getUser godoc
// @Summary Get a user
// @Tags admin
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} dto.UserResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /admin/users/{userId} [get]
func (h *AdminHandler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.adminService.GetUser(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponseDTO(u, true))
}

// toggleStatus godoc
// @Summary Toggle a user's active flag
// @Tags admin
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} dto.UserStatusResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /admin/user/{userId}/status [put]
func (h *AdminHandler) toggleStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	u, err := h.adminService.ToggleActive(r.Context(), actorID, r.PathValue("userId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	state := "inactive"
	if u.IsActive {
		state = "active"
	}
	writeJSON(w, http.StatusOK, dto.UserStatusResponseDTO{
		Message:  fmt.Sprintf("User %s is now %s", u.Name, state),
		IsActive: u.IsActive,
	})
}

// deleteUser godoc
// @Summary Delete a user
// @Tags admin
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} dto.MessageResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "Invalid user id"
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /admin/user/{userId} [delete]
func (h *AdminHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	u, err := h.adminService.DeleteUser(r.Context(), actorID, r.PathValue("userId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponseDTO{Message: fmt.Sprintf("User %s deleted successfully", u.Name)})
}

// promote godoc
// @Summary Grant admin role
// @Tags admin
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} dto.UserRoleResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /admin/user/{userId}/promote [post]
func (h *AdminHandler) promote(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	u, err := h.adminService.Promote(r.Context(), actorID, r.PathValue("userId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserRoleResponseDTO{
		Message: fmt.Sprintf("User %s promoted to admin", u.Name),
		User:    dto.NewUserResponseDTO(u, false),
	})
}

// demote godoc
// @Summary Revoke admin role
// @Tags admin
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} dto.UserRoleResponseDTO
// @Failure 403 {object} dto.ErrorResponseDTO "Admins cannot demote themselves"
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /admin/user/{userId}/demote [post]
func (h *AdminHandler) demote(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	u, err := h.adminService.Demote(r.Context(), actorID, r.PathValue("userId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserRoleResponseDTO{
		Message: fmt.Sprintf("User %s demoted from admin", u.Name),
		User:    dto.NewUserResponseDTO(u, false),
	})
}
