package handler

import (
	"net/http"

	"subtrack/internal/api/v1/dto"
	"subtrack/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewAuthHandler(userService service.UserService, v *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, validate: v, logger: logger.With().Str("handler", "AuthHandler").Logger()}
}

// RegisterRoutes mounts the unauthenticated sign-up and login routes
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/login", h.login)
}

// register godoc
// @Summary Register an account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequestDTO true "Registration request"
// @Success 201 {object} dto.AuthResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 409 {object} dto.ErrorResponseDTO "Email already registered"
// @Router /auth/register [post]
func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequestDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	u, token, err := h.userService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.AuthResponseDTO{Token: token, User: dto.NewUserResponseDTO(u, false)})
}

// login godoc
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequestDTO true "Login request"
// @Success 200 {object} dto.AuthResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 401 {object} dto.ErrorResponseDTO "Invalid email or password"
// @Failure 403 {object} dto.ErrorResponseDTO "Account is inactive"
// @Router /auth/login [post]
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequestDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	u, token, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AuthResponseDTO{Token: token, User: dto.NewUserResponseDTO(u, false)})
}
