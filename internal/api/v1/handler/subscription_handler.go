package handler

import (
	"net/http"

	"subtrack/internal/api/v1/dto"
	"subtrack/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	validate            *validator.Validate
	logger              zerolog.Logger
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService, v *validator.Validate, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		validate:            v,
		logger:              logger.With().Str("handler", "SubscriptionHandler").Logger(),
	}
}

// RegisterRoutes mounts v1 subscription routes
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("POST /subscriptions", authMw(http.HandlerFunc(h.createSubscription)))
	mux.Handle("GET /subscriptions", authMw(http.HandlerFunc(h.listSubscriptions)))
	mux.Handle("GET /subscriptions/{subscriptionId}", authMw(http.HandlerFunc(h.getSubscription)))
	mux.Handle("PUT /subscriptions/{subscriptionId}", authMw(http.HandlerFunc(h.updateSubscription)))
	mux.Handle("DELETE /subscriptions/{subscriptionId}", authMw(http.HandlerFunc(h.deleteSubscription)))
}

// createSubscription godoc
// @Summary Track a new subscription
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.SubscriptionRequestDTO true "Subscription"
// @Success 201 {object} dto.SubscriptionResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 401 {object} dto.ErrorResponseDTO
// @Router /subscriptions [post]
func (h *SubscriptionHandler) createSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req dto.SubscriptionRequestDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	created, err := h.subscriptionService.Create(r.Context(), userID, req.Model())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewSubscriptionResponseDTO(created))
}

// listSubscriptions godoc
// @Summary List the current user's subscriptions
// @Tags subscriptions
// @Produce json
// @Success 200 {array} dto.SubscriptionResponseDTO
// @Failure 401 {object} dto.ErrorResponseDTO
// @Router /subscriptions [get]
func (h *SubscriptionHandler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	subs, err := h.subscriptionService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := make([]dto.SubscriptionResponseDTO, 0, len(subs))
	for i := range subs {
		resp = append(resp, dto.NewSubscriptionResponseDTO(&subs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getSubscription godoc
// @Summary Get a subscription
// @Tags subscriptions
// @Produce json
// @Param subscriptionId path string true "Subscription ID"
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /subscriptions/{subscriptionId} [get]
func (h *SubscriptionHandler) getSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	sub, err := h.subscriptionService.Get(r.Context(), userID, r.PathValue("subscriptionId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewSubscriptionResponseDTO(sub))
}

// updateSubscription godoc
// @Summary Replace a subscription
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param subscriptionId path string true "Subscription ID"
// @Param subscription body dto.SubscriptionRequestDTO true "Subscription"
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /subscriptions/{subscriptionId} [put]
func (h *SubscriptionHandler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req dto.SubscriptionRequestDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	sub := req.Model()
	sub.ID = r.PathValue("subscriptionId")
	updated, err := h.subscriptionService.Update(r.Context(), userID, sub)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewSubscriptionResponseDTO(updated))
}

// deleteSubscription godoc
// @Summary Stop tracking a subscription
// @Tags subscriptions
// @Param subscriptionId path string true "Subscription ID"
// @Success 204
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /subscriptions/{subscriptionId} [delete]
func (h *SubscriptionHandler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	if err := h.subscriptionService.Delete(r.Context(), userID, r.PathValue("subscriptionId")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
