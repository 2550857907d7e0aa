package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"lifebee/internal/middleware"
	"lifebee/internal/model"
	"lifebee/internal/service"
	"lifebee/pkg/logger"
	"lifebee/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LifecycleHandler exposes the status transitions of a service request
type LifecycleHandler struct {
	lifecycleService service.LifecycleService
	auth             *middleware.Auth
	log              logger.Logger
}

func NewLifecycleHandler(lifecycleService service.LifecycleService, auth *middleware.Auth, log logger.Logger) *LifecycleHandler {
	return &LifecycleHandler{lifecycleService: lifecycleService, auth: auth, log: log}
}

func (h *LifecycleHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/service-requests")
	{
		requests.POST("/:id/accept-offer", h.auth.RequireRole(model.RoleClient), h.AcceptOffer)
		requests.POST("/:id/start", h.auth.RequireRole(model.RoleProfessional), h.StartService)
		requests.POST("/:id/complete", h.auth.RequireRole(model.RoleProfessional), h.CompleteService)
		requests.POST("/:id/confirm", h.auth.RequireRole(model.RoleClient), h.ConfirmService)
		requests.POST("/:id/cancel", h.auth.RequireRole(model.RoleClient, model.RoleAdmin), h.CancelRequest)
	}
}

// AcceptOffer assigns the request to the offer's professional and opens a payment
// @Summary      Accept offer
// @Description  Rejects the other pending offers and returns the checkout reference for the accepted price
// @Tags         lifecycle
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Service request ID"
// @Param        payload  body      service.AcceptOfferDTO  true  "Offer to accept"
// @Success      200      {object}  response.Response{data=service.AcceptOfferResult}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response  "Already assigned or invalid transition"
// @Failure      502      {object}  response.Response  "Payment provider unavailable"
// @Router       /api/service-requests/{id}/accept-offer [post]
func (h *LifecycleHandler) AcceptOffer(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req service.AcceptOfferDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, err)
		return
	}

	result, err := h.lifecycleService.AcceptOffer(c.Request.Context(), actor, id, req.OfferID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// StartService marks the service as started by the assigned professional
// @Summary      Start service
// @Tags         lifecycle
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Service request ID"
// @Success      200  {object}  response.Response{data=service.TransitionResult}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/service-requests/{id}/start [post]
func (h *LifecycleHandler) StartService(c *gin.Context) {
	h.transition(c, h.lifecycleService.StartService)
}

// CompleteService marks the work as done and awaiting the client's confirmation
// @Summary      Complete service
// @Tags         lifecycle
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Service request ID"
// @Success      200  {object}  response.Response{data=service.TransitionResult}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/service-requests/{id}/complete [post]
func (h *LifecycleHandler) CompleteService(c *gin.Context) {
	h.transition(c, h.lifecycleService.CompleteService)
}

// ConfirmService records the client's confirmation and releases the payment when it has settled
// @Summary      Confirm service
// @Tags         lifecycle
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Service request ID"
// @Success      200  {object}  response.Response{data=service.TransitionResult}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/service-requests/{id}/confirm [post]
func (h *LifecycleHandler) ConfirmService(c *gin.Context) {
	h.transition(c, h.lifecycleService.ConfirmService)
}

// CancelRequest cancels a request that has not completed
// @Summary      Cancel service request
// @Tags         lifecycle
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true   "Service request ID"
// @Param        payload  body      service.CancelRequestDTO  false  "Reason"
// @Success      200      {object}  response.Response{data=service.TransitionResult}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/service-requests/{id}/cancel [post]
func (h *LifecycleHandler) CancelRequest(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	// The body is optional
	var req service.CancelRequestDTO
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, h.log, err)
			return
		}
	}

	result, err := h.lifecycleService.CancelRequest(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type transitionFunc func(ctx context.Context, actor service.Actor, requestID uuid.UUID) (*service.TransitionResult, error)

func (h *LifecycleHandler) transition(c *gin.Context, fn transitionFunc) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
