package handler

import (
	"net/http"

	"lifebee/internal/middleware"
	"lifebee/internal/model"
	"lifebee/internal/service"
	"lifebee/pkg/logger"
	"lifebee/pkg/pagination"
	"lifebee/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviewService service.ReviewService
	auth          *middleware.Auth
	log           logger.Logger
}

func NewReviewHandler(reviewService service.ReviewService, auth *middleware.Auth, log logger.Logger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, auth: auth, log: log}
}

func (h *ReviewHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/service-requests/:id/review", h.auth.RequireRole(model.RoleClient), h.CreateReview)
	router.GET("/professionals/:id/reviews", h.auth.RequireRole(), h.ListByProfessional)
}

// CreateReview rates the professional of a confirmed service
// @Summary      Review a service
// @Tags         reviews
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Service request ID"
// @Param        payload  body      service.CreateReviewDTO  true  "Review"
// @Success      201      {object}  response.Response{data=model.ServiceReview}
// @Failure      400      {object}  response.Response  "Service not confirmed yet"
// @Failure      409      {object}  response.Response  "Already reviewed"
// @Router       /api/service-requests/{id}/review [post]
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req service.CreateReviewDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, err)
		return
	}

	review, err := h.reviewService.CreateReview(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, review))
}

// ListByProfessional returns a page of a professional's reviews with the average rating
// @Summary      List professional reviews
// @Tags         reviews
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Professional user ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=service.ProfessionalReviews}
// @Failure      404    {object}  response.Response
// @Router       /api/professionals/{id}/reviews [get]
func (h *ReviewHandler) ListByProfessional(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	page, err := h.reviewService.ListByProfessional(c.Request.Context(), id, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}
