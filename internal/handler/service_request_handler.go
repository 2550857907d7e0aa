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

type ServiceRequestHandler struct {
	requestService service.ServiceRequestService
	auth           *middleware.Auth
	log            logger.Logger
}

func NewServiceRequestHandler(requestService service.ServiceRequestService, auth *middleware.Auth, log logger.Logger) *ServiceRequestHandler {
	return &ServiceRequestHandler{requestService: requestService, auth: auth, log: log}
}

func (h *ServiceRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/service-requests")
	requests.Use(h.auth.RequireRole())
	{
		requests.POST("", h.auth.RequireRole(model.RoleClient), h.CreateRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/:id", h.GetRequest)
		requests.GET("/:id/offers", h.ListOffers)
		requests.POST("/:id/offers", h.auth.RequireRole(model.RoleProfessional), h.SubmitOffer)
		requests.POST("/:id/offers/:offerId/withdraw", h.auth.RequireRole(model.RoleProfessional), h.WithdrawOffer)
	}
}

// CreateRequest opens a new service request
// @Summary      Create service request
// @Tags         service-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateServiceRequestDTO  true  "Request"
// @Success      201      {object}  response.Response{data=model.ServiceRequest}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/service-requests [post]
func (h *ServiceRequestHandler) CreateRequest(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.CreateServiceRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, err)
		return
	}

	created, err := h.requestService.CreateRequest(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

// ListRequests lists the requests visible to the caller
// @Summary      List service requests
// @Description  Clients see their own, professionals see open ones plus their assignments, admins see all
// @Tags         service-requests
// @Security     BearerAuth
// @Produce      json
// @Param        status    query     string  false  "Status filter"
// @Param        category  query     string  false  "Category filter"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Success      200       {object}  response.Response{data=response.Page}
// @Router       /api/service-requests [get]
func (h *ServiceRequestHandler) ListRequests(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	filter := service.ListRequestsFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Page:     p.Page,
		Limit:    p.Limit,
	}

	items, total, err := h.requestService.ListRequests(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, items, total, p.Page, p.Limit))
}

// GetRequest returns a request with its visible offers and progress
// @Summary      Get service request
// @Tags         service-requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Service request ID"
// @Success      200  {object}  response.Response{data=service.ServiceRequestDetail}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/service-requests/{id} [get]
func (h *ServiceRequestHandler) GetRequest(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.requestService.GetRequest(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// ListOffers lists the offers of a request visible to the caller
// @Summary      List offers
// @Tags         offers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Service request ID"
// @Success      200  {object}  response.Response{data=[]model.ServiceOffer}
// @Failure      403  {object}  response.Response
// @Router       /api/service-requests/{id}/offers [get]
func (h *ServiceRequestHandler) ListOffers(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	offers, err := h.requestService.ListOffers(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, offers))
}

// SubmitOffer places the caller's offer on an open request
// @Summary      Submit offer
// @Tags         offers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Service request ID"
// @Param        payload  body      service.SubmitOfferDTO  true  "Offer"
// @Success      201      {object}  response.Response{data=model.ServiceOffer}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/service-requests/{id}/offers [post]
func (h *ServiceRequestHandler) SubmitOffer(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req service.SubmitOfferDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, err)
		return
	}

	offer, err := h.requestService.SubmitOffer(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, offer))
}

// WithdrawOffer withdraws the caller's pending offer
// @Summary      Withdraw offer
// @Tags         offers
// @Security     BearerAuth
// @Produce      json
// @Param        id       path      string  true  "Service request ID"
// @Param        offerId  path      string  true  "Offer ID"
// @Success      200      {object}  response.Response{data=model.ServiceOffer}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/service-requests/{id}/offers/{offerId}/withdraw [post]
func (h *ServiceRequestHandler) WithdrawOffer(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	offerID, ok := uuidParam(c, "offerId")
	if !ok {
		return
	}

	offer, err := h.requestService.WithdrawOffer(c.Request.Context(), actor, id, offerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, offer))
}
