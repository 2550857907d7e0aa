package handler

import (
	"io"
	"net/http"

	"lifebee/internal/apperror"
	"lifebee/internal/middleware"
	"lifebee/internal/payment"
	"lifebee/internal/service"
	"lifebee/pkg/logger"
	"lifebee/pkg/response"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	paymentService service.PaymentService
	auth           *middleware.Auth
	log            logger.Logger
}

func NewPaymentHandler(paymentService service.PaymentService, auth *middleware.Auth, log logger.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, auth: auth, log: log}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Webhooks authenticate by provider signature
	webhooks := router.Group("/payments/webhook")
	{
		webhooks.POST("", h.HandleWebhook)
		webhooks.POST("/:provider", h.HandleWebhook)
	}

	router.GET("/service-requests/:id/payment", h.auth.RequireRole(), h.GetPayment)
}

// HandleWebhook applies a payment provider callback
// @Summary      Payment webhook
// @Description  Verifies the provider signature and settles the payment. Replays are acknowledged with outcome "duplicate".
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        provider  path      string  false  "Provider name (default from config)"
// @Success      200       {object}  response.Response{data=service.WebhookResult}
// @Failure      400       {object}  response.Response
// @Failure      401       {object}  response.Response  "Invalid signature"
// @Failure      404       {object}  response.Response
// @Router       /api/payments/webhook/{provider} [post]
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		respondError(c, h.log, apperror.Validation("failed to read webhook body: %v", err))
		return
	}

	req := payment.WebhookRequest{
		Body:   body,
		Header: c.Request.Header,
		Query:  c.Request.URL.Query(),
	}

	result, err := h.paymentService.HandleWebhook(c.Request.Context(), c.Param("provider"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetPayment returns the payment reference and transaction of a request
// @Summary      Get payment
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Service request ID"
// @Success      200  {object}  response.Response{data=service.PaymentDetail}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/service-requests/{id}/payment [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.paymentService.GetPayment(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}
