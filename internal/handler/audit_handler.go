package handler

import (
	"net/http"

	"lifebee/internal/middleware"
	"lifebee/internal/model"
	"lifebee/internal/repository"
	"lifebee/internal/service"
	"lifebee/pkg/logger"
	"lifebee/pkg/pagination"
	"lifebee/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Auth
	log          logger.Logger
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Auth, log logger.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/admin/audit-logs")
	group.Use(h.auth.RequireRole(model.RoleAdmin)) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records with the acting user's name resolved
// @Summary      Get audit logs
// @Description  Lifecycle and payment transitions; provider-driven entries are attributed to "System"
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        action     query     string  false  "Action filter"
// @Param        entity_id  query     string  false  "Entity ID filter"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20, max 200)"
// @Success      200        {object}  response.Response{data=response.Page}
// @Failure      403        {object}  response.Response
// @Router       /api/admin/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.ParseMax(c, pagination.AdminMaxLimit)
	filter := repository.AuditFilter{
		Action:   c.Query("action"),
		EntityID: c.Query("entity_id"),
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, logs, total, p.Page, p.Limit))
}
