package handler

import (
	"net/http"
	"time"

	"lifebee/internal/apperror"
	"lifebee/internal/middleware"
	"lifebee/internal/model"
	"lifebee/internal/service"
	"lifebee/pkg/logger"
	"lifebee/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	revenueService    service.RevenueService
	auth              *middleware.Auth
	log               logger.Logger
}

func NewStatisticsHandler(statisticsService service.StatisticsService, revenueService service.RevenueService, auth *middleware.Auth, log logger.Logger) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, revenueService: revenueService, auth: auth, log: log}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/admin/statistics")
	{
		statsGroup.GET("", h.auth.RequireRole(model.RoleAdmin), h.GetStatistics)
		statsGroup.GET("/revenue", h.auth.RequireRole(model.RoleAdmin), h.GetRevenueStatistics)
	}
}

// @Summary      Get marketplace statistics
// @Description  Request counts per status, offers, paid and released volume, ratings and top professionals bounded by time
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339)"
// @Param        end_date   query string false "End Date (RFC3339)"
// @Success      200 {object} response.Response{data=model.StatisticsResponse}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      500 {object} response.Response "Internal server error"
// @Security     BearerAuth
// @Router       /api/admin/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	startDate, endDate, ok := h.dateRange(c)
	if !ok {
		return
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), startDate, endDate)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetRevenueStatistics returns settled payment volume grouped by period
// @Summary      Get revenue by period
// @Tags         admin
// @Produce      json
// @Param        group_by    query     string  false  "week, month, quarter or year (default month)"
// @Param        start_date  query     string  false  "Start Date (RFC3339)"
// @Param        end_date    query     string  false  "End Date (RFC3339)"
// @Success      200         {object}  response.Response{data=[]service.RevenueDataPoint}
// @Failure      400         {object}  response.Response
// @Security     BearerAuth
// @Router       /api/admin/statistics/revenue [get]
func (h *StatisticsHandler) GetRevenueStatistics(c *gin.Context) {
	startDate, endDate, ok := h.dateRange(c)
	if !ok {
		return
	}

	filter := service.RevenueFilter{
		GroupBy:   c.Query("group_by"),
		StartDate: startDate,
		EndDate:   endDate,
	}

	data, err := h.revenueService.GetRevenueStatistics(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, data))
}

// dateRange reads start_date and end_date, defaulting to the current month
func (h *StatisticsHandler) dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	var startDate, endDate time.Time
	var err error

	now := time.Now()
	if startDateStr == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else {
		startDate, err = time.Parse(time.RFC3339, startDateStr)
		if err != nil {
			respondError(c, h.log, apperror.Validation("invalid start_date format, expected RFC3339"))
			return startDate, endDate, false
		}
	}

	if endDateStr == "" {
		endDate = now
	} else {
		endDate, err = time.Parse(time.RFC3339, endDateStr)
		if err != nil {
			respondError(c, h.log, apperror.Validation("invalid end_date format, expected RFC3339"))
			return startDate, endDate, false
		}
	}

	return startDate, endDate, true
}
