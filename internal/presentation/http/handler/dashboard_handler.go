package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkatsoulis/tillpoint/internal/application/service"
	"github.com/mkatsoulis/tillpoint/internal/presentation/http/dto/response"
)

// DashboardHandler handles statistics HTTP requests
type DashboardHandler struct {
	statsService *service.StatisticsService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(statsService *service.StatisticsService) *DashboardHandler {
	return &DashboardHandler{statsService: statsService}
}

// GetStats returns the dashboard rollups for a date range. Defaults to the
// last 7 days when no range is given.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	to := time.Now()
	from := to.AddDate(0, 0, -7)

	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			response.BadRequest(c, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if toStr := c.Query("to"); toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			response.BadRequest(c, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		// Inclusive end of day
		to = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	stats, err := h.statsService.Dashboard(c.Request.Context(), from, to, c.Query("category"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Dashboard statistics retrieved", stats)
}
