package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mkatsoulis/tillpoint/internal/application/service"
	"github.com/mkatsoulis/tillpoint/internal/domain/repository"
	"github.com/mkatsoulis/tillpoint/internal/presentation/http/dto/request"
	"github.com/mkatsoulis/tillpoint/internal/presentation/http/dto/response"
	"github.com/mkatsoulis/tillpoint/pkg/pagination"
)

// SessionHandler handles register session HTTP requests
type SessionHandler struct {
	sessionService *service.SessionService
	reconService   *service.ReconciliationService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *service.SessionService, reconService *service.ReconciliationService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		reconService:   reconService,
	}
}

// Open resolves the active register session, creating one when none is open
func (h *SessionHandler) Open(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	session, err := h.sessionService.GetOrCreateActive(c.Request.Context(), *userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Active register session resolved", session)
}

// GetActive returns the currently open register session
func (h *SessionHandler) GetActive(c *gin.Context) {
	session, err := h.sessionService.GetActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Active register session retrieved", session)
}

// Close closes a register session and returns the materialized closing
func (h *SessionHandler) Close(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid session ID")
		return
	}

	var req request.CloseSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	closing, err := h.sessionService.Close(c.Request.Context(), sessionID, *userID, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Register session closed", closing)
}

// Get returns a single register session
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid session ID")
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Register session retrieved", session)
}

// List handles listing register sessions
func (h *SessionHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "15"))

	params := &repository.SessionFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    page,
			PerPage: perPage,
		},
		OpenOnly: c.Query("open_only") == "true",
	}
	params.Pagination.Validate()

	if startDateStr := c.Query("start_date"); startDateStr != "" {
		if startDate, err := time.Parse("2006-01-02", startDateStr); err == nil {
			params.StartDate = &startDate
		}
	}
	if endDateStr := c.Query("end_date"); endDateStr != "" {
		if endDate, err := time.Parse("2006-01-02", endDateStr); err == nil {
			params.EndDate = &endDate
		}
	}

	result, err := h.sessionService.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Register sessions retrieved", result)
}

// Report returns the reconciled till-closing report for a session
func (h *SessionHandler) Report(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid session ID")
		return
	}

	report, err := h.reconService.SessionReport(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Session report retrieved", report)
}
