// Package controller handles the drill HTTP endpoints.
package controller

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/service"
	baseRepo "github.com/DonTee-Why/algo-drill-sub000/pkg/repository"
	"github.com/DonTee-Why/algo-drill-sub000/pkg/utils/response"
)

// DrillController handles drill session HTTP endpoints.
type DrillController struct {
	drillService *service.DrillService
}

// NewDrillController creates a new DrillController.
func NewDrillController(drillService *service.DrillService) *DrillController {
	return &DrillController{drillService: drillService}
}

// StartSessionRequest creates a new session.
type StartSessionRequest struct {
	UserID    int64  `json:"user_id" binding:"required"`
	ProblemID int64  `json:"problem_id" binding:"required"`
	Language  string `json:"language" binding:"required"`
}

// SubmitRequest carries one stage submission.
type SubmitRequest struct {
	Stage   string          `json:"stage"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// RunTestsRequest carries a trial run.
type RunTestsRequest struct {
	Language string `json:"language"`
	Code     string `json:"code" binding:"required"`
}

// RegisterRoutes mounts the drill endpoints on the given router group.
func (h *DrillController) RegisterRoutes(group *gin.RouterGroup) {
	sessions := group.Group("/sessions")
	sessions.POST("", h.StartSession)
	sessions.GET("/:id", h.GetSession)
	sessions.POST("/:id/submit", h.Submit)
	sessions.POST("/:id/run-tests", h.RunTests)
	sessions.GET("/:id/attempts", h.ListAttempts)
	sessions.GET("/:id/test-runs", h.ListTestRuns)
}

// StartSession creates a drill session.
func (h *DrillController) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	session, err := h.drillService.StartSession(c.Request.Context(), service.StartInput{
		UserID:    req.UserID,
		ProblemID: req.ProblemID,
		Language:  req.Language,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, session)
}

// GetSession returns one session.
func (h *DrillController) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.BadRequest(c, "Invalid session id")
		return
	}
	session, err := h.drillService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, session)
}

// Submit processes a stage submission.
func (h *DrillController) Submit(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.BadRequest(c, "Invalid session id")
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.drillService.Submit(c.Request.Context(), sessionID, req.Stage, req.Payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// RunTests executes a trial run against the problem's fixtures.
func (h *DrillController) RunTests(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.BadRequest(c, "Invalid session id")
		return
	}
	var req RunTestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.drillService.RunTests(c.Request.Context(), sessionID, req.Language, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListAttempts returns the session's attempt history.
func (h *DrillController) ListAttempts(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.BadRequest(c, "Invalid session id")
		return
	}
	attempts, err := h.drillService.ListAttempts(c.Request.Context(), sessionID, listOptionsFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"items": attempts})
}

// ListTestRuns returns the session's execution history.
func (h *DrillController) ListTestRuns(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.BadRequest(c, "Invalid session id")
		return
	}
	runs, err := h.drillService.ListTestRuns(c.Request.Context(), sessionID, listOptionsFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"items": runs})
}

func listOptionsFromQuery(c *gin.Context) baseRepo.ListOptions {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	return baseRepo.ListOptions{
		Offset:    offset,
		Limit:     limit,
		OrderDesc: c.Query("order") == "desc",
	}
}
