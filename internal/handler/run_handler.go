package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SANDAG/ABM-sub008/internal/repository"
	"github.com/SANDAG/ABM-sub008/internal/service"
	"github.com/SANDAG/ABM-sub008/pkg/response"
)

// RunHandler handles HTTP requests for simulation runs
type RunHandler struct {
	service *service.RunService
}

// NewRunHandler creates a new run handler
func NewRunHandler(service *service.RunService) *RunHandler {
	return &RunHandler{service: service}
}

// CreateRun starts a batch run in the background
// POST /api/v1/runs
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req service.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	run, err := h.service.StartRun(req)
	switch {
	case errors.Is(err, service.ErrInvalidKind), errors.Is(err, service.ErrAirportDisabled):
		response.BadRequest(c, err.Error())
		return
	case err != nil:
		response.InternalError(c, "Failed to start run", err)
		return
	}

	response.Accepted(c, run)
}

// GetRun returns a run with its result summary
// GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	summary, err := h.service.Summary(c.Param("id"))
	if errors.Is(err, repository.ErrRunNotFound) {
		response.NotFound(c, "Run not found")
		return
	}
	if err != nil {
		response.InternalError(c, "Failed to load run", err)
		return
	}

	response.Success(c, summary)
}

// ListRuns returns recent runs
// GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		response.BadRequest(c, "Invalid limit")
		return
	}

	runs, err := h.service.ListRuns(c.Query("kind"), limit)
	if err != nil {
		response.InternalError(c, "Failed to list runs", err)
		return
	}

	response.Success(c, runs)
}
