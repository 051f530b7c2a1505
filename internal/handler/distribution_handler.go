package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SANDAG/ABM-sub008/internal/service"
	"github.com/SANDAG/ABM-sub008/internal/simulation"
	"github.com/SANDAG/ABM-sub008/internal/sizeterm"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
	"github.com/SANDAG/ABM-sub008/pkg/response"
)

// DistributionHandler serves probability tables and zone geometry
type DistributionHandler struct {
	service *service.DistributionService
}

// NewDistributionHandler creates a new distribution handler
func NewDistributionHandler(service *service.DistributionService) *DistributionHandler {
	return &DistributionHandler{service: service}
}

// GetDistribution returns the unit distribution of a zone
// GET /api/v1/distributions/:purpose/:zone?model=destination
func (h *DistributionHandler) GetDistribution(c *gin.Context) {
	zone, err := strconv.Atoi(c.Param("zone"))
	if err != nil {
		response.BadRequest(c, "Invalid zone ID")
		return
	}
	model := c.DefaultQuery("model", simulation.ModelDestination)

	dist, err := h.service.ZoneDistribution(c.Request.Context(), model, c.Param("purpose"), zone)
	switch {
	case errors.Is(err, service.ErrUnknownModel), errors.Is(err, sizeterm.ErrUnknownPurpose):
		response.BadRequest(c, err.Error())
		return
	case errors.Is(err, spatial.ErrUnknownZone):
		response.NotFound(c, "Zone not found")
		return
	case err != nil:
		response.InternalError(c, "Failed to load distribution", err)
		return
	}

	response.Success(c, dist)
}

// GetZone returns the summary of a zone
// GET /api/v1/zones/:zone
func (h *DistributionHandler) GetZone(c *gin.Context) {
	zone, err := strconv.Atoi(c.Param("zone"))
	if err != nil {
		response.BadRequest(c, "Invalid zone ID")
		return
	}

	info, err := h.service.Zone(zone)
	if errors.Is(err, spatial.ErrUnknownZone) {
		response.NotFound(c, "Zone not found")
		return
	}
	if err != nil {
		response.InternalError(c, "Failed to load zone", err)
		return
	}

	response.Success(c, info)
}
