package handler

import (
	"net/http"

	"github.com/AdarBahar/MyTrip-sub003/internal/models"
	"github.com/AdarBahar/MyTrip-sub003/internal/service"
	"github.com/AdarBahar/MyTrip-sub003/pkg/response"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler handles HTTP requests for on-demand dwell/drive analysis
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// GetDwells handles GET /api/v1/analytics/dwells
func (h *AnalyticsHandler) GetDwells(c *gin.Context) {
	var filter models.AnalyticsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	dwells, err := h.service.DetectDwells(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to detect dwells", err)
		return
	}

	response.Success(c, dwells)
}

// GetDrives handles GET /api/v1/analytics/drives
func (h *AnalyticsHandler) GetDrives(c *gin.Context) {
	var filter models.AnalyticsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	drives, err := h.service.SegmentDrives(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to segment drives", err)
		return
	}

	response.Success(c, drives)
}
