package handler

import (
	"net/http"
	"strconv"

	"github.com/AdarBahar/MyTrip-sub003/internal/models"
	"github.com/AdarBahar/MyTrip-sub003/internal/repository"
	"github.com/AdarBahar/MyTrip-sub003/internal/service"
	"github.com/AdarBahar/MyTrip-sub003/pkg/response"
	"github.com/gin-gonic/gin"
)

// SessionHandler handles HTTP requests for dwell sessions and rollups
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// GetMarkers handles GET /api/v1/sessions
func (h *SessionHandler) GetMarkers(c *gin.Context) {
	var filter models.SessionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	markers, err := h.service.GetSessionsForDisplay(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get dwell sessions", err)
		return
	}

	response.Success(c, markers)
}

// GetRollups handles GET /api/v1/rollups
func (h *SessionHandler) GetRollups(c *gin.Context) {
	var filter models.RollupFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	rollups, err := h.service.GetRollups(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get rollups", err)
		return
	}

	response.Success(c, rollups)
}

// Process handles POST /api/v1/process/:deviceId
// Optional query params fromTime/toTime (Unix ms) bound the batch window.
func (h *SessionHandler) Process(c *gin.Context) {
	deviceID := c.Param("deviceId")
	if deviceID == "" {
		response.Error(c, http.StatusBadRequest, "Missing device id", nil)
		return
	}

	var fromMs, toMs *int64
	if v := c.Query("fromTime"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid fromTime", err)
			return
		}
		fromMs = &parsed
	}
	if v := c.Query("toTime"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid toTime", err)
			return
		}
		toMs = &parsed
	}

	result, err := h.service.Process(c.Request.Context(), deviceID, fromMs, toMs)
	if err != nil {
		// Storage failures leave the checkpoint untouched; the same window
		// is safe to retry.
		if repository.IsStorageError(err) {
			response.Error(c, http.StatusServiceUnavailable, "Storage unavailable, batch will be retried", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "Processing failed", err)
		return
	}

	response.Success(c, result)
}
