package handler

import (
	"net/http"

	"github.com/AdarBahar/MyTrip-sub003/internal/models"
	"github.com/AdarBahar/MyTrip-sub003/internal/service"
	"github.com/AdarBahar/MyTrip-sub003/pkg/response"
	"github.com/gin-gonic/gin"
)

// PingHandler handles HTTP requests for ping ingestion
type PingHandler struct {
	service *service.IngestService
}

// NewPingHandler creates a new ping handler
func NewPingHandler(service *service.IngestService) *PingHandler {
	return &PingHandler{service: service}
}

// Ingest handles POST /api/v1/pings
func (h *PingHandler) Ingest(c *gin.Context) {
	var req models.PingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid ping payload", err)
		return
	}

	result, err := h.service.Ingest(req.Ping())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to ingest ping", err)
		return
	}

	response.Success(c, result)
}
