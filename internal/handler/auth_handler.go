package handler

import (
	"net/http"
	"time"

	"github.com/AdarBahar/MyTrip-sub003/internal/middleware"
	"github.com/AdarBahar/MyTrip-sub003/pkg/response"
	"github.com/gin-gonic/gin"
)

// AuthHandler issues device tokens for the mutating endpoints
type AuthHandler struct {
	secret string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(secret string) *AuthHandler {
	return &AuthHandler{secret: secret}
}

type tokenRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
}

// Token handles POST /api/v1/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid token request", err)
		return
	}

	token, err := middleware.IssueToken(h.secret, req.DeviceID, 24*time.Hour)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}

	response.Success(c, gin.H{"token": token})
}
