package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"companion/internal/service"
)

// SkipHandler handles HTTP requests for skipping candidates.
type SkipHandler struct {
	skipService *service.SkipService
}

// NewSkipHandler creates a new SkipHandler.
func NewSkipHandler(skipService *service.SkipService) *SkipHandler {
	return &SkipHandler{skipService: skipService}
}

// SkipRequest is the HTTP request body for skipping a candidate.
type SkipRequest struct {
	SkippedUserID string `json:"skippedUserId" binding:"required"`
}

// SkipResponse is the HTTP response for a recorded skip.
type SkipResponse struct {
	UserID        string `json:"userId"`
	SkippedUserID string `json:"skippedUserId"`
	Destination   string `json:"destination"`
	CreatedAt     string `json:"createdAt"`
}

// CreateSkip handles POST /v1/travelers/:id/skips
func (h *SkipHandler) CreateSkip(c *gin.Context) {
	var req SkipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	skip, err := h.skipService.Skip(c.Request.Context(), c.Param("id"), req.SkippedUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, SkipResponse{
		UserID:        skip.UserID,
		SkippedUserID: skip.SkippedUserID,
		Destination:   skip.Destination,
		CreatedAt:     skip.CreatedAt.Format(time.RFC3339),
	})
}
