package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"companion/internal/domain"
	"companion/internal/service"
)

// ProfileHandler handles HTTP requests for static profiles.
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpsertProfileRequest is the HTTP request body for saving a profile.
type UpsertProfileRequest struct {
	Age         int      `json:"age" binding:"required"`
	Interests   []string `json:"interests"`
	TravelModes []string `json:"travelModes"`
	Profession  string   `json:"profession"`
}

// UpsertProfile handles PUT /v1/travelers/:id/profile
func (h *ProfileHandler) UpsertProfile(c *gin.Context) {
	var req UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	profile := &domain.StaticProfile{
		UserID:      c.Param("id"),
		Age:         req.Age,
		Interests:   req.Interests,
		TravelModes: req.TravelModes,
		Profession:  req.Profession,
	}
	if err := h.profileService.Upsert(c.Request.Context(), profile); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, profile)
}

// GetProfile handles GET /v1/travelers/:id/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.profileService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, profile)
}
