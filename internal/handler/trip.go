package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"companion/internal/domain"
	"companion/internal/service"
)

// dateLayout is the calendar-day form accepted for trip dates.
const dateLayout = "2006-01-02"

// TripHandler handles HTTP requests for trip intents.
type TripHandler struct {
	tripService *service.TripIntentService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripIntentService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// DeclareTripRequest is the HTTP request body for declaring a trip.
type DeclareTripRequest struct {
	Destination string  `json:"destination" binding:"required"`
	StartDate   string  `json:"startDate" binding:"required"`
	EndDate     string  `json:"endDate" binding:"required"`
	Budget      float64 `json:"budget" binding:"gte=0"`
}

// TripResponse is the HTTP response for a trip intent.
type TripResponse struct {
	UserID      string  `json:"userId"`
	Destination string  `json:"destination"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	Budget      float64 `json:"budget"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

func toTripResponse(intent *domain.TripIntent) TripResponse {
	resp := TripResponse{
		UserID:      intent.UserID,
		Destination: intent.Destination,
		StartDate:   intent.StartDate.Format(dateLayout),
		EndDate:     intent.EndDate.Format(dateLayout),
		Budget:      intent.Budget,
	}
	if !intent.UpdatedAt.IsZero() {
		resp.UpdatedAt = intent.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

// parseDate accepts a calendar day or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// DeclareTrip handles PUT /v1/travelers/:id/trip
func (h *TripHandler) DeclareTrip(c *gin.Context) {
	var req DeclareTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "startDate must be YYYY-MM-DD"})
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "endDate must be YYYY-MM-DD"})
		return
	}

	intent, err := h.tripService.Declare(c.Request.Context(), service.DeclareTripRequest{
		UserID:      c.Param("id"),
		Destination: req.Destination,
		StartDate:   start,
		EndDate:     end,
		Budget:      req.Budget,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(intent))
}

// GetTrip handles GET /v1/travelers/:id/trip
func (h *TripHandler) GetTrip(c *gin.Context) {
	intent, err := h.tripService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(intent))
}

// CancelTrip handles DELETE /v1/travelers/:id/trip
func (h *TripHandler) CancelTrip(c *gin.Context) {
	if err := h.tripService.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
