package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"companion/internal/domain"
	"companion/internal/service"
)

// MatchHandler handles HTTP requests for companion matches.
type MatchHandler struct {
	matchingService *service.MatchingService
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matchingService *service.MatchingService) *MatchHandler {
	return &MatchHandler{matchingService: matchingService}
}

// MatchesResponse is the HTTP response for listing matches.
type MatchesResponse struct {
	UserID  string               `json:"userId"`
	Total   int                  `json:"total"`
	Matches []domain.MatchResult `json:"matches"`
}

// GetMatches handles GET /v1/travelers/:id/matches
func (h *MatchHandler) GetMatches(c *gin.Context) {
	userID := c.Param("id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	explain := false
	if raw := c.Query("explain"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "explain must be a boolean"})
			return
		}
		explain = b
	}

	results, err := h.matchingService.Match(c.Request.Context(), service.MatchRequest{
		UserID:  userID,
		Explain: explain,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	total := len(results)
	if limit > 0 && limit < total {
		results = results[:limit]
	}

	respondJSON(c, http.StatusOK, MatchesResponse{
		UserID:  userID,
		Total:   total,
		Matches: results,
	})
}
