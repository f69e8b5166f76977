package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"companion/internal/domain"
	"companion/internal/service"
)

// InterestHandler handles HTTP requests for match interests.
type InterestHandler struct {
	interestService *service.InterestService
}

// NewInterestHandler creates a new InterestHandler.
func NewInterestHandler(interestService *service.InterestService) *InterestHandler {
	return &InterestHandler{interestService: interestService}
}

// ExpressInterestRequest is the HTTP request body for expressing interest.
type ExpressInterestRequest struct {
	ToUserID string `json:"toUserId" binding:"required"`
}

// RespondInterestRequest is the HTTP request body for answering an interest.
type RespondInterestRequest struct {
	Action string `json:"action" binding:"required,oneof=accept decline"`
}

// InterestResponse is the HTTP response for an interest.
type InterestResponse struct {
	ID          string `json:"id"`
	FromUserID  string `json:"fromUserId"`
	ToUserID    string `json:"toUserId"`
	Destination string `json:"destination"`
	Status      string `json:"status"`
	Mutual      bool   `json:"mutual,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// InterestsResponse lists received interests.
type InterestsResponse struct {
	Interests []InterestResponse `json:"interests"`
}

func toInterestResponse(in *domain.Interest) InterestResponse {
	return InterestResponse{
		ID:          in.ID,
		FromUserID:  in.FromUserID,
		ToUserID:    in.ToUserID,
		Destination: in.Destination,
		Status:      string(in.Status),
		CreatedAt:   in.CreatedAt.Format(time.RFC3339),
	}
}

// ExpressInterest handles POST /v1/travelers/:id/interests
// It answers 201 for a new interest and 200 when it already existed.
func (h *InterestHandler) ExpressInterest(c *gin.Context) {
	var req ExpressInterestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.interestService.Express(c.Request.Context(), c.Param("id"), req.ToUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := toInterestResponse(result.Interest)
	resp.Mutual = result.Mutual
	code := http.StatusCreated
	if !result.Created {
		code = http.StatusOK
	}
	respondJSON(c, code, resp)
}

// ListInterests handles GET /v1/travelers/:id/interests
func (h *InterestHandler) ListInterests(c *gin.Context) {
	list, err := h.interestService.Received(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := InterestsResponse{Interests: make([]InterestResponse, 0, len(list))}
	for _, in := range list {
		resp.Interests = append(resp.Interests, toInterestResponse(in))
	}
	respondJSON(c, http.StatusOK, resp)
}

// RespondInterest handles POST /v1/travelers/:id/interests/:interestId/respond
func (h *InterestHandler) RespondInterest(c *gin.Context) {
	var req RespondInterestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "action must be accept or decline"})
		return
	}

	in, err := h.interestService.Respond(c.Request.Context(), c.Param("id"), c.Param("interestId"), service.InterestAction(req.Action))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toInterestResponse(in))
}
