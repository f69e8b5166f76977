package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"companion/internal/logging"
	"companion/internal/repository"
	"companion/internal/service"
	"companion/internal/validation"
)

// statusClientClosedRequest is the nginx convention for a caller that went away.
const statusClientClosedRequest = 499

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code >= http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var verr *validation.Error

	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrNoActiveSession),
		errors.Is(err, service.ErrProfileIncomplete),
		errors.Is(err, service.ErrInterestNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidTripIntent),
		errors.Is(err, service.ErrInvalidProfile),
		errors.Is(err, service.ErrInvalidSkip),
		errors.Is(err, service.ErrInvalidInterest),
		errors.Is(err, service.ErrInvalidResponse),
		errors.Is(err, service.ErrInvalidReport),
		errors.As(err, &verr):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrInterestResolved):
		return http.StatusConflict

	// Service unavailable
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
