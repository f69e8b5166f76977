package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"companion/internal/service"
)

// ReportHandler handles HTTP requests for user reports.
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// CreateReportRequest is the HTTP request body for reporting a traveler.
type CreateReportRequest struct {
	ReportedUserID string `json:"reportedUserId" binding:"required"`
	Reason         string `json:"reason" binding:"required"`
	EvidenceURL    string `json:"evidenceUrl"`
}

// ReportResponse is the HTTP response for a report.
type ReportResponse struct {
	ID             string `json:"id,omitempty"`
	ReportedUserID string `json:"reportedUserId"`
	AlreadyFiled   bool   `json:"alreadyFiled,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

// CreateReport handles POST /v1/travelers/:id/reports
// It answers 201 for a new report and 200 when one was already filed.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	report, created, err := h.reportService.Report(c.Request.Context(), service.ReportRequest{
		ReporterID:     c.Param("id"),
		ReportedUserID: req.ReportedUserID,
		Reason:         req.Reason,
		EvidenceURL:    req.EvidenceURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// The earlier report stands, so there is no new id to hand out.
	if !created {
		respondJSON(c, http.StatusOK, ReportResponse{ReportedUserID: report.ReportedUserID, AlreadyFiled: true})
		return
	}
	respondJSON(c, http.StatusCreated, ReportResponse{
		ID:             report.ID,
		ReportedUserID: report.ReportedUserID,
		CreatedAt:      report.CreatedAt.Format(time.RFC3339),
	})
}
