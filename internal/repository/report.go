package repository

import (
	"context"

	"companion/internal/domain"
)

// ReportRepository defines the persistence operations for user reports.
type ReportRepository interface {
	// Create stores report. created is false when the reporter already
	// reported the same traveler.
	Create(ctx context.Context, report *domain.Report) (created bool, err error)

	// ListReported returns the ids reporterID has reported.
	ListReported(ctx context.Context, reporterID string) ([]string, error)
}
