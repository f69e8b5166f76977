package postgres

import (
	"context"
	"database/sql"

	"companion/internal/domain"
)

// ReportRepository is a PostgreSQL implementation of repository.ReportRepository.
type ReportRepository struct {
	q Querier
}

// NewReportRepository creates a new PostgreSQL report repository.
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{q: db}
}

// Create stores a report, ignoring a repeat by the same reporter.
func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) (bool, error) {
	query := `
		INSERT INTO user_reports (id, reporter_id, reported_user_id, reason, evidence_url, status, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), 'pending', $6)
		ON CONFLICT (reporter_id, reported_user_id) DO NOTHING`

	res, err := r.q.ExecContext(ctx, query,
		report.ID, report.ReporterID, report.ReportedUserID, report.Reason, report.EvidenceURL, report.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListReported returns the ids reporterID has reported.
func (r *ReportRepository) ListReported(ctx context.Context, reporterID string) ([]string, error) {
	query := `SELECT reported_user_id FROM user_reports WHERE reporter_id = $1`
	return queryIDs(ctx, r.q, query, reporterID)
}
