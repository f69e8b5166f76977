package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"companion/internal/domain"
	"companion/internal/logging"
	"companion/internal/repository"
	"companion/internal/validation"
)

// ReportService records user reports. Reviewing them happens elsewhere.
type ReportService struct {
	repo     repository.ReportRepository
	notifier Notifier
	now      func() time.Time
}

// NewReportService creates a new ReportService. notifier may be nil.
func NewReportService(repo repository.ReportRepository, notifier Notifier) *ReportService {
	return &ReportService{repo: repo, notifier: notifier, now: time.Now}
}

// ReportRequest contains the parameters for reporting a traveler.
type ReportRequest struct {
	ReporterID     string
	ReportedUserID string
	Reason         string
	EvidenceURL    string
}

// Report flags req.ReportedUserID. created is false when the reporter had
// already reported that traveler; the earlier report stands.
func (s *ReportService) Report(ctx context.Context, req ReportRequest) (report *domain.Report, created bool, err error) {
	if !validation.ValidUserID(req.ReporterID) || !validation.ValidUserID(req.ReportedUserID) {
		return nil, false, ErrInvalidUserID
	}
	if req.ReporterID == req.ReportedUserID {
		return nil, false, fmt.Errorf("%w: cannot report yourself", ErrInvalidReport)
	}

	report = &domain.Report{
		ID:             uuid.NewString(),
		ReporterID:     req.ReporterID,
		ReportedUserID: req.ReportedUserID,
		Reason:         strings.TrimSpace(req.Reason),
		EvidenceURL:    strings.TrimSpace(req.EvidenceURL),
		CreatedAt:      s.now().UTC(),
	}
	if err := validation.Struct(report); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}

	created, err = s.repo.Create(ctx, report)
	if err != nil {
		return nil, false, storeFailure(err)
	}

	if created && s.notifier != nil {
		if err := s.notifier.Notify(ctx, reportSubmittedNotification(report)); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("user_id", report.ReporterID).Msg("report notification failed")
		}
	}
	return report, created, nil
}
