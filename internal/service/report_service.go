package service

import (
	"context"

	"github.com/spec-kit/ticket-warehouse/internal/repository"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

const maxReportLimit = 1000

// ReportService serves read-only warehouse reports.
type ReportService struct {
	reports repository.ReportRepository
}

// NewReportService creates the service.
func NewReportService(reports repository.ReportRepository) *ReportService {
	return &ReportService{reports: reports}
}

// FilterOptions lists distinct years, months, parties and statuses present in the warehouse.
func (s *ReportService) FilterOptions(ctx context.Context) (repository.FilterOptions, error) {
	opts, err := s.reports.FilterOptions(ctx)
	if err != nil {
		return repository.FilterOptions{}, apperrors.MapError(err)
	}
	return opts, nil
}

// Tickets validates filter and returns the matching fact rows.
func (s *ReportService) Tickets(ctx context.Context, filter repository.ReportFilter) ([]repository.TicketReportRow, error) {
	if err := validateReportFilter(filter); err != nil {
		return nil, err
	}
	rows, err := s.reports.Tickets(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rows, nil
}

func validateReportFilter(filter repository.ReportFilter) error {
	if filter.Month != nil && (*filter.Month < 1 || *filter.Month > 12) {
		return apperrors.NewValidationError("month must be between 1 and 12", map[string]any{"month": *filter.Month})
	}
	if filter.Year != nil && (*filter.Year < 1 || *filter.Year > 9999) {
		return apperrors.NewValidationError("year is out of range", map[string]any{"year": *filter.Year})
	}
	if filter.Limit < 0 || filter.Limit > maxReportLimit {
		return apperrors.NewValidationError("limit must be between 0 and 1000", map[string]any{"limit": filter.Limit})
	}
	if filter.Offset < 0 {
		return apperrors.NewValidationError("offset must not be negative", map[string]any{"offset": filter.Offset})
	}
	return nil
}
