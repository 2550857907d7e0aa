package service

import (
	"context"
	"fmt"
	"time"

	"lifebee/internal/apperror"
	"lifebee/internal/repository"
)

// --- DTOs ---

type RevenueDataPoint struct {
	Period        string `json:"period"`
	Payments      int64  `json:"payments"`
	TotalPaid     string `json:"total_paid"`
	TotalReleased string `json:"total_released"`
	TotalHeld     string `json:"total_held"`
}

type RevenueFilter struct {
	GroupBy   string // week, month, quarter, year
	StartDate time.Time
	EndDate   time.Time
}

// --- Interface ---

type RevenueService interface {
	GetRevenueStatistics(ctx context.Context, filter RevenueFilter) ([]RevenueDataPoint, error)
}

type revenueService struct {
	repo repository.RevenueRepository
}

func NewRevenueService(repo repository.RevenueRepository) RevenueService {
	return &revenueService{repo: repo}
}

// --- Implementation ---

// GetRevenueStatistics reports settled payment volume per period, split into what was
// released to professionals and what is still held pending confirmation
func (s *revenueService) GetRevenueStatistics(ctx context.Context, filter RevenueFilter) ([]RevenueDataPoint, error) {
	groupBy := filter.GroupBy
	switch groupBy {
	case "week", "month", "quarter", "year":
	case "":
		groupBy = "month"
	default:
		return nil, apperror.Validation("group_by must be one of week, month, quarter, year")
	}
	if filter.EndDate.Before(filter.StartDate) {
		return nil, apperror.Validation("end_date must not be before start_date")
	}

	rows, err := s.repo.GetRevenueByPeriod(ctx, groupBy, filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenue: %w", err)
	}

	result := make([]RevenueDataPoint, 0, len(rows))
	for _, r := range rows {
		result = append(result, RevenueDataPoint{
			Period:        r.Period,
			Payments:      r.Payments,
			TotalPaid:     r.TotalPaid.StringFixed(2),
			TotalReleased: r.TotalReleased.StringFixed(2),
			TotalHeld:     r.TotalPaid.Sub(r.TotalReleased).StringFixed(2),
		})
	}

	return result, nil
}
