package service

import (
	"context"
	"fmt"
	"time"

	"lifebee/internal/apperror"
	"lifebee/internal/model"
	"lifebee/internal/repository"
)

const topProfessionalsLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetStatistics aggregates requests, offers, payments and reviews created inside the range
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	if endDate.Before(startDate) {
		return response, apperror.Validation("end_date must not be before start_date")
	}
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	byStatus, err := s.repo.CountRequestsByStatus(ctx, startDate, endDate)
	if err != nil {
		return response, fmt.Errorf("failed to count requests: %w", err)
	}
	response.RequestsByStatus = byStatus
	for _, n := range byStatus {
		response.TotalRequests += n
	}

	if response.TotalOffers, err = s.repo.CountOffers(ctx, startDate, endDate); err != nil {
		return response, fmt.Errorf("failed to count offers: %w", err)
	}

	// Paid volume counts settled transactions, released volume only those paid out
	if response.PaidVolume, err = s.repo.SumTransactions(ctx, model.TransactionStatusCompleted, startDate, endDate); err != nil {
		return response, fmt.Errorf("failed to sum transactions: %w", err)
	}
	if response.ReleasedVolume, err = s.repo.SumReleased(ctx, startDate, endDate); err != nil {
		return response, fmt.Errorf("failed to sum released payments: %w", err)
	}

	if response.AverageRating, response.TotalReviews, err = s.repo.ReviewSummary(ctx, startDate, endDate); err != nil {
		return response, fmt.Errorf("failed to summarize reviews: %w", err)
	}

	if response.TopProfessionals, err = s.repo.TopProfessionals(ctx, startDate, endDate, topProfessionalsLimit); err != nil {
		return response, fmt.Errorf("failed to rank professionals: %w", err)
	}
	if response.TopProfessionals == nil {
		response.TopProfessionals = []model.ProfessionalRanking{}
	}

	return response, nil
}
