package repository

import (
	"context"
	"fmt"
	"time"

	"lifebee/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CountRequestsByStatus(ctx context.Context, start, end time.Time) (map[string]int64, error)
	CountOffers(ctx context.Context, start, end time.Time) (int64, error)
	SumTransactions(ctx context.Context, status string, start, end time.Time) (decimal.Decimal, error)
	SumReleased(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	ReviewSummary(ctx context.Context, start, end time.Time) (avg float64, count int64, err error)
	TopProfessionals(ctx context.Context, start, end time.Time, limit int) ([]model.ProfessionalRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountRequestsByStatus(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := GetDB(ctx, r.db).Model(&model.ServiceRequest{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *statisticsRepository) CountOffers(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ServiceOffer{}).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Count(&count).Error
	return count, err
}

func (r *statisticsRepository) SumTransactions(ctx context.Context, status string, start, end time.Time) (decimal.Decimal, error) {
	var result struct {
		Value string
	}
	if err := GetDB(ctx, r.db).Model(&model.Transaction{}).
		Select("COALESCE(CAST(SUM(amount) AS TEXT), '0') AS value").
		Where("status = ? AND type = ? AND created_at >= ? AND created_at <= ?", status, model.TransactionTypeServicePayment, start, end).
		Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return parseDecimal(result.Value)
}

// SumReleased totals completed payments whose progress row reached payment_released
func (r *statisticsRepository) SumReleased(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var result struct {
		Value string
	}
	if err := GetDB(ctx, r.db).Table("transactions").
		Select("COALESCE(CAST(SUM(transactions.amount) AS TEXT), '0') AS value").
		Joins("JOIN service_progress ON service_progress.service_request_id = transactions.service_request_id").
		Where("transactions.status = ? AND service_progress.status = ? AND service_progress.payment_released_at >= ? AND service_progress.payment_released_at <= ?",
			model.TransactionStatusCompleted, model.ProgressStatusPaymentReleased, start, end).
		Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum released payments: %w", err)
	}
	return parseDecimal(result.Value)
}

func (r *statisticsRepository) ReviewSummary(ctx context.Context, start, end time.Time) (float64, int64, error) {
	var result struct {
		Average float64
		Count   int64
	}
	err := GetDB(ctx, r.db).Model(&model.ServiceReview{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Scan(&result).Error
	return result.Average, result.Count, err
}

func (r *statisticsRepository) TopProfessionals(ctx context.Context, start, end time.Time, limit int) ([]model.ProfessionalRanking, error) {
	var rows []struct {
		ProfessionalID   string
		ProfessionalName string
		CompletedJobs    int64
		TotalEarned      string
	}
	if err := GetDB(ctx, r.db).Table("transactions").
		Select("transactions.professional_id AS professional_id, users.name AS professional_name, COUNT(*) AS completed_jobs, CAST(SUM(transactions.amount) AS TEXT) AS total_earned").
		Joins("JOIN users ON users.id = transactions.professional_id").
		Joins("JOIN service_progress ON service_progress.service_request_id = transactions.service_request_id").
		Where("transactions.status = ? AND service_progress.status = ? AND service_progress.payment_released_at >= ? AND service_progress.payment_released_at <= ?",
			model.TransactionStatusCompleted, model.ProgressStatusPaymentReleased, start, end).
		Group("transactions.professional_id, users.name").
		Order("completed_jobs DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query top professionals: %w", err)
	}

	rankings := make([]model.ProfessionalRanking, 0, len(rows))
	for _, row := range rows {
		earned, err := parseDecimal(row.TotalEarned)
		if err != nil {
			return nil, err
		}
		rankings = append(rankings, model.ProfessionalRanking{
			ProfessionalID:   row.ProfessionalID,
			ProfessionalName: row.ProfessionalName,
			CompletedJobs:    row.CompletedJobs,
			TotalEarned:      earned,
		})
	}
	return rankings, nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return d, nil
}
