package repository

import (
	"context"
	"fmt"
	"time"

	"lifebee/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RevenueDataRow struct {
	Period        string          `gorm:"column:period"`
	Payments      int64           `gorm:"column:payments"`
	TotalPaid     decimal.Decimal `gorm:"column:total_paid"`
	TotalReleased decimal.Decimal `gorm:"column:total_released"`
}

type RevenueRepository interface {
	GetRevenueByPeriod(ctx context.Context, groupBy string, start, end time.Time) ([]RevenueDataRow, error)
}

type revenueRepository struct {
	db *gorm.DB
}

func NewRevenueRepository(db *gorm.DB) RevenueRepository {
	return &revenueRepository{db: db}
}

// GetRevenueByPeriod buckets settled transactions by DATE_TRUNC unit (PostgreSQL only)
func (r *revenueRepository) GetRevenueByPeriod(ctx context.Context, groupBy string, start, end time.Time) ([]RevenueDataRow, error) {
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC(?, t.completed_at), 'YYYY-MM-DD') AS period,
			COUNT(*) AS payments,
			COALESCE(SUM(t.amount), 0) AS total_paid,
			COALESCE(SUM(CASE WHEN p.status = ? THEN t.amount ELSE 0 END), 0) AS total_released
		FROM transactions t
		LEFT JOIN service_progress p ON p.service_request_id = t.service_request_id
		WHERE t.status = ?
		  AND t.completed_at >= ?
		  AND t.completed_at <= ?
		GROUP BY DATE_TRUNC(?, t.completed_at)
		ORDER BY period
	`

	var rows []RevenueDataRow
	if err := GetDB(ctx, r.db).Raw(query,
		groupBy, model.ProgressStatusPaymentReleased, model.TransactionStatusCompleted, start, end, groupBy,
	).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query revenue statistics: %w", err)
	}

	return rows, nil
}
