package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatisticsResponse aggregates marketplace activity within a time range
type StatisticsResponse struct {
	RequestsByStatus   map[string]int64      `json:"requests_by_status"`
	TotalRequests      int64                 `json:"total_requests"`
	TotalOffers        int64                 `json:"total_offers"`
	PaidVolume         decimal.Decimal       `json:"paid_volume"`
	ReleasedVolume     decimal.Decimal       `json:"released_volume"`
	AverageRating      float64               `json:"average_rating"`
	TotalReviews       int64                 `json:"total_reviews"`
	TopProfessionals   []ProfessionalRanking `json:"top_professionals"`
	TimeRangeStartDate time.Time             `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time             `json:"time_range_end_date"`
}

// ProfessionalRanking represents a professional ranked by released earnings
type ProfessionalRanking struct {
	ProfessionalID   string          `json:"professional_id"`
	ProfessionalName string          `json:"professional_name"`
	CompletedJobs    int64           `json:"completed_jobs"`
	TotalEarned      decimal.Decimal `json:"total_earned"`
}
