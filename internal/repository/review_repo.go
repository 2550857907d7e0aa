package repository

import (
	"context"

	"lifebee/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.ServiceReview) error
	ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, page, limit int) ([]model.ServiceReview, int64, error)
	AverageRating(ctx context.Context, professionalID uuid.UUID) (float64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.ServiceReview) error {
	return GetDB(ctx, r.db).Create(review).Error
}

func (r *reviewRepository) ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.ServiceReview{}).Where("service_request_id = ?", requestID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *reviewRepository) ListByProfessional(ctx context.Context, professionalID uuid.UUID, page, limit int) ([]model.ServiceReview, int64, error) {
	var reviews []model.ServiceReview
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.ServiceReview{}).Where("professional_id = ?", professionalID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Client").Where("professional_id = ?", professionalID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&reviews).Error; err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

func (r *reviewRepository) AverageRating(ctx context.Context, professionalID uuid.UUID) (float64, error) {
	var result struct {
		Average float64
	}
	err := GetDB(ctx, r.db).Model(&model.ServiceReview{}).
		Select("COALESCE(AVG(rating), 0) AS average").
		Where("professional_id = ?", professionalID).
		Scan(&result).Error
	return result.Average, err
}
