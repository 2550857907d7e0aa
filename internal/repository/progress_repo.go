package repository

import (
	"context"

	"lifebee/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProgressRepository interface {
	Create(ctx context.Context, progress *model.ServiceProgress) error
	GetByRequest(ctx context.Context, requestID uuid.UUID) (*model.ServiceProgress, error)
	CountByRequest(ctx context.Context, requestID uuid.UUID) (int64, error)
	Update(ctx context.Context, progress *model.ServiceProgress) error
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Create(ctx context.Context, progress *model.ServiceProgress) error {
	return GetDB(ctx, r.db).Create(progress).Error
}

func (r *progressRepository) GetByRequest(ctx context.Context, requestID uuid.UUID) (*model.ServiceProgress, error) {
	var progress model.ServiceProgress
	if err := GetDB(ctx, r.db).First(&progress, "service_request_id = ?", requestID).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *progressRepository) CountByRequest(ctx context.Context, requestID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ServiceProgress{}).Where("service_request_id = ?", requestID).Count(&count).Error
	return count, err
}

func (r *progressRepository) Update(ctx context.Context, progress *model.ServiceProgress) error {
	return GetDB(ctx, r.db).Save(progress).Error
}
