package repository

import (
	"context"
	"errors"

	"lifebee/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OfferRepository interface {
	Create(ctx context.Context, offer *model.ServiceOffer) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceOffer, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.ServiceOffer, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID, professionalID *uuid.UUID) ([]model.ServiceOffer, error)
	HasPending(ctx context.Context, requestID, professionalID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, offer *model.ServiceOffer, expectedStatus string) error
	RejectPendingSiblings(ctx context.Context, requestID, acceptedID uuid.UUID) (int64, error)
	RejectAllPending(ctx context.Context, requestID uuid.UUID) (int64, error)
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, offer *model.ServiceOffer) error {
	return GetDB(ctx, r.db).Create(offer).Error
}

func (r *offerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceOffer, error) {
	var offer model.ServiceOffer
	if err := GetDB(ctx, r.db).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *offerRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.ServiceOffer, error) {
	var offer model.ServiceOffer
	if err := forUpdate(GetDB(ctx, r.db)).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// ListByRequest returns the offers of a request, optionally narrowed to one professional
func (r *offerRepository) ListByRequest(ctx context.Context, requestID uuid.UUID, professionalID *uuid.UUID) ([]model.ServiceOffer, error) {
	var offers []model.ServiceOffer
	query := GetDB(ctx, r.db).Preload("Professional").Where("service_request_id = ?", requestID)
	if professionalID != nil {
		query = query.Where("professional_id = ?", *professionalID)
	}
	if err := query.Order("created_at ASC").Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *offerRepository) HasPending(ctx context.Context, requestID, professionalID uuid.UUID) (bool, error) {
	var offer model.ServiceOffer
	err := GetDB(ctx, r.db).Select("id").
		Where("service_request_id = ? AND professional_id = ? AND status = ?", requestID, professionalID, model.OfferStatusPending).
		First(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateStatus saves status and final price only if the stored status is still expectedStatus
func (r *offerRepository) UpdateStatus(ctx context.Context, offer *model.ServiceOffer, expectedStatus string) error {
	res := GetDB(ctx, r.db).Model(offer).
		Where("status = ?", expectedStatus).
		Select("status", "final_price", "updated_at").
		Updates(offer)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *offerRepository) RejectPendingSiblings(ctx context.Context, requestID, acceptedID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.ServiceOffer{}).
		Where("service_request_id = ? AND id <> ? AND status = ?", requestID, acceptedID, model.OfferStatusPending).
		Update("status", model.OfferStatusRejected)
	return res.RowsAffected, res.Error
}

func (r *offerRepository) RejectAllPending(ctx context.Context, requestID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.ServiceOffer{}).
		Where("service_request_id = ? AND status = ?", requestID, model.OfferStatusPending).
		Update("status", model.OfferStatusRejected)
	return res.RowsAffected, res.Error
}
