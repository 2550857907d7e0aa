package repository

import (
	"context"
	"fmt"

	"lifebee/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestFilter narrows a service request listing
type RequestFilter struct {
	ClientID *uuid.UUID
	// VisibleToProfessional lists open requests plus the ones assigned to this professional
	VisibleToProfessional *uuid.UUID
	Status                string
	Category              string
}

type ServiceRequestRepository interface {
	Create(ctx context.Context, req *model.ServiceRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)
	List(ctx context.Context, filter RequestFilter, page, limit int) ([]model.ServiceRequest, int64, error)
	CompareAndSwap(ctx context.Context, req *model.ServiceRequest, expectedStatus string) error
	IncrementResponses(ctx context.Context, id uuid.UUID) error
}

type serviceRequestRepository struct {
	db *gorm.DB
}

func NewServiceRequestRepository(db *gorm.DB) ServiceRequestRepository {
	return &serviceRequestRepository{db: db}
}

func (r *serviceRequestRepository) Create(ctx context.Context, req *model.ServiceRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	var req model.ServiceRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// GetForUpdate loads the request holding a row lock until the surrounding transaction ends
func (r *serviceRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	var req model.ServiceRequest
	if err := forUpdate(GetDB(ctx, r.db)).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *serviceRequestRepository) List(ctx context.Context, filter RequestFilter, page, limit int) ([]model.ServiceRequest, int64, error) {
	var requests []model.ServiceRequest
	var total int64

	scoped := func(db *gorm.DB) *gorm.DB {
		if filter.ClientID != nil {
			db = db.Where("client_id = ?", *filter.ClientID)
		}
		if filter.VisibleToProfessional != nil {
			db = db.Where("(status = ? OR assigned_professional_id = ?)", model.RequestStatusOpen, *filter.VisibleToProfessional)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.Category != "" {
			db = db.Where("category = ?", filter.Category)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.ServiceRequest{}).Scopes(scoped).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Scopes(scoped).Order("created_at DESC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// CompareAndSwap writes the lifecycle columns of req only if the stored row still has
// expectedStatus and the version req was read at. The version is bumped on success.
func (r *serviceRequestRepository) CompareAndSwap(ctx context.Context, req *model.ServiceRequest, expectedStatus string) error {
	readVersion := req.Version
	req.Version = readVersion + 1

	res := GetDB(ctx, r.db).Model(req).
		Where("status = ? AND version = ?", expectedStatus, readVersion).
		Select(
			"status",
			"assigned_professional_id",
			"service_started_at",
			"service_completed_at",
			"client_confirmed_at",
			"cancelled_at",
			"cancellation_reason",
			"version",
			"updated_at",
		).
		Updates(req)
	if res.Error != nil {
		req.Version = readVersion
		return fmt.Errorf("update service request %s: %w", req.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		req.Version = readVersion
		return ErrStaleWrite
	}
	return nil
}

func (r *serviceRequestRepository) IncrementResponses(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.ServiceRequest{}).
		Where("id = ?", id).
		UpdateColumn("responses", gorm.Expr("responses + ?", 1)).Error
}
