package repository

import (
	"context"

	"lifebee/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository stores payment references and the transactions mirroring them
type PaymentRepository interface {
	CreateReference(ctx context.Context, ref *model.PaymentReference) error
	GetReferenceByRequest(ctx context.Context, requestID uuid.UUID) (*model.PaymentReference, error)
	GetReferenceByExternalReference(ctx context.Context, externalReference string) (*model.PaymentReference, error)
	GetReferenceByPreferenceID(ctx context.Context, preferenceID string) (*model.PaymentReference, error)
	GetReferenceForUpdate(ctx context.Context, id uuid.UUID) (*model.PaymentReference, error)
	UpdateReference(ctx context.Context, ref *model.PaymentReference) error

	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionByReference(ctx context.Context, referenceID uuid.UUID) (*model.Transaction, error)
	GetTransactionByRequest(ctx context.Context, requestID uuid.UUID) (*model.Transaction, error)
	CountTransactionsByReference(ctx context.Context, referenceID uuid.UUID) (int64, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreateReference(ctx context.Context, ref *model.PaymentReference) error {
	return GetDB(ctx, r.db).Create(ref).Error
}

func (r *paymentRepository) GetReferenceByRequest(ctx context.Context, requestID uuid.UUID) (*model.PaymentReference, error) {
	var ref model.PaymentReference
	if err := GetDB(ctx, r.db).Order("created_at DESC").First(&ref, "service_request_id = ?", requestID).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *paymentRepository) GetReferenceByExternalReference(ctx context.Context, externalReference string) (*model.PaymentReference, error) {
	var ref model.PaymentReference
	if err := GetDB(ctx, r.db).First(&ref, "external_reference = ?", externalReference).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *paymentRepository) GetReferenceByPreferenceID(ctx context.Context, preferenceID string) (*model.PaymentReference, error) {
	var ref model.PaymentReference
	if err := GetDB(ctx, r.db).First(&ref, "preference_id = ?", preferenceID).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *paymentRepository) GetReferenceForUpdate(ctx context.Context, id uuid.UUID) (*model.PaymentReference, error) {
	var ref model.PaymentReference
	if err := forUpdate(GetDB(ctx, r.db)).First(&ref, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *paymentRepository) UpdateReference(ctx context.Context, ref *model.PaymentReference) error {
	return GetDB(ctx, r.db).Save(ref).Error
}

func (r *paymentRepository) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	return GetDB(ctx, r.db).Create(txn).Error
}

func (r *paymentRepository) GetTransactionByReference(ctx context.Context, referenceID uuid.UUID) (*model.Transaction, error) {
	var txn model.Transaction
	if err := GetDB(ctx, r.db).First(&txn, "payment_reference_id = ?", referenceID).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *paymentRepository) GetTransactionByRequest(ctx context.Context, requestID uuid.UUID) (*model.Transaction, error) {
	var txn model.Transaction
	err := GetDB(ctx, r.db).
		Where("service_request_id = ? AND type = ?", requestID, model.TransactionTypeServicePayment).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *paymentRepository) CountTransactionsByReference(ctx context.Context, referenceID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Transaction{}).Where("payment_reference_id = ?", referenceID).Count(&count).Error
	return count, err
}

func (r *paymentRepository) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	return GetDB(ctx, r.db).Save(txn).Error
}
