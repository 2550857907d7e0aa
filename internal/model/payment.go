package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusApproved  = "approved"
	PaymentStatusRejected  = "rejected"
	PaymentStatusCancelled = "cancelled"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusRefunded  = "refunded"
)

const (
	TransactionTypeServicePayment = "service_payment"
	TransactionTypeRefund         = "refund"
	TransactionTypeBonus          = "bonus"
)

// PaymentReference links an accepted offer to a payment-provider preference or checkout session
type PaymentReference struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceRequestID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"service_request_id"`
	ServiceOfferID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"service_offer_id"`
	ClientID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	ProfessionalID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"professional_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency          string          `gorm:"type:varchar(3);not null" json:"currency"`
	Provider          string          `gorm:"type:varchar(30);not null" json:"provider"`
	PreferenceID      string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"preference_id"`
	ExternalReference string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"external_reference"`
	CheckoutURL       string          `gorm:"type:varchar(1000)" json:"checkout_url"`
	Status            string          `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentID         string          `gorm:"type:varchar(255)" json:"payment_id,omitempty"`
	ApprovedAt        *time.Time      `json:"approved_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *PaymentReference) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Transaction is the settled financial record mirroring a payment reference
type Transaction struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentReferenceID uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"payment_reference_id"`
	ServiceRequestID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"service_request_id"`
	ClientID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	ProfessionalID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"professional_id"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status             string          `gorm:"type:varchar(20);not null;index" json:"status"`
	Type               string          `gorm:"type:varchar(30);not null" json:"type"`
	PaymentMethod      string          `gorm:"type:varchar(30)" json:"payment_method"`
	CompletedAt        *time.Time      `json:"completed_at"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
