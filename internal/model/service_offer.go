package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OfferStatusPending   = "pending"
	OfferStatusAccepted  = "accepted"
	OfferStatusRejected  = "rejected"
	OfferStatusWithdrawn = "withdrawn"
	OfferStatusPaid      = "paid"
	OfferStatusCompleted = "completed"
)

// ServiceOffer is a professional's priced proposal against a service request
type ServiceOffer struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceRequestID uuid.UUID        `gorm:"type:uuid;not null;index" json:"service_request_id"`
	ProfessionalID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"professional_id"`
	Professional     *User            `gorm:"foreignKey:ProfessionalID" json:"professional,omitempty"`
	ProposedPrice    decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"proposed_price"`
	FinalPrice       *decimal.Decimal `gorm:"type:decimal(18,2)" json:"final_price"`
	EstimatedTime    string           `gorm:"type:varchar(100)" json:"estimated_time"`
	Message          string           `gorm:"type:text" json:"message"`
	Status           string           `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *ServiceOffer) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
