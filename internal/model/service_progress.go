package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProgressStatusAccepted             = "accepted"
	ProgressStatusStarted              = "started"
	ProgressStatusInProgress           = "in_progress"
	ProgressStatusCompleted            = "completed"
	ProgressStatusAwaitingConfirmation = "awaiting_confirmation"
	ProgressStatusConfirmed            = "confirmed"
	ProgressStatusPaymentReleased      = "payment_released"
)

// ServiceProgress tracks the execution of the accepted offer of a request
type ServiceProgress struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceRequestID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"service_request_id"`
	ServiceOfferID    uuid.UUID  `gorm:"type:uuid;not null" json:"service_offer_id"`
	ProfessionalID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"professional_id"`
	Status            string     `gorm:"type:varchar(30);not null" json:"status"`
	StartedAt         *time.Time `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at"`
	ConfirmedAt       *time.Time `json:"confirmed_at"`
	PaymentReleasedAt *time.Time `json:"payment_released_at"`
	Notes             string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *ServiceProgress) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (ServiceProgress) TableName() string {
	return "service_progress"
}
