package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateServiceRequest = "CREATE_SERVICE_REQUEST"
	ActionSubmitOffer          = "SUBMIT_OFFER"
	ActionWithdrawOffer        = "WITHDRAW_OFFER"
	ActionAcceptOffer          = "ACCEPT_OFFER"
	ActionStartService         = "START_SERVICE"
	ActionCompleteService      = "COMPLETE_SERVICE"
	ActionConfirmService       = "CONFIRM_SERVICE"
	ActionCancelService        = "CANCEL_SERVICE"

	// Payment workflow actions
	ActionPaymentApproved = "PAYMENT_APPROVED"
	ActionPaymentRejected = "PAYMENT_REJECTED"
	ActionPaymentReleased = "PAYMENT_RELEASED"
	ActionCreateReview    = "CREATE_REVIEW"
)

// AuditLog tracks Who, What, and When for lifecycle and payment changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nil when triggered by a payment provider
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
