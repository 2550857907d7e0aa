package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EventOfferReceived    = "offer_received"
	EventOfferAccepted    = "offer_accepted"
	EventServiceStarted   = "service_started"
	EventServiceCompleted = "service_completed"
	EventServiceConfirmed = "service_confirmed"
	EventServiceCancelled = "service_cancelled"
	EventPaymentApproved  = "payment_approved"
	EventPaymentRejected  = "payment_rejected"
	EventPaymentReleased  = "payment_released"
)

const (
	OutboxStatusPending    = "pending"
	OutboxStatusDispatched = "dispatched"
	OutboxStatusFailed     = "failed"
)

// OutboxEvent is a notification waiting to be delivered, written in the same
// transaction as the state change that produced it
type OutboxEvent struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Type         string     `gorm:"type:varchar(50);not null" json:"type"`
	Title        string     `gorm:"type:varchar(255);not null" json:"title"`
	Message      string     `gorm:"type:text" json:"message"`
	Data         string     `gorm:"type:jsonb" json:"data"`
	Status       string     `gorm:"type:varchar(20);not null;index" json:"status"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	LastError    string     `gorm:"type:text" json:"last_error,omitempty"`
	DispatchedAt *time.Time `json:"dispatched_at"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// Notification is a delivered, user-facing message
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"event_id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string     `gorm:"type:varchar(50);not null" json:"type"`
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`
	Message   string     `gorm:"type:text" json:"message"`
	Data      string     `gorm:"type:jsonb" json:"data"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
