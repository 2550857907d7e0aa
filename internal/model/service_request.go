package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RequestStatusOpen                 = "open"
	RequestStatusAssigned             = "assigned"
	RequestStatusInProgress           = "in_progress"
	RequestStatusAwaitingConfirmation = "awaiting_confirmation"
	RequestStatusCompleted            = "completed"
	RequestStatusCancelled            = "cancelled"
)

const (
	CategoryPhysiotherapy     = "physiotherapy"
	CategoryNursingTechnician = "nursing_technician"
	CategoryHospitalCompanion = "hospital_companion"
)

const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// ServiceRequest is a client's posted need for a healthcare service
type ServiceRequest struct {
	ID                     uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID               uuid.UUID        `gorm:"type:uuid;not null;index" json:"client_id"`
	Client                 *User            `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Category               string           `gorm:"type:varchar(50);not null;index" json:"category"`
	Description            string           `gorm:"type:text;not null" json:"description"`
	Address                string           `gorm:"type:varchar(500);not null" json:"address"`
	ScheduledDate          string           `gorm:"type:varchar(10)" json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime          string           `gorm:"type:varchar(5)" json:"scheduled_time"`  // HH:MM
	Urgency                string           `gorm:"type:varchar(10);not null;default:'medium'" json:"urgency"`
	Budget                 *decimal.Decimal `gorm:"type:decimal(18,2)" json:"budget,omitempty"`
	Status                 string           `gorm:"type:varchar(30);not null;index" json:"status"`
	AssignedProfessionalID *uuid.UUID       `gorm:"type:uuid;index" json:"assigned_professional_id"`
	Responses              int              `gorm:"not null;default:0" json:"responses"`
	ServiceStartedAt       *time.Time       `json:"service_started_at"`
	ServiceCompletedAt     *time.Time       `json:"service_completed_at"`
	ClientConfirmedAt      *time.Time       `json:"client_confirmed_at"`
	CancelledAt            *time.Time       `json:"cancelled_at"`
	CancellationReason     string           `gorm:"type:varchar(500)" json:"cancellation_reason,omitempty"`
	Version                int              `gorm:"not null;default:0" json:"-"`
	CreatedAt              time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *ServiceRequest) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// IsParticipant reports whether the user is the requesting client or the assigned professional
func (r *ServiceRequest) IsParticipant(userID uuid.UUID) bool {
	if r.ClientID == userID {
		return true
	}
	return r.AssignedProfessionalID != nil && *r.AssignedProfessionalID == userID
}
