package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceReview is the client's rating of the professional who served a request
type ServiceReview struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceRequestID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"service_request_id"`
	ServiceOfferID   uuid.UUID `gorm:"type:uuid;not null" json:"service_offer_id"`
	ClientID         uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Client           *User     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ProfessionalID   uuid.UUID `gorm:"type:uuid;not null;index" json:"professional_id"`
	Rating           int       `gorm:"not null" json:"rating"`
	Comment          string    `gorm:"type:text" json:"comment"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *ServiceReview) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
