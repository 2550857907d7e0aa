package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleClient       = "client"
	RoleProfessional = "professional"
	RoleAdmin        = "admin"
)

const (
	ProfessionalPhysiotherapist   = "physiotherapist"
	ProfessionalNursingTechnician = "nursing_technician"
	ProfessionalHospitalCompanion = "hospital_companion"
)

// User represents a marketplace account: a client, a healthcare professional or an admin
type User struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string         `gorm:"type:varchar(255);not null" json:"name"`
	Email            string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone            string         `gorm:"type:varchar(20)" json:"phone"`
	Password         string         `gorm:"type:varchar(255);not null" json:"-"`         // Omit password from JSON requests/responses
	Role             string         `gorm:"type:varchar(20);not null;index" json:"role"` // client, professional, admin
	ProfessionalType string         `gorm:"type:varchar(50)" json:"professional_type,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// ensureID assigns a fresh UUID when the caller did not provide one
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
