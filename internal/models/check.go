package models

import (
	"time"

	"github.com/google/uuid"
)

// Check is the monitored unit. Tags holds the canonical sorted, space-joined
// token string. Status is the raw status written by ping ingestion or by the
// bulk pause and resume actions, never by the maintenance overlay.
type Check struct {
	BaseModel

	Code       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ProjectID  uint      `gorm:"not null;index"`
	Name       string    `gorm:"not null"`
	Tags       string    `gorm:"not null;default:''"`
	Status     string    `gorm:"not null;default:'new'"`
	LastPing   *time.Time
	LastStart  *time.Time
	AlertAfter *time.Time

	// Relationships
	MaintenanceWindows []MaintenanceWindow `gorm:"foreignKey:OwnerID"`
	Flips              []Flip              `gorm:"foreignKey:OwnerID"`
}
