package models

import (
	"time"

	"github.com/google/uuid"
)

type MaintenanceWindow struct {
	BaseModel

	Code      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	OwnerID   uint      `gorm:"not null;index"`
	Title     string    `gorm:"not null;size:100"`
	StartTime time.Time `gorm:"not null"`
	EndTime   time.Time `gorm:"not null"`

	// Relationships
	Owner Check `gorm:"foreignKey:OwnerID" json:"-"`
}

// Active reports whether now falls inside the half-open [StartTime, EndTime).
func (w MaintenanceWindow) Active(now time.Time) bool {
	return !now.Before(w.StartTime) && now.Before(w.EndTime)
}
