package models

import "time"

// BaseModel replaces gorm.Model for entities that are hard-deleted: cascades
// are enforced by the engine and soft-deleted rows would keep slugs and
// quotas occupied.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}
