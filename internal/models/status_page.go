package models

import "github.com/google/uuid"

type StatusPage struct {
	BaseModel

	Code        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ProjectID   uint      `gorm:"not null;index"`
	Name        string    `gorm:"not null;size:100"`
	Slug        string    `gorm:"not null;size:100;uniqueIndex"`
	Description string    `gorm:"not null;default:''"`
	IsPublic    bool      `gorm:"not null;default:false"`

	// Relationships
	Project Project `gorm:"foreignKey:ProjectID" json:"-"`
}

// StatusPageCheck is the explicit (page, check) membership set.
type StatusPageCheck struct {
	StatusPageID uint `gorm:"primaryKey"`
	CheckID      uint `gorm:"primaryKey;index"`

	StatusPage StatusPage `gorm:"foreignKey:StatusPageID" json:"-"`
	Check      Check      `gorm:"foreignKey:CheckID" json:"-"`
}
