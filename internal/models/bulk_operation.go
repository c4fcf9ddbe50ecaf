package models

import "gorm.io/datatypes"

// BulkOperation records one applied batch request.
type BulkOperation struct {
	BaseModel

	ProjectID  uint           `gorm:"not null;index"`
	Action     string         `gorm:"not null"`
	CheckCodes datatypes.JSON `gorm:"not null"`
	Count      int            `gorm:"not null"`

	// Relationships
	Project Project `gorm:"foreignKey:ProjectID" json:"-"`
}
