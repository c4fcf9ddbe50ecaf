package models

// Flip is an append-only audit record of a status transition.
type Flip struct {
	BaseModel

	OwnerID   uint   `gorm:"not null;index"`
	OldStatus string `gorm:"not null"`
	NewStatus string `gorm:"not null"`

	// Relationships
	Owner Check `gorm:"foreignKey:OwnerID" json:"-"`
}
