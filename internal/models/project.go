package models

type Project struct {
	BaseModel

	Name string `gorm:"not null"`

	// APIKeyPrefix narrows the bcrypt comparison to a handful of rows.
	APIKeyPrefix string `gorm:"not null;index"`
	APIKeyHash   string `gorm:"not null"`

	// Relationships
	Checks      []Check      `gorm:"foreignKey:ProjectID"`
	StatusPages []StatusPage `gorm:"foreignKey:ProjectID"`
}
