package models

import (
	"gorm.io/gorm"
)

// User represents an inbox owner.
type User struct {
	gorm.Model

	Email string `gorm:"uniqueIndex;not null" json:"email"`
	Name  string `gorm:"not null" json:"name"`

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relations
	Messages []Message `gorm:"foreignKey:UserID" json:"-"`
}
