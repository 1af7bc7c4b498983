package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is one email in a user's inbox.
type Message struct {
	gorm.Model

	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	MessageID string    `gorm:"index" json:"message_id"`
	Subject   string    `json:"subject"`
	Body      string    `gorm:"type:text" json:"body"`
	Sender    string    `gorm:"not null;index" json:"sender"`
	Recipient string    `gorm:"not null" json:"recipient"`
	Date      time.Time `json:"date"`
	Read      bool      `gorm:"default:false" json:"read"`
	IsStarred bool      `gorm:"default:false" json:"is_starred"`
	Labels    string    `json:"labels"` // comma-separated; prototype schema
}
