package models

import "time"

// Feedback is a user testimonial shown on the dashboard once approved.
type Feedback struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Approved  bool      `gorm:"default:false;index" json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}
