package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification type tags.
const (
	NotificationSubmitted = "APPLICATION_SUBMITTED"
	NotificationVerified  = "APPLICATION_VERIFIED"
	NotificationRejected  = "APPLICATION_REJECTED"
	NotificationGeneral   = "GENERAL"
)

// Notification rows are append-only and created as a side effect of status
// transitions and successful payments.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Type      string    `gorm:"size:50;default:'GENERAL'" json:"type"`
	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
