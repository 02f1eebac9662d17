package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is an in-app message for one user about one donation.
type Notification struct {
	NotificationID uuid.UUID  `gorm:"column:notification_id;type:uuid;primaryKey" json:"notification_id"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	DonationID     *uuid.UUID `gorm:"column:donation_id;type:uuid" json:"donation_id"`
	Type           string     `gorm:"column:type;type:varchar(30);not null" json:"type"`
	Message        string     `gorm:"column:message;not null" json:"message"`
	Read           bool       `gorm:"column:read;default:false" json:"read"`
	CreatedAt      time.Time  `gorm:"column:createdAt" json:"createdAt"`
}

func (Notification) TableName() string {
	return "Notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.NotificationID == uuid.Nil {
		n.NotificationID = uuid.New()
	}
	return nil
}
