package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Donation event types recorded in the timeline.
const (
	EventCreated         = "CREATED"
	EventUpdated         = "UPDATED"
	EventAccepted        = "ACCEPTED"
	EventRejected        = "REJECTED"
	EventCollected       = "COLLECTED"
	EventCompleted       = "COMPLETED"
	EventCancelled       = "CANCELLED"
	EventPaymentReceived = "PAYMENT_RECEIVED"
)

// DonationEvent is one entry of a donation's timeline.
type DonationEvent struct {
	EventID     uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	DonationID  uuid.UUID      `gorm:"column:donation_id;type:uuid;not null;index" json:"donation_id"`
	EventType   string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	ActorID     *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	ActorRole   *string        `gorm:"column:actor_role;type:varchar(10)" json:"actor_role"`
	Description string         `gorm:"column:description" json:"description"`
	EventData   datatypes.JSON `gorm:"column:event_data;type:json" json:"event_data"`
	CreatedAt   time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (DonationEvent) TableName() string {
	return "DonationEvents"
}

func (e *DonationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
