package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment records a confirmed Stripe payment for a financial donation.
// One row per PaymentIntent (webhook idempotency key).
type Payment struct {
	PaymentID             uuid.UUID      `gorm:"column:payment_id;type:uuid;primaryKey" json:"payment_id"`
	StripePaymentIntentID string         `gorm:"column:stripe_payment_intent_id;uniqueIndex;not null" json:"stripe_payment_intent_id"`
	StripeEventID         string         `gorm:"column:stripe_event_id" json:"stripe_event_id"`
	DonationID            uuid.UUID      `gorm:"column:donation_id;type:uuid;not null;index" json:"donation_id"`
	DonorID               uuid.UUID      `gorm:"column:donor_id;type:uuid;not null" json:"donor_id"`
	AmountPaidCents       int            `gorm:"column:amount_paid_cents;not null" json:"amount_paid_cents"`
	Currency              string         `gorm:"column:currency;type:varchar(10)" json:"currency"`
	Status                string         `gorm:"column:status;type:varchar(30)" json:"status"`
	RawPaymentIntent      datatypes.JSON `gorm:"column:raw_payment_intent;type:json" json:"-"`
	CreatedAt             time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (Payment) TableName() string {
	return "Payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.PaymentID == uuid.Nil {
		p.PaymentID = uuid.New()
	}
	return nil
}
