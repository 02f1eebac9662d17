package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Donation statuses. Lifecycle moves forward only:
// available -> accepted -> collected -> completed, with cancelled reachable
// from available or accepted.
const (
	StatusAvailable = "available"
	StatusAccepted  = "accepted"
	StatusCollected = "collected"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Donation categories.
const (
	CategoryFood        = "food"
	CategoryClothing    = "clothing"
	CategoryBooks       = "books"
	CategoryElectronics = "electronics"
	CategoryFinancial   = "financial"
	CategoryOther       = "other"
)

// Urgency levels.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Pickup options.
const (
	PickupOptionPickup  = "pickup"
	PickupOptionDropoff = "dropoff"
	PickupOptionBoth    = "both"
)

var Categories = []string{CategoryFood, CategoryClothing, CategoryBooks, CategoryElectronics, CategoryFinancial, CategoryOther}
var Urgencies = []string{UrgencyLow, UrgencyMedium, UrgencyHigh}
var PickupOptions = []string{PickupOptionPickup, PickupOptionDropoff, PickupOptionBoth}
var Statuses = []string{StatusAvailable, StatusAccepted, StatusCollected, StatusCompleted, StatusCancelled}

func IsValidCategory(c string) bool     { return contains(Categories, c) }
func IsValidUrgency(u string) bool      { return contains(Urgencies, u) }
func IsValidPickupOption(p string) bool { return contains(PickupOptions, p) }
func IsValidStatus(s string) bool       { return contains(Statuses, s) }

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ImageRefs stores the ordered image file references as a json column and
// marshals to the API as a plain string array.
type ImageRefs []string

// Scan implements sql.Scanner for reading from DB (json column).
func (r *ImageRefs) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return errors.New("unsupported type for ImageRefs")
	}
}

// Value implements driver.Valuer for writing to DB.
func (r ImageRefs) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Donation is the aggregate root of the donation lifecycle.
type Donation struct {
	DonationID  uuid.UUID `gorm:"column:donation_id;type:uuid;primaryKey" json:"donation_id"`
	DonorID     uuid.UUID `gorm:"column:donor_id;type:uuid;not null;index" json:"donor_id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	Quantity    string    `gorm:"column:quantity" json:"quantity"`
	Category    string    `gorm:"column:category;type:varchar(20);not null" json:"category"`

	Address   string  `gorm:"column:address;not null" json:"address"`
	Latitude  float64 `gorm:"column:latitude;not null;index" json:"latitude"`
	Longitude float64 `gorm:"column:longitude;not null;index" json:"longitude"`

	PickupOption string     `gorm:"column:pickup_option;type:varchar(10);not null" json:"pickup_option"`
	Urgency      string     `gorm:"column:urgency;type:varchar(10);default:'medium'" json:"urgency"`
	FoodExpiry   *time.Time `gorm:"column:food_expiry" json:"food_expiry,omitempty"`
	Amount       *float64   `gorm:"column:amount;type:decimal(18,2)" json:"amount,omitempty"`
	Images       ImageRefs  `gorm:"column:images;type:json" json:"images"`

	Status             string     `gorm:"column:status;type:varchar(20);default:'available';index" json:"status"`
	AcceptedBy         *uuid.UUID `gorm:"column:accepted_by;type:uuid" json:"accepted_by"`
	AcceptedAt         *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	CollectedAt        *time.Time `gorm:"column:collected_at" json:"collected_at,omitempty"`
	CompletedAt        *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason *string    `gorm:"column:cancellation_reason" json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`

	// DistanceKm is computed for proximity search results, not persisted.
	DistanceKm *float64 `gorm:"-" json:"distance_km,omitempty"`
}

func (Donation) TableName() string {
	return "Donations"
}

// BeforeCreate sets donation_id if not already set (DBs without default uuid).
func (d *Donation) BeforeCreate(tx *gorm.DB) error {
	if d.DonationID == uuid.Nil {
		d.DonationID = uuid.New()
	}
	return nil
}

// Terminal reports whether the donation has reached a terminal status.
func (d *Donation) Terminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusCancelled
}
