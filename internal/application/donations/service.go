package donations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ngoconnect-backend/internal/application/notifications"
	"ngoconnect-backend/internal/application/uploads"
	"ngoconnect-backend/internal/constants"
	"ngoconnect-backend/internal/domain"
	"ngoconnect-backend/internal/pkg/apperr"
	"ngoconnect-backend/internal/pkg/geo"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	maxTitleLen   = 200
	maxAddressLen = 300
	// Food donations must outlive handover logistics by at least this much.
	minFoodExpiryLead = 3 * time.Hour
)

// Service orchestrates the donation lifecycle: record validation, status
// transitions, search, and calls to the image store and notification
// dispatcher.
type Service struct {
	DB       *gorm.DB
	Blobs    uploads.BlobStore      // nil disables image storage
	Notifier notifications.Notifier // nil disables dispatch
}

// CreateDonationInput carries the normalized create payload. Location always
// arrives here as typed fields; transport-shape quirks are resolved by the
// handler before the service sees them.
type CreateDonationInput struct {
	Title        string
	Description  string
	Quantity     string
	Category     string
	Address      string
	Latitude     *float64
	Longitude    *float64
	PickupOption string
	Urgency      string
	FoodExpiry   string // RFC 3339; required when category is food
	Amount       *float64
	Images       []uploads.File
}

// CreateDonation validates the payload, stores images, and persists the new
// donation as available. If the record save fails after images were uploaded,
// the orphaned blobs are deleted best-effort.
func (s *Service) CreateDonation(ctx context.Context, donorID uuid.UUID, in CreateDonationInput) (*domain.Donation, error) {
	fields := map[string]string{}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		fields["title"] = "Title is required"
	} else if len(title) > maxTitleLen {
		fields["title"] = fmt.Sprintf("Title must be at most %d characters", maxTitleLen)
	}

	if in.Category == "" {
		fields["category"] = "Category is required"
	} else if !domain.IsValidCategory(in.Category) {
		fields["category"] = fmt.Sprintf("Category must be one of: %s", strings.Join(domain.Categories, ", "))
	}

	address := strings.TrimSpace(in.Address)
	if address == "" {
		fields["address"] = "Address is required"
	} else if len(address) > maxAddressLen {
		fields["address"] = fmt.Sprintf("Address must be at most %d characters", maxAddressLen)
	}

	if in.Latitude == nil || in.Longitude == nil {
		fields["coordinates"] = "Location coordinates are required"
	} else {
		if !geo.ValidLatitude(*in.Latitude) {
			fields["latitude"] = "Latitude must be between -90 and 90"
		}
		if !geo.ValidLongitude(*in.Longitude) {
			fields["longitude"] = "Longitude must be between -180 and 180"
		}
	}

	if in.PickupOption == "" {
		fields["pickup_option"] = "Pickup option is required"
	} else if !domain.IsValidPickupOption(in.PickupOption) {
		fields["pickup_option"] = "Pickup option must be pickup, dropoff or both"
	}

	urgency := in.Urgency
	if urgency == "" {
		urgency = domain.UrgencyMedium
	} else if !domain.IsValidUrgency(urgency) {
		fields["urgency"] = "Urgency must be low, medium or high"
	}

	var foodExpiry *time.Time
	var amount *float64
	switch in.Category {
	case domain.CategoryFood:
		if in.FoodExpiry == "" {
			fields["food_expiry"] = "Food donations require an expiry time"
		} else if t, err := time.Parse(time.RFC3339, in.FoodExpiry); err != nil {
			fields["food_expiry"] = "Food expiry must be a valid RFC 3339 timestamp"
		} else if !t.After(time.Now().Add(minFoodExpiryLead)) {
			fields["food_expiry"] = "Food expiry must be more than 3 hours in the future"
		} else {
			foodExpiry = &t
		}
	case domain.CategoryFinancial:
		if in.Amount == nil {
			fields["amount"] = "Financial donations require an amount"
		} else if *in.Amount <= 0 {
			fields["amount"] = "Amount must be a positive number"
		} else {
			amount = in.Amount
		}
	}

	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	var imageRefs []string
	if len(in.Images) > 0 && s.Blobs != nil {
		refs, err := s.Blobs.UploadFiles(ctx, in.Images)
		if err != nil {
			return nil, fmt.Errorf("Failed to upload donation images: %w", err)
		}
		imageRefs = refs
	}

	donation := &domain.Donation{
		DonorID:      donorID,
		Title:        title,
		Description:  in.Description,
		Quantity:     in.Quantity,
		Category:     in.Category,
		Address:      address,
		Latitude:     *in.Latitude,
		Longitude:    *in.Longitude,
		PickupOption: in.PickupOption,
		Urgency:      urgency,
		FoodExpiry:   foodExpiry,
		Amount:       amount,
		Images:       domain.ImageRefs(imageRefs),
		Status:       domain.StatusAvailable,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(donation).Error; err != nil {
			return err
		}
		actor := Actor{ID: donorID, Role: constants.Donor}
		return createEvent(tx, donation.DonationID, domain.EventCreated, &actor, "Donation posted", map[string]interface{}{
			"category": donation.Category,
			"urgency":  donation.Urgency,
		})
	})
	if err != nil {
		s.cleanupBlobs(ctx, imageRefs)
		return nil, fmt.Errorf("Failed to create donation: %w", err)
	}
	return donation, nil
}

// UpdateDonationInput carries donor-editable fields. Nil means "unchanged".
// Category is present only to reject attempts to change it.
type UpdateDonationInput struct {
	Title        *string
	Description  *string
	Quantity     *string
	PickupOption *string
	Urgency      *string
	Address      *string
	Latitude     *float64
	Longitude    *float64
	FoodExpiry   *string
	Category     *string
}

// UpdateDonation applies a donor edit. Allowed only for the owning donor and
// only while the donation is still available; anything later is a state
// conflict, not a validation error.
func (s *Service) UpdateDonation(ctx context.Context, donorID, donationID uuid.UUID, in UpdateDonationInput) (*domain.Donation, error) {
	var d domain.Donation
	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).First(&d).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Donation not found")
		}
		return nil, err
	}
	if d.DonorID != donorID {
		return nil, apperr.Forbidden("Only the owning donor can edit the donation")
	}
	if d.Status != domain.StatusAvailable {
		return nil, apperr.StateConflict(fmt.Sprintf("Donation is not editable (status: %q). Only available donations can be edited", d.Status))
	}

	fields := map[string]string{}
	updates := map[string]interface{}{}
	changed := []string{}

	if in.Category != nil && *in.Category != d.Category {
		fields["category"] = "Category cannot be changed after creation"
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			fields["title"] = "Title is required"
		} else if len(t) > maxTitleLen {
			fields["title"] = fmt.Sprintf("Title must be at most %d characters", maxTitleLen)
		} else {
			updates["title"] = t
			changed = append(changed, "title")
		}
	}
	if in.Description != nil {
		updates["description"] = *in.Description
		changed = append(changed, "description")
	}
	if in.Quantity != nil {
		updates["quantity"] = *in.Quantity
		changed = append(changed, "quantity")
	}
	if in.PickupOption != nil {
		if !domain.IsValidPickupOption(*in.PickupOption) {
			fields["pickup_option"] = "Pickup option must be pickup, dropoff or both"
		} else {
			updates["pickup_option"] = *in.PickupOption
			changed = append(changed, "pickup_option")
		}
	}
	if in.Urgency != nil {
		if !domain.IsValidUrgency(*in.Urgency) {
			fields["urgency"] = "Urgency must be low, medium or high"
		} else {
			updates["urgency"] = *in.Urgency
			changed = append(changed, "urgency")
		}
	}
	if in.Address != nil {
		a := strings.TrimSpace(*in.Address)
		if a == "" {
			fields["address"] = "Address is required"
		} else if len(a) > maxAddressLen {
			fields["address"] = fmt.Sprintf("Address must be at most %d characters", maxAddressLen)
		} else {
			updates["address"] = a
			changed = append(changed, "address")
		}
	}
	if in.Latitude != nil {
		if !geo.ValidLatitude(*in.Latitude) {
			fields["latitude"] = "Latitude must be between -90 and 90"
		} else {
			updates["latitude"] = *in.Latitude
			changed = append(changed, "latitude")
		}
	}
	if in.Longitude != nil {
		if !geo.ValidLongitude(*in.Longitude) {
			fields["longitude"] = "Longitude must be between -180 and 180"
		} else {
			updates["longitude"] = *in.Longitude
			changed = append(changed, "longitude")
		}
	}
	if in.FoodExpiry != nil {
		if d.Category != domain.CategoryFood {
			fields["food_expiry"] = "Only food donations have an expiry"
		} else if t, err := time.Parse(time.RFC3339, *in.FoodExpiry); err != nil {
			fields["food_expiry"] = "Food expiry must be a valid RFC 3339 timestamp"
		} else if !t.After(time.Now().Add(minFoodExpiryLead)) {
			fields["food_expiry"] = "Food expiry must be more than 3 hours in the future"
		} else {
			updates["food_expiry"] = t
			changed = append(changed, "food_expiry")
		}
	}

	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}
	if len(updates) == 0 {
		return nil, apperr.ValidationField("body", "No valid changes provided")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Donation{}).
			Where("donation_id = ? AND status = ?", donationID, domain.StatusAvailable).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.StateConflict("Donation is no longer available")
		}
		actor := Actor{ID: donorID, Role: constants.Donor}
		return createEvent(tx, donationID, domain.EventUpdated, &actor, "Donation details updated", map[string]interface{}{
			"changed": changed,
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDonation removes an available donation and its images. Image blob
// deletion is best-effort: failures are logged and the record is removed
// regardless.
func (s *Service) DeleteDonation(ctx context.Context, donorID, donationID uuid.UUID) (uuid.UUID, error) {
	var d domain.Donation
	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).First(&d).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return uuid.Nil, apperr.NotFound("Donation not found")
		}
		return uuid.Nil, err
	}
	if d.DonorID != donorID {
		return uuid.Nil, apperr.Forbidden("Only the owning donor can delete the donation")
	}
	if d.Status != domain.StatusAvailable {
		return uuid.Nil, apperr.StateConflict(fmt.Sprintf("Donation cannot be deleted (status: %q). Only available donations can be deleted", d.Status))
	}

	s.cleanupBlobs(ctx, d.Images)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("donation_id = ?", donationID).Delete(&domain.DonationEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("donation_id = ?", donationID).Delete(&domain.Notification{}).Error; err != nil {
			return err
		}
		return tx.Where("donation_id = ?", donationID).Delete(&domain.Donation{}).Error
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("Failed to delete donation: %w", err)
	}
	return donationID, nil
}

// GetDonation returns one donation by id.
func (s *Service) GetDonation(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	var d domain.Donation
	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).First(&d).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Donation not found")
		}
		return nil, err
	}
	return &d, nil
}

// GetDonorDonations returns all donations posted by a donor, newest first.
func (s *Service) GetDonorDonations(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	var out []domain.Donation
	if err := s.DB.WithContext(ctx).Where("donor_id = ?", donorID).Order(`"createdAt" DESC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetAcceptedDonations returns the donations an NGO has accepted and not yet
// closed out, newest acceptance first.
func (s *Service) GetAcceptedDonations(ctx context.Context, ngoID uuid.UUID) ([]domain.Donation, error) {
	var out []domain.Donation
	err := s.DB.WithContext(ctx).
		Where("accepted_by = ? AND status IN ?", ngoID, []string{domain.StatusAccepted, domain.StatusCollected}).
		Order("accepted_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TimelineEntry is one step of a donation's history.
type TimelineEntry struct {
	Status      string     `json:"status"`
	Timestamp   time.Time  `json:"timestamp"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"`
	ActorRole   *string    `json:"actor_role,omitempty"`
	Description string     `json:"description"`
}

// GetTimeline returns the ordered lifecycle history of a donation.
func (s *Service) GetTimeline(ctx context.Context, donationID uuid.UUID) ([]TimelineEntry, error) {
	var d domain.Donation
	if err := s.DB.WithContext(ctx).Select("donation_id").Where("donation_id = ?", donationID).First(&d).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Donation not found")
		}
		return nil, err
	}
	var events []domain.DonationEvent
	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).Order(`"createdAt" ASC`).Find(&events).Error; err != nil {
		return nil, err
	}
	out := make([]TimelineEntry, 0, len(events))
	for _, ev := range events {
		out = append(out, TimelineEntry{
			Status:      timelineStatus(ev.EventType),
			Timestamp:   ev.CreatedAt,
			ActorID:     ev.ActorID,
			ActorRole:   ev.ActorRole,
			Description: ev.Description,
		})
	}
	return out, nil
}

// timelineStatus maps an event type to the lifecycle status it represents.
// The creation event reads as "available" since that is the initial status.
func timelineStatus(eventType string) string {
	if eventType == domain.EventCreated {
		return domain.StatusAvailable
	}
	return strings.ToLower(eventType)
}

func (s *Service) cleanupBlobs(ctx context.Context, refs []string) {
	if s.Blobs == nil {
		return
	}
	for _, ref := range refs {
		if err := s.Blobs.DeleteFile(ctx, ref); err != nil {
			log.Warn().Err(err).Str("path", ref).Msg("Failed to delete donation image blob")
		}
	}
}
