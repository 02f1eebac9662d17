package donations

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ngoconnect-backend/internal/application/notifications"
	"ngoconnect-backend/internal/constants"
	"ngoconnect-backend/internal/domain"
	"ngoconnect-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actor is the authenticated requester of a donation operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// TransitionStatus applies one lifecycle transition:
// available -> accepted -> collected -> completed, with cancelled reachable
// from available or accepted. reason is required for cancellation.
//
// Error kinds distinguish why a transition was refused: Forbidden for the
// wrong actor, StateConflict for the wrong current status (including
// re-requesting the current status), ValidationError for bad input.
//
// The status write is a single conditional update keyed on the expected
// current status; zero rows affected means another request won the race and
// is reported as StateConflict. Timestamp columns are stamped via COALESCE so
// they are set exactly once and never overwritten.
func (s *Service) TransitionStatus(ctx context.Context, actor Actor, donationID uuid.UUID, target, reason string) (*domain.Donation, error) {
	var d domain.Donation
	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).First(&d).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Donation not found")
		}
		return nil, err
	}

	now := time.Now().UTC()
	var (
		guardStatuses []string
		updates       map[string]interface{}
		eventType     string
		eventData     map[string]interface{}
	)

	switch target {
	case domain.StatusAccepted:
		if actor.Role != constants.NGO {
			return nil, apperr.Forbidden("Only NGOs can accept donations")
		}
		guardStatuses = []string{domain.StatusAvailable}
		updates = map[string]interface{}{
			"status":      domain.StatusAccepted,
			"accepted_by": actor.ID,
			"accepted_at": gorm.Expr("COALESCE(accepted_at, ?)", now),
		}
		eventType = domain.EventAccepted
		eventData = map[string]interface{}{"accepted_by": actor.ID.String()}

	case domain.StatusCollected:
		if d.Status != domain.StatusAccepted {
			return nil, apperr.StateConflict(fmt.Sprintf("Donation cannot be collected (status: %q)", d.Status))
		}
		if actor.Role != constants.NGO || d.AcceptedBy == nil || *d.AcceptedBy != actor.ID {
			return nil, apperr.Forbidden("Only the accepting NGO can mark the donation collected")
		}
		guardStatuses = []string{domain.StatusAccepted}
		updates = map[string]interface{}{
			"status":       domain.StatusCollected,
			"collected_at": gorm.Expr("COALESCE(collected_at, ?)", now),
		}
		eventType = domain.EventCollected

	case domain.StatusCompleted:
		if d.Status != domain.StatusCollected {
			return nil, apperr.StateConflict(fmt.Sprintf("Donation cannot be completed (status: %q)", d.Status))
		}
		isDonor := actor.ID == d.DonorID
		isAcceptor := d.AcceptedBy != nil && *d.AcceptedBy == actor.ID
		if !isDonor && !isAcceptor {
			return nil, apperr.Forbidden("Only the donor or the accepting NGO can complete the donation")
		}
		guardStatuses = []string{domain.StatusCollected}
		updates = map[string]interface{}{
			"status":       domain.StatusCompleted,
			"completed_at": gorm.Expr("COALESCE(completed_at, ?)", now),
		}
		eventType = domain.EventCompleted

	case domain.StatusCancelled:
		if actor.ID != d.DonorID {
			return nil, apperr.Forbidden("Only the donor can cancel the donation")
		}
		if strings.TrimSpace(reason) == "" {
			return nil, apperr.ValidationField("cancellation_reason", "A cancellation reason is required")
		}
		if d.Status != domain.StatusAvailable && d.Status != domain.StatusAccepted {
			return nil, apperr.StateConflict(fmt.Sprintf("Donation cannot be cancelled (status: %q)", d.Status))
		}
		guardStatuses = []string{domain.StatusAvailable, domain.StatusAccepted}
		updates = map[string]interface{}{
			"status":              domain.StatusCancelled,
			"cancelled_at":        gorm.Expr("COALESCE(cancelled_at, ?)", now),
			"cancellation_reason": reason,
		}
		eventType = domain.EventCancelled
		eventData = map[string]interface{}{"reason": reason}

	case domain.StatusAvailable:
		return nil, apperr.StateConflict("Donations cannot move back to available")

	default:
		return nil, apperr.ValidationField("status", fmt.Sprintf("Invalid target status %q", target))
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Donation{}).
			Where("donation_id = ? AND status IN ?", donationID, guardStatuses).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.StateConflict(fmt.Sprintf("Donation is no longer %s", strings.Join(guardStatuses, " or ")))
		}
		return createEvent(tx, donationID, eventType, &actor, transitionDescription(eventType), eventData)
	})
	if err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).First(&d).Error; err != nil {
		return nil, err
	}

	// Dispatch after commit: the state change is authoritative regardless of
	// notification delivery.
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, notifications.Event{
			Type:      eventType,
			Donation:  &d,
			ActorID:   actor.ID,
			ActorName: s.actorName(ctx, actor.ID),
			Reason:    reason,
		})
	}
	return &d, nil
}

// RejectDonation records that an NGO passed on an available donation.
// Deliberately changes no state: the donation stays visible to everyone,
// including the rejecting NGO.
func (s *Service) RejectDonation(ctx context.Context, actor Actor, donationID uuid.UUID) (*domain.Donation, error) {
	if actor.Role != constants.NGO {
		return nil, apperr.Forbidden("Only NGOs can reject donations")
	}
	var d domain.Donation
	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).First(&d).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Donation not found")
		}
		return nil, err
	}
	if d.Status != domain.StatusAvailable {
		return nil, apperr.StateConflict(fmt.Sprintf("Donation is not available (status: %q)", d.Status))
	}
	if err := createEvent(s.DB.WithContext(ctx), d.DonationID, domain.EventRejected, &actor, "Donation passed on by an NGO", nil); err != nil {
		return nil, err
	}
	return &d, nil
}

func transitionDescription(eventType string) string {
	switch eventType {
	case domain.EventAccepted:
		return "Donation accepted by an NGO"
	case domain.EventCollected:
		return "Donation collected"
	case domain.EventCompleted:
		return "Donation completed"
	case domain.EventCancelled:
		return "Donation cancelled by the donor"
	default:
		return ""
	}
}

func createEvent(tx *gorm.DB, donationID uuid.UUID, eventType string, actor *Actor, description string, data map[string]interface{}) error {
	ev := &domain.DonationEvent{
		DonationID:  donationID,
		EventType:   eventType,
		Description: description,
	}
	if actor != nil {
		id := actor.ID
		role := actor.Role
		ev.ActorID = &id
		ev.ActorRole = &role
	}
	if data != nil {
		b, _ := json.Marshal(data)
		ev.EventData = datatypes.JSON(b)
	}
	return tx.Create(ev).Error
}

func (s *Service) actorName(ctx context.Context, actorID uuid.UUID) string {
	var u domain.User
	if err := s.DB.WithContext(ctx).Select("fullname").Where("user_id = ?", actorID).First(&u).Error; err != nil {
		return "an NGO-Connect user"
	}
	return u.Fullname
}
