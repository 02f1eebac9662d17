package notifications

import (
	"context"
	"fmt"

	"ngoconnect-backend/internal/application/emails"
	"ngoconnect-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Event describes one committed donation lifecycle change to announce.
type Event struct {
	Type      string // domain.Event* constant
	Donation  *domain.Donation
	ActorID   uuid.UUID
	ActorName string
	Reason    string // cancellation reason, when Type is CANCELLED
}

// Notifier dispatches notifications for committed lifecycle changes.
// Dispatch is fire-and-forget: failures are logged, never returned, so a
// notification problem can never roll back an already-committed transition.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Service creates in-app notification rows and sends counterpart emails.
type Service struct {
	DB     *gorm.DB
	Emails emails.Sender
}

// Notify announces ev to every affected counterpart: the donor on
// acceptance/cancellation/completion, the accepting NGO on
// cancellation/completion when it is not the acting party.
func (s *Service) Notify(ctx context.Context, ev Event) {
	d := ev.Donation
	if d == nil {
		return
	}

	recipients := make([]uuid.UUID, 0, 2)
	switch ev.Type {
	case domain.EventAccepted:
		recipients = append(recipients, d.DonorID)
	case domain.EventCompleted, domain.EventCancelled:
		if d.DonorID != ev.ActorID {
			recipients = append(recipients, d.DonorID)
		}
		if d.AcceptedBy != nil && *d.AcceptedBy != ev.ActorID {
			recipients = append(recipients, *d.AcceptedBy)
		}
	default:
		return
	}

	for _, userID := range recipients {
		s.dispatchOne(ctx, ev, userID)
	}
}

func (s *Service) dispatchOne(ctx context.Context, ev Event, userID uuid.UUID) {
	d := ev.Donation
	n := &domain.Notification{
		UserID:     userID,
		DonationID: &d.DonationID,
		Type:       ev.Type,
		Message:    messageFor(ev),
	}
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		log.Warn().Err(err).Str("donation_id", d.DonationID.String()).Str("user_id", userID.String()).Msg("Failed to store notification")
	}

	if s.Emails == nil {
		return
	}
	var user domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Notification recipient lookup failed")
		return
	}

	var err error
	switch ev.Type {
	case domain.EventAccepted:
		err = s.Emails.SendDonationAccepted(ctx, user.Email, user.Fullname, d.Title, ev.ActorName)
	case domain.EventCompleted:
		err = s.Emails.SendDonationCompleted(ctx, user.Email, user.Fullname, d.Title)
	case domain.EventCancelled:
		err = s.Emails.SendDonationCancelled(ctx, user.Email, user.Fullname, d.Title, ev.Reason)
	}
	if err != nil {
		log.Warn().Err(err).Str("type", ev.Type).Str("to", user.Email).Msg("Notification email send failed")
	}
}

func messageFor(ev Event) string {
	title := ev.Donation.Title
	switch ev.Type {
	case domain.EventAccepted:
		return fmt.Sprintf("Your donation %q was accepted by %s", title, ev.ActorName)
	case domain.EventCompleted:
		return fmt.Sprintf("Donation %q has been completed", title)
	case domain.EventCancelled:
		return fmt.Sprintf("Donation %q was cancelled: %s", title, ev.Reason)
	default:
		return fmt.Sprintf("Donation %q was updated", title)
	}
}

// ListUserNotifications returns a user's notifications, newest first.
func (s *Service) ListUserNotifications(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error) {
	var out []domain.Notification
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order(`"createdAt" DESC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead marks one notification as read, scoped to its owner.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&domain.Notification{}).
		Where("notification_id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
