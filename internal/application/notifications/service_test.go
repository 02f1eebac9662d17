package notifications

import (
	"context"
	"fmt"
	"testing"

	"ngoconnect-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeSender records outgoing emails per method.
type fakeSender struct {
	accepted  []string
	completed []string
	cancelled []string
	failAll   bool
}

func (f *fakeSender) SendWelcome(ctx context.Context, toEmail, firstName string) error {
	return nil
}

func (f *fakeSender) SendDonationAccepted(ctx context.Context, toEmail, donorName, donationTitle, ngoName string) error {
	if f.failAll {
		return fmt.Errorf("brevo unavailable")
	}
	f.accepted = append(f.accepted, toEmail)
	return nil
}

func (f *fakeSender) SendDonationCompleted(ctx context.Context, toEmail, recipientName, donationTitle string) error {
	if f.failAll {
		return fmt.Errorf("brevo unavailable")
	}
	f.completed = append(f.completed, toEmail)
	return nil
}

func (f *fakeSender) SendDonationCancelled(ctx context.Context, toEmail, recipientName, donationTitle, reason string) error {
	if f.failAll {
		return fmt.Errorf("brevo unavailable")
	}
	f.cancelled = append(f.cancelled, toEmail)
	return nil
}

func setupNotifications(t *testing.T) (*Service, *gorm.DB, *fakeSender) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Donation{}, &domain.Notification{}))
	fs := &fakeSender{}
	return &Service{DB: db, Emails: fs}, db, fs
}

func seedUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	u := &domain.User{Fullname: "Test User", Email: email, PasswordHash: "x", Role: "donor"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedNotifDonation(t *testing.T, db *gorm.DB, donorID uuid.UUID, acceptedBy *uuid.UUID) *domain.Donation {
	d := &domain.Donation{
		DonorID:      donorID,
		Title:        "Winter jackets",
		Category:     domain.CategoryClothing,
		Address:      "12 MG Road, Bengaluru",
		Latitude:     12.9716,
		Longitude:    77.5946,
		PickupOption: domain.PickupOptionPickup,
		Urgency:      domain.UrgencyMedium,
		Status:       domain.StatusAccepted,
		AcceptedBy:   acceptedBy,
	}
	require.NoError(t, db.Create(d).Error)
	return d
}

func TestNotify_AcceptedGoesToDonor(t *testing.T) {
	svc, db, fs := setupNotifications(t)
	donor := seedUser(t, db, "donor@example.com")
	ngoID := uuid.New()
	d := seedNotifDonation(t, db, donor.UserID, &ngoID)

	svc.Notify(context.Background(), Event{
		Type:      domain.EventAccepted,
		Donation:  d,
		ActorID:   ngoID,
		ActorName: "Hope Foundation",
	})

	var rows []domain.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, donor.UserID, rows[0].UserID)
	assert.Equal(t, domain.EventAccepted, rows[0].Type)
	assert.Contains(t, rows[0].Message, "Hope Foundation")
	assert.False(t, rows[0].Read)
	assert.Equal(t, []string{"donor@example.com"}, fs.accepted)
}

func TestNotify_CancelledByDonorGoesToNGOOnly(t *testing.T) {
	svc, db, fs := setupNotifications(t)
	donor := seedUser(t, db, "donor@example.com")
	ngo := seedUser(t, db, "ngo@example.com")
	d := seedNotifDonation(t, db, donor.UserID, &ngo.UserID)

	svc.Notify(context.Background(), Event{
		Type:     domain.EventCancelled,
		Donation: d,
		ActorID:  donor.UserID,
		Reason:   "No longer available",
	})

	var rows []domain.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, ngo.UserID, rows[0].UserID)
	assert.Contains(t, rows[0].Message, "No longer available")
	assert.Equal(t, []string{"ngo@example.com"}, fs.cancelled)
	assert.Empty(t, fs.accepted)
}

func TestNotify_CompletedByNGOGoesToDonorOnly(t *testing.T) {
	svc, db, fs := setupNotifications(t)
	donor := seedUser(t, db, "donor@example.com")
	ngo := seedUser(t, db, "ngo@example.com")
	d := seedNotifDonation(t, db, donor.UserID, &ngo.UserID)

	svc.Notify(context.Background(), Event{
		Type:     domain.EventCompleted,
		Donation: d,
		ActorID:  ngo.UserID,
	})

	var rows []domain.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, donor.UserID, rows[0].UserID)
	assert.Equal(t, []string{"donor@example.com"}, fs.completed)
}

func TestNotify_UnknownEventTypeIsIgnored(t *testing.T) {
	svc, db, _ := setupNotifications(t)
	donor := seedUser(t, db, "donor@example.com")
	d := seedNotifDonation(t, db, donor.UserID, nil)

	svc.Notify(context.Background(), Event{Type: domain.EventCreated, Donation: d, ActorID: donor.UserID})

	var count int64
	require.NoError(t, db.Model(&domain.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNotify_EmailFailureStillStoresNotification(t *testing.T) {
	svc, db, fs := setupNotifications(t)
	fs.failAll = true
	donor := seedUser(t, db, "donor@example.com")
	ngoID := uuid.New()
	d := seedNotifDonation(t, db, donor.UserID, &ngoID)

	svc.Notify(context.Background(), Event{Type: domain.EventAccepted, Donation: d, ActorID: ngoID, ActorName: "Hope"})

	var count int64
	require.NoError(t, db.Model(&domain.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestListUserNotifications_NewestFirstAndScoped(t *testing.T) {
	svc, db, _ := setupNotifications(t)
	donor := seedUser(t, db, "donor@example.com")
	other := seedUser(t, db, "other@example.com")

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&domain.Notification{
			UserID:  donor.UserID,
			Type:    domain.EventAccepted,
			Message: fmt.Sprintf("msg %d", i),
		}).Error)
	}
	require.NoError(t, db.Create(&domain.Notification{
		UserID:  other.UserID,
		Type:    domain.EventAccepted,
		Message: "not yours",
	}).Error)

	list, err := svc.ListUserNotifications(context.Background(), donor.UserID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, n := range list {
		assert.Equal(t, donor.UserID, n.UserID)
	}
}

func TestMarkRead_OwnerScoped(t *testing.T) {
	svc, db, _ := setupNotifications(t)
	donor := seedUser(t, db, "donor@example.com")
	n := &domain.Notification{UserID: donor.UserID, Type: domain.EventAccepted, Message: "hi"}
	require.NoError(t, db.Create(n).Error)

	// Someone else cannot mark it
	err := svc.MarkRead(context.Background(), uuid.New(), n.NotificationID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Owner can
	require.NoError(t, svc.MarkRead(context.Background(), donor.UserID, n.NotificationID))
	var got domain.Notification
	require.NoError(t, db.First(&got, "notification_id = ?", n.NotificationID).Error)
	assert.True(t, got.Read)

	// Unknown id
	err = svc.MarkRead(context.Background(), donor.UserID, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
