package donations

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ngoconnect-backend/internal/application/uploads"
	"ngoconnect-backend/internal/domain"
	"ngoconnect-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobs struct {
	uploaded   []string
	deleted    []string
	failUpload bool
}

func (f *fakeBlobs) UploadFiles(ctx context.Context, files []uploads.File) ([]string, error) {
	if f.failUpload {
		return nil, errors.New("storage unavailable")
	}
	refs := make([]string, 0, len(files))
	for i, file := range files {
		ref := fmt.Sprintf("donations/%d-%s", i, file.Name)
		f.uploaded = append(f.uploaded, ref)
		refs = append(refs, ref)
	}
	return refs, nil
}

func (f *fakeBlobs) DeleteFile(ctx context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

func validCreateInput() CreateDonationInput {
	lat, lng := 12.9716, 77.5946
	return CreateDonationInput{
		Title:        "Winter jackets",
		Description:  "Gently used, sizes M-XL",
		Quantity:     "3 boxes",
		Category:     domain.CategoryClothing,
		Address:      "12 MG Road, Bengaluru",
		Latitude:     &lat,
		Longitude:    &lng,
		PickupOption: domain.PickupOptionPickup,
		Urgency:      domain.UrgencyHigh,
	}
}

func TestCreateDonation_HappyPath(t *testing.T) {
	svc, db, _ := setupService(t)
	donorID := uuid.New()

	d, err := svc.CreateDonation(context.Background(), donorID, validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, d.Status)
	assert.Equal(t, donorID, d.DonorID)
	assert.NotEqual(t, uuid.Nil, d.DonationID)

	var events []domain.DonationEvent
	require.NoError(t, db.Where("donation_id = ?", d.DonationID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCreated, events[0].EventType)
}

func TestCreateDonation_CollectsAllFieldErrors(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.CreateDonation(context.Background(), uuid.New(), CreateDonationInput{})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
	e, _ := apperr.As(err)
	for _, f := range []string{"title", "category", "address", "coordinates", "pickup_option"} {
		assert.Contains(t, e.Fields, f)
	}
}

func TestCreateDonation_CoordinateRange(t *testing.T) {
	svc, _, _ := setupService(t)
	in := validCreateInput()
	lat, lng := 95.0, -200.0
	in.Latitude, in.Longitude = &lat, &lng

	_, err := svc.CreateDonation(context.Background(), uuid.New(), in)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
	e, _ := apperr.As(err)
	assert.Contains(t, e.Fields, "latitude")
	assert.Contains(t, e.Fields, "longitude")
}

func TestCreateDonation_FoodExpiryLead(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	in := validCreateInput()
	in.Category = domain.CategoryFood

	// Missing expiry.
	_, err := svc.CreateDonation(ctx, uuid.New(), in)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	// Too soon: under the three hour lead.
	in.FoodExpiry = time.Now().Add(2*time.Hour + 59*time.Minute).Format(time.RFC3339)
	_, err = svc.CreateDonation(ctx, uuid.New(), in)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
	e, _ := apperr.As(err)
	assert.Contains(t, e.Fields, "food_expiry")

	// Just over the lead.
	in.FoodExpiry = time.Now().Add(3*time.Hour + 5*time.Minute).Format(time.RFC3339)
	d, err := svc.CreateDonation(ctx, uuid.New(), in)
	require.NoError(t, err)
	require.NotNil(t, d.FoodExpiry)
}

func TestCreateDonation_FinancialAmount(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	in := validCreateInput()
	in.Category = domain.CategoryFinancial

	_, err := svc.CreateDonation(ctx, uuid.New(), in)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	bad := -50.0
	in.Amount = &bad
	_, err = svc.CreateDonation(ctx, uuid.New(), in)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
	e, _ := apperr.As(err)
	assert.Contains(t, e.Fields, "amount")

	ok := 500.0
	in.Amount = &ok
	d, err := svc.CreateDonation(ctx, uuid.New(), in)
	require.NoError(t, err)
	require.NotNil(t, d.Amount)
	assert.Equal(t, 500.0, *d.Amount)
}

func TestCreateDonation_UploadsImages(t *testing.T) {
	svc, _, _ := setupService(t)
	blobs := &fakeBlobs{}
	svc.Blobs = blobs

	in := validCreateInput()
	in.Images = []uploads.File{
		{Name: "front.jpg", ContentType: "image/jpeg", Content: []byte("jpegdata")},
		{Name: "back.jpg", ContentType: "image/jpeg", Content: []byte("jpegdata")},
	}

	d, err := svc.CreateDonation(context.Background(), uuid.New(), in)
	require.NoError(t, err)
	assert.Len(t, []string(d.Images), 2)
	assert.Len(t, blobs.uploaded, 2)
}

func TestUpdateDonation_OwnerAndStateChecks(t *testing.T) {
	svc, db, _ := setupService(t)
	donorID := uuid.New()
	d := seedDonation(t, db, donorID, domain.StatusAvailable, domain.CategoryClothing)
	ctx := context.Background()
	newTitle := "Warm winter jackets"

	// Non-owner.
	_, err := svc.UpdateDonation(ctx, uuid.New(), d.DonationID, UpdateDonationInput{Title: &newTitle})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// Owner succeeds.
	got, err := svc.UpdateDonation(ctx, donorID, d.DonationID, UpdateDonationInput{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, newTitle, got.Title)

	// Accepted donations are frozen.
	ngoID := uuid.New()
	_, err = svc.TransitionStatus(ctx, ngo(ngoID), d.DonationID, domain.StatusAccepted, "")
	require.NoError(t, err)
	_, err = svc.UpdateDonation(ctx, donorID, d.DonationID, UpdateDonationInput{Title: &newTitle})
	assert.True(t, apperr.IsKind(err, apperr.KindStateConflict))
}

func TestUpdateDonation_CategoryImmutable(t *testing.T) {
	svc, db, _ := setupService(t)
	donorID := uuid.New()
	d := seedDonation(t, db, donorID, domain.StatusAvailable, domain.CategoryClothing)

	food := domain.CategoryFood
	_, err := svc.UpdateDonation(context.Background(), donorID, d.DonationID, UpdateDonationInput{Category: &food})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
	e, _ := apperr.As(err)
	assert.Contains(t, e.Fields, "category")
}

func TestUpdateDonation_FoodExpiryOnlyForFood(t *testing.T) {
	svc, db, _ := setupService(t)
	donorID := uuid.New()
	d := seedDonation(t, db, donorID, domain.StatusAvailable, domain.CategoryClothing)

	exp := time.Now().Add(6 * time.Hour).Format(time.RFC3339)
	_, err := svc.UpdateDonation(context.Background(), donorID, d.DonationID, UpdateDonationInput{FoodExpiry: &exp})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
	e, _ := apperr.As(err)
	assert.Contains(t, e.Fields, "food_expiry")
}

func TestUpdateDonation_NoChanges(t *testing.T) {
	svc, db, _ := setupService(t)
	donorID := uuid.New()
	d := seedDonation(t, db, donorID, domain.StatusAvailable, domain.CategoryClothing)

	_, err := svc.UpdateDonation(context.Background(), donorID, d.DonationID, UpdateDonationInput{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestDeleteDonation_RemovesRecordAndBlobs(t *testing.T) {
	svc, db, _ := setupService(t)
	blobs := &fakeBlobs{}
	svc.Blobs = blobs
	donorID := uuid.New()
	d := seedDonation(t, db, donorID, domain.StatusAvailable, domain.CategoryClothing)
	d.Images = domain.ImageRefs{"donations/0-front.jpg"}
	require.NoError(t, db.Save(d).Error)

	id, err := svc.DeleteDonation(context.Background(), donorID, d.DonationID)
	require.NoError(t, err)
	assert.Equal(t, d.DonationID, id)
	assert.Equal(t, []string{"donations/0-front.jpg"}, blobs.deleted)

	var count int64
	require.NoError(t, db.Model(&domain.Donation{}).Where("donation_id = ?", d.DonationID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteDonation_OnlyWhileAvailable(t *testing.T) {
	svc, db, _ := setupService(t)
	donorID := uuid.New()
	d := seedDonation(t, db, donorID, domain.StatusAvailable, domain.CategoryClothing)

	_, err := svc.TransitionStatus(context.Background(), ngo(uuid.New()), d.DonationID, domain.StatusAccepted, "")
	require.NoError(t, err)

	_, err = svc.DeleteDonation(context.Background(), donorID, d.DonationID)
	assert.True(t, apperr.IsKind(err, apperr.KindStateConflict))
}

func TestGetAcceptedDonations_ExcludesClosed(t *testing.T) {
	svc, db, _ := setupService(t)
	donorID := uuid.New()
	ngoID := uuid.New()
	ctx := context.Background()

	active := seedDonation(t, db, donorID, domain.StatusAvailable, domain.CategoryBooks)
	closed := seedDonation(t, db, donorID, domain.StatusAvailable, domain.CategoryBooks)

	for _, d := range []*domain.Donation{active, closed} {
		_, err := svc.TransitionStatus(ctx, ngo(ngoID), d.DonationID, domain.StatusAccepted, "")
		require.NoError(t, err)
	}
	_, err := svc.TransitionStatus(ctx, ngo(ngoID), closed.DonationID, domain.StatusCollected, "")
	require.NoError(t, err)
	_, err = svc.TransitionStatus(ctx, donor(donorID), closed.DonationID, domain.StatusCompleted, "")
	require.NoError(t, err)

	out, err := svc.GetAcceptedDonations(ctx, ngoID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, active.DonationID, out[0].DonationID)
}

func TestGetTimeline_OrderedHistory(t *testing.T) {
	svc, _, _ := setupService(t)
	donorID := uuid.New()
	ngoID := uuid.New()
	ctx := context.Background()

	d, err := svc.CreateDonation(ctx, donorID, validCreateInput())
	require.NoError(t, err)
	_, err = svc.TransitionStatus(ctx, ngo(ngoID), d.DonationID, domain.StatusAccepted, "")
	require.NoError(t, err)
	_, err = svc.TransitionStatus(ctx, ngo(ngoID), d.DonationID, domain.StatusCollected, "")
	require.NoError(t, err)

	entries, err := svc.GetTimeline(ctx, d.DonationID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.StatusAvailable, entries[0].Status)
	assert.Equal(t, domain.StatusAccepted, entries[1].Status)
	assert.Equal(t, domain.StatusCollected, entries[2].Status)
}

func TestGetTimeline_NotFound(t *testing.T) {
	svc, _, _ := setupService(t)
	_, err := svc.GetTimeline(context.Background(), uuid.New())
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
