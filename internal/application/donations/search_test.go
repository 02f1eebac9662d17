package donations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ngoconnect-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedAt(t *testing.T, db *gorm.DB, title string, lat, lng float64) *domain.Donation {
	d := &domain.Donation{
		DonorID:      uuid.New(),
		Title:        title,
		Category:     domain.CategoryClothing,
		Address:      "somewhere",
		Latitude:     lat,
		Longitude:    lng,
		PickupOption: domain.PickupOptionPickup,
		Urgency:      domain.UrgencyMedium,
		Status:       domain.StatusAvailable,
	}
	require.NoError(t, db.Create(d).Error)
	return d
}

func TestSearchAvailable_OnlyAvailable(t *testing.T) {
	svc, db, _ := setupService(t)
	seedDonation(t, db, uuid.New(), domain.StatusAvailable, domain.CategoryBooks)
	seedDonation(t, db, uuid.New(), domain.StatusAccepted, domain.CategoryBooks)
	seedDonation(t, db, uuid.New(), domain.StatusCancelled, domain.CategoryBooks)

	res, err := svc.SearchAvailable(context.Background(), SearchFilters{}, Pagination{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Pagination.Total)
	require.Len(t, res.Donations, 1)
	assert.Equal(t, domain.StatusAvailable, res.Donations[0].Status)
}

func TestSearchAvailable_ExcludesExpiredFood(t *testing.T) {
	svc, db, _ := setupService(t)

	fresh := seedDonation(t, db, uuid.New(), domain.StatusAvailable, domain.CategoryFood)
	exp := time.Now().Add(12 * time.Hour)
	fresh.FoodExpiry = &exp
	require.NoError(t, db.Save(fresh).Error)

	stale := seedDonation(t, db, uuid.New(), domain.StatusAvailable, domain.CategoryFood)
	past := time.Now().Add(-time.Hour)
	stale.FoodExpiry = &past
	require.NoError(t, db.Save(stale).Error)

	// Non-food donations are unaffected by the freshness rule.
	seedDonation(t, db, uuid.New(), domain.StatusAvailable, domain.CategoryBooks)

	res, err := svc.SearchAvailable(context.Background(), SearchFilters{}, Pagination{})
	require.NoError(t, err)
	require.Len(t, res.Donations, 2)
	for _, d := range res.Donations {
		assert.NotEqual(t, stale.DonationID, d.DonationID)
	}
}

func TestSearchAvailable_CategoryFilter(t *testing.T) {
	svc, db, _ := setupService(t)
	seedDonation(t, db, uuid.New(), domain.StatusAvailable, domain.CategoryBooks)
	seedDonation(t, db, uuid.New(), domain.StatusAvailable, domain.CategoryClothing)

	res, err := svc.SearchAvailable(context.Background(), SearchFilters{Category: domain.CategoryBooks}, Pagination{})
	require.NoError(t, err)
	require.Len(t, res.Donations, 1)
	assert.Equal(t, domain.CategoryBooks, res.Donations[0].Category)

	// Unknown category is ignored, not an error.
	res, err = svc.SearchAvailable(context.Background(), SearchFilters{Category: "gadgets"}, Pagination{})
	require.NoError(t, err)
	assert.Len(t, res.Donations, 2)
}

func TestSearchAvailable_TextSearch(t *testing.T) {
	svc, db, _ := setupService(t)
	seedAt(t, db, "Winter Jackets", 12.97, 77.59)
	seedAt(t, db, "School books", 12.97, 77.59)

	res, err := svc.SearchAvailable(context.Background(), SearchFilters{Search: "jacket"}, Pagination{})
	require.NoError(t, err)
	require.Len(t, res.Donations, 1)
	assert.Equal(t, "Winter Jackets", res.Donations[0].Title)
}

func TestSearchAvailable_TextAndFreshnessCompose(t *testing.T) {
	svc, db, _ := setupService(t)

	stale := seedDonation(t, db, uuid.New(), domain.StatusAvailable, domain.CategoryFood)
	stale.Title = "Rice meal packets"
	past := time.Now().Add(-time.Hour)
	stale.FoodExpiry = &past
	require.NoError(t, db.Save(stale).Error)

	// Matching the text filter must not resurrect expired food.
	res, err := svc.SearchAvailable(context.Background(), SearchFilters{Search: "rice"}, Pagination{})
	require.NoError(t, err)
	assert.Empty(t, res.Donations)
}

func TestSearchAvailable_UrgencySort(t *testing.T) {
	svc, db, _ := setupService(t)
	low := seedAt(t, db, "low one", 12.97, 77.59)
	low.Urgency = domain.UrgencyLow
	require.NoError(t, db.Save(low).Error)
	high := seedAt(t, db, "high one", 12.97, 77.59)
	high.Urgency = domain.UrgencyHigh
	require.NoError(t, db.Save(high).Error)

	res, err := svc.SearchAvailable(context.Background(), SearchFilters{Sort: SortUrgency}, Pagination{})
	require.NoError(t, err)
	require.Len(t, res.Donations, 2)
	assert.Equal(t, domain.UrgencyHigh, res.Donations[0].Urgency)
}

func TestSearchAvailable_GeoRadius(t *testing.T) {
	svc, db, _ := setupService(t)
	// Bengaluru centre, a point ~5 km north, and Mumbai (~840 km away).
	near := seedAt(t, db, "near", 12.9716, 77.5946)
	mid := seedAt(t, db, "mid", 13.0166, 77.5946)
	seedAt(t, db, "far", 19.0760, 72.8777)

	lat, lng, radius := 12.9716, 77.5946, 10.0
	res, err := svc.SearchAvailable(context.Background(), SearchFilters{Lat: &lat, Lng: &lng, RadiusKm: &radius}, Pagination{})
	require.NoError(t, err)
	require.Len(t, res.Donations, 2)

	// Nearest first, each annotated with its distance.
	assert.Equal(t, near.DonationID, res.Donations[0].DonationID)
	assert.Equal(t, mid.DonationID, res.Donations[1].DonationID)
	require.NotNil(t, res.Donations[0].DistanceKm)
	require.NotNil(t, res.Donations[1].DistanceKm)
	assert.InDelta(t, 0, *res.Donations[0].DistanceKm, 0.01)
	assert.InDelta(t, 5.0, *res.Donations[1].DistanceKm, 0.5)
	assert.EqualValues(t, 2, res.Pagination.Total)
}

func TestSearchAvailable_GeoIgnoredWithoutRadius(t *testing.T) {
	svc, db, _ := setupService(t)
	seedAt(t, db, "near", 12.9716, 77.5946)
	seedAt(t, db, "far", 19.0760, 72.8777)

	lat := 12.9716
	res, err := svc.SearchAvailable(context.Background(), SearchFilters{Lat: &lat}, Pagination{})
	require.NoError(t, err)
	assert.Len(t, res.Donations, 2)
	assert.Nil(t, res.Donations[0].DistanceKm)
}

func TestSearchAvailable_Pagination(t *testing.T) {
	svc, db, _ := setupService(t)
	for i := 0; i < 7; i++ {
		seedAt(t, db, fmt.Sprintf("item %d", i), 12.97, 77.59)
	}

	res, err := svc.SearchAvailable(context.Background(), SearchFilters{}, Pagination{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, res.Donations, 3)
	assert.EqualValues(t, 7, res.Pagination.Total)
	assert.Equal(t, 2, res.Pagination.Page)
	assert.Equal(t, 3, res.Pagination.PageCount)

	// Pages past the end are empty, not an error.
	res, err = svc.SearchAvailable(context.Background(), SearchFilters{}, Pagination{Page: 9, Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, res.Donations)
}

func TestSearchAvailable_GeoPagination(t *testing.T) {
	svc, db, _ := setupService(t)
	for i := 0; i < 5; i++ {
		// Each successive donation a little further north.
		seedAt(t, db, fmt.Sprintf("geo %d", i), 12.9716+float64(i)*0.01, 77.5946)
	}

	lat, lng, radius := 12.9716, 77.5946, 50.0
	res, err := svc.SearchAvailable(context.Background(), SearchFilters{Lat: &lat, Lng: &lng, RadiusKm: &radius}, Pagination{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Donations, 2)
	assert.EqualValues(t, 5, res.Pagination.Total)
	// Ordering is global across pages: page 2 starts at the third nearest.
	assert.Equal(t, "geo 2", res.Donations[0].Title)
	assert.Equal(t, "geo 3", res.Donations[1].Title)
}
