package donations

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"ngoconnect-backend/internal/domain"
	"ngoconnect-backend/internal/pkg/geo"
)

// Sort orders for the public browse endpoint.
const (
	SortNewest  = "newest"
	SortUrgency = "urgency"
)

// SearchFilters for the public browse endpoint. Invalid category/urgency
// values are silently ignored rather than rejected.
type SearchFilters struct {
	Category string
	Urgency  string
	Search   string // case-insensitive substring over title/description
	Lat      *float64
	Lng      *float64
	RadiusKm *float64
	Sort     string // SortNewest (default) or SortUrgency
}

// Pagination is offset/limit based, 1-indexed pages.
type Pagination struct {
	Page  int
	Limit int
}

type PageInfo struct {
	Total     int64 `json:"total"`
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
	PageCount int   `json:"pageCount"`
}

type SearchResult struct {
	Donations  []domain.Donation `json:"donations"`
	Pagination PageInfo          `json:"pagination"`
}

// predicate is one AND-ed filter group. A group may itself be an OR
// expression; groups always compose by conjunction so two OR-groups (free-text
// match and food freshness) can never overwrite each other.
type predicate struct {
	expr string
	args []interface{}
}

// SearchAvailable runs the composite browse query. Only available donations
// are returned; expired food donations are always excluded. When a valid
// lat/lng/radius triple is present, results are restricted to the radius,
// annotated with distance_km, and ordered nearest first.
func (s *Service) SearchAvailable(ctx context.Context, f SearchFilters, p Pagination) (*SearchResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}

	preds := []predicate{{expr: "status = ?", args: []interface{}{domain.StatusAvailable}}}

	if f.Category != "" && domain.IsValidCategory(f.Category) {
		preds = append(preds, predicate{expr: "category = ?", args: []interface{}{f.Category}})
	}
	if f.Urgency != "" && domain.IsValidUrgency(f.Urgency) {
		preds = append(preds, predicate{expr: "urgency = ?", args: []interface{}{f.Urgency}})
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		preds = append(preds, predicate{
			expr: "(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)",
			args: []interface{}{like, like},
		})
	}
	// Food freshness: its own AND-ed OR-group, independent of the text group.
	preds = append(preds, predicate{
		expr: "(category <> ? OR (food_expiry IS NOT NULL AND food_expiry > ?))",
		args: []interface{}{domain.CategoryFood, time.Now().UTC()},
	})

	useGeo := f.Lat != nil && f.Lng != nil && f.RadiusKm != nil &&
		geo.ValidLatitude(*f.Lat) && geo.ValidLongitude(*f.Lng) && *f.RadiusKm > 0
	if useGeo {
		latDelta, lngDelta := boundingDeltas(*f.Lat, *f.RadiusKm)
		preds = append(preds,
			predicate{expr: "latitude BETWEEN ? AND ?", args: []interface{}{*f.Lat - latDelta, *f.Lat + latDelta}},
			predicate{expr: "longitude BETWEEN ? AND ?", args: []interface{}{*f.Lng - lngDelta, *f.Lng + lngDelta}},
		)
	}

	q := s.DB.WithContext(ctx).Model(&domain.Donation{})
	for _, pr := range preds {
		q = q.Where(pr.expr, pr.args...)
	}

	if useGeo {
		// Bounding box narrows the scan; the exact radius check and
		// nearest-first ordering use the Haversine distance.
		var candidates []domain.Donation
		if err := q.Find(&candidates).Error; err != nil {
			return nil, err
		}
		within := make([]domain.Donation, 0, len(candidates))
		for i := range candidates {
			d := geo.Distance(*f.Lat, *f.Lng, candidates[i].Latitude, candidates[i].Longitude)
			if d <= *f.RadiusKm {
				rounded := geo.RoundKm(d)
				candidates[i].DistanceKm = &rounded
				within = append(within, candidates[i])
			}
		}
		sort.SliceStable(within, func(i, j int) bool {
			return *within[i].DistanceKm < *within[j].DistanceKm
		})
		total := int64(len(within))
		return &SearchResult{
			Donations:  slicePage(within, p),
			Pagination: pageInfo(total, p),
		}, nil
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	switch f.Sort {
	case SortUrgency:
		q = q.Order("CASE urgency WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END").Order(`"createdAt" DESC`)
	default:
		q = q.Order(`"createdAt" DESC`)
	}

	var out []domain.Donation
	if err := q.Offset((p.Page - 1) * p.Limit).Limit(p.Limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return &SearchResult{
		Donations:  out,
		Pagination: pageInfo(total, p),
	}, nil
}

// boundingDeltas returns the lat/lng half-widths of a box that covers a
// radius in km around a latitude. One degree of latitude is ~110.574 km; a
// degree of longitude shrinks with cos(lat).
func boundingDeltas(lat, radiusKm float64) (latDelta, lngDelta float64) {
	latDelta = radiusKm / 110.574
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lngDelta = radiusKm / (111.320 * cosLat)
	if lngDelta > 180 {
		lngDelta = 180
	}
	return latDelta, lngDelta
}

func slicePage(all []domain.Donation, p Pagination) []domain.Donation {
	start := (p.Page - 1) * p.Limit
	if start >= len(all) {
		return []domain.Donation{}
	}
	end := start + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func pageInfo(total int64, p Pagination) PageInfo {
	pageCount := int(math.Ceil(float64(total) / float64(p.Limit)))
	return PageInfo{
		Total:     total,
		Page:      p.Page,
		Limit:     p.Limit,
		PageCount: pageCount,
	}
}
