package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zekeapp/placetrack/internal/cache"
	"github.com/zekeapp/placetrack/internal/domain"
	"github.com/zekeapp/placetrack/internal/geo"
	"github.com/zekeapp/placetrack/internal/repo"
)

// TypicalPlacer answers "where is this owner usually at this time".
// Implemented by RoutineService; defined here so PlaceService can build the
// place context without depending on the concrete type.
type TypicalPlacer interface {
	TypicalPlaceForTime(ctx context.Context, ownerID string, when time.Time) (*domain.Place, error)
}

// PlaceService implements business logic for Place operations: CRUD, nearby
// search, aggregate stats, and the current-place lookup with its optional
// cache fast path.
type PlaceService struct {
	places   repo.PlaceRepo
	visits   repo.VisitRepo
	fixes    repo.FixRepo        // may be nil; context then needs explicit coordinates
	current  *cache.CurrentPlace // optional accelerator, may be nil
	routines TypicalPlacer       // may be nil; context omits the typical place

	now func() time.Time
}

// DefaultNearbyMeters is the default search radius for Nearby.
const DefaultNearbyMeters = 200.0

// NewPlaceService constructs a PlaceService backed by the provided repos.
func NewPlaceService(places repo.PlaceRepo, visits repo.VisitRepo, fixes repo.FixRepo,
	current *cache.CurrentPlace, routines TypicalPlacer) *PlaceService {
	return &PlaceService{
		places:   places,
		visits:   visits,
		fixes:    fixes,
		current:  current,
		routines: routines,
		now:      time.Now,
	}
}

// Create validates and persists a new place. A zero radius defaults to 100
// meters; an unknown category string has already been mapped to "other" by
// the handler via domain.ParseCategory.
func (s *PlaceService) Create(ctx context.Context, place domain.Place) (domain.Place, error) {
	if err := validatePlace(&place); err != nil {
		return domain.Place{}, err
	}
	result, err := s.places.Create(ctx, place)
	if err != nil {
		return domain.Place{}, fmt.Errorf("service.PlaceService.Create: %w", err)
	}
	return result, nil
}

// GetByID returns a single place by ID.
// Returns domain.ErrNotFound if no place with that ID exists.
func (s *PlaceService) GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error) {
	result, err := s.places.GetByID(ctx, id)
	if err != nil {
		return domain.Place{}, fmt.Errorf("service.PlaceService.GetByID: %w", err)
	}
	return result, nil
}

// List returns the owner's places, most-visited first, optionally filtered
// by category. Always returns a non-nil slice so callers can safely range.
func (s *PlaceService) List(ctx context.Context, ownerID string, category *domain.PlaceCategory) ([]domain.Place, error) {
	places, err := s.places.ListByOwner(ctx, ownerID, category)
	if err != nil {
		return nil, fmt.Errorf("service.PlaceService.List: %w", err)
	}
	if places == nil {
		return []domain.Place{}, nil
	}
	return places, nil
}

// Update applies a partial patch to an existing place and returns the
// updated snapshot.
func (s *PlaceService) Update(ctx context.Context, id uuid.UUID, patch domain.PlacePatch) (domain.Place, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return domain.Place{}, fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
	}
	if patch.RadiusMeters != nil && *patch.RadiusMeters <= 0 {
		return domain.Place{}, fmt.Errorf("%w: radius_meters must be positive", domain.ErrValidation)
	}
	result, err := s.places.Update(ctx, id, patch)
	if err != nil {
		return domain.Place{}, fmt.Errorf("service.PlaceService.Update: %w", err)
	}
	return result, nil
}

// Delete removes a place and clears the owner's cached current place, since
// the cached entry may point at the deleted place.
func (s *PlaceService) Delete(ctx context.Context, id uuid.UUID) error {
	place, err := s.places.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service.PlaceService.Delete: %w", err)
	}
	if err := s.places.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.PlaceService.Delete: %w", err)
	}
	if s.current != nil {
		s.current.Clear(place.OwnerID)
	}
	return nil
}

// Nearby returns the owner's places within maxMeters of the coordinate,
// closest first. maxMeters <= 0 falls back to DefaultNearbyMeters.
func (s *PlaceService) Nearby(ctx context.Context, ownerID string, lat, lon, maxMeters float64) ([]domain.Place, error) {
	if maxMeters <= 0 {
		maxMeters = DefaultNearbyMeters
	}
	places, err := s.places.ListByOwner(ctx, ownerID, nil)
	if err != nil {
		return nil, fmt.Errorf("service.PlaceService.Nearby: %w", err)
	}

	type withDistance struct {
		place domain.Place
		d     float64
	}
	var nearby []withDistance
	for _, p := range places {
		d := geo.DistanceMeters(lat, lon, p.Latitude, p.Longitude)
		if d <= maxMeters {
			nearby = append(nearby, withDistance{place: p, d: d})
		}
	}
	sort.Slice(nearby, func(i, j int) bool { return nearby[i].d < nearby[j].d })

	out := make([]domain.Place, len(nearby))
	for i, n := range nearby {
		out[i] = n.place
	}
	return out, nil
}

// MostVisited returns the owner's top places by visit count.
func (s *PlaceService) MostVisited(ctx context.Context, ownerID string, limit int) ([]domain.Place, error) {
	places, err := s.places.ListByOwner(ctx, ownerID, nil)
	if err != nil {
		return nil, fmt.Errorf("service.PlaceService.MostVisited: %w", err)
	}
	if limit > 0 && len(places) > limit {
		places = places[:limit]
	}
	if places == nil {
		places = []domain.Place{}
	}
	return places, nil
}

// Current returns the place the owner is at right now, or nil when the owner
// is not inside any saved place. The cache is consulted first; any miss or
// stale entry silently falls back to the authoritative open-visit query.
func (s *PlaceService) Current(ctx context.Context, ownerID string) (*domain.Place, error) {
	if s.current != nil {
		if entry, ok := s.current.Get(ownerID); ok {
			place, err := s.places.GetByID(ctx, entry.PlaceID)
			if err == nil {
				return &place, nil
			}
			// Stale or failing cache entry: fall through to the repo path.
		}
	}

	open, err := s.visits.Open(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service.PlaceService.Current: %w", err)
	}
	if len(open) == 0 {
		return nil, nil
	}

	place, err := s.places.GetByID(ctx, open[0].PlaceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service.PlaceService.Current: %w", err)
	}

	if s.current != nil {
		s.current.Set(ownerID, place.ID, place.Name)
	}
	return &place, nil
}

// Stats computes the aggregate visit statistics for a place.
// Returns domain.ErrNotFound for an unknown place.
func (s *PlaceService) Stats(ctx context.Context, placeID uuid.UUID) (domain.PlaceStats, error) {
	place, err := s.places.GetByID(ctx, placeID)
	if err != nil {
		return domain.PlaceStats{}, fmt.Errorf("service.PlaceService.Stats: %w", err)
	}

	visits, err := s.visits.ListByPlace(ctx, placeID, 0)
	if err != nil {
		return domain.PlaceStats{}, fmt.Errorf("service.PlaceService.Stats: %w", err)
	}

	stats := domain.PlaceStats{
		PlaceID:           place.ID,
		Name:              place.Name,
		Category:          place.Category,
		VisitCount:        place.VisitCount,
		TotalDwellMinutes: place.TotalDwellMinutes,
		FirstVisited:      place.FirstVisited,
		LastVisited:       place.LastVisited,
		CommonDays:        []domain.DayCount{},
		CommonHours:       []domain.HourCount{},
	}

	var completed, dwellSum, routineCount int
	dayCounts := map[int]int{}
	hourCounts := map[int]int{}
	for _, v := range visits {
		if v.DwellMinutes != nil {
			completed++
			dwellSum += *v.DwellMinutes
		}
		if v.IsRoutine {
			routineCount++
		}
		dayCounts[v.DayOfWeek]++
		hourCounts[v.EnteredAt.Hour()]++
	}
	if completed > 0 {
		stats.AverageDwell = float64(dwellSum) / float64(completed)
	}
	if len(visits) > 0 {
		stats.RoutinePercent = float64(routineCount) / float64(len(visits)) * 100
	}

	for _, day := range topCounts(dayCounts, 3) {
		stats.CommonDays = append(stats.CommonDays, domain.DayCount{Day: domain.DayName(day.key), Count: day.count})
	}
	for _, hour := range topCounts(hourCounts, 3) {
		stats.CommonHours = append(stats.CommonHours, domain.HourCount{Hour: fmt.Sprintf("%02d:00", hour.key), Count: hour.count})
	}

	return stats, nil
}

// VisitsForPlace returns up to limit of the place's visits, newest first.
// Returns domain.ErrNotFound when the place itself does not exist.
func (s *PlaceService) VisitsForPlace(ctx context.Context, placeID uuid.UUID, limit int) ([]domain.Visit, error) {
	if _, err := s.places.GetByID(ctx, placeID); err != nil {
		return nil, fmt.Errorf("service.PlaceService.VisitsForPlace: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}
	visits, err := s.visits.ListByPlace(ctx, placeID, limit)
	if err != nil {
		return nil, fmt.Errorf("service.PlaceService.VisitsForPlace: %w", err)
	}
	if visits == nil {
		visits = []domain.Visit{}
	}
	return visits, nil
}

// Context assembles the "where is the owner, and is that normal" aggregate.
// lat/lon are optional; when nil the owner's most recent fix supplies the
// coordinate for the nearby list, and an owner with no fixes gets an empty
// one.
func (s *PlaceService) Context(ctx context.Context, ownerID string, lat, lon *float64) (domain.PlaceContext, error) {
	pc := domain.PlaceContext{NearbyPlaces: []domain.Place{}}

	current, err := s.Current(ctx, ownerID)
	if err != nil {
		return domain.PlaceContext{}, fmt.Errorf("service.PlaceService.Context: %w", err)
	}
	pc.CurrentPlace = current
	pc.IsAtKnownPlace = current != nil

	if current != nil {
		open, err := s.visits.OpenForPlace(ctx, ownerID, current.ID)
		if err == nil {
			minutes := dwellMinutes(open.EnteredAt, s.now())
			pc.MinutesAtPlace = &minutes
		} else if !errors.Is(err, domain.ErrNotFound) {
			return domain.PlaceContext{}, fmt.Errorf("service.PlaceService.Context: %w", err)
		}
	}

	if (lat == nil || lon == nil) && s.fixes != nil {
		last, err := s.fixes.Latest(ctx, ownerID)
		if err == nil {
			lat, lon = &last.Latitude, &last.Longitude
		} else if !errors.Is(err, domain.ErrNotFound) {
			return domain.PlaceContext{}, fmt.Errorf("service.PlaceService.Context: %w", err)
		}
	}

	if lat != nil && lon != nil {
		nearby, err := s.Nearby(ctx, ownerID, *lat, *lon, DefaultNearbyMeters)
		if err != nil {
			return domain.PlaceContext{}, fmt.Errorf("service.PlaceService.Context: %w", err)
		}
		pc.NearbyPlaces = nearby
	}

	if s.routines != nil {
		typical, err := s.routines.TypicalPlaceForTime(ctx, ownerID, s.now())
		if err != nil {
			return domain.PlaceContext{}, fmt.Errorf("service.PlaceService.Context: %w", err)
		}
		if typical != nil {
			pc.TypicalPlaceForTime = typical.Name
		}
	}

	return pc, nil
}

// kv is a map entry snapshot used when ranking count tables.
type kv struct {
	key   int
	count int
}

// topCounts returns the n highest-count entries of a count table, ties broken
// by the lower key for determinism.
func topCounts(counts map[int]int, n int) []kv {
	out := make([]kv, 0, len(counts))
	for k, c := range counts {
		out = append(out, kv{key: k, count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// validatePlace enforces business rules shared by create paths and applies
// the radius default.
func validatePlace(place *domain.Place) error {
	if strings.TrimSpace(place.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if place.OwnerID == "" {
		return fmt.Errorf("%w: owner_id is required", domain.ErrValidation)
	}
	if place.Latitude < -90 || place.Latitude > 90 {
		return fmt.Errorf("%w: latitude out of range", domain.ErrValidation)
	}
	if place.Longitude < -180 || place.Longitude > 180 {
		return fmt.Errorf("%w: longitude out of range", domain.ErrValidation)
	}
	if place.RadiusMeters == 0 {
		place.RadiusMeters = 100
	}
	if place.RadiusMeters < 0 {
		return fmt.Errorf("%w: radius_meters must be positive", domain.ErrValidation)
	}
	if place.Category == "" {
		place.Category = domain.CategoryOther
	}
	return nil
}
