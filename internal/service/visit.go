// Package service contains the business logic for the Placetrack API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here — services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zekeapp/placetrack/internal/cache"
	"github.com/zekeapp/placetrack/internal/domain"
	"github.com/zekeapp/placetrack/internal/geo"
	"github.com/zekeapp/placetrack/internal/repo"
)

// EventSink receives geofence crossing events for downstream consumers
// (reminder triggers, notifications). Publish must not block for long; the
// tracker calls it while holding the owner's lock.
type EventSink interface {
	Publish(ctx context.Context, ev domain.PlaceEvent)
}

// HomeLocation is the optional bootstrap coordinate for auto-creating a
// "Home" place on first ingestion. Zero value means "not configured".
type HomeLocation struct {
	Latitude  float64
	Longitude float64
	Set       bool
}

// VisitService is the per-owner visit state machine. It consumes raw fixes,
// detects geofence entries and exits against the owner's saved places, and
// maintains the at-most-one-open-visit invariant.
//
// All entry/exit detection and the resulting create/close for one owner runs
// under that owner's mutex, so two concurrent batches can never both observe
// "no open visit" and each create one. Different owners never contend.
type VisitService struct {
	places repo.PlaceRepo
	visits repo.VisitRepo
	fixes  repo.FixRepo

	current *cache.CurrentPlace // optional accelerator, may be nil
	events  EventSink           // may be nil
	logger  *slog.Logger
	home    HomeLocation

	owners sync.Map // owner id → *sync.Mutex

	// homeChecked tracks which owners have had the home-place bootstrap run
	// this process. Explicit per-service state, never a package global, so
	// concurrent owners and test runs cannot leak into each other.
	homeMu      sync.Mutex
	homeChecked map[string]bool

	now func() time.Time
}

// routineLookback is how far back RecordVisit searches for similar visits
// when deciding the is_routine flag.
const routineLookback = 14 * 24 * time.Hour

// dwellMinutes converts a stay between from and to into whole minutes,
// rounding down. Every dwell figure in the system uses this rule.
func dwellMinutes(from, to time.Time) int {
	return int(to.Sub(from).Seconds()) / 60
}

// NewVisitService constructs a VisitService. current and events may be nil;
// a nil cache simply disables the accelerator and a nil sink drops events.
func NewVisitService(places repo.PlaceRepo, visits repo.VisitRepo, fixes repo.FixRepo,
	current *cache.CurrentPlace, events EventSink, logger *slog.Logger, home HomeLocation) *VisitService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisitService{
		places:      places,
		visits:      visits,
		fixes:       fixes,
		current:     current,
		events:      events,
		logger:      logger,
		home:        home,
		homeChecked: make(map[string]bool),
		now:         time.Now,
	}
}

// ownerLock returns the mutex serializing detection for one owner.
func (s *VisitService) ownerLock(ownerID string) *sync.Mutex {
	mu, _ := s.owners.LoadOrStore(ownerID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ProcessBatch stores a batch of fixes and then runs best-effort place
// detection on the final fix. Storing the fixes is the critical path: its
// error is returned. Detection failures are logged and swallowed — a missed
// entry or exit costs one tick of state, never the data.
func (s *VisitService) ProcessBatch(ctx context.Context, ownerID string, fixes []domain.Fix) (int, error) {
	stored, err := s.fixes.CreateBatch(ctx, fixes)
	if err != nil {
		return stored, fmt.Errorf("service.VisitService.ProcessBatch: %w", err)
	}

	if err := s.ensureHomePlace(ctx, ownerID); err != nil {
		s.logger.Error("home place bootstrap failed", "owner_id", ownerID, "error", err)
	}

	if len(fixes) > 0 {
		last := fixes[len(fixes)-1]
		if err := s.DetectAt(ctx, ownerID, last.Latitude, last.Longitude); err != nil {
			s.logger.Error("place detection failed", "owner_id", ownerID, "error", err)
		}
	}

	return stored, nil
}

// DetectAt runs one exit-then-entry detection tick for the owner at the given
// coordinate, under the owner's lock. Exit runs first: a body cannot be in
// two places, so the previous visit must close before a new one opens.
func (s *VisitService) DetectAt(ctx context.Context, ownerID string, lat, lon float64) error {
	mu := s.ownerLock(ownerID)
	mu.Lock()
	defer mu.Unlock()

	exited, err := s.checkExitLocked(ctx, ownerID, lat, lon)
	if err != nil {
		return fmt.Errorf("service.VisitService.DetectAt: exit check: %w", err)
	}
	if exited != nil {
		if _, err := s.endVisitLocked(ctx, ownerID, exited.ID); err != nil {
			return fmt.Errorf("service.VisitService.DetectAt: end visit: %w", err)
		}
		s.logger.Info("owner exited place", "owner_id", ownerID, "place", exited.Name)
		s.publish(ctx, domain.PlaceExited, ownerID, *exited)
	}

	entered, err := s.checkEntryLocked(ctx, ownerID, lat, lon)
	if err != nil {
		return fmt.Errorf("service.VisitService.DetectAt: entry check: %w", err)
	}
	if entered != nil {
		if _, err := s.recordVisitLocked(ctx, ownerID, entered.ID); err != nil {
			return fmt.Errorf("service.VisitService.DetectAt: record visit: %w", err)
		}
		s.logger.Info("owner entered place", "owner_id", ownerID, "place", entered.Name)
		s.publish(ctx, domain.PlaceEntered, ownerID, *entered)
	}

	return nil
}

// CheckEntry scans the owner's places in storage order and returns the first
// one containing the coordinate that has no open visit yet. Returns nil when
// the coordinate is outside every geofence (or already being visited).
func (s *VisitService) CheckEntry(ctx context.Context, ownerID string, lat, lon float64) (*domain.Place, error) {
	mu := s.ownerLock(ownerID)
	mu.Lock()
	defer mu.Unlock()
	return s.checkEntryLocked(ctx, ownerID, lat, lon)
}

func (s *VisitService) checkEntryLocked(ctx context.Context, ownerID string, lat, lon float64) (*domain.Place, error) {
	places, err := s.places.ListByOwner(ctx, ownerID, nil)
	if err != nil {
		return nil, fmt.Errorf("service.VisitService.CheckEntry: %w", err)
	}

	for _, place := range places {
		if !geo.IsAtPlace(lat, lon, place) {
			continue
		}
		_, err := s.visits.OpenForPlace(ctx, ownerID, place.ID)
		if err == nil {
			continue // already visiting this place
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("service.VisitService.CheckEntry: %w", err)
		}
		p := place
		return &p, nil
	}
	return nil, nil
}

// CheckExit returns the place of the owner's open visit when the coordinate
// has left its geofence, or nil when there is no open visit or the owner is
// still inside.
func (s *VisitService) CheckExit(ctx context.Context, ownerID string, lat, lon float64) (*domain.Place, error) {
	mu := s.ownerLock(ownerID)
	mu.Lock()
	defer mu.Unlock()
	return s.checkExitLocked(ctx, ownerID, lat, lon)
}

func (s *VisitService) checkExitLocked(ctx context.Context, ownerID string, lat, lon float64) (*domain.Place, error) {
	open, err := s.visits.Open(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service.VisitService.CheckExit: %w", err)
	}
	if len(open) == 0 {
		return nil, nil
	}

	place, err := s.places.GetByID(ctx, open[0].PlaceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil // place deleted under an open visit; nothing to exit
		}
		return nil, fmt.Errorf("service.VisitService.CheckExit: %w", err)
	}

	if geo.IsAtPlace(lat, lon, place) {
		return nil, nil
	}
	return &place, nil
}

// RecordVisit opens a visit at the place, closing any stray open visits for
// other places first. Calling it again while the visit is still open returns
// the same visit — re-entry is idempotent.
// Returns domain.ErrNotFound for an unknown place.
func (s *VisitService) RecordVisit(ctx context.Context, ownerID string, placeID uuid.UUID) (domain.Visit, error) {
	mu := s.ownerLock(ownerID)
	mu.Lock()
	defer mu.Unlock()
	return s.recordVisitLocked(ctx, ownerID, placeID)
}

func (s *VisitService) recordVisitLocked(ctx context.Context, ownerID string, placeID uuid.UUID) (domain.Visit, error) {
	now := s.now()

	place, err := s.places.GetByID(ctx, placeID)
	if err != nil {
		return domain.Visit{}, fmt.Errorf("service.VisitService.RecordVisit: %w", err)
	}

	open, err := s.visits.Open(ctx, ownerID)
	if err != nil {
		return domain.Visit{}, fmt.Errorf("service.VisitService.RecordVisit: %w", err)
	}

	// Close every open visit that is not at this place before opening a new
	// one; an owner holds at most one open visit at a time.
	var existing *domain.Visit
	for i := range open {
		if open[i].PlaceID == placeID {
			v := open[i]
			existing = &v
			continue
		}
		dwell := dwellMinutes(open[i].EnteredAt, now)
		if _, err := s.visits.Close(ctx, open[i].ID, now, dwell); err != nil {
			return domain.Visit{}, fmt.Errorf("service.VisitService.RecordVisit: close stray: %w", err)
		}
	}

	if existing != nil {
		s.cacheSet(ownerID, place.ID, place.Name)
		return *existing, nil
	}

	routine, err := s.isRoutineVisit(ctx, ownerID, placeID, now)
	if err != nil {
		return domain.Visit{}, fmt.Errorf("service.VisitService.RecordVisit: %w", err)
	}

	visit, err := s.visits.Create(ctx, domain.Visit{
		OwnerID:   ownerID,
		PlaceID:   placeID,
		EnteredAt: now,
		DayOfWeek: domain.Weekday(now),
		IsRoutine: routine,
	})
	if err != nil {
		return domain.Visit{}, fmt.Errorf("service.VisitService.RecordVisit: %w", err)
	}

	if _, err := s.places.RecordArrival(ctx, placeID, now); err != nil {
		return domain.Visit{}, fmt.Errorf("service.VisitService.RecordVisit: %w", err)
	}

	s.cacheSet(ownerID, place.ID, place.Name)
	return visit, nil
}

// isRoutineVisit reports whether arriving at the place now matches a recent
// pattern: at least two visits to the same place on the same day of week in
// the last 14 days, at least one of them within ±2 hours of the current hour.
// The hour comparison is a plain absolute difference, not circular.
func (s *VisitService) isRoutineVisit(ctx context.Context, ownerID string, placeID uuid.UUID, at time.Time) (bool, error) {
	since := at.Add(-routineLookback)
	visits, err := s.visits.ListByOwner(ctx, ownerID, &placeID, &since)
	if err != nil {
		return false, err
	}

	dayOfWeek := domain.Weekday(at)
	hour := at.Hour()

	var similar []domain.Visit
	for _, v := range visits {
		if v.DayOfWeek == dayOfWeek {
			similar = append(similar, v)
		}
	}
	if len(similar) < 2 {
		return false, nil
	}
	for _, v := range similar {
		diff := v.EnteredAt.Hour() - hour
		if diff < 0 {
			diff = -diff
		}
		if diff <= 2 {
			return true, nil
		}
	}
	return false, nil
}

// EndVisit closes the owner's open visit at the place, computing dwell as
// floor(elapsed seconds / 60), and adds the dwell to the place's total.
// Returns (nil, nil) when there is no open visit at that place — ending
// nothing is a no-op, not an error.
func (s *VisitService) EndVisit(ctx context.Context, ownerID string, placeID uuid.UUID) (*domain.Visit, error) {
	mu := s.ownerLock(ownerID)
	mu.Lock()
	defer mu.Unlock()
	return s.endVisitLocked(ctx, ownerID, placeID)
}

func (s *VisitService) endVisitLocked(ctx context.Context, ownerID string, placeID uuid.UUID) (*domain.Visit, error) {
	open, err := s.visits.OpenForPlace(ctx, ownerID, placeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service.VisitService.EndVisit: %w", err)
	}

	now := s.now()
	dwell := dwellMinutes(open.EnteredAt, now)

	closed, err := s.visits.Close(ctx, open.ID, now, dwell)
	if err != nil {
		return nil, fmt.Errorf("service.VisitService.EndVisit: %w", err)
	}

	if err := s.places.AddDwell(ctx, placeID, dwell); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("service.VisitService.EndVisit: %w", err)
		}
		// Place deleted underneath the visit: the closed visit still stands.
	}

	s.cacheClear(ownerID)
	return &closed, nil
}

// CleanupFixes deletes the owner's fixes older than daysToKeep days and
// returns the number removed.
func (s *VisitService) CleanupFixes(ctx context.Context, ownerID string, daysToKeep int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -daysToKeep)
	deleted, err := s.fixes.DeleteOlderThan(ctx, ownerID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("service.VisitService.CleanupFixes: %w", err)
	}
	return deleted, nil
}

// ensureHomePlace auto-creates a "Home" place from the configured home
// coordinate the first time an owner's data arrives. Runs at most once per
// owner per process; a lost race across processes only produces a redundant
// existence check, never a duplicate named place being relied upon.
func (s *VisitService) ensureHomePlace(ctx context.Context, ownerID string) error {
	if !s.home.Set {
		return nil
	}

	s.homeMu.Lock()
	done := s.homeChecked[ownerID]
	if !done {
		s.homeChecked[ownerID] = true
	}
	s.homeMu.Unlock()
	if done {
		return nil
	}

	places, err := s.places.ListByOwner(ctx, ownerID, nil)
	if err != nil {
		return err
	}
	for _, p := range places {
		if strings.EqualFold(p.Name, "home") {
			return nil
		}
	}

	created, err := s.places.Create(ctx, domain.Place{
		OwnerID:      ownerID,
		Name:         "Home",
		Latitude:     s.home.Latitude,
		Longitude:    s.home.Longitude,
		RadiusMeters: 100,
		Category:     domain.CategoryHome,
		AutoDetected: true,
	})
	if err != nil {
		return err
	}
	s.logger.Info("auto-created home place", "owner_id", ownerID, "place_id", created.ID)
	return nil
}

func (s *VisitService) publish(ctx context.Context, t domain.PlaceEventType, ownerID string, place domain.Place) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, domain.PlaceEvent{Type: t, OwnerID: ownerID, Place: place})
}

func (s *VisitService) cacheSet(ownerID string, placeID uuid.UUID, name string) {
	if s.current == nil {
		return
	}
	s.current.Set(ownerID, placeID, name)
}

func (s *VisitService) cacheClear(ownerID string) {
	if s.current == nil {
		return
	}
	s.current.Clear(ownerID)
}
