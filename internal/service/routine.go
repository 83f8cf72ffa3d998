package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zekeapp/placetrack/internal/domain"
	"github.com/zekeapp/placetrack/internal/repo"
)

// RoutineService mines closed visit history for day-of-week / hour-of-day
// frequency patterns: "where is this owner usually at this time", the full
// routine table, and live deviation detection.
type RoutineService struct {
	places repo.PlaceRepo
	visits repo.VisitRepo

	now func() time.Time
}

// typicalLookback is the analysis window for TypicalPlaceForTime.
const typicalLookback = 28 * 24 * time.Hour

// defaultRoutineDays is the default Routines window.
const defaultRoutineDays = 28

// NewRoutineService constructs a RoutineService backed by the provided repos.
func NewRoutineService(places repo.PlaceRepo, visits repo.VisitRepo) *RoutineService {
	return &RoutineService{places: places, visits: visits, now: time.Now}
}

// TypicalPlaceForTime returns the place the owner most often occupies on
// when's day of week within ±1 hour of when's hour, over the last 28 days.
// Both open and closed visits count. Returns nil with no error when history
// is too thin to answer — "no data" is a normal state.
//
// Ties between equally-visited places break toward the lexicographically
// lowest place id: deterministic regardless of query or map iteration order.
func (s *RoutineService) TypicalPlaceForTime(ctx context.Context, ownerID string, when time.Time) (*domain.Place, error) {
	since := when.Add(-typicalLookback)
	visits, err := s.visits.ListByOwner(ctx, ownerID, nil, &since)
	if err != nil {
		return nil, fmt.Errorf("service.RoutineService.TypicalPlaceForTime: %w", err)
	}

	dayOfWeek := domain.Weekday(when)
	hour := when.Hour()

	counts := map[uuid.UUID]int{}
	for _, v := range visits {
		if v.DayOfWeek != dayOfWeek {
			continue
		}
		diff := v.EnteredAt.Hour() - hour
		if diff < 0 {
			diff = -diff
		}
		if diff <= 1 {
			counts[v.PlaceID]++
		}
	}
	if len(counts) == 0 {
		return nil, nil
	}

	var best uuid.UUID
	bestCount := -1
	for id, c := range counts {
		if c > bestCount || (c == bestCount && strings.Compare(id.String(), best.String()) < 0) {
			best = id
			bestCount = c
		}
	}

	place, err := s.places.GetByID(ctx, best)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service.RoutineService.TypicalPlaceForTime: %w", err)
	}
	return &place, nil
}

// Routines builds the (place, day, hour) → count table over the last
// daysBack days and returns one pattern per cell with at least two
// occurrences. Confidence is count / weeks-in-window, clamped to [0, 1].
// Sorted by confidence then count, descending; remaining ties order by
// place id, day, and hour for determinism.
func (s *RoutineService) Routines(ctx context.Context, ownerID string, daysBack int) ([]domain.RoutinePattern, error) {
	if daysBack <= 0 {
		daysBack = defaultRoutineDays
	}

	since := s.now().AddDate(0, 0, -daysBack)
	visits, err := s.visits.ListByOwner(ctx, ownerID, nil, &since)
	if err != nil {
		return nil, fmt.Errorf("service.RoutineService.Routines: %w", err)
	}

	type cell struct {
		placeID uuid.UUID
		day     int
		hour    int
	}
	counts := map[cell]int{}
	for _, v := range visits {
		counts[cell{placeID: v.PlaceID, day: v.DayOfWeek, hour: v.EnteredAt.Hour()}]++
	}

	names, err := s.placeNames(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service.RoutineService.Routines: %w", err)
	}

	weeks := float64(daysBack) / 7.0
	patterns := []domain.RoutinePattern{}
	for c, n := range counts {
		if n < 2 {
			continue
		}
		confidence := float64(n) / weeks
		if confidence > 1 {
			confidence = 1
		}
		patterns = append(patterns, domain.RoutinePattern{
			PlaceID:    c.placeID,
			PlaceName:  names[c.placeID],
			DayOfWeek:  c.day,
			Day:        domain.DayName(c.day),
			Hour:       c.hour,
			Count:      n,
			Confidence: confidence,
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		a, b := patterns[i], patterns[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.PlaceID != b.PlaceID {
			return strings.Compare(a.PlaceID.String(), b.PlaceID.String()) < 0
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return a.Hour < b.Hour
	})

	return patterns, nil
}

// CheckDeviation compares where the owner usually is right now against where
// they actually are. No typical place means no deviation; matching names
// mean no deviation; anything else is reported with the expectation attached.
func (s *RoutineService) CheckDeviation(ctx context.Context, ownerID string) (domain.RoutineDeviation, error) {
	now := s.now()

	typical, err := s.TypicalPlaceForTime(ctx, ownerID, now)
	if err != nil {
		return domain.RoutineDeviation{}, fmt.Errorf("service.RoutineService.CheckDeviation: %w", err)
	}
	if typical == nil {
		return domain.RoutineDeviation{IsDeviation: false}, nil
	}

	currentName := ""
	open, err := s.visits.Open(ctx, ownerID)
	if err != nil {
		return domain.RoutineDeviation{}, fmt.Errorf("service.RoutineService.CheckDeviation: %w", err)
	}
	if len(open) > 0 {
		place, err := s.places.GetByID(ctx, open[0].PlaceID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.RoutineDeviation{}, fmt.Errorf("service.RoutineService.CheckDeviation: %w", err)
		}
		if err == nil {
			currentName = place.Name
		}
	}

	if currentName == typical.Name {
		return domain.RoutineDeviation{IsDeviation: false}, nil
	}

	return domain.RoutineDeviation{
		IsDeviation:  true,
		TypicalPlace: typical.Name,
		CurrentPlace: currentName,
		ExpectedHour: now.Hour(),
		Day:          domain.DayName(domain.Weekday(now)),
	}, nil
}

// placeNames builds an id → name lookup for the owner's places.
func (s *RoutineService) placeNames(ctx context.Context, ownerID string) (map[uuid.UUID]string, error) {
	places, err := s.places.ListByOwner(ctx, ownerID, nil)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(places))
	for _, p := range places {
		names[p.ID] = p.Name
	}
	return names, nil
}
