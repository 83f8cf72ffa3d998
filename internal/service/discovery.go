package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/zekeapp/placetrack/internal/domain"
	"github.com/zekeapp/placetrack/internal/geo"
	"github.com/zekeapp/placetrack/internal/repo"
)

// DiscoveryParams tunes the place discovery pipeline. Zero fields take the
// defaults below.
type DiscoveryParams struct {
	// MinVisits is the minimum cluster size for a suggestion. Default 3.
	MinVisits int
	// DaysBack is the fix lookback window in days. Default 30.
	DaysBack int
}

// Pipeline thresholds. These reproduce the observed tuning and are not
// currently configurable per request.
const (
	// stationarySpeedMPS: fixes at or above this reported speed are treated
	// as in transit and never contribute to a dwell session.
	stationarySpeedMPS = 2.0
	// sessionGap is the maximum silence between fixes within one session.
	sessionGap = 30 * time.Minute
	// sessionGapMeters is the maximum distance from a session's running
	// centroid for a fix to extend it.
	sessionGapMeters = 500.0
	// clusterRadiusMeters is the star radius around a cluster's seed session.
	clusterRadiusMeters = 100.0
	// maxSuggestions caps the ranked discovery output.
	maxSuggestions = 10

	defaultMinVisits = 3
	defaultDaysBack  = 30
)

// DiscoveryService finds frequently-visited locations that are not yet saved
// as places: it segments stationary fixes into dwell sessions, clusters the
// sessions spatially, and ranks the clusters into suggestions.
type DiscoveryService struct {
	places repo.PlaceRepo
	fixes  repo.FixRepo
	logger *slog.Logger

	now func() time.Time
}

// NewDiscoveryService constructs a DiscoveryService backed by the provided repos.
func NewDiscoveryService(places repo.PlaceRepo, fixes repo.FixRepo, logger *slog.Logger) *DiscoveryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscoveryService{places: places, fixes: fixes, logger: logger, now: time.Now}
}

// Discover runs the full pipeline and returns up to ten suggestions ranked by
// visit count. Insufficient history yields an empty slice, never an error.
// The scan honors ctx cancellation since fix histories can be large.
func (s *DiscoveryService) Discover(ctx context.Context, ownerID string, params DiscoveryParams) ([]domain.PlaceSuggestion, error) {
	if params.MinVisits <= 0 {
		params.MinVisits = defaultMinVisits
	}
	if params.DaysBack <= 0 {
		params.DaysBack = defaultDaysBack
	}

	since := s.now().AddDate(0, 0, -params.DaysBack)
	fixes, err := s.fixes.StationarySince(ctx, ownerID, since, stationarySpeedMPS)
	if err != nil {
		return nil, fmt.Errorf("service.DiscoveryService.Discover: %w", err)
	}

	places, err := s.places.ListByOwner(ctx, ownerID, nil)
	if err != nil {
		return nil, fmt.Errorf("service.DiscoveryService.Discover: %w", err)
	}

	sessions, err := segmentDwellSessions(ctx, fixes, places)
	if err != nil {
		return nil, fmt.Errorf("service.DiscoveryService.Discover: %w", err)
	}

	clusters, err := clusterSessions(ctx, sessions, params.MinVisits)
	if err != nil {
		return nil, fmt.Errorf("service.DiscoveryService.Discover: %w", err)
	}

	suggestions := make([]domain.PlaceSuggestion, 0, len(clusters))
	for _, c := range clusters {
		centroid := c.Centroid()
		suggestions = append(suggestions, domain.PlaceSuggestion{
			Latitude:          centroid.Latitude,
			Longitude:         centroid.Longitude,
			VisitCount:        c.VisitCount(),
			SuggestedCategory: suggestCategory(c),
			FirstSeen:         c.FirstSeen,
			LastSeen:          c.LastSeen,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].VisitCount > suggestions[j].VisitCount
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	s.logger.Debug("discovery complete",
		"owner_id", ownerID,
		"fixes", len(fixes),
		"sessions", len(sessions),
		"suggestions", len(suggestions),
	)
	return suggestions, nil
}

// Confirm saves a discovered location as a real place. A malformed category
// string falls back to "other" rather than failing.
func (s *DiscoveryService) Confirm(ctx context.Context, ownerID, name string, lat, lon float64, category string) (domain.Place, error) {
	place := domain.Place{
		OwnerID:      ownerID,
		Name:         name,
		Latitude:     lat,
		Longitude:    lon,
		RadiusMeters: 100,
		Category:     domain.ParseCategory(category),
		AutoDetected: true,
		Confirmed:    true,
	}
	if err := validatePlace(&place); err != nil {
		return domain.Place{}, err
	}
	created, err := s.places.Create(ctx, place)
	if err != nil {
		return domain.Place{}, fmt.Errorf("service.DiscoveryService.Confirm: %w", err)
	}
	return created, nil
}

// segmentDwellSessions converts a chronological run of stationary fixes into
// dwell sessions. Fixes inside any saved place's geofence are dropped (the
// visit tracker already accounts for them) and also terminate the session
// being accumulated. A fix extends the current session only when it arrives
// within sessionGap of the session's last fix AND lies within
// sessionGapMeters of the running centroid of all points so far — measuring
// against the centroid lets the test drift slowly with the session instead of
// chaining unboundedly point to point.
func segmentDwellSessions(ctx context.Context, fixes []domain.Fix, places []domain.Place) ([]domain.DwellSession, error) {
	var sessions []domain.DwellSession
	var current *domain.DwellSession

	flush := func() {
		if current != nil {
			sessions = append(sessions, *current)
			current = nil
		}
	}

	for i, f := range fixes {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if insideAnyPlace(f, places) {
			flush()
			continue
		}

		if current != nil {
			centroid := current.Centroid()
			inTime := f.RecordedAt.Sub(current.EndTime) <= sessionGap
			inRange := geo.DistanceMeters(f.Latitude, f.Longitude, centroid.Latitude, centroid.Longitude) <= sessionGapMeters
			if inTime && inRange {
				current.Points = append(current.Points, domain.Point{Latitude: f.Latitude, Longitude: f.Longitude})
				current.EndTime = f.RecordedAt
				continue
			}
			flush()
		}

		current = &domain.DwellSession{
			Points:    []domain.Point{{Latitude: f.Latitude, Longitude: f.Longitude}},
			StartTime: f.RecordedAt,
			EndTime:   f.RecordedAt,
		}
	}
	flush()

	return sessions, nil
}

func insideAnyPlace(f domain.Fix, places []domain.Place) bool {
	for _, p := range places {
		if geo.IsAtPlace(f.Latitude, f.Longitude, p) {
			return true
		}
	}
	return false
}

// clusterSessions groups sessions by proximity of their centroids using a
// greedy single pass: each unassigned session seeds a cluster and captures
// every other unassigned session within clusterRadiusMeters of the SEED's
// centroid. Distance is never measured between non-seed members, so clusters
// are star-shaped rather than true connected components. That asymmetry is
// intentional — it reproduces the observed behavior (see DESIGN.md).
func clusterSessions(ctx context.Context, sessions []domain.DwellSession, minVisits int) ([]domain.Cluster, error) {
	assigned := make([]bool, len(sessions))
	var clusters []domain.Cluster

	for i := range sessions {
		if assigned[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seed := sessions[i].Centroid()
		cluster := domain.Cluster{
			Sessions:  []domain.DwellSession{sessions[i]},
			FirstSeen: sessions[i].StartTime,
			LastSeen:  sessions[i].EndTime,
		}
		assigned[i] = true

		for j := i + 1; j < len(sessions); j++ {
			if assigned[j] {
				continue
			}
			c := sessions[j].Centroid()
			if geo.DistanceMeters(seed.Latitude, seed.Longitude, c.Latitude, c.Longitude) <= clusterRadiusMeters {
				cluster.Sessions = append(cluster.Sessions, sessions[j])
				assigned[j] = true
				if sessions[j].StartTime.Before(cluster.FirstSeen) {
					cluster.FirstSeen = sessions[j].StartTime
				}
				if sessions[j].EndTime.After(cluster.LastSeen) {
					cluster.LastSeen = sessions[j].EndTime
				}
			}
		}

		if cluster.VisitCount() >= minVisits {
			clusters = append(clusters, cluster)
		}
	}

	return clusters, nil
}

// suggestCategory buckets the mean session start hour. Buckets are checked
// in this fixed order and the first match wins, so e.g. hour 9 lands in
// "work" via the first bucket, not the daytime catch-all.
func suggestCategory(c domain.Cluster) domain.PlaceCategory {
	var sum float64
	for _, s := range c.Sessions {
		sum += float64(s.StartTime.Hour())
	}
	avg := sum / float64(len(c.Sessions))

	switch {
	case avg >= 6 && avg <= 10:
		return domain.CategoryWork
	case avg >= 11 && avg <= 14:
		return domain.CategoryRestaurant
	case avg >= 9 && avg <= 17:
		return domain.CategoryWork
	case avg >= 17 && avg <= 21:
		return domain.CategoryRestaurant
	default:
		return domain.CategoryHome
	}
}
