// Package handler implements the HTTP surface for the Placetrack API.
// All handlers are methods on Server; methods are split into domain-specific
// files (place.go, ingest.go, etc.) but share the same Server struct so they
// can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zekeapp/placetrack/internal/domain"
	"github.com/zekeapp/placetrack/internal/service"
)

// PlaceServicer defines the business operations the place handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type PlaceServicer interface {
	Create(ctx context.Context, place domain.Place) (domain.Place, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error)
	List(ctx context.Context, ownerID string, category *domain.PlaceCategory) ([]domain.Place, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.PlacePatch) (domain.Place, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Nearby(ctx context.Context, ownerID string, lat, lon, maxMeters float64) ([]domain.Place, error)
	MostVisited(ctx context.Context, ownerID string, limit int) ([]domain.Place, error)
	Current(ctx context.Context, ownerID string) (*domain.Place, error)
	Stats(ctx context.Context, placeID uuid.UUID) (domain.PlaceStats, error)
	VisitsForPlace(ctx context.Context, placeID uuid.UUID, limit int) ([]domain.Visit, error)
	Context(ctx context.Context, ownerID string, lat, lon *float64) (domain.PlaceContext, error)
}

// IngestServicer defines the fix-ingestion operations the ingest handler
// depends on.
type IngestServicer interface {
	ProcessBatch(ctx context.Context, ownerID string, fixes []domain.Fix) (int, error)
	CleanupFixes(ctx context.Context, ownerID string, daysToKeep int) (int64, error)
}

// DiscoveryServicer defines the place-discovery operations the discovery
// handlers depend on.
type DiscoveryServicer interface {
	Discover(ctx context.Context, ownerID string, params service.DiscoveryParams) ([]domain.PlaceSuggestion, error)
	Confirm(ctx context.Context, ownerID, name string, lat, lon float64, category string) (domain.Place, error)
}

// RoutineServicer defines the routine-analysis operations the routine
// handlers depend on.
type RoutineServicer interface {
	Routines(ctx context.Context, ownerID string, daysBack int) ([]domain.RoutinePattern, error)
	CheckDeviation(ctx context.Context, ownerID string) (domain.RoutineDeviation, error)
}

// Server holds the handlers' dependencies. Methods are in domain-specific
// files but all operate on this struct.
type Server struct {
	places    PlaceServicer
	ingest    IngestServicer
	discovery DiscoveryServicer
	routines  RoutineServicer

	// ingestToken guards POST /ingest. Empty means the endpoint is open,
	// which is only sensible in development.
	ingestToken string
	logger      *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(places PlaceServicer, ingest IngestServicer, discovery DiscoveryServicer,
	routines RoutineServicer, ingestToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		places:      places,
		ingest:      ingest,
		discovery:   discovery,
		routines:    routines,
		ingestToken: ingestToken,
		logger:      logger,
	}
}

// Routes mounts every endpoint on a fresh chi router. Wire it in main.go
// under the app's middleware stack.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.getHealth)
	r.Post("/ingest", s.postIngest)
	r.Post("/ingest/cleanup", s.postIngestCleanup)

	r.Route("/places", func(r chi.Router) {
		r.Post("/", s.createPlace)
		r.Get("/", s.listPlaces)
		r.Get("/current", s.getCurrentPlace)
		r.Get("/nearby", s.getNearbyPlaces)
		r.Get("/most-visited", s.getMostVisited)
		r.Get("/context", s.getPlaceContext)
		r.Post("/discover", s.discoverPlaces)
		r.Post("/discover/confirm", s.confirmSuggestion)
		r.Get("/routines", s.getRoutines)
		r.Get("/routines/deviation", s.getRoutineDeviation)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getPlace)
			r.Patch("/", s.updatePlace)
			r.Delete("/", s.deletePlace)
			r.Get("/stats", s.getPlaceStats)
			r.Get("/visits", s.getPlaceVisits)
		})
	})

	return r
}

// placeID extracts and parses the {id} path parameter.
func placeID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}
