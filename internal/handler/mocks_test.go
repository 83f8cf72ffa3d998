package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zekeapp/placetrack/internal/domain"
	"github.com/zekeapp/placetrack/internal/handler"
	"github.com/zekeapp/placetrack/internal/service"
)

// mockPlaceServicer is a test double for handler.PlaceServicer.
// Set only the method fields your test needs.
type mockPlaceServicer struct {
	create         func(ctx context.Context, place domain.Place) (domain.Place, error)
	getByID        func(ctx context.Context, id uuid.UUID) (domain.Place, error)
	list           func(ctx context.Context, ownerID string, category *domain.PlaceCategory) ([]domain.Place, error)
	update         func(ctx context.Context, id uuid.UUID, patch domain.PlacePatch) (domain.Place, error)
	delete         func(ctx context.Context, id uuid.UUID) error
	nearby         func(ctx context.Context, ownerID string, lat, lon, maxMeters float64) ([]domain.Place, error)
	mostVisited    func(ctx context.Context, ownerID string, limit int) ([]domain.Place, error)
	current        func(ctx context.Context, ownerID string) (*domain.Place, error)
	stats          func(ctx context.Context, placeID uuid.UUID) (domain.PlaceStats, error)
	visitsForPlace func(ctx context.Context, placeID uuid.UUID, limit int) ([]domain.Visit, error)
	placeContext   func(ctx context.Context, ownerID string, lat, lon *float64) (domain.PlaceContext, error)
}

func (m *mockPlaceServicer) Create(ctx context.Context, p domain.Place) (domain.Place, error) {
	return m.create(ctx, p)
}
func (m *mockPlaceServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error) {
	return m.getByID(ctx, id)
}
func (m *mockPlaceServicer) List(ctx context.Context, ownerID string, category *domain.PlaceCategory) ([]domain.Place, error) {
	return m.list(ctx, ownerID, category)
}
func (m *mockPlaceServicer) Update(ctx context.Context, id uuid.UUID, patch domain.PlacePatch) (domain.Place, error) {
	return m.update(ctx, id, patch)
}
func (m *mockPlaceServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockPlaceServicer) Nearby(ctx context.Context, ownerID string, lat, lon, maxMeters float64) ([]domain.Place, error) {
	return m.nearby(ctx, ownerID, lat, lon, maxMeters)
}
func (m *mockPlaceServicer) MostVisited(ctx context.Context, ownerID string, limit int) ([]domain.Place, error) {
	return m.mostVisited(ctx, ownerID, limit)
}
func (m *mockPlaceServicer) Current(ctx context.Context, ownerID string) (*domain.Place, error) {
	return m.current(ctx, ownerID)
}
func (m *mockPlaceServicer) Stats(ctx context.Context, placeID uuid.UUID) (domain.PlaceStats, error) {
	return m.stats(ctx, placeID)
}
func (m *mockPlaceServicer) VisitsForPlace(ctx context.Context, placeID uuid.UUID, limit int) ([]domain.Visit, error) {
	return m.visitsForPlace(ctx, placeID, limit)
}
func (m *mockPlaceServicer) Context(ctx context.Context, ownerID string, lat, lon *float64) (domain.PlaceContext, error) {
	return m.placeContext(ctx, ownerID, lat, lon)
}

// compile-time check: mockPlaceServicer must satisfy handler.PlaceServicer.
var _ handler.PlaceServicer = (*mockPlaceServicer)(nil)

// mockIngestServicer is a test double for handler.IngestServicer.
type mockIngestServicer struct {
	processBatch func(ctx context.Context, ownerID string, fixes []domain.Fix) (int, error)
	cleanupFixes func(ctx context.Context, ownerID string, daysToKeep int) (int64, error)
}

func (m *mockIngestServicer) ProcessBatch(ctx context.Context, ownerID string, fixes []domain.Fix) (int, error) {
	return m.processBatch(ctx, ownerID, fixes)
}

func (m *mockIngestServicer) CleanupFixes(ctx context.Context, ownerID string, daysToKeep int) (int64, error) {
	return m.cleanupFixes(ctx, ownerID, daysToKeep)
}

var _ handler.IngestServicer = (*mockIngestServicer)(nil)

// mockDiscoveryServicer is a test double for handler.DiscoveryServicer.
type mockDiscoveryServicer struct {
	discover func(ctx context.Context, ownerID string, params service.DiscoveryParams) ([]domain.PlaceSuggestion, error)
	confirm  func(ctx context.Context, ownerID, name string, lat, lon float64, category string) (domain.Place, error)
}

func (m *mockDiscoveryServicer) Discover(ctx context.Context, ownerID string, params service.DiscoveryParams) ([]domain.PlaceSuggestion, error) {
	return m.discover(ctx, ownerID, params)
}
func (m *mockDiscoveryServicer) Confirm(ctx context.Context, ownerID, name string, lat, lon float64, category string) (domain.Place, error) {
	return m.confirm(ctx, ownerID, name, lat, lon, category)
}

var _ handler.DiscoveryServicer = (*mockDiscoveryServicer)(nil)

// mockRoutineServicer is a test double for handler.RoutineServicer.
type mockRoutineServicer struct {
	routines       func(ctx context.Context, ownerID string, daysBack int) ([]domain.RoutinePattern, error)
	checkDeviation func(ctx context.Context, ownerID string) (domain.RoutineDeviation, error)
}

func (m *mockRoutineServicer) Routines(ctx context.Context, ownerID string, daysBack int) ([]domain.RoutinePattern, error) {
	return m.routines(ctx, ownerID, daysBack)
}
func (m *mockRoutineServicer) CheckDeviation(ctx context.Context, ownerID string) (domain.RoutineDeviation, error) {
	return m.checkDeviation(ctx, ownerID)
}

var _ handler.RoutineServicer = (*mockRoutineServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// serverConfig selects which mocks a test server is built with. Zero fields
// get nil servicers, which panic when reached; that is intentional — a test
// hitting an endpoint it did not mock is a test bug.
type serverConfig struct {
	places      handler.PlaceServicer
	ingest      handler.IngestServicer
	discovery   handler.DiscoveryServicer
	routines    handler.RoutineServicer
	ingestToken string
}

// newHTTPHandler wires a Server with the given mocks into its chi router,
// mirroring how main.go wires it in production.
func newHTTPHandler(cfg serverConfig) http.Handler {
	srv := handler.NewServer(cfg.places, cfg.ingest, cfg.discovery, cfg.routines, cfg.ingestToken, nil)
	return srv.Routes()
}

func placeFixture() domain.Place {
	now := time.Date(2025, 6, 25, 9, 0, 0, 0, time.UTC)
	return domain.Place{
		ID:           uuid.New(),
		OwnerID:      "owner-1",
		Name:         "Gym",
		Latitude:     40.0,
		Longitude:    -73.0,
		RadiusMeters: 100,
		Category:     domain.CategoryGym,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}
