package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zekeapp/placetrack/internal/domain"
	"github.com/zekeapp/placetrack/internal/repo"
	"github.com/zekeapp/placetrack/internal/service"
)

// ---- mock repos ------------------------------------------------------------

// mockPlaceRepo is a hand-written test double for repo.PlaceRepo.
// Set only the method fields your test needs; unset methods return zero values.
type mockPlaceRepo struct {
	create        func(ctx context.Context, place domain.Place) (domain.Place, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.Place, error)
	listByOwner   func(ctx context.Context, ownerID string, category *domain.PlaceCategory) ([]domain.Place, error)
	update        func(ctx context.Context, id uuid.UUID, patch domain.PlacePatch) (domain.Place, error)
	delete        func(ctx context.Context, id uuid.UUID) error
	recordArrival func(ctx context.Context, id uuid.UUID, at time.Time) (domain.Place, error)
	addDwell      func(ctx context.Context, id uuid.UUID, minutes int) error
}

func (m *mockPlaceRepo) Create(ctx context.Context, place domain.Place) (domain.Place, error) {
	if m.create != nil {
		return m.create(ctx, place)
	}
	return place, nil
}

func (m *mockPlaceRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error) {
	if m.getByID != nil {
		return m.getByID(ctx, id)
	}
	return domain.Place{}, domain.ErrNotFound
}

func (m *mockPlaceRepo) ListByOwner(ctx context.Context, ownerID string, category *domain.PlaceCategory) ([]domain.Place, error) {
	if m.listByOwner != nil {
		return m.listByOwner(ctx, ownerID, category)
	}
	return nil, nil
}

func (m *mockPlaceRepo) Update(ctx context.Context, id uuid.UUID, patch domain.PlacePatch) (domain.Place, error) {
	if m.update != nil {
		return m.update(ctx, id, patch)
	}
	return domain.Place{}, domain.ErrNotFound
}

func (m *mockPlaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.delete != nil {
		return m.delete(ctx, id)
	}
	return domain.ErrNotFound
}

func (m *mockPlaceRepo) RecordArrival(ctx context.Context, id uuid.UUID, at time.Time) (domain.Place, error) {
	if m.recordArrival != nil {
		return m.recordArrival(ctx, id, at)
	}
	return domain.Place{}, nil
}

func (m *mockPlaceRepo) AddDwell(ctx context.Context, id uuid.UUID, minutes int) error {
	if m.addDwell != nil {
		return m.addDwell(ctx, id, minutes)
	}
	return nil
}

// compile-time check: mockPlaceRepo must satisfy repo.PlaceRepo.
var _ repo.PlaceRepo = (*mockPlaceRepo)(nil)

// mockVisitRepo is a hand-written test double for repo.VisitRepo.
type mockVisitRepo struct {
	create       func(ctx context.Context, visit domain.Visit) (domain.Visit, error)
	open         func(ctx context.Context, ownerID string) ([]domain.Visit, error)
	openForPlace func(ctx context.Context, ownerID string, placeID uuid.UUID) (domain.Visit, error)
	close        func(ctx context.Context, id uuid.UUID, exitedAt time.Time, dwellMinutes int) (domain.Visit, error)
	listByOwner  func(ctx context.Context, ownerID string, placeID *uuid.UUID, since *time.Time) ([]domain.Visit, error)
	listByPlace  func(ctx context.Context, placeID uuid.UUID, limit int) ([]domain.Visit, error)
}

func (m *mockVisitRepo) Create(ctx context.Context, visit domain.Visit) (domain.Visit, error) {
	if m.create != nil {
		return m.create(ctx, visit)
	}
	visit.ID = uuid.New()
	return visit, nil
}

func (m *mockVisitRepo) Open(ctx context.Context, ownerID string) ([]domain.Visit, error) {
	if m.open != nil {
		return m.open(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockVisitRepo) OpenForPlace(ctx context.Context, ownerID string, placeID uuid.UUID) (domain.Visit, error) {
	if m.openForPlace != nil {
		return m.openForPlace(ctx, ownerID, placeID)
	}
	return domain.Visit{}, domain.ErrNotFound
}

func (m *mockVisitRepo) Close(ctx context.Context, id uuid.UUID, exitedAt time.Time, dwellMinutes int) (domain.Visit, error) {
	if m.close != nil {
		return m.close(ctx, id, exitedAt, dwellMinutes)
	}
	return domain.Visit{}, domain.ErrNotFound
}

func (m *mockVisitRepo) ListByOwner(ctx context.Context, ownerID string, placeID *uuid.UUID, since *time.Time) ([]domain.Visit, error) {
	if m.listByOwner != nil {
		return m.listByOwner(ctx, ownerID, placeID, since)
	}
	return nil, nil
}

func (m *mockVisitRepo) ListByPlace(ctx context.Context, placeID uuid.UUID, limit int) ([]domain.Visit, error) {
	if m.listByPlace != nil {
		return m.listByPlace(ctx, placeID, limit)
	}
	return nil, nil
}

// compile-time check: mockVisitRepo must satisfy repo.VisitRepo.
var _ repo.VisitRepo = (*mockVisitRepo)(nil)

// mockFixRepo is a hand-written test double for repo.FixRepo.
type mockFixRepo struct {
	createBatch     func(ctx context.Context, fixes []domain.Fix) (int, error)
	stationarySince func(ctx context.Context, ownerID string, since time.Time, speedBelow float64) ([]domain.Fix, error)
	latest          func(ctx context.Context, ownerID string) (domain.Fix, error)
	deleteOlderThan func(ctx context.Context, ownerID string, cutoff time.Time) (int64, error)
}

func (m *mockFixRepo) CreateBatch(ctx context.Context, fixes []domain.Fix) (int, error) {
	if m.createBatch != nil {
		return m.createBatch(ctx, fixes)
	}
	return len(fixes), nil
}

func (m *mockFixRepo) StationarySince(ctx context.Context, ownerID string, since time.Time, speedBelow float64) ([]domain.Fix, error) {
	if m.stationarySince != nil {
		return m.stationarySince(ctx, ownerID, since, speedBelow)
	}
	return nil, nil
}

func (m *mockFixRepo) Latest(ctx context.Context, ownerID string) (domain.Fix, error) {
	if m.latest != nil {
		return m.latest(ctx, ownerID)
	}
	return domain.Fix{}, domain.ErrNotFound
}

func (m *mockFixRepo) DeleteOlderThan(ctx context.Context, ownerID string, cutoff time.Time) (int64, error) {
	if m.deleteOlderThan != nil {
		return m.deleteOlderThan(ctx, ownerID, cutoff)
	}
	return 0, nil
}

// compile-time check: mockFixRepo must satisfy repo.FixRepo.
var _ repo.FixRepo = (*mockFixRepo)(nil)

// mockEventSink records every published event in order.
type mockEventSink struct {
	events []domain.PlaceEvent
}

func (m *mockEventSink) Publish(_ context.Context, ev domain.PlaceEvent) {
	m.events = append(m.events, ev)
}

var _ service.EventSink = (*mockEventSink)(nil)

// ---- shared fixtures -------------------------------------------------------

const testOwner = "owner-1"

// placeFixture returns a saved place centered at (40.0, -73.0) with a 100m
// radius, ready for geofence tests.
func placeFixture(id uuid.UUID) domain.Place {
	return domain.Place{
		ID:           id,
		OwnerID:      testOwner,
		Name:         "Test Place",
		Latitude:     40.0,
		Longitude:    -73.0,
		RadiusMeters: 100,
		Category:     domain.CategoryOther,
	}
}
