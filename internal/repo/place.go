// Package repo contains all database access logic for the Placetrack API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/zekeapp/placetrack/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PlaceRepo defines the persistence operations for Places.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the services to be unit-tested with mocks.
type PlaceRepo interface {
	// Create inserts a new place and returns the persisted record (with
	// DB-generated id, created_at, and updated_at populated).
	Create(ctx context.Context, place domain.Place) (domain.Place, error)

	// GetByID retrieves a single place by its UUID primary key.
	// Returns domain.ErrNotFound if no place with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error)

	// ListByOwner returns all of an owner's places ordered by visit_count
	// descending. A non-nil category restricts the result to that category.
	ListByOwner(ctx context.Context, ownerID string, category *domain.PlaceCategory) ([]domain.Place, error)

	// Update applies the non-nil fields of the patch and returns the updated
	// snapshot. Returns domain.ErrNotFound if no place with that ID exists.
	Update(ctx context.Context, id uuid.UUID, patch domain.PlacePatch) (domain.Place, error)

	// Delete removes a place by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// RecordArrival bumps visit_count, sets last_visited, and sets
	// first_visited if it was never set. Returns the updated snapshot.
	RecordArrival(ctx context.Context, id uuid.UUID, at time.Time) (domain.Place, error)

	// AddDwell adds completed dwell minutes to the place's running total.
	AddDwell(ctx context.Context, id uuid.UUID, minutes int) error
}

// pgPlaceRepo is the Postgres implementation of PlaceRepo.
type pgPlaceRepo struct {
	db db
}

// NewPlaceRepo constructs a PlaceRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPlaceRepo(db db) PlaceRepo {
	return &pgPlaceRepo{db: db}
}

const placeColumns = `id, owner_id, name, latitude, longitude, radius_meters, category,
		address, is_auto_detected, is_confirmed, visit_count, total_dwell_minutes,
		first_visited, last_visited, created_at, updated_at`

// Create inserts a new place row and returns the full persisted record.
func (r *pgPlaceRepo) Create(ctx context.Context, place domain.Place) (domain.Place, error) {
	const q = `
		INSERT INTO places (owner_id, name, latitude, longitude, radius_meters,
		                    category, address, is_auto_detected, is_confirmed)
		VALUES (@owner_id, @name, @latitude, @longitude, @radius_meters,
		        @category, @address, @is_auto_detected, @is_confirmed)
		RETURNING ` + placeColumns

	args := pgx.NamedArgs{
		"owner_id":         place.OwnerID,
		"name":             place.Name,
		"latitude":         place.Latitude,
		"longitude":        place.Longitude,
		"radius_meters":    place.RadiusMeters,
		"category":         string(place.Category),
		"address":          place.Address,
		"is_auto_detected": place.AutoDetected,
		"is_confirmed":     place.Confirmed,
	}

	result, err := scanPlace(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a place by primary key.
func (r *pgPlaceRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error) {
	const q = `SELECT ` + placeColumns + ` FROM places WHERE id = @id`

	result, err := scanPlace(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.GetByID: %w", err)
	}
	return result, nil
}

// ListByOwner returns an owner's places, most-visited first. The secondary
// created_at ordering keeps the iteration order stable for entry scanning.
func (r *pgPlaceRepo) ListByOwner(ctx context.Context, ownerID string, category *domain.PlaceCategory) ([]domain.Place, error) {
	q := `SELECT ` + placeColumns + ` FROM places WHERE owner_id = @owner_id`
	args := pgx.NamedArgs{"owner_id": ownerID}
	if category != nil {
		q += ` AND category = @category`
		args["category"] = string(*category)
	}
	q += ` ORDER BY visit_count DESC, created_at ASC`

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.PlaceRepo.ListByOwner: %w", err)
	}
	defer rows.Close()

	var places []domain.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.PlaceRepo.ListByOwner: scan: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.PlaceRepo.ListByOwner: rows: %w", err)
	}

	return places, nil
}

// Update applies the non-nil patch fields via COALESCE and returns the
// updated snapshot.
func (r *pgPlaceRepo) Update(ctx context.Context, id uuid.UUID, patch domain.PlacePatch) (domain.Place, error) {
	const q = `
		UPDATE places
		SET name          = COALESCE(@name, name),
		    latitude      = COALESCE(@latitude, latitude),
		    longitude     = COALESCE(@longitude, longitude),
		    radius_meters = COALESCE(@radius_meters, radius_meters),
		    category      = COALESCE(@category, category),
		    address       = COALESCE(@address, address),
		    is_confirmed  = COALESCE(@is_confirmed, is_confirmed),
		    updated_at    = now()
		WHERE id = @id
		RETURNING ` + placeColumns

	var category *string
	if patch.Category != nil {
		c := string(*patch.Category)
		category = &c
	}

	args := pgx.NamedArgs{
		"id":            id,
		"name":          patch.Name,
		"latitude":      patch.Latitude,
		"longitude":     patch.Longitude,
		"radius_meters": patch.RadiusMeters,
		"category":      category,
		"address":       patch.Address,
		"is_confirmed":  patch.Confirmed,
	}

	result, err := scanPlace(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.Update: %w", err)
	}
	return result, nil
}

// Delete removes a place by primary key. Visits cascade in the schema.
func (r *pgPlaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM places WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PlaceRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// RecordArrival is the explicit update behind "a visit just started here".
func (r *pgPlaceRepo) RecordArrival(ctx context.Context, id uuid.UUID, at time.Time) (domain.Place, error) {
	const q = `
		UPDATE places
		SET visit_count   = visit_count + 1,
		    last_visited  = @at,
		    first_visited = COALESCE(first_visited, @at),
		    updated_at    = now()
		WHERE id = @id
		RETURNING ` + placeColumns

	result, err := scanPlace(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "at": at}))
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.RecordArrival: %w", err)
	}
	return result, nil
}

// AddDwell accumulates completed dwell minutes onto the place.
func (r *pgPlaceRepo) AddDwell(ctx context.Context, id uuid.UUID, minutes int) error {
	const q = `
		UPDATE places
		SET total_dwell_minutes = total_dwell_minutes + @minutes,
		    updated_at          = now()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "minutes": minutes})
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.AddDwell: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PlaceRepo.AddDwell: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scan helpers to
// be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanPlace maps a single database row into a domain.Place.
// It handles the UUID, nullable address, and nullable timestamp conversions.
func scanPlace(s scanner) (domain.Place, error) {
	var (
		p            domain.Place
		id           pgtype.UUID
		category     string
		address      pgtype.Text
		firstVisited pgtype.Timestamptz
		lastVisited  pgtype.Timestamptz
	)

	err := s.Scan(&id, &p.OwnerID, &p.Name, &p.Latitude, &p.Longitude,
		&p.RadiusMeters, &category, &address, &p.AutoDetected, &p.Confirmed,
		&p.VisitCount, &p.TotalDwellMinutes, &firstVisited, &lastVisited,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Place{}, domain.ErrNotFound
		}
		return domain.Place{}, err
	}

	p.ID = uuid.UUID(id.Bytes)
	p.Category = domain.PlaceCategory(category)
	if address.Valid {
		p.Address = address.String
	}
	if firstVisited.Valid {
		t := firstVisited.Time
		p.FirstVisited = &t
	}
	if lastVisited.Valid {
		t := lastVisited.Time
		p.LastVisited = &t
	}
	return p, nil
}
