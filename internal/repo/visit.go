package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/zekeapp/placetrack/internal/domain"
)

// VisitRepo defines the persistence operations for Visits.
type VisitRepo interface {
	// Create inserts a new open visit and returns the persisted record.
	Create(ctx context.Context, visit domain.Visit) (domain.Visit, error)

	// Open returns the owner's open visits (exited_at IS NULL), most recent
	// first. The at-most-one-open invariant means the slice normally has zero
	// or one element; more than one indicates a past invariant breach the
	// caller should repair.
	Open(ctx context.Context, ownerID string) ([]domain.Visit, error)

	// OpenForPlace returns the owner's open visit at the given place.
	// Returns domain.ErrNotFound if there is none.
	OpenForPlace(ctx context.Context, ownerID string, placeID uuid.UUID) (domain.Visit, error)

	// Close sets exited_at and dwell_minutes on a visit and returns the
	// updated record. Returns domain.ErrNotFound for an unknown or already
	// closed visit.
	Close(ctx context.Context, id uuid.UUID, exitedAt time.Time, dwellMinutes int) (domain.Visit, error)

	// ListByOwner returns the owner's visits, newest first. placeID and since
	// are optional filters; nil means no restriction.
	ListByOwner(ctx context.Context, ownerID string, placeID *uuid.UUID, since *time.Time) ([]domain.Visit, error)

	// ListByPlace returns up to limit visits at a place, newest first.
	// limit <= 0 means no limit.
	ListByPlace(ctx context.Context, placeID uuid.UUID, limit int) ([]domain.Visit, error)
}

// pgVisitRepo is the Postgres implementation of VisitRepo.
type pgVisitRepo struct {
	db db
}

// NewVisitRepo constructs a VisitRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewVisitRepo(db db) VisitRepo {
	return &pgVisitRepo{db: db}
}

const visitColumns = `id, owner_id, place_id, entered_at, exited_at, dwell_minutes,
		day_of_week, is_routine, created_at`

func (r *pgVisitRepo) Create(ctx context.Context, visit domain.Visit) (domain.Visit, error) {
	const q = `
		INSERT INTO visits (owner_id, place_id, entered_at, day_of_week, is_routine)
		VALUES (@owner_id, @place_id, @entered_at, @day_of_week, @is_routine)
		RETURNING ` + visitColumns

	args := pgx.NamedArgs{
		"owner_id":    visit.OwnerID,
		"place_id":    visit.PlaceID,
		"entered_at":  visit.EnteredAt,
		"day_of_week": visit.DayOfWeek,
		"is_routine":  visit.IsRoutine,
	}

	result, err := scanVisit(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Visit{}, fmt.Errorf("repo.VisitRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgVisitRepo) Open(ctx context.Context, ownerID string) ([]domain.Visit, error) {
	const q = `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE owner_id = @owner_id AND exited_at IS NULL
		ORDER BY entered_at DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.Open: %w", err)
	}
	defer rows.Close()

	visits, err := collectVisits(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.Open: %w", err)
	}
	return visits, nil
}

func (r *pgVisitRepo) OpenForPlace(ctx context.Context, ownerID string, placeID uuid.UUID) (domain.Visit, error) {
	const q = `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE owner_id = @owner_id AND place_id = @place_id AND exited_at IS NULL
		ORDER BY entered_at DESC
		LIMIT 1`

	args := pgx.NamedArgs{"owner_id": ownerID, "place_id": placeID}
	result, err := scanVisit(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Visit{}, fmt.Errorf("repo.VisitRepo.OpenForPlace: %w", err)
	}
	return result, nil
}

func (r *pgVisitRepo) Close(ctx context.Context, id uuid.UUID, exitedAt time.Time, dwellMinutes int) (domain.Visit, error) {
	const q = `
		UPDATE visits
		SET exited_at = @exited_at, dwell_minutes = @dwell_minutes
		WHERE id = @id AND exited_at IS NULL
		RETURNING ` + visitColumns

	args := pgx.NamedArgs{"id": id, "exited_at": exitedAt, "dwell_minutes": dwellMinutes}
	result, err := scanVisit(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Visit{}, fmt.Errorf("repo.VisitRepo.Close: %w", err)
	}
	return result, nil
}

func (r *pgVisitRepo) ListByOwner(ctx context.Context, ownerID string, placeID *uuid.UUID, since *time.Time) ([]domain.Visit, error) {
	q := `SELECT ` + visitColumns + ` FROM visits WHERE owner_id = @owner_id`
	args := pgx.NamedArgs{"owner_id": ownerID}
	if placeID != nil {
		q += ` AND place_id = @place_id`
		args["place_id"] = *placeID
	}
	if since != nil {
		q += ` AND entered_at >= @since`
		args["since"] = *since
	}
	q += ` ORDER BY entered_at DESC`

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListByOwner: %w", err)
	}
	defer rows.Close()

	visits, err := collectVisits(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListByOwner: %w", err)
	}
	return visits, nil
}

func (r *pgVisitRepo) ListByPlace(ctx context.Context, placeID uuid.UUID, limit int) ([]domain.Visit, error) {
	q := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE place_id = @place_id
		ORDER BY entered_at DESC`
	args := pgx.NamedArgs{"place_id": placeID}
	if limit > 0 {
		q += ` LIMIT @limit`
		args["limit"] = limit
	}

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListByPlace: %w", err)
	}
	defer rows.Close()

	visits, err := collectVisits(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListByPlace: %w", err)
	}
	return visits, nil
}

// collectVisits drains rows into a slice. The caller closes rows.
func collectVisits(rows pgx.Rows) ([]domain.Visit, error) {
	var visits []domain.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return visits, nil
}

// scanVisit maps a single database row into a domain.Visit.
func scanVisit(s scanner) (domain.Visit, error) {
	var (
		v            domain.Visit
		id           pgtype.UUID
		placeID      pgtype.UUID
		exitedAt     pgtype.Timestamptz
		dwellMinutes pgtype.Int4
	)

	err := s.Scan(&id, &v.OwnerID, &placeID, &v.EnteredAt, &exitedAt,
		&dwellMinutes, &v.DayOfWeek, &v.IsRoutine, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Visit{}, domain.ErrNotFound
		}
		return domain.Visit{}, err
	}

	v.ID = uuid.UUID(id.Bytes)
	v.PlaceID = uuid.UUID(placeID.Bytes)
	if exitedAt.Valid {
		t := exitedAt.Time
		v.ExitedAt = &t
	}
	if dwellMinutes.Valid {
		m := int(dwellMinutes.Int32)
		v.DwellMinutes = &m
	}
	return v, nil
}
