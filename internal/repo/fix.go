package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/zekeapp/placetrack/internal/domain"
)

// FixRepo defines the persistence operations for raw location fixes.
// Fixes are append-only; there is no update path.
type FixRepo interface {
	// CreateBatch inserts a batch of fixes and returns how many were stored.
	CreateBatch(ctx context.Context, fixes []domain.Fix) (int, error)

	// StationarySince returns the owner's fixes recorded at or after since
	// with reported speed strictly below speedBelow, in chronological order.
	// Unknown speed is stored as -1 and so always passes the filter: a device
	// that never reports speed still feeds discovery.
	// This is the discovery input: speed filtering happens in SQL so the
	// segmenter never sees moving fixes.
	StationarySince(ctx context.Context, ownerID string, since time.Time, speedBelow float64) ([]domain.Fix, error)

	// Latest returns the owner's most recent fix.
	// Returns domain.ErrNotFound when the owner has no fixes at all.
	Latest(ctx context.Context, ownerID string) (domain.Fix, error)

	// DeleteOlderThan removes fixes recorded before cutoff and returns the
	// number of rows removed.
	DeleteOlderThan(ctx context.Context, ownerID string, cutoff time.Time) (int64, error)
}

// pgFixRepo is the Postgres implementation of FixRepo.
type pgFixRepo struct {
	db db
}

// NewFixRepo constructs a FixRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewFixRepo(db db) FixRepo {
	return &pgFixRepo{db: db}
}

// CreateBatch inserts all fixes in one round trip using pgx's Batch API.
func (r *pgFixRepo) CreateBatch(ctx context.Context, fixes []domain.Fix) (int, error) {
	if len(fixes) == 0 {
		return 0, nil
	}

	const q = `
		INSERT INTO fixes (owner_id, latitude, longitude, recorded_at, speed_mps)
		VALUES (@owner_id, @latitude, @longitude, @recorded_at, @speed_mps)`

	batch := &pgx.Batch{}
	for _, f := range fixes {
		batch.Queue(q, pgx.NamedArgs{
			"owner_id":    f.OwnerID,
			"latitude":    f.Latitude,
			"longitude":   f.Longitude,
			"recorded_at": f.RecordedAt,
			"speed_mps":   f.SpeedMPS,
		})
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	stored := 0
	for range fixes {
		if _, err := results.Exec(); err != nil {
			return stored, fmt.Errorf("repo.FixRepo.CreateBatch: %w", err)
		}
		stored++
	}
	return stored, nil
}

func (r *pgFixRepo) StationarySince(ctx context.Context, ownerID string, since time.Time, speedBelow float64) ([]domain.Fix, error) {
	const q = `
		SELECT owner_id, latitude, longitude, recorded_at, speed_mps
		FROM fixes
		WHERE owner_id = @owner_id
		  AND recorded_at >= @since
		  AND speed_mps < @speed_below
		ORDER BY recorded_at ASC`

	args := pgx.NamedArgs{"owner_id": ownerID, "since": since, "speed_below": speedBelow}
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.FixRepo.StationarySince: %w", err)
	}
	defer rows.Close()

	var fixes []domain.Fix
	for rows.Next() {
		var f domain.Fix
		if err := rows.Scan(&f.OwnerID, &f.Latitude, &f.Longitude, &f.RecordedAt, &f.SpeedMPS); err != nil {
			return nil, fmt.Errorf("repo.FixRepo.StationarySince: scan: %w", err)
		}
		fixes = append(fixes, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.FixRepo.StationarySince: rows: %w", err)
	}

	return fixes, nil
}

func (r *pgFixRepo) Latest(ctx context.Context, ownerID string) (domain.Fix, error) {
	const q = `
		SELECT owner_id, latitude, longitude, recorded_at, speed_mps
		FROM fixes
		WHERE owner_id = @owner_id
		ORDER BY recorded_at DESC
		LIMIT 1`

	var f domain.Fix
	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"owner_id": ownerID})
	if err := row.Scan(&f.OwnerID, &f.Latitude, &f.Longitude, &f.RecordedAt, &f.SpeedMPS); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Fix{}, fmt.Errorf("repo.FixRepo.Latest: %w", domain.ErrNotFound)
		}
		return domain.Fix{}, fmt.Errorf("repo.FixRepo.Latest: %w", err)
	}
	return f, nil
}

func (r *pgFixRepo) DeleteOlderThan(ctx context.Context, ownerID string, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM fixes WHERE owner_id = @owner_id AND recorded_at < @cutoff`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"owner_id": ownerID, "cutoff": cutoff})
	if err != nil {
		return 0, fmt.Errorf("repo.FixRepo.DeleteOlderThan: %w", err)
	}
	return tag.RowsAffected(), nil
}
