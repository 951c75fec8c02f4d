package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/lab-inventory/internal/persistence"
)

// LocationRepository implements persistence.LocationRepository using SQLite
type LocationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewLocationRepository creates a new SQLite location repository
func NewLocationRepository(pool *ConnectionPool) *LocationRepository {
	return &LocationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateLocation inserts a location and returns its ID
func (r *LocationRepository) CreateLocation(ctx context.Context, location persistence.Location) (int64, error) {
	if location.CreatedAt.IsZero() {
		location.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO locations (building, room, cabinet, shelf, bin, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var id int64
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			nullString(location.Building),
			nullString(location.Room),
			nullString(location.Cabinet),
			nullString(location.Shelf),
			nullString(location.Bin),
			formatTimestamp(location.CreatedAt),
		)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetLocation retrieves a location by ID
func (r *LocationRepository) GetLocation(ctx context.Context, id int64) (persistence.Location, error) {
	if id <= 0 {
		return persistence.Location{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, building, room, cabinet, shelf, bin, created_at
		FROM locations
		WHERE id = ?
	`

	location, err := scanLocation(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Location{}, persistence.ErrNotFound
		}
		return persistence.Location{}, r.mapper.MapError(err)
	}
	return location, nil
}

// ListLocations returns all locations ordered by building, room, cabinet, shelf
func (r *LocationRepository) ListLocations(ctx context.Context) ([]persistence.Location, error) {
	query := `
		SELECT id, building, room, cabinet, shelf, bin, created_at
		FROM locations
		ORDER BY building ASC, room ASC, cabinet ASC, shelf ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	locations := make([]persistence.Location, 0)
	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		locations = append(locations, location)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return locations, nil
}

// DeleteLocation removes a location. Equipment stored there keeps existing with
// its location cleared by the ON DELETE SET NULL rule.
func (r *LocationRepository) DeleteLocation(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, "DELETE FROM locations WHERE id = ?", id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

func scanLocation(row rowScanner) (persistence.Location, error) {
	var (
		location                            persistence.Location
		building, room, cabinet, shelf, bin sql.NullString
		createdAt                           string
	)

	if err := row.Scan(&location.ID, &building, &room, &cabinet, &shelf, &bin, &createdAt); err != nil {
		return persistence.Location{}, err
	}

	location.Building = stringPtr(building)
	location.Room = stringPtr(room)
	location.Cabinet = stringPtr(cabinet)
	location.Shelf = stringPtr(shelf)
	location.Bin = stringPtr(bin)

	var err error
	if location.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Location{}, err
	}
	return location, nil
}
