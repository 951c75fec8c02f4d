package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/example/lab-inventory/internal/persistence"
)

const equipmentViewColumns = `
	e.id, e.name, e.model, e.manufacturer, e.serial_number, e.asset_tag, e.category,
	e.status, e.location_id, e.calibration_date, e.next_calibration, e.cost, e.notes,
	e.created_at, e.updated_at,
	l.id, l.building, l.room, l.cabinet, l.shelf, l.bin, l.created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EquipmentRepository implements persistence.EquipmentRepository using SQLite
type EquipmentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewEquipmentRepository creates a new SQLite equipment repository
func NewEquipmentRepository(pool *ConnectionPool) *EquipmentRepository {
	return &EquipmentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateEquipment inserts a new equipment row and returns its ID
func (r *EquipmentRepository) CreateEquipment(ctx context.Context, equipment persistence.Equipment) (int64, error) {
	if strings.TrimSpace(equipment.Name) == "" {
		return 0, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if equipment.CreatedAt.IsZero() {
		equipment.CreatedAt = now
	}
	if equipment.UpdatedAt.IsZero() {
		equipment.UpdatedAt = equipment.CreatedAt
	}

	query := `
		INSERT INTO equipment (
			name, model, manufacturer, serial_number, asset_tag, category, status,
			location_id, calibration_date, next_calibration, cost, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var id int64
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			equipment.Name,
			nullString(equipment.Model),
			nullString(equipment.Manufacturer),
			nullString(equipment.SerialNumber),
			nullString(equipment.AssetTag),
			nullString(equipment.Category),
			equipment.Status,
			nullInt64(equipment.LocationID),
			nullString(equipment.CalibrationDate),
			nullString(equipment.NextCalibration),
			nullFloat64(equipment.Cost),
			nullString(equipment.Notes),
			formatTimestamp(equipment.CreatedAt),
			formatTimestamp(equipment.UpdatedAt),
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

// UpdateEquipment overwrites every mutable column of an existing equipment row
func (r *EquipmentRepository) UpdateEquipment(ctx context.Context, equipment persistence.Equipment) error {
	if equipment.ID <= 0 {
		return persistence.ErrNotFound
	}
	if strings.TrimSpace(equipment.Name) == "" {
		return persistence.ErrConstraintViolation
	}
	if equipment.UpdatedAt.IsZero() {
		equipment.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE equipment
		SET name = ?, model = ?, manufacturer = ?, serial_number = ?, asset_tag = ?,
			category = ?, status = ?, location_id = ?, calibration_date = ?,
			next_calibration = ?, cost = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			equipment.Name,
			nullString(equipment.Model),
			nullString(equipment.Manufacturer),
			nullString(equipment.SerialNumber),
			nullString(equipment.AssetTag),
			nullString(equipment.Category),
			equipment.Status,
			nullInt64(equipment.LocationID),
			nullString(equipment.CalibrationDate),
			nullString(equipment.NextCalibration),
			nullFloat64(equipment.Cost),
			nullString(equipment.Notes),
			formatTimestamp(equipment.UpdatedAt),
			equipment.ID,
		)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

// GetEquipment retrieves an equipment row joined with its location
func (r *EquipmentRepository) GetEquipment(ctx context.Context, id int64) (persistence.EquipmentView, error) {
	if id <= 0 {
		return persistence.EquipmentView{}, persistence.ErrNotFound
	}

	query := `SELECT` + equipmentViewColumns + `
		FROM equipment e
		LEFT JOIN locations l ON e.location_id = l.id
		WHERE e.id = ?
	`

	view, err := scanEquipmentView(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.EquipmentView{}, persistence.ErrNotFound
		}
		return persistence.EquipmentView{}, r.mapper.MapError(err)
	}
	return view, nil
}

// ListEquipment returns equipment matching the filter ordered by name then ID
func (r *EquipmentRepository) ListEquipment(ctx context.Context, filter persistence.EquipmentFilter) ([]persistence.EquipmentView, error) {
	var (
		conditions []string
		args       []any
	)
	if search := strings.TrimSpace(filter.Search); search != "" {
		term := "%" + likeEscaper.Replace(search) + "%"
		conditions = append(conditions, `(e.name LIKE ? ESCAPE '\' OR e.model LIKE ? ESCAPE '\' OR e.serial_number LIKE ? ESCAPE '\' OR e.manufacturer LIKE ? ESCAPE '\')`)
		args = append(args, term, term, term, term)
	}
	if filter.Category != "" {
		conditions = append(conditions, "e.category = ?")
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		conditions = append(conditions, "e.status = ?")
		args = append(args, filter.Status)
	}
	if filter.LocationID != nil {
		conditions = append(conditions, "e.location_id = ?")
		args = append(args, *filter.LocationID)
	}

	query := `SELECT` + equipmentViewColumns + `
		FROM equipment e
		LEFT JOIN locations l ON e.location_id = l.id`
	if len(conditions) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\n\t\tORDER BY e.name ASC, e.id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	views := make([]persistence.EquipmentView, 0)
	for rows.Next() {
		view, err := scanEquipmentView(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return views, nil
}

// DeleteEquipment removes an equipment row. Rows still referenced by reservations
// are rejected with persistence.ErrForeignKeyViolation.
func (r *EquipmentRepository) DeleteEquipment(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, "DELETE FROM equipment WHERE id = ?", id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

func scanEquipmentView(row rowScanner) (persistence.EquipmentView, error) {
	var (
		view                                persistence.EquipmentView
		model, manufacturer, serialNumber   sql.NullString
		assetTag, category, notes           sql.NullString
		calibrationDate, nextCalibration    sql.NullString
		locationID, joinedLocationID        sql.NullInt64
		cost                                sql.NullFloat64
		building, room, cabinet, shelf, bin sql.NullString
		locationCreatedAt                   sql.NullString
		createdAt, updatedAt                string
	)

	err := row.Scan(
		&view.ID,
		&view.Name,
		&model,
		&manufacturer,
		&serialNumber,
		&assetTag,
		&category,
		&view.Status,
		&locationID,
		&calibrationDate,
		&nextCalibration,
		&cost,
		&notes,
		&createdAt,
		&updatedAt,
		&joinedLocationID,
		&building,
		&room,
		&cabinet,
		&shelf,
		&bin,
		&locationCreatedAt,
	)
	if err != nil {
		return persistence.EquipmentView{}, err
	}

	view.Model = stringPtr(model)
	view.Manufacturer = stringPtr(manufacturer)
	view.SerialNumber = stringPtr(serialNumber)
	view.AssetTag = stringPtr(assetTag)
	view.Category = stringPtr(category)
	view.Notes = stringPtr(notes)
	view.CalibrationDate = stringPtr(calibrationDate)
	view.NextCalibration = stringPtr(nextCalibration)
	view.LocationID = int64Ptr(locationID)
	view.Cost = float64Ptr(cost)

	if view.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.EquipmentView{}, err
	}
	if view.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.EquipmentView{}, err
	}

	if joinedLocationID.Valid {
		location := &persistence.Location{
			ID:       joinedLocationID.Int64,
			Building: stringPtr(building),
			Room:     stringPtr(room),
			Cabinet:  stringPtr(cabinet),
			Shelf:    stringPtr(shelf),
			Bin:      stringPtr(bin),
		}
		if locationCreatedAt.Valid {
			if location.CreatedAt, err = parseTimestamp("location created_at", locationCreatedAt.String); err != nil {
				return persistence.EquipmentView{}, err
			}
		}
		view.Location = location
	}

	return view, nil
}
