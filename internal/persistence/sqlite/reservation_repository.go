package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/lab-inventory/internal/persistence"
)

const reservationViewColumns = `
	r.id, r.equipment_id, r.user_name, r.user_email, r.start_date, r.end_date,
	r.start_time, r.end_time, r.purpose, r.notes, r.status, r.created_at,
	e.name, e.model`

// ReservationRepository implements persistence.ReservationRepository using SQLite
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateReservation inserts a reservation and returns its assigned ID. Active
// reservations overlapping another active booking are rejected with
// *persistence.OverlapError.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) (int64, error) {
	if reservation.EquipmentID <= 0 || strings.TrimSpace(reservation.UserName) == "" {
		return 0, persistence.ErrConstraintViolation
	}
	if reservation.Status == "" {
		reservation.Status = persistence.ReservationStatusConfirmed
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO reservations (
			equipment_id, user_name, user_email, start_date, end_date,
			start_time, end_time, purpose, notes, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var id int64
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := r.checkOverlapTx(ctx, tx, reservation); err != nil {
				return err
			}
			result, err := r.helper.ExecTx(ctx, tx, query,
				reservation.EquipmentID,
				reservation.UserName,
				nullString(reservation.UserEmail),
				formatDate(reservation.StartDate),
				formatDate(reservation.EndDate),
				nullString(reservation.StartTime),
				nullString(reservation.EndTime),
				nullString(reservation.Purpose),
				nullString(reservation.Notes),
				reservation.Status,
				formatTimestamp(reservation.CreatedAt),
			)
			if err != nil {
				return err
			}
			id, err = result.LastInsertId()
			return err
		})
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// UpdateReservation overwrites every mutable column of an existing reservation.
// The existence and overlap checks run in the same transaction as the write.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID <= 0 {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE reservations
		SET equipment_id = ?, user_name = ?, user_email = ?, start_date = ?, end_date = ?,
			start_time = ?, end_time = ?, purpose = ?, notes = ?, status = ?
		WHERE id = ?
	`

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var exists int
			if err := r.helper.QueryRowTx(ctx, tx, "SELECT 1 FROM reservations WHERE id = ?", reservation.ID).Scan(&exists); err != nil {
				return err
			}
			if err := r.checkOverlapTx(ctx, tx, reservation); err != nil {
				return err
			}
			result, err := r.helper.ExecTx(ctx, tx, query,
				reservation.EquipmentID,
				reservation.UserName,
				nullString(reservation.UserEmail),
				formatDate(reservation.StartDate),
				formatDate(reservation.EndDate),
				nullString(reservation.StartTime),
				nullString(reservation.EndTime),
				nullString(reservation.Purpose),
				nullString(reservation.Notes),
				reservation.Status,
				reservation.ID,
			)
			if err != nil {
				return err
			}
			return requireAffected(result)
		})
	})
}

// checkOverlapTx rejects an active reservation that shares a day with another
// active reservation of the same equipment. Inverted ranges are left to the CHECK
// constraint.
func (r *ReservationRepository) checkOverlapTx(ctx context.Context, tx *sql.Tx, reservation persistence.Reservation) error {
	if reservation.Status == persistence.ReservationStatusCancelled || reservation.EndDate.Before(reservation.StartDate) {
		return nil
	}

	query := `
		SELECT id FROM reservations
		WHERE equipment_id = ? AND status != ? AND id != ?
			AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC
	`

	rows, err := r.helper.QueryTx(ctx, tx, query,
		reservation.EquipmentID,
		persistence.ReservationStatusCancelled,
		reservation.ID,
		formatDate(reservation.EndDate),
		formatDate(reservation.StartDate),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(ids) > 0 {
		return &persistence.OverlapError{EquipmentID: reservation.EquipmentID, ConflictingIDs: ids}
	}
	return nil
}

// GetReservation retrieves a reservation joined with its equipment name and model
func (r *ReservationRepository) GetReservation(ctx context.Context, id int64) (persistence.ReservationView, error) {
	if id <= 0 {
		return persistence.ReservationView{}, persistence.ErrNotFound
	}

	query := `SELECT` + reservationViewColumns + `
		FROM reservations r
		LEFT JOIN equipment e ON r.equipment_id = e.id
		WHERE r.id = ?
	`

	view, err := scanReservationView(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ReservationView{}, persistence.ErrNotFound
		}
		return persistence.ReservationView{}, r.mapper.MapError(err)
	}
	return view, nil
}

// ListReservations returns reservations matching the filter ordered by start date,
// start time and ID
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.ReservationView, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.EquipmentID != nil {
		conditions = append(conditions, "r.equipment_id = ?")
		args = append(args, *filter.EquipmentID)
	}
	if filter.EndsOnOrAfter != nil {
		conditions = append(conditions, "r.end_date >= ?")
		args = append(args, formatDate(*filter.EndsOnOrAfter))
	}
	if filter.StartsOnOrBefore != nil {
		conditions = append(conditions, "r.start_date <= ?")
		args = append(args, formatDate(*filter.StartsOnOrBefore))
	}

	query := `SELECT` + reservationViewColumns + `
		FROM reservations r
		LEFT JOIN equipment e ON r.equipment_id = e.id`
	if len(conditions) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conditions, " AND ")
	}
	// NULL start times sort first, matching how an all-day booking reads on a calendar.
	query += "\n\t\tORDER BY r.start_date ASC, r.start_time ASC, r.id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	views := make([]persistence.ReservationView, 0)
	for rows.Next() {
		view, err := scanReservationView(rows)
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

// ListActiveReservations returns the non-cancelled reservations of one equipment
func (r *ReservationRepository) ListActiveReservations(ctx context.Context, equipmentID int64) ([]persistence.Reservation, error) {
	query := `SELECT` + reservationViewColumns + `
		FROM reservations r
		LEFT JOIN equipment e ON r.equipment_id = e.id
		WHERE r.equipment_id = ? AND r.status != ?
		ORDER BY r.start_date ASC, r.id ASC
	`

	rows, err := r.helper.Query(ctx, query, equipmentID, persistence.ReservationStatusCancelled)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		view, err := scanReservationView(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		reservations = append(reservations, view.Reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return reservations, nil
}

// DeleteReservation hard-deletes a reservation by ID
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, "DELETE FROM reservations WHERE id = ?", id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

func scanReservationView(row rowScanner) (persistence.ReservationView, error) {
	var (
		view                              persistence.ReservationView
		userEmail, startTime, endTime     sql.NullString
		purpose, notes                    sql.NullString
		equipmentName, equipmentModel     sql.NullString
		startDate, endDate, createdAtText string
	)

	err := row.Scan(
		&view.ID,
		&view.EquipmentID,
		&view.UserName,
		&userEmail,
		&startDate,
		&endDate,
		&startTime,
		&endTime,
		&purpose,
		&notes,
		&view.Status,
		&createdAtText,
		&equipmentName,
		&equipmentModel,
	)
	if err != nil {
		return persistence.ReservationView{}, err
	}

	view.UserEmail = stringPtr(userEmail)
	view.StartTime = stringPtr(startTime)
	view.EndTime = stringPtr(endTime)
	view.Purpose = stringPtr(purpose)
	view.Notes = stringPtr(notes)
	view.EquipmentName = stringPtr(equipmentName)
	view.EquipmentModel = stringPtr(equipmentModel)

	if view.StartDate, err = parseDate("start_date", startDate); err != nil {
		return persistence.ReservationView{}, err
	}
	if view.EndDate, err = parseDate("end_date", endDate); err != nil {
		return persistence.ReservationView{}, err
	}
	if view.CreatedAt, err = parseTimestamp("created_at", createdAtText); err != nil {
		return persistence.ReservationView{}, err
	}

	return view, nil
}

// requireAffected turns a write that matched no rows into persistence.ErrNotFound.
func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
