package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/lab-inventory/internal/persistence"
)

// StatsRepository implements persistence.StatsRepository using SQLite
type StatsRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewStatsRepository creates a new SQLite stats repository
func NewStatsRepository(pool *ConnectionPool) *StatsRepository {
	return &StatsRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// InventoryStats counts rows in one transaction so the figures agree with each other.
func (r *StatsRepository) InventoryStats(ctx context.Context, asOf time.Time) (persistence.InventoryStats, error) {
	stats := persistence.InventoryStats{EquipmentByStatus: make(map[string]int64)}

	query := `
		SELECT
			(SELECT COUNT(*) FROM equipment),
			(SELECT COUNT(*) FROM locations),
			(SELECT COUNT(*) FROM reservations),
			(SELECT COUNT(*) FROM reservations WHERE status = ? AND end_date >= ?)
	`

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.helper.QueryRowTx(ctx, tx, query, persistence.ReservationStatusConfirmed, formatDate(asOf)).Scan(
			&stats.Equipment,
			&stats.Locations,
			&stats.Reservations,
			&stats.ActiveReservations,
		); err != nil {
			return err
		}

		rows, err := r.helper.QueryTx(ctx, tx, "SELECT status, COUNT(*) FROM equipment GROUP BY status")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				status string
				count  int64
			)
			if err := rows.Scan(&status, &count); err != nil {
				return err
			}
			stats.EquipmentByStatus[status] = count
		}
		return rows.Err()
	})
	if err != nil {
		return persistence.InventoryStats{}, r.mapper.MapError(err)
	}
	return stats, nil
}
