package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StatsRepository computes inventory counts as of a given day.
type StatsRepository interface {
	InventoryStats(ctx context.Context, asOf time.Time) (InventoryStats, error)
}

// StatsService reports inventory totals.
type StatsService struct {
	stats  StatsRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewStatsServiceWithLogger constructs a stats service with a specified logger.
func NewStatsServiceWithLogger(stats StatsRepository, now func() time.Time, logger *slog.Logger) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{stats: stats, now: now, logger: defaultLogger(logger)}
}

// Summary returns counts of equipment, locations and reservations. Reservations
// count as active through their end date in UTC.
func (s *StatsService) Summary(ctx context.Context) (stats InventoryStats, err error) {
	if s == nil {
		err = fmt.Errorf("StatsService is nil")
		return
	}
	if s.stats == nil {
		err = fmt.Errorf("stats repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "StatsService", "Summary")
	defer func() {
		logOutcome(ctx, logger, err, "failed to compute inventory stats", "inventory stats computed",
			"equipment", stats.Equipment, "reservations", stats.Reservations)
	}()

	stats, err = s.stats.InventoryStats(ctx, s.now().UTC())
	if err != nil {
		return InventoryStats{}, err
	}
	if stats.EquipmentByStatus == nil {
		stats.EquipmentByStatus = map[string]int64{}
	}
	return stats, nil
}
