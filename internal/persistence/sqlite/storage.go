package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/lab-inventory/internal/persistence/sqlite/migration"
)

// Storage bundles the SQLite repositories over one connection pool.
type Storage struct {
	*ReservationRepository
	*EquipmentRepository
	*LocationRepository
	*StatsRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database described by config. Call Migrate before use on a
// fresh database.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	return &Storage{
		ReservationRepository: NewReservationRepository(pool),
		EquipmentRepository:   NewEquipmentRepository(pool),
		LocationRepository:    NewLocationRepository(pool),
		StatsRepository:       NewStatsRepository(pool),
		pool:                  pool,
		logger:                logger,
	}, nil
}

// Migrate applies pending schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager, err := migration.NewManager(s.pool.DB(), s.logger)
	if err != nil {
		return fmt.Errorf("sqlite: create migration manager: %w", err)
	}
	return manager.Up(ctx)
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
