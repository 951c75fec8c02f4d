package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/lab-inventory/internal/persistence"
	"github.com/example/lab-inventory/internal/persistence/memory"
	"github.com/example/lab-inventory/internal/persistence/sqlite"
	"github.com/example/lab-inventory/internal/persistence/sqlite/migration"
)

// Harness exposes one storage backend through the repository interfaces.
type Harness struct {
	Reservations persistence.ReservationRepository
	Equipment    persistence.EquipmentRepository
	Locations    persistence.LocationRepository
	Stats        persistence.StatsRepository
	Pinger       persistence.Pinger

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *Harness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a migrated SQLite database in a temporary directory.
// The database is closed when the test finishes.
func NewSQLiteHarness(tb testing.TB) *Harness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "inventory.db")
	storage, err := sqlite.Open(migration.TempFileTestSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &Harness{
		Reservations: storage,
		Equipment:    storage,
		Locations:    storage,
		Stats:        storage,
		Pinger:       storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// NewMemoryHarness returns a harness over a fresh in-memory storage.
func NewMemoryHarness(tb testing.TB) *Harness {
	tb.Helper()

	storage := memory.New()
	return &Harness{
		Reservations: storage,
		Equipment:    storage,
		Locations:    storage,
		Stats:        storage,
		Pinger:       storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}
}

// Backend names a harness constructor so contract tests can run against every
// storage implementation.
type Backend struct {
	Name string
	New  func(testing.TB) *Harness
}

// Backends lists every storage implementation.
func Backends() []Backend {
	return []Backend{
		{Name: "sqlite", New: NewSQLiteHarness},
		{Name: "memory", New: NewMemoryHarness},
	}
}
