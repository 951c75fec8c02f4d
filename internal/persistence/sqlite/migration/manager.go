package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const (
	migrationsDir   = "migrations"
	migrationsTable = "schema_migrations"
)

// Manager applies the embedded schema migrations to a SQLite database.
type Manager struct {
	db     *sql.DB
	files  fs.FS
	logger *slog.Logger
}

// NewManager constructs a manager for the embedded migrations.
func NewManager(db *sql.DB, logger *slog.Logger) (*Manager, error) {
	return NewManagerWithFS(db, embeddedMigrations, logger)
}

// NewManagerWithFS constructs a manager reading migrations from the migrations/
// directory of files. Tests use it to exercise failure paths.
func NewManagerWithFS(db *sql.DB, files fs.FS, logger *slog.Logger) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("migration: database is nil")
	}
	if files == nil {
		return nil, fmt.Errorf("migration: files are nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{db: db, files: files, logger: logger.With("component", "migration")}, nil
}

// Up applies every pending migration. Cancelling ctx stops after the migration in
// flight completes.
func (m *Manager) Up(ctx context.Context) error {
	m.logger.InfoContext(ctx, "initializing database migration system")

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if status.Dirty {
		return newMigrationError(status.CurrentVersion, "up", ErrDirtyDatabase)
	}
	if len(status.Pending) == 0 {
		m.logger.InfoContext(ctx, "database schema is up to date", "version", status.CurrentVersion)
		return nil
	}

	m.logger.InfoContext(ctx, "executing database migrations",
		"current_version", status.CurrentVersion,
		"target_version", status.LatestVersion,
		"pending_count", len(status.Pending),
	)

	runner, err := m.newRunner()
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			select {
			case runner.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()

	if err := runner.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, _, _ := runner.Version()
		if isLockedError(err) {
			err = fmt.Errorf("%w: %v", ErrDatabaseLocked, err)
		}
		m.logger.ErrorContext(ctx, "database migration failed", "version", version, "error", err)
		return newMigrationError(version, "up", err)
	}
	if err := ctx.Err(); err != nil {
		return newMigrationError(0, "up", err)
	}

	version, _, err := runner.Version()
	if err != nil {
		return newMigrationError(0, "version", err)
	}
	m.logger.InfoContext(ctx, "database migrations completed successfully", "version", version)
	return nil
}

// Status compares the applied schema version with the embedded migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	available, err := m.availableVersions()
	if err != nil {
		return Status{}, newMigrationError(0, "status", err)
	}

	runner, err := m.newRunner()
	if err != nil {
		return Status{}, err
	}

	var status Status
	if len(available) > 0 {
		status.LatestVersion = available[len(available)-1]
	}

	version, dirty, err := runner.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		version = 0
	case err != nil:
		return Status{}, newMigrationError(0, "status", err)
	}
	status.CurrentVersion = version
	status.Dirty = dirty

	for _, v := range available {
		if v > version {
			status.Pending = append(status.Pending, v)
		}
	}

	m.logger.DebugContext(ctx, "checked database schema version",
		"current_version", status.CurrentVersion,
		"latest_version", status.LatestVersion,
		"dirty", status.Dirty,
	)
	return status, nil
}

func (m *Manager) newRunner() (*migrate.Migrate, error) {
	src, err := iofs.New(m.files, migrationsDir)
	if err != nil {
		return nil, newMigrationError(0, "open source", err)
	}

	// Never close the driver: it closes m.db, which the connection pool owns.
	driver, err := migratesqlite.WithInstance(m.db, &migratesqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = src.Close()
		return nil, newMigrationError(0, "open database", err)
	}

	runner, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		_ = src.Close()
		return nil, newMigrationError(0, "initialize", err)
	}
	runner.Log = migrateLogger{logger: m.logger}
	return runner, nil
}

func (m *Manager) availableVersions() ([]uint, error) {
	src, err := iofs.New(m.files, migrationsDir)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return collectVersions(src)
}

func collectVersions(src source.Driver) ([]uint, error) {
	var versions []uint
	version, err := src.First()
	for err == nil {
		versions = append(versions, version)
		version, err = src.Next(version)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return versions, nil
}

func isLockedError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// migrateLogger routes golang-migrate progress output through slog.
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return false
}
