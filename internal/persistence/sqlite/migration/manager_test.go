package migration

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "lab.db")
	db, err := NewConnectionManager(TempFileTestSQLiteConfig(dbPath)).GetConnection()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_Up(t *testing.T) {
	ctx := context.Background()

	t.Run("applies embedded migrations", func(t *testing.T) {
		db := openTestDB(t)
		manager, err := NewManager(db, discardLogger())
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}

		before, err := manager.Status(ctx)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if before.CurrentVersion != 0 || len(before.Pending) != 3 || before.LatestVersion != 3 {
			t.Fatalf("unexpected initial status: %+v", before)
		}

		if err := manager.Up(ctx); err != nil {
			t.Fatalf("Up failed: %v", err)
		}

		after, err := manager.Status(ctx)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if !after.UpToDate() || after.CurrentVersion != 3 {
			t.Fatalf("expected schema to be up to date, got %+v", after)
		}

		for _, table := range []string{"locations", "equipment", "reservations"} {
			var name string
			err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
			if err != nil {
				t.Fatalf("expected table %s to exist: %v", table, err)
			}
		}
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		db := openTestDB(t)
		manager, err := NewManager(db, discardLogger())
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if err := manager.Up(ctx); err != nil {
			t.Fatalf("first Up failed: %v", err)
		}
		if err := manager.Up(ctx); err != nil {
			t.Fatalf("second Up failed: %v", err)
		}
	})

	t.Run("reservation schema rejects inverted ranges", func(t *testing.T) {
		db := openTestDB(t)
		manager, err := NewManager(db, discardLogger())
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if err := manager.Up(ctx); err != nil {
			t.Fatalf("Up failed: %v", err)
		}

		if _, err := db.Exec(`INSERT INTO equipment (name, status, created_at, updated_at) VALUES ('Scope', 'Available', 'now', 'now')`); err != nil {
			t.Fatalf("failed to insert equipment: %v", err)
		}
		_, err = db.Exec(`INSERT INTO reservations (equipment_id, user_name, start_date, end_date, created_at) VALUES (1, 'Ada', '2024-01-05', '2024-01-01', 'now')`)
		if err == nil {
			t.Fatal("expected CHECK constraint to reject inverted range")
		}
	})

	t.Run("failing migration is reported and marks the schema dirty", func(t *testing.T) {
		db := openTestDB(t)
		files := fstest.MapFS{
			"migrations/000001_ok.up.sql":    {Data: []byte("CREATE TABLE ok (id INTEGER);")},
			"migrations/000001_ok.down.sql":  {Data: []byte("DROP TABLE ok;")},
			"migrations/000002_bad.up.sql":   {Data: []byte("CREATE TABLE broken (;")},
			"migrations/000002_bad.down.sql": {Data: []byte("SELECT 1;")},
		}
		manager, err := NewManagerWithFS(db, files, discardLogger())
		if err != nil {
			t.Fatalf("NewManagerWithFS failed: %v", err)
		}

		err = manager.Up(ctx)
		if err == nil {
			t.Fatal("expected Up to fail")
		}
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected ErrMigrationFailed, got %v", err)
		}
		var migrationErr *MigrationError
		if !errors.As(err, &migrationErr) {
			t.Fatalf("expected *MigrationError, got %T", err)
		}

		status, err := manager.Status(ctx)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if !status.Dirty || status.CurrentVersion != 2 {
			t.Fatalf("expected dirty schema at version 2, got %+v", status)
		}

		if err := manager.Up(ctx); !errors.Is(err, ErrDirtyDatabase) {
			t.Fatalf("expected ErrDirtyDatabase on retry, got %v", err)
		}
	})
}

func TestNewManager_RequiresDatabase(t *testing.T) {
	if _, err := NewManager(nil, nil); err == nil {
		t.Fatal("expected error for nil database")
	}
}

func TestMigrationError(t *testing.T) {
	err := newMigrationError(2, "up", errors.New("boom"))
	if err.Error() != "migration 2: up: boom" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatal("expected MigrationError to match ErrMigrationFailed")
	}

	unversioned := newMigrationError(0, "status", errors.New("boom"))
	if unversioned.Error() != "migration: status: boom" {
		t.Fatalf("unexpected message: %q", unversioned.Error())
	}
}
