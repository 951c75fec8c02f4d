package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/lab-inventory/internal/persistence"
	"github.com/example/lab-inventory/internal/persistence/sqlite/migration"
)

func TestErrorMapper_MapError(t *testing.T) {
	mapper := NewErrorMapper()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: persistence.ErrNotFound},
		{name: "unique", err: errors.New("constraint failed: UNIQUE constraint failed: equipment.asset_tag"), want: persistence.ErrDuplicate},
		{name: "foreign key", err: errors.New("constraint failed: FOREIGN KEY constraint failed"), want: persistence.ErrForeignKeyViolation},
		{name: "check", err: errors.New("constraint failed: CHECK constraint failed: start_date <= end_date"), want: persistence.ErrConstraintViolation},
		{name: "not null", err: errors.New("NOT NULL constraint failed: reservations.user_name"), want: persistence.ErrConstraintViolation},
		{name: "busy", err: errors.New("database is locked (5) (SQLITE_BUSY)"), want: persistence.ErrLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapper.MapError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("MapError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	t.Run("nil", func(t *testing.T) {
		if err := mapper.MapError(nil); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})

	t.Run("unknown passes through", func(t *testing.T) {
		original := errors.New("disk I/O error")
		if got := mapper.MapError(original); got != original {
			t.Fatalf("expected original error, got %v", got)
		}
	})
}

func TestRetryHelper_WithRetry(t *testing.T) {
	config := RetryConfig{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}

	t.Run("retries while locked", func(t *testing.T) {
		helper := NewRetryHelper(config)
		attempts := 0
		err := helper.WithRetry(context.Background(), func() error {
			attempts++
			if attempts < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if attempts != 3 {
			t.Fatalf("expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		helper := NewRetryHelper(config)
		attempts := 0
		err := helper.WithRetry(context.Background(), func() error {
			attempts++
			return errors.New("database is locked")
		})
		if !errors.Is(err, persistence.ErrLocked) {
			t.Fatalf("expected ErrLocked, got %v", err)
		}
		if attempts != config.MaxRetries+1 {
			t.Fatalf("expected %d attempts, got %d", config.MaxRetries+1, attempts)
		}
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		helper := NewRetryHelper(config)
		attempts := 0
		err := helper.WithRetry(context.Background(), func() error {
			attempts++
			return fmt.Errorf("insert: %w", errors.New("CHECK constraint failed"))
		})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
		if attempts != 1 {
			t.Fatalf("expected a single attempt, got %d", attempts)
		}
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		helper := NewRetryHelper(config)
		ctx, cancel := context.WithCancel(context.Background())
		err := helper.WithRetry(ctx, func() error {
			cancel()
			return errors.New("database is locked")
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestConnectionPool_WithTransaction(t *testing.T) {
	pool, err := NewConnectionPool(migration.InMemoryTestSQLiteConfig())
	if err != nil {
		t.Fatalf("NewConnectionPool failed: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if _, err := pool.DB().ExecContext(ctx, "CREATE TABLE counters (n INTEGER NOT NULL)"); err != nil {
		t.Fatalf("create table failed: %v", err)
	}

	helper := NewQueryHelper(pool)
	errBoom := errors.New("boom")
	err = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := helper.ExecTx(ctx, tx, "INSERT INTO counters (n) VALUES (1)"); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}

	err = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := helper.ExecTx(ctx, tx, "INSERT INTO counters (n) VALUES (2)")
		return err
	})
	if err != nil {
		t.Fatalf("WithTransaction failed: %v", err)
	}

	var count, sum int
	err = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return helper.QueryRowTx(ctx, tx, "SELECT COUNT(*), COALESCE(SUM(n), 0) FROM counters").Scan(&count, &sum)
	})
	if err != nil {
		t.Fatalf("WithTransaction failed: %v", err)
	}
	if count != 1 || sum != 2 {
		t.Fatalf("expected only the committed row, got count=%d sum=%d", count, sum)
	}

	var values []int
	err = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := helper.QueryTx(ctx, tx, "SELECT n FROM counters ORDER BY n")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var n int
			if err := rows.Scan(&n); err != nil {
				return err
			}
			values = append(values, n)
		}
		return rows.Err()
	})
	if err != nil {
		t.Fatalf("QueryTx failed: %v", err)
	}
	if len(values) != 1 || values[0] != 2 {
		t.Fatalf("expected [2], got %v", values)
	}
}
