package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrMigrationFailed indicates that a migration execution failed
	ErrMigrationFailed = errors.New("migration execution failed")

	// ErrDirtyDatabase indicates that a previous migration stopped half way and the
	// schema needs manual repair before new migrations can run
	ErrDirtyDatabase = errors.New("database schema is dirty")

	// ErrDatabaseLocked indicates that the database is locked and cannot be migrated
	ErrDatabaseLocked = errors.New("database is locked")
)

// MigrationError wraps migration-specific errors with additional context
type MigrationError struct {
	Version   uint   // Schema version involved, zero when unknown
	Operation string // Operation being performed (up, version, status)
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *MigrationError) Error() string {
	if e.Version != 0 {
		return fmt.Sprintf("migration %d: %s: %v", e.Version, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration: %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for error unwrapping
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// Is reports ErrMigrationFailed for every MigrationError so callers can branch on
// the category without unwrapping.
func (e *MigrationError) Is(target error) bool {
	return target == ErrMigrationFailed
}

func newMigrationError(version uint, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, Operation: operation, Err: err}
}
