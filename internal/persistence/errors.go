package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a CHECK or NOT NULL constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a write references a missing row or a
	// delete would leave dependent rows behind.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrLocked is returned when the database stayed busy past the retry budget.
	ErrLocked = errors.New("persistence: database locked")
	// ErrOverlap is returned when a write would leave two active reservations of the
	// same equipment sharing a day.
	ErrOverlap = errors.New("persistence: overlapping reservation")
)

// OverlapError lists the active reservations a rejected write collided with,
// ordered by start date and ID.
type OverlapError struct {
	EquipmentID    int64
	ConflictingIDs []int64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("persistence: reservation overlaps %v on equipment %d", e.ConflictingIDs, e.EquipmentID)
}

// Is makes errors.Is(err, ErrOverlap) hold for every OverlapError.
func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}
