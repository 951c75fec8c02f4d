package application

import (
	"errors"
	"slices"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a booking overlaps an existing reservation.
	ErrConflict = errors.New("application: conflict")
	// ErrInUse is returned when a resource cannot be removed while other records reference it.
	ErrInUse = errors.New("application: resource in use")
)

// Messages surfaced to API clients.
const (
	MessageMissingFields      = "Missing required fields"
	MessageInvalidReservation = "Invalid reservation fields"
	MessageInvalidEquipment   = "Invalid equipment fields"
	MessageInvalidLocation    = "Invalid location fields"
	MessageConflict           = "This equipment is already reserved for the selected dates."
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	Message     string
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if v.Message != "" {
		return v.Message
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver. Fields
// and the message already set on the receiver win.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	if v.Message == "" {
		v.Message = other.Message
	}
	for field, msg := range other.FieldErrors {
		if _, ok := v.FieldErrors[field]; ok {
			continue
		}
		v.add(field, msg)
	}
}

// ConflictError reports the reservations that overlap a requested booking.
type ConflictError struct {
	EquipmentID    int64
	ConflictingIDs []int64
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	return MessageConflict
}

// Is makes errors.Is(err, ErrConflict) hold for every ConflictError.
func (c *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func newConflictError(equipmentID int64, ids []int64) *ConflictError {
	return &ConflictError{EquipmentID: equipmentID, ConflictingIDs: slices.Clone(ids)}
}
