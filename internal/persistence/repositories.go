package persistence

import (
	"context"
	"time"
)

// ReservationFilter narrows reservation queries. A reservation matches the date
// bounds when its range intersects [EndsOnOrAfter, StartsOnOrBefore].
type ReservationFilter struct {
	EquipmentID      *int64
	EndsOnOrAfter    *time.Time
	StartsOnOrBefore *time.Time
}

// ReservationRepository stores equipment bookings.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (int64, error)
	UpdateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id int64) (ReservationView, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]ReservationView, error)
	// ListActiveReservations returns every non-cancelled reservation for the equipment.
	ListActiveReservations(ctx context.Context, equipmentID int64) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error
}

// EquipmentFilter narrows equipment queries. Search matches name, model, serial
// number and manufacturer case-insensitively.
type EquipmentFilter struct {
	Search     string
	Category   string
	Status     string
	LocationID *int64
}

// EquipmentRepository exposes CRUD operations for equipment.
type EquipmentRepository interface {
	CreateEquipment(ctx context.Context, equipment Equipment) (int64, error)
	UpdateEquipment(ctx context.Context, equipment Equipment) error
	GetEquipment(ctx context.Context, id int64) (EquipmentView, error)
	ListEquipment(ctx context.Context, filter EquipmentFilter) ([]EquipmentView, error)
	DeleteEquipment(ctx context.Context, id int64) error
}

// LocationRepository exposes operations for storage locations.
type LocationRepository interface {
	CreateLocation(ctx context.Context, location Location) (int64, error)
	GetLocation(ctx context.Context, id int64) (Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	DeleteLocation(ctx context.Context, id int64) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsRepository computes inventory counts.
type StatsRepository interface {
	InventoryStats(ctx context.Context, asOf time.Time) (InventoryStats, error)
}
