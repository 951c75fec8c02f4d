package persistence

import "time"

// Reservation status values as stored in the reservations table.
const (
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"
)

// Equipment status values accepted by the equipment table.
const (
	EquipmentStatusAvailable        = "Available"
	EquipmentStatusInUse            = "In Use"
	EquipmentStatusReserved         = "Reserved"
	EquipmentStatusUnderMaintenance = "Under Maintenance"
	EquipmentStatusOutOfService     = "Out of Service"
)

// EquipmentStatuses lists every valid equipment status.
var EquipmentStatuses = []string{
	EquipmentStatusAvailable,
	EquipmentStatusInUse,
	EquipmentStatusReserved,
	EquipmentStatusUnderMaintenance,
	EquipmentStatusOutOfService,
}

// Reservation is the write model for a booking row. StartDate and EndDate hold
// calendar days at UTC midnight.
type Reservation struct {
	ID          int64
	EquipmentID int64
	UserName    string
	UserEmail   *string
	StartDate   time.Time
	EndDate     time.Time
	StartTime   *string
	EndTime     *string
	Purpose     *string
	Notes       *string
	Status      string
	CreatedAt   time.Time
}

// ReservationView is the read model returned by queries. The equipment fields come
// from a left join and are nil when the referenced equipment row is absent.
type ReservationView struct {
	Reservation
	EquipmentName  *string
	EquipmentModel *string
}

// Equipment is an instrument or device tracked by the lab.
type Equipment struct {
	ID              int64
	Name            string
	Model           *string
	Manufacturer    *string
	SerialNumber    *string
	AssetTag        *string
	Category        *string
	Status          string
	LocationID      *int64
	CalibrationDate *string
	NextCalibration *string
	Cost            *float64
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EquipmentView joins equipment with its storage location, if any.
type EquipmentView struct {
	Equipment
	Location *Location
}

// Location is a physical storage position inside the lab.
type Location struct {
	ID        int64
	Building  *string
	Room      *string
	Cabinet   *string
	Shelf     *string
	Bin       *string
	CreatedAt time.Time
}

// InventoryStats summarises table sizes. ActiveReservations counts confirmed
// reservations ending on or after the reference day.
type InventoryStats struct {
	Equipment          int64
	Locations          int64
	Reservations       int64
	ActiveReservations int64
	EquipmentByStatus  map[string]int64
}
