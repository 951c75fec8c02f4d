package application

import "time"

// ReservationStatus is the lifecycle state of a booking.
type ReservationStatus string

const (
	// ReservationStatusConfirmed marks an active booking that blocks its dates.
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	// ReservationStatusCancelled marks a booking that no longer blocks its dates.
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Reservation is a booking of one piece of equipment over an inclusive range of days.
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
	Status      ReservationStatus
	CreatedAt   time.Time
}

// ReservationView is a reservation decorated with display fields of its equipment.
// The equipment fields are nil when the equipment record no longer exists.
type ReservationView struct {
	Reservation
	EquipmentName  *string
	EquipmentModel *string
}

// ReservationFilter narrows reservation listings. A reservation matches the date
// bounds when its range intersects [StartDate, EndDate]; each bound is optional.
type ReservationFilter struct {
	EquipmentID *int64
	StartDate   *time.Time
	EndDate     *time.Time
}

// ReservationInput captures the caller supplied fields of a new booking. Dates use
// the YYYY-MM-DD layout.
type ReservationInput struct {
	EquipmentID int64   `json:"equipment_id" validate:"required,gt=0"`
	UserName    string  `json:"user_name" validate:"required,max=200"`
	UserEmail   *string `json:"user_email" validate:"omitnil,max=254"`
	StartDate   string  `json:"start_date" validate:"required,isodate"`
	EndDate     string  `json:"end_date" validate:"required,isodate"`
	StartTime   *string `json:"start_time" validate:"omitnil,max=16"`
	EndTime     *string `json:"end_time" validate:"omitnil,max=16"`
	Purpose     *string `json:"purpose" validate:"omitnil,max=2000"`
	Notes       *string `json:"notes" validate:"omitnil,max=2000"`
}

// ReservationPatch carries a partial reservation update. Nil fields are left
// unchanged; an empty optional text field clears it.
type ReservationPatch struct {
	EquipmentID *int64  `json:"equipment_id" validate:"omitnil,gt=0"`
	UserName    *string `json:"user_name" validate:"omitnil,notblank,max=200"`
	UserEmail   *string `json:"user_email" validate:"omitnil,max=254"`
	StartDate   *string `json:"start_date" validate:"omitnil,notblank,isodate"`
	EndDate     *string `json:"end_date" validate:"omitnil,notblank,isodate"`
	StartTime   *string `json:"start_time" validate:"omitnil,max=16"`
	EndTime     *string `json:"end_time" validate:"omitnil,max=16"`
	Purpose     *string `json:"purpose" validate:"omitnil,max=2000"`
	Notes       *string `json:"notes" validate:"omitnil,max=2000"`
	Status      *string `json:"status" validate:"omitnil,oneof=confirmed cancelled"`
}

// Equipment status labels. They are maintained by hand and never derived from
// reservations.
const (
	EquipmentStatusAvailable        = "Available"
	EquipmentStatusInUse            = "In Use"
	EquipmentStatusReserved         = "Reserved"
	EquipmentStatusUnderMaintenance = "Under Maintenance"
	EquipmentStatusOutOfService     = "Out of Service"
)

// EquipmentStatuses lists the accepted equipment status labels.
var EquipmentStatuses = []string{
	EquipmentStatusAvailable,
	EquipmentStatusInUse,
	EquipmentStatusReserved,
	EquipmentStatusUnderMaintenance,
	EquipmentStatusOutOfService,
}

// Equipment is an instrument tracked in the lab inventory.
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

// EquipmentView is equipment joined with its storage location.
type EquipmentView struct {
	Equipment
	Location *Location
}

// EquipmentFilter narrows equipment listings. Search is matched case-insensitively
// against name, model, serial number and manufacturer.
type EquipmentFilter struct {
	Search     string
	Category   string
	Status     string
	LocationID *int64
}

// EquipmentInput captures the fields of new equipment.
type EquipmentInput struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Model           *string  `json:"model" validate:"omitnil,max=200"`
	Manufacturer    *string  `json:"manufacturer" validate:"omitnil,max=200"`
	SerialNumber    *string  `json:"serial_number" validate:"omitnil,max=200"`
	AssetTag        *string  `json:"asset_tag" validate:"omitnil,max=200"`
	Category        *string  `json:"category" validate:"omitnil,max=200"`
	Status          string   `json:"status" validate:"omitempty,equipment_status"`
	LocationID      *int64   `json:"location_id" validate:"omitnil,gt=0"`
	CalibrationDate *string  `json:"calibration_date" validate:"omitnil,isodate"`
	NextCalibration *string  `json:"next_calibration" validate:"omitnil,isodate"`
	Cost            *float64 `json:"cost" validate:"omitnil,gte=0"`
	Notes           *string  `json:"notes" validate:"omitnil,max=2000"`
}

// EquipmentPatch carries a partial equipment update. Nil fields are left unchanged,
// an empty optional text field clears it and a zero LocationID removes the location.
type EquipmentPatch struct {
	Name            *string  `json:"name" validate:"omitnil,notblank,max=200"`
	Model           *string  `json:"model" validate:"omitnil,max=200"`
	Manufacturer    *string  `json:"manufacturer" validate:"omitnil,max=200"`
	SerialNumber    *string  `json:"serial_number" validate:"omitnil,max=200"`
	AssetTag        *string  `json:"asset_tag" validate:"omitnil,max=200"`
	Category        *string  `json:"category" validate:"omitnil,max=200"`
	Status          *string  `json:"status" validate:"omitnil,equipment_status"`
	LocationID      *int64   `json:"location_id" validate:"omitnil,gte=0"`
	CalibrationDate *string  `json:"calibration_date" validate:"omitnil,isodate"`
	NextCalibration *string  `json:"next_calibration" validate:"omitnil,isodate"`
	Cost            *float64 `json:"cost" validate:"omitnil,gte=0"`
	Notes           *string  `json:"notes" validate:"omitnil,max=2000"`
}

// Location is a storage position in the lab.
type Location struct {
	ID        int64
	Building  *string
	Room      *string
	Cabinet   *string
	Shelf     *string
	Bin       *string
	CreatedAt time.Time
}

// LocationInput captures the fields of a new location. At least one of Building or
// Room must be present.
type LocationInput struct {
	Building *string `json:"building" validate:"required_without=Room,omitnil,max=100"`
	Room     *string `json:"room" validate:"required_without=Building,omitnil,max=100"`
	Cabinet  *string `json:"cabinet" validate:"omitnil,max=100"`
	Shelf    *string `json:"shelf" validate:"omitnil,max=100"`
	Bin      *string `json:"bin" validate:"omitnil,max=100"`
}

// InventoryStats is the dashboard summary of the inventory. ActiveReservations
// counts confirmed bookings that have not yet ended.
type InventoryStats struct {
	Equipment          int64
	Locations          int64
	Reservations       int64
	ActiveReservations int64
	EquipmentByStatus  map[string]int64
}
