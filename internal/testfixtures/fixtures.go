// Package testfixtures builds deterministic lab inventory records and storage
// harnesses for tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/lab-inventory/internal/application"
	"github.com/example/lab-inventory/internal/persistence"
)

var (
	reservationCounter uint64
	equipmentCounter   uint64
	locationCounter    uint64
)

var referenceTime = time.Date(2024, time.March, 1, 8, 30, 0, 0, time.UTC)

// ReferenceTime returns the baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Day returns the UTC midnight of the given calendar day.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

// ----------------------------- Reservation fixtures -----------------------------

// ReservationFixture is a booking that can be materialised for application or
// persistence tests. EquipmentID must be set before storing it.
type ReservationFixture struct {
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

type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a confirmed single-day booking on the reference day.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	day := Day(referenceTime.Year(), referenceTime.Month(), referenceTime.Day())
	fixture := ReservationFixture{
		UserName:  fmt.Sprintf("User %03d", idx),
		UserEmail: ptr(fmt.Sprintf("user-%03d@example.com", idx)),
		StartDate: day,
		EndDate:   day,
		Status:    persistence.ReservationStatusConfirmed,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithReservationID(id int64) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

func WithReservationEquipment(id int64) ReservationOption {
	return func(f *ReservationFixture) {
		f.EquipmentID = id
	}
}

func WithReservationUser(name string) ReservationOption {
	return func(f *ReservationFixture) {
		f.UserName = name
	}
}

// WithReservationDates sets the inclusive day range.
func WithReservationDates(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.StartDate = start
		f.EndDate = end
	}
}

func WithReservationTimes(start, end string) ReservationOption {
	return func(f *ReservationFixture) {
		f.StartTime = ptr(start)
		f.EndTime = ptr(end)
	}
}

func WithReservationPurpose(purpose string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Purpose = ptr(purpose)
	}
}

func WithReservationCancelled() ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = persistence.ReservationStatusCancelled
	}
}

// Persistence converts the fixture into a persistence.Reservation.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:          f.ID,
		EquipmentID: f.EquipmentID,
		UserName:    f.UserName,
		UserEmail:   f.UserEmail,
		StartDate:   f.StartDate,
		EndDate:     f.EndDate,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		Purpose:     f.Purpose,
		Notes:       f.Notes,
		Status:      f.Status,
		CreatedAt:   f.CreatedAt,
	}
}

// Application converts the fixture into an application.Reservation.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:          f.ID,
		EquipmentID: f.EquipmentID,
		UserName:    f.UserName,
		UserEmail:   f.UserEmail,
		StartDate:   f.StartDate,
		EndDate:     f.EndDate,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		Purpose:     f.Purpose,
		Notes:       f.Notes,
		Status:      application.ReservationStatus(f.Status),
		CreatedAt:   f.CreatedAt,
	}
}

// ----------------------------- Equipment fixtures -----------------------------

type EquipmentFixture struct {
	ID           int64
	Name         string
	Model        *string
	Manufacturer *string
	SerialNumber *string
	Category     *string
	Status       string
	LocationID   *int64
	Cost         *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type EquipmentOption func(*EquipmentFixture)

// NewEquipmentFixture returns available equipment with a generated name and model.
func NewEquipmentFixture(opts ...EquipmentOption) EquipmentFixture {
	idx := atomic.AddUint64(&equipmentCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := EquipmentFixture{
		Name:      fmt.Sprintf("Equipment %03d", idx),
		Model:     ptr(fmt.Sprintf("M-%03d", idx)),
		Status:    persistence.EquipmentStatusAvailable,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithEquipmentName(name string) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.Name = name
	}
}

func WithEquipmentModel(model string) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.Model = ptr(model)
	}
}

func WithEquipmentManufacturer(manufacturer string) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.Manufacturer = ptr(manufacturer)
	}
}

func WithEquipmentSerial(serial string) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.SerialNumber = ptr(serial)
	}
}

func WithEquipmentCategory(category string) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.Category = ptr(category)
	}
}

func WithEquipmentStatus(status string) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.Status = status
	}
}

func WithEquipmentLocation(id int64) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.LocationID = ptr(id)
	}
}

func WithEquipmentCost(cost float64) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.Cost = ptr(cost)
	}
}

func (f EquipmentFixture) Persistence() persistence.Equipment {
	return persistence.Equipment{
		ID:           f.ID,
		Name:         f.Name,
		Model:        f.Model,
		Manufacturer: f.Manufacturer,
		SerialNumber: f.SerialNumber,
		Category:     f.Category,
		Status:       f.Status,
		LocationID:   f.LocationID,
		Cost:         f.Cost,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func (f EquipmentFixture) Application() application.Equipment {
	return application.Equipment{
		ID:           f.ID,
		Name:         f.Name,
		Model:        f.Model,
		Manufacturer: f.Manufacturer,
		SerialNumber: f.SerialNumber,
		Category:     f.Category,
		Status:       f.Status,
		LocationID:   f.LocationID,
		Cost:         f.Cost,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ----------------------------- Location fixtures -----------------------------

type LocationFixture struct {
	ID        int64
	Building  *string
	Room      *string
	Cabinet   *string
	Shelf     *string
	Bin       *string
	CreatedAt time.Time
}

type LocationOption func(*LocationFixture)

// NewLocationFixture returns a location with a generated building and room.
func NewLocationFixture(opts ...LocationOption) LocationFixture {
	idx := atomic.AddUint64(&locationCounter, 1)
	fixture := LocationFixture{
		Building:  ptr(fmt.Sprintf("Building %03d", idx)),
		Room:      ptr(fmt.Sprintf("%03d", 100+idx)),
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithLocationPlace sets building and room; an empty value leaves the field nil.
func WithLocationPlace(building, room string) LocationOption {
	return func(f *LocationFixture) {
		f.Building = nonEmpty(building)
		f.Room = nonEmpty(room)
	}
}

func WithLocationCabinet(cabinet, shelf string) LocationOption {
	return func(f *LocationFixture) {
		f.Cabinet = nonEmpty(cabinet)
		f.Shelf = nonEmpty(shelf)
	}
}

func (f LocationFixture) Persistence() persistence.Location {
	return persistence.Location{
		ID:        f.ID,
		Building:  f.Building,
		Room:      f.Room,
		Cabinet:   f.Cabinet,
		Shelf:     f.Shelf,
		Bin:       f.Bin,
		CreatedAt: f.CreatedAt,
	}
}

func (f LocationFixture) Application() application.Location {
	return application.Location{
		ID:        f.ID,
		Building:  f.Building,
		Room:      f.Room,
		Cabinet:   f.Cabinet,
		Shelf:     f.Shelf,
		Bin:       f.Bin,
		CreatedAt: f.CreatedAt,
	}
}

func nonEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
