// Package memory provides a map-backed implementation of the persistence
// repositories. It enforces the same constraints as the SQLite schema so the two
// backends are interchangeable in tests and in the "memory" storage driver.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/lab-inventory/internal/persistence"
)

// Storage is an in-memory persistence layer. It is safe for concurrent use.
type Storage struct {
	mu           sync.RWMutex
	reservations map[int64]persistence.Reservation
	equipment    map[int64]persistence.Equipment
	locations    map[int64]persistence.Location

	nextReservationID int64
	nextEquipmentID   int64
	nextLocationID    int64

	now func() time.Time
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		reservations: make(map[int64]persistence.Reservation),
		equipment:    make(map[int64]persistence.Equipment),
		locations:    make(map[int64]persistence.Location),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Migrate initialises the storage. No-op for the in-memory implementation.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// Ping always succeeds unless ctx is already done.
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

// --- ReservationRepository implementation ---

// CreateReservation stores a new reservation and returns its ID.
func (s *Storage) CreateReservation(ctx context.Context, reservation persistence.Reservation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reservation.Status == "" {
		reservation.Status = persistence.ReservationStatusConfirmed
	}
	if err := s.checkReservationLocked(reservation); err != nil {
		return 0, err
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = s.now()
	}

	s.nextReservationID++
	reservation.ID = s.nextReservationID
	s.reservations[reservation.ID] = cloneReservation(reservation)
	return reservation.ID, nil
}

// UpdateReservation replaces an existing reservation. CreatedAt is preserved.
func (s *Storage) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.reservations[reservation.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if err := s.checkReservationLocked(reservation); err != nil {
		return err
	}

	reservation.CreatedAt = existing.CreatedAt
	s.reservations[reservation.ID] = cloneReservation(reservation)
	return nil
}

// GetReservation retrieves a reservation with its equipment name and model.
func (s *Storage) GetReservation(ctx context.Context, id int64) (persistence.ReservationView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.ReservationView{}, persistence.ErrNotFound
	}
	return s.reservationViewLocked(reservation), nil
}

// ListReservations returns reservations matching filter ordered by start date,
// start time and ID.
func (s *Storage) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.ReservationView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]persistence.ReservationView, 0)
	for _, reservation := range s.reservations {
		if !matchesReservationFilter(reservation, filter) {
			continue
		}
		views = append(views, s.reservationViewLocked(reservation))
	}

	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		if c := compareOptional(a.StartTime, b.StartTime); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})

	return views, nil
}

// ListActiveReservations returns the non-cancelled reservations of one equipment.
func (s *Storage) ListActiveReservations(ctx context.Context, equipmentID int64) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reservations []persistence.Reservation
	for _, reservation := range s.reservations {
		if reservation.EquipmentID != equipmentID || reservation.Status == persistence.ReservationStatusCancelled {
			continue
		}
		reservations = append(reservations, cloneReservation(reservation))
	}

	sort.Slice(reservations, func(i, j int) bool {
		if reservations[i].StartDate.Equal(reservations[j].StartDate) {
			return reservations[i].ID < reservations[j].ID
		}
		return reservations[i].StartDate.Before(reservations[j].StartDate)
	})

	return reservations, nil
}

// DeleteReservation removes a reservation by ID.
func (s *Storage) DeleteReservation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.reservations, id)
	return nil
}

func (s *Storage) checkReservationLocked(reservation persistence.Reservation) error {
	if strings.TrimSpace(reservation.UserName) == "" || reservation.EndDate.Before(reservation.StartDate) {
		return persistence.ErrConstraintViolation
	}
	if reservation.Status != persistence.ReservationStatusConfirmed &&
		reservation.Status != persistence.ReservationStatusCancelled {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.equipment[reservation.EquipmentID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	return s.checkOverlapLocked(reservation)
}

func (s *Storage) checkOverlapLocked(reservation persistence.Reservation) error {
	if reservation.Status == persistence.ReservationStatusCancelled {
		return nil
	}

	var overlapping []persistence.Reservation
	for _, other := range s.reservations {
		if other.ID == reservation.ID || other.EquipmentID != reservation.EquipmentID ||
			other.Status == persistence.ReservationStatusCancelled {
			continue
		}
		if !other.StartDate.After(reservation.EndDate) && !reservation.StartDate.After(other.EndDate) {
			overlapping = append(overlapping, other)
		}
	}
	if len(overlapping) == 0 {
		return nil
	}

	sort.Slice(overlapping, func(i, j int) bool {
		if overlapping[i].StartDate.Equal(overlapping[j].StartDate) {
			return overlapping[i].ID < overlapping[j].ID
		}
		return overlapping[i].StartDate.Before(overlapping[j].StartDate)
	})
	ids := make([]int64, 0, len(overlapping))
	for _, other := range overlapping {
		ids = append(ids, other.ID)
	}
	return &persistence.OverlapError{EquipmentID: reservation.EquipmentID, ConflictingIDs: ids}
}

func (s *Storage) reservationViewLocked(reservation persistence.Reservation) persistence.ReservationView {
	view := persistence.ReservationView{Reservation: cloneReservation(reservation)}
	if equipment, ok := s.equipment[reservation.EquipmentID]; ok {
		name := equipment.Name
		view.EquipmentName = &name
		view.EquipmentModel = cloneString(equipment.Model)
	}
	return view
}

// --- EquipmentRepository implementation ---

// CreateEquipment stores new equipment and returns its ID.
func (s *Storage) CreateEquipment(ctx context.Context, equipment persistence.Equipment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEquipmentLocked(equipment); err != nil {
		return 0, err
	}
	if equipment.CreatedAt.IsZero() {
		equipment.CreatedAt = s.now()
	}
	if equipment.UpdatedAt.IsZero() {
		equipment.UpdatedAt = equipment.CreatedAt
	}

	s.nextEquipmentID++
	equipment.ID = s.nextEquipmentID
	s.equipment[equipment.ID] = cloneEquipment(equipment)
	return equipment.ID, nil
}

// UpdateEquipment replaces existing equipment. CreatedAt is preserved.
func (s *Storage) UpdateEquipment(ctx context.Context, equipment persistence.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.equipment[equipment.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if err := s.checkEquipmentLocked(equipment); err != nil {
		return err
	}

	equipment.CreatedAt = existing.CreatedAt
	if equipment.UpdatedAt.IsZero() {
		equipment.UpdatedAt = s.now()
	}
	s.equipment[equipment.ID] = cloneEquipment(equipment)
	return nil
}

// GetEquipment retrieves equipment with its location.
func (s *Storage) GetEquipment(ctx context.Context, id int64) (persistence.EquipmentView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	equipment, ok := s.equipment[id]
	if !ok {
		return persistence.EquipmentView{}, persistence.ErrNotFound
	}
	return s.equipmentViewLocked(equipment), nil
}

// ListEquipment returns equipment matching filter ordered by name then ID.
func (s *Storage) ListEquipment(ctx context.Context, filter persistence.EquipmentFilter) ([]persistence.EquipmentView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]persistence.EquipmentView, 0)
	for _, equipment := range s.equipment {
		if !matchesEquipmentFilter(equipment, filter) {
			continue
		}
		views = append(views, s.equipmentViewLocked(equipment))
	}

	sort.Slice(views, func(i, j int) bool {
		if views[i].Name == views[j].Name {
			return views[i].ID < views[j].ID
		}
		return views[i].Name < views[j].Name
	})

	return views, nil
}

// DeleteEquipment removes equipment that no reservation references.
func (s *Storage) DeleteEquipment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.equipment[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, reservation := range s.reservations {
		if reservation.EquipmentID == id {
			return persistence.ErrForeignKeyViolation
		}
	}

	delete(s.equipment, id)
	return nil
}

func (s *Storage) checkEquipmentLocked(equipment persistence.Equipment) error {
	if strings.TrimSpace(equipment.Name) == "" {
		return persistence.ErrConstraintViolation
	}
	if !slices.Contains(persistence.EquipmentStatuses, equipment.Status) {
		return persistence.ErrConstraintViolation
	}
	if equipment.Cost != nil && *equipment.Cost < 0 {
		return persistence.ErrConstraintViolation
	}
	if equipment.LocationID != nil {
		if _, ok := s.locations[*equipment.LocationID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
	}
	return nil
}

func (s *Storage) equipmentViewLocked(equipment persistence.Equipment) persistence.EquipmentView {
	view := persistence.EquipmentView{Equipment: cloneEquipment(equipment)}
	if equipment.LocationID != nil {
		if location, ok := s.locations[*equipment.LocationID]; ok {
			copied := cloneLocation(location)
			view.Location = &copied
		}
	}
	return view
}

// --- LocationRepository implementation ---

// CreateLocation stores a new location and returns its ID.
func (s *Storage) CreateLocation(ctx context.Context, location persistence.Location) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if location.CreatedAt.IsZero() {
		location.CreatedAt = s.now()
	}

	s.nextLocationID++
	location.ID = s.nextLocationID
	s.locations[location.ID] = cloneLocation(location)
	return location.ID, nil
}

// GetLocation retrieves a location by ID.
func (s *Storage) GetLocation(ctx context.Context, id int64) (persistence.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	location, ok := s.locations[id]
	if !ok {
		return persistence.Location{}, persistence.ErrNotFound
	}
	return cloneLocation(location), nil
}

// ListLocations returns every location ordered by building, room, cabinet, shelf.
func (s *Storage) ListLocations(ctx context.Context) ([]persistence.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locations := make([]persistence.Location, 0, len(s.locations))
	for _, location := range s.locations {
		locations = append(locations, cloneLocation(location))
	}

	sort.Slice(locations, func(i, j int) bool {
		a, b := locations[i], locations[j]
		for _, pair := range [][2]*string{
			{a.Building, b.Building},
			{a.Room, b.Room},
			{a.Cabinet, b.Cabinet},
			{a.Shelf, b.Shelf},
		} {
			if c := compareOptional(pair[0], pair[1]); c != 0 {
				return c < 0
			}
		}
		return a.ID < b.ID
	})

	return locations, nil
}

// DeleteLocation removes a location and clears it from any equipment stored there.
func (s *Storage) DeleteLocation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.locations, id)

	for equipmentID, equipment := range s.equipment {
		if equipment.LocationID != nil && *equipment.LocationID == id {
			equipment.LocationID = nil
			s.equipment[equipmentID] = equipment
		}
	}

	return nil
}

// --- StatsRepository implementation ---

// InventoryStats counts stored rows. Reservations are active when confirmed and
// ending on or after the UTC day of asOf.
func (s *Storage) InventoryStats(ctx context.Context, asOf time.Time) (persistence.InventoryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := asOf.UTC().Truncate(24 * time.Hour)
	stats := persistence.InventoryStats{
		Equipment:         int64(len(s.equipment)),
		Locations:         int64(len(s.locations)),
		Reservations:      int64(len(s.reservations)),
		EquipmentByStatus: make(map[string]int64),
	}
	for _, equipment := range s.equipment {
		stats.EquipmentByStatus[equipment.Status]++
	}
	for _, reservation := range s.reservations {
		if reservation.Status == persistence.ReservationStatusConfirmed && !reservation.EndDate.Before(day) {
			stats.ActiveReservations++
		}
	}
	return stats, nil
}

// --- Helpers ---

func matchesReservationFilter(reservation persistence.Reservation, filter persistence.ReservationFilter) bool {
	if filter.EquipmentID != nil && reservation.EquipmentID != *filter.EquipmentID {
		return false
	}
	if filter.EndsOnOrAfter != nil && reservation.EndDate.Before(*filter.EndsOnOrAfter) {
		return false
	}
	if filter.StartsOnOrBefore != nil && reservation.StartDate.After(*filter.StartsOnOrBefore) {
		return false
	}
	return true
}

func matchesEquipmentFilter(equipment persistence.Equipment, filter persistence.EquipmentFilter) bool {
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		fields := []*string{&equipment.Name, equipment.Model, equipment.SerialNumber, equipment.Manufacturer}
		found := false
		for _, field := range fields {
			if field != nil && strings.Contains(strings.ToLower(*field), search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Category != "" && (equipment.Category == nil || *equipment.Category != filter.Category) {
		return false
	}
	if filter.Status != "" && equipment.Status != filter.Status {
		return false
	}
	if filter.LocationID != nil && (equipment.LocationID == nil || *equipment.LocationID != *filter.LocationID) {
		return false
	}
	return true
}

// compareOptional orders nil before any value, as SQLite orders NULL first.
func compareOptional(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return strings.Compare(*a, *b)
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copy := *value
	return &copy
}

func cloneReservation(reservation persistence.Reservation) persistence.Reservation {
	reservation.UserEmail = cloneString(reservation.UserEmail)
	reservation.StartTime = cloneString(reservation.StartTime)
	reservation.EndTime = cloneString(reservation.EndTime)
	reservation.Purpose = cloneString(reservation.Purpose)
	reservation.Notes = cloneString(reservation.Notes)
	return reservation
}

func cloneEquipment(equipment persistence.Equipment) persistence.Equipment {
	equipment.Model = cloneString(equipment.Model)
	equipment.Manufacturer = cloneString(equipment.Manufacturer)
	equipment.SerialNumber = cloneString(equipment.SerialNumber)
	equipment.AssetTag = cloneString(equipment.AssetTag)
	equipment.Category = cloneString(equipment.Category)
	equipment.CalibrationDate = cloneString(equipment.CalibrationDate)
	equipment.NextCalibration = cloneString(equipment.NextCalibration)
	equipment.Notes = cloneString(equipment.Notes)
	if equipment.LocationID != nil {
		id := *equipment.LocationID
		equipment.LocationID = &id
	}
	if equipment.Cost != nil {
		cost := *equipment.Cost
		equipment.Cost = &cost
	}
	return equipment
}

func cloneLocation(location persistence.Location) persistence.Location {
	location.Building = cloneString(location.Building)
	location.Room = cloneString(location.Room)
	location.Cabinet = cloneString(location.Cabinet)
	location.Shelf = cloneString(location.Shelf)
	location.Bin = cloneString(location.Bin)
	return location
}
