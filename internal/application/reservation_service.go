package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/lab-inventory/internal/persistence"
	"github.com/example/lab-inventory/internal/scheduler"
)

// ReservationRepository captures the persistence operations needed by the service.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (int64, error)
	UpdateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id int64) (ReservationView, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]ReservationView, error)
	ListActiveReservations(ctx context.Context, equipmentID int64) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error
}

// BookingLocker serialises the conflict check and write for one key. The returned
// function releases the lock.
type BookingLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ReservationEventType names a reservation lifecycle change.
type ReservationEventType string

const (
	ReservationCreated ReservationEventType = "reservation.created"
	ReservationUpdated ReservationEventType = "reservation.updated"
	ReservationDeleted ReservationEventType = "reservation.deleted"
)

// ReservationEvent describes a committed reservation change.
type ReservationEvent struct {
	Type        ReservationEventType
	Reservation Reservation
	OccurredAt  time.Time
}

// EventPublisher delivers reservation events to interested consumers.
type EventPublisher interface {
	PublishReservationEvent(ctx context.Context, event ReservationEvent) error
}

// ReservationService enforces that non-cancelled reservations of the same equipment
// never share a day.
type ReservationService struct {
	reservations ReservationRepository
	locker       BookingLocker
	publisher    EventPublisher
	now          func() time.Time
	logger       *slog.Logger

	// mu serialises bookings when no locker is configured.
	mu sync.Mutex
}

// NewReservationService constructs a reservation service with the provided dependencies.
// A nil locker serialises every booking on the service; a nil publisher disables events.
func NewReservationService(reservations ReservationRepository, locker BookingLocker, publisher EventPublisher, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, locker, publisher, now, nil)
}

// NewReservationServiceWithLogger constructs a reservation service with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, locker BookingLocker, publisher EventPublisher, now func() time.Time, logger *slog.Logger) *ReservationService {
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		locker:       locker,
		publisher:    publisher,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// ListReservations returns reservations matching filter ordered by start date and time.
func (s *ReservationService) ListReservations(ctx context.Context, filter ReservationFilter) (views []ReservationView, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListReservations")
	defer func() {
		logOutcome(ctx, logger, err, "failed to list reservations", "reservations listed", "result_count", len(views))
	}()

	if filter.StartDate != nil {
		start := scheduler.TruncateDay(*filter.StartDate)
		filter.StartDate = &start
	}
	if filter.EndDate != nil {
		end := scheduler.TruncateDay(*filter.EndDate)
		filter.EndDate = &end
	}

	views, err = s.reservations.ListReservations(ctx, filter)
	if err != nil {
		err = mapReservationRepoError(err)
		return nil, err
	}
	if views == nil {
		views = []ReservationView{}
	}
	return views, nil
}

// GetReservation returns one reservation with its equipment display fields.
func (s *ReservationService) GetReservation(ctx context.Context, id int64) (ReservationView, error) {
	if s == nil {
		return ReservationView{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return ReservationView{}, fmt.Errorf("reservation repository not configured")
	}

	view, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		err = mapReservationRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "GetReservation", "reservation_id", id).
				ErrorContext(ctx, "failed to get reservation", "error", err, "error_kind", ErrorKind(err))
		}
		return ReservationView{}, err
	}
	return view, nil
}

// CreateReservation validates input, rejects bookings that overlap a non-cancelled
// reservation of the same equipment, and persists the booking as confirmed.
func (s *ReservationService) CreateReservation(ctx context.Context, input ReservationInput) (view ReservationView, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateReservation", "equipment_id", input.EquipmentID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create reservation", "reservation created", "reservation_id", view.ID)
	}()

	input = normalizeReservationInput(input)
	fieldErr := validateInput(ctx, input, MessageInvalidReservation)
	dates, rangeErr := parseReservationRange(input.StartDate, input.EndDate)
	if fieldErr.HasErrors() || rangeErr.HasErrors() {
		vErr := &ValidationError{}
		vErr.merge(fieldErr)
		vErr.merge(rangeErr)
		err = vErr
		return
	}
	logger = logger.With("days", dates.Days())

	reservation := Reservation{
		EquipmentID: input.EquipmentID,
		UserName:    input.UserName,
		UserEmail:   input.UserEmail,
		StartDate:   dates.Start,
		EndDate:     dates.End,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Purpose:     input.Purpose,
		Notes:       input.Notes,
		Status:      ReservationStatusConfirmed,
		CreatedAt:   s.now().UTC(),
	}

	var id int64
	id, err = s.createChecked(ctx, reservation)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	view, err = s.reservations.GetReservation(ctx, id)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	s.publish(ctx, logger, ReservationCreated, view.Reservation)
	return view, nil
}

func (s *ReservationService) createChecked(ctx context.Context, reservation Reservation) (int64, error) {
	unlock, err := s.lock(ctx, reservation.EquipmentID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := s.checkConflicts(ctx, reservation); err != nil {
		return 0, err
	}
	return s.reservations.CreateReservation(ctx, reservation)
}

// UpdateReservation applies a partial update under the equipment booking lock. When
// the result is an active booking whose equipment or dates changed, or that was
// cancelled before, it is re-checked for conflicts with every other active booking
// of that equipment.
func (s *ReservationService) UpdateReservation(ctx context.Context, id int64, patch ReservationPatch) (view ReservationView, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateReservation", "reservation_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update reservation", "reservation updated")
	}()

	var existing ReservationView
	existing, err = s.reservations.GetReservation(ctx, id)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	patch = normalizeReservationPatch(patch)
	if vErr := validateInput(ctx, patch, MessageInvalidReservation); vErr != nil {
		err = vErr
		return
	}

	if err = s.updateLocked(ctx, id, existing.EquipmentID, patch); err != nil {
		err = mapReservationRepoError(err)
		return
	}

	view, err = s.reservations.GetReservation(ctx, id)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	s.publish(ctx, logger, ReservationUpdated, view.Reservation)
	return view, nil
}

// updateLocked merges patch into the stored reservation and writes it while
// holding the locks of both the current and the requested equipment. The
// reservation is re-read under the locks so the merge never starts from a record
// another request has since changed.
func (s *ReservationService) updateLocked(ctx context.Context, id, equipmentID int64, patch ReservationPatch) error {
	for {
		keys := []int64{equipmentID}
		if patch.EquipmentID != nil {
			keys = append(keys, *patch.EquipmentID)
		}
		unlock, err := s.lock(ctx, keys...)
		if err != nil {
			return err
		}

		current, err := s.reservations.GetReservation(ctx, id)
		if err != nil {
			unlock()
			return err
		}
		if current.EquipmentID != equipmentID {
			// Moved to other equipment since the first read; lock that one instead.
			unlock()
			equipmentID = current.EquipmentID
			continue
		}

		err = s.applyUpdate(ctx, current.Reservation, patch)
		unlock()
		return err
	}
}

func (s *ReservationService) applyUpdate(ctx context.Context, current Reservation, patch ReservationPatch) error {
	merged, vErr := applyReservationPatch(current, patch)
	if vErr != nil {
		return vErr
	}
	if needsConflictCheck(current, merged) {
		if err := s.checkConflicts(ctx, merged); err != nil {
			return err
		}
	}
	return s.reservations.UpdateReservation(ctx, merged)
}

// DeleteReservation removes a reservation permanently. Deleting an unknown or
// already deleted reservation returns ErrNotFound.
func (s *ReservationService) DeleteReservation(ctx context.Context, id int64) (err error) {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteReservation", "reservation_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete reservation", "reservation deleted")
	}()

	existing, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return mapReservationRepoError(err)
	}
	if err := s.reservations.DeleteReservation(ctx, id); err != nil {
		return mapReservationRepoError(err)
	}

	s.publish(ctx, logger, ReservationDeleted, existing.Reservation)
	return nil
}

// lock acquires the booking locks of every listed equipment in ascending ID order
// so that two requests locking the same pair cannot deadlock.
func (s *ReservationService) lock(ctx context.Context, equipmentIDs ...int64) (func(), error) {
	if s.locker == nil {
		s.mu.Lock()
		return s.mu.Unlock, nil
	}

	ids := slices.Clone(equipmentIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	unlocks := make([]func(), 0, len(ids))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, equipmentID := range ids {
		unlock, err := s.locker.Lock(ctx, bookingLockKey(equipmentID))
		if err != nil {
			release()
			return nil, fmt.Errorf("acquire booking lock for equipment %d: %w", equipmentID, err)
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

func bookingLockKey(equipmentID int64) string {
	return "equipment:" + strconv.FormatInt(equipmentID, 10)
}

func (s *ReservationService) checkConflicts(ctx context.Context, candidate Reservation) error {
	active, err := s.reservations.ListActiveReservations(ctx, candidate.EquipmentID)
	if err != nil {
		return err
	}

	existing := make([]scheduler.Booking, 0, len(active))
	for _, reservation := range active {
		existing = append(existing, toBooking(reservation))
	}

	conflicts := scheduler.DetectConflicts(existing, toBooking(candidate))
	if len(conflicts) > 0 {
		return newConflictError(candidate.EquipmentID, scheduler.ConflictingIDs(conflicts))
	}
	return nil
}

func (s *ReservationService) publish(ctx context.Context, logger *slog.Logger, eventType ReservationEventType, reservation Reservation) {
	if s.publisher == nil {
		return
	}
	event := ReservationEvent{
		Type:        eventType,
		Reservation: reservation,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.publisher.PublishReservationEvent(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish reservation event", "event_type", string(eventType), "error", err)
	}
}

func toBooking(reservation Reservation) scheduler.Booking {
	return scheduler.Booking{
		ID:          reservation.ID,
		EquipmentID: reservation.EquipmentID,
		Range:       scheduler.NewDateRange(reservation.StartDate, reservation.EndDate),
		Cancelled:   reservation.Status == ReservationStatusCancelled,
	}
}

func needsConflictCheck(before, after Reservation) bool {
	if after.Status == ReservationStatusCancelled {
		return false
	}
	return before.Status == ReservationStatusCancelled ||
		before.EquipmentID != after.EquipmentID ||
		!before.StartDate.Equal(after.StartDate) ||
		!before.EndDate.Equal(after.EndDate)
}

func parseReservationRange(startValue, endValue string) (scheduler.DateRange, *ValidationError) {
	vErr := &ValidationError{Message: MessageInvalidReservation}

	start, err := scheduler.ParseDate(startValue)
	if err != nil {
		vErr.add("start_date", "start_date must be a date in YYYY-MM-DD format")
	}
	end, err := scheduler.ParseDate(endValue)
	if err != nil {
		vErr.add("end_date", "end_date must be a date in YYYY-MM-DD format")
	}
	if vErr.HasErrors() {
		return scheduler.DateRange{}, vErr
	}

	dates := scheduler.NewDateRange(start, end)
	if !dates.Valid() {
		vErr.add("end_date", "end_date must not be before start_date")
		return scheduler.DateRange{}, vErr
	}
	return dates, nil
}

func applyReservationPatch(base Reservation, patch ReservationPatch) (Reservation, *ValidationError) {
	merged := base
	if patch.EquipmentID != nil {
		merged.EquipmentID = *patch.EquipmentID
	}
	if patch.UserName != nil {
		merged.UserName = *patch.UserName
	}
	if patch.UserEmail != nil {
		merged.UserEmail = emptyToNil(*patch.UserEmail)
	}
	if patch.StartTime != nil {
		merged.StartTime = emptyToNil(*patch.StartTime)
	}
	if patch.EndTime != nil {
		merged.EndTime = emptyToNil(*patch.EndTime)
	}
	if patch.Purpose != nil {
		merged.Purpose = emptyToNil(*patch.Purpose)
	}
	if patch.Notes != nil {
		merged.Notes = emptyToNil(*patch.Notes)
	}
	if patch.Status != nil {
		merged.Status = ReservationStatus(*patch.Status)
	}

	startValue := scheduler.FormatDate(merged.StartDate)
	if patch.StartDate != nil {
		startValue = *patch.StartDate
	}
	endValue := scheduler.FormatDate(merged.EndDate)
	if patch.EndDate != nil {
		endValue = *patch.EndDate
	}
	dates, vErr := parseReservationRange(startValue, endValue)
	if vErr != nil {
		return Reservation{}, vErr
	}
	merged.StartDate = dates.Start
	merged.EndDate = dates.End

	return merged, nil
}

func normalizeReservationInput(input ReservationInput) ReservationInput {
	input.UserName = strings.TrimSpace(input.UserName)
	input.StartDate = strings.TrimSpace(input.StartDate)
	input.EndDate = strings.TrimSpace(input.EndDate)
	input.UserEmail = normalizeOptionalString(input.UserEmail)
	input.StartTime = normalizeOptionalString(input.StartTime)
	input.EndTime = normalizeOptionalString(input.EndTime)
	input.Purpose = normalizeOptionalString(input.Purpose)
	input.Notes = normalizeOptionalString(input.Notes)
	return input
}

func normalizeReservationPatch(patch ReservationPatch) ReservationPatch {
	patch.UserName = trimOptional(patch.UserName)
	patch.UserEmail = trimOptional(patch.UserEmail)
	patch.StartDate = trimOptional(patch.StartDate)
	patch.EndDate = trimOptional(patch.EndDate)
	patch.StartTime = trimOptional(patch.StartTime)
	patch.EndTime = trimOptional(patch.EndTime)
	patch.Purpose = trimOptional(patch.Purpose)
	patch.Notes = trimOptional(patch.Notes)
	if patch.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*patch.Status))
		patch.Status = &status
	}
	return patch
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}
	var overlap *persistence.OverlapError
	if errors.As(err, &overlap) {
		return newConflictError(overlap.EquipmentID, overlap.ConflictingIDs)
	}

	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{Message: MessageInvalidReservation}
		vErr.add("equipment_id", "equipment does not exist")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{Message: MessageInvalidReservation}
		vErr.add("reservation", "reservation violates a storage constraint")
		return vErr
	}
	return err
}

// normalizeOptionalString trims value and turns blank strings into nil.
func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// trimOptional trims value but keeps an empty string, which patches use to clear a field.
func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func emptyToNil(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
