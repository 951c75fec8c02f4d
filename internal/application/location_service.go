package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/lab-inventory/internal/persistence"
)

// LocationRepository captures the persistence operations needed by the service.
type LocationRepository interface {
	CreateLocation(ctx context.Context, location Location) (int64, error)
	GetLocation(ctx context.Context, id int64) (Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	DeleteLocation(ctx context.Context, id int64) error
}

// LocationService manages storage locations.
type LocationService struct {
	locations LocationRepository
	now       func() time.Time
	logger    *slog.Logger
}

// NewLocationService constructs a location service with the provided dependencies.
func NewLocationService(locations LocationRepository, now func() time.Time) *LocationService {
	return NewLocationServiceWithLogger(locations, now, nil)
}

// NewLocationServiceWithLogger constructs a location service with a specified logger.
func NewLocationServiceWithLogger(locations LocationRepository, now func() time.Time, logger *slog.Logger) *LocationService {
	if now == nil {
		now = time.Now
	}
	return &LocationService{locations: locations, now: now, logger: defaultLogger(logger)}
}

func (s *LocationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LocationService", operation, attrs...)
}

// ListLocations returns every location ordered by building, room, cabinet and shelf.
func (s *LocationService) ListLocations(ctx context.Context) (locations []Location, err error) {
	if s == nil {
		err = fmt.Errorf("LocationService is nil")
		return
	}
	if s.locations == nil {
		return []Location{}, nil
	}

	logger := s.loggerWith(ctx, "ListLocations")
	defer func() {
		logOutcome(ctx, logger, err, "failed to list locations", "locations listed", "result_count", len(locations))
	}()

	locations, err = s.locations.ListLocations(ctx)
	if err != nil {
		err = mapLocationRepoError(err)
		return nil, err
	}
	if locations == nil {
		locations = []Location{}
	}
	return locations, nil
}

// GetLocation returns one location.
func (s *LocationService) GetLocation(ctx context.Context, id int64) (Location, error) {
	if s == nil {
		return Location{}, fmt.Errorf("LocationService is nil")
	}
	if s.locations == nil {
		return Location{}, fmt.Errorf("location repository not configured")
	}
	location, err := s.locations.GetLocation(ctx, id)
	if err != nil {
		return Location{}, mapLocationRepoError(err)
	}
	return location, nil
}

// CreateLocation validates input and stores a new location.
func (s *LocationService) CreateLocation(ctx context.Context, input LocationInput) (location Location, err error) {
	if s == nil {
		err = fmt.Errorf("LocationService is nil")
		return
	}
	if s.locations == nil {
		err = fmt.Errorf("location repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateLocation")
	defer func() {
		logOutcome(ctx, logger, err, "failed to create location", "location created", "location_id", location.ID)
	}()

	input.Building = normalizeOptionalString(input.Building)
	input.Room = normalizeOptionalString(input.Room)
	input.Cabinet = normalizeOptionalString(input.Cabinet)
	input.Shelf = normalizeOptionalString(input.Shelf)
	input.Bin = normalizeOptionalString(input.Bin)
	if vErr := validateInput(ctx, input, MessageInvalidLocation); vErr != nil {
		err = vErr
		return
	}

	candidate := Location{
		Building:  input.Building,
		Room:      input.Room,
		Cabinet:   input.Cabinet,
		Shelf:     input.Shelf,
		Bin:       input.Bin,
		CreatedAt: s.now().UTC(),
	}

	var id int64
	id, err = s.locations.CreateLocation(ctx, candidate)
	if err != nil {
		err = mapLocationRepoError(err)
		return
	}

	location, err = s.locations.GetLocation(ctx, id)
	if err != nil {
		err = mapLocationRepoError(err)
		return
	}
	return location, nil
}

// DeleteLocation removes a location. Equipment stored there keeps existing
// without a location.
func (s *LocationService) DeleteLocation(ctx context.Context, id int64) (err error) {
	if s == nil {
		return fmt.Errorf("LocationService is nil")
	}
	if s.locations == nil {
		return fmt.Errorf("location repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteLocation", "location_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete location", "location deleted")
	}()

	if err = s.locations.DeleteLocation(ctx, id); err != nil {
		err = mapLocationRepoError(err)
		return
	}
	return nil
}

func mapLocationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{Message: MessageInvalidLocation}
		vErr.add("location", "location violates a storage constraint")
		return vErr
	}
	return err
}
