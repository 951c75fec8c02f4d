package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/lab-inventory/internal/persistence"
)

// EquipmentRepository captures the persistence operations needed by the service.
type EquipmentRepository interface {
	CreateEquipment(ctx context.Context, equipment Equipment) (int64, error)
	UpdateEquipment(ctx context.Context, equipment Equipment) error
	GetEquipment(ctx context.Context, id int64) (EquipmentView, error)
	ListEquipment(ctx context.Context, filter EquipmentFilter) ([]EquipmentView, error)
	DeleteEquipment(ctx context.Context, id int64) error
}

// EquipmentService manages the equipment catalog.
type EquipmentService struct {
	equipment EquipmentRepository
	now       func() time.Time
	logger    *slog.Logger
}

// NewEquipmentService constructs an equipment service with the provided dependencies.
func NewEquipmentService(equipment EquipmentRepository, now func() time.Time) *EquipmentService {
	return NewEquipmentServiceWithLogger(equipment, now, nil)
}

// NewEquipmentServiceWithLogger constructs an equipment service with a specified logger.
func NewEquipmentServiceWithLogger(equipment EquipmentRepository, now func() time.Time, logger *slog.Logger) *EquipmentService {
	if now == nil {
		now = time.Now
	}
	return &EquipmentService{equipment: equipment, now: now, logger: defaultLogger(logger)}
}

func (s *EquipmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EquipmentService", operation, attrs...)
}

// ListEquipment returns equipment matching filter ordered by name.
func (s *EquipmentService) ListEquipment(ctx context.Context, filter EquipmentFilter) (items []EquipmentView, err error) {
	if s == nil {
		err = fmt.Errorf("EquipmentService is nil")
		return
	}
	if s.equipment == nil {
		return []EquipmentView{}, nil
	}

	logger := s.loggerWith(ctx, "ListEquipment")
	defer func() {
		logOutcome(ctx, logger, err, "failed to list equipment", "equipment listed", "result_count", len(items))
	}()

	filter.Search = strings.TrimSpace(filter.Search)
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Status = strings.TrimSpace(filter.Status)

	items, err = s.equipment.ListEquipment(ctx, filter)
	if err != nil {
		err = mapEquipmentRepoError(err)
		return nil, err
	}
	if items == nil {
		items = []EquipmentView{}
	}
	return items, nil
}

// GetEquipment returns one equipment record with its location.
func (s *EquipmentService) GetEquipment(ctx context.Context, id int64) (EquipmentView, error) {
	if s == nil {
		return EquipmentView{}, fmt.Errorf("EquipmentService is nil")
	}
	if s.equipment == nil {
		return EquipmentView{}, fmt.Errorf("equipment repository not configured")
	}

	view, err := s.equipment.GetEquipment(ctx, id)
	if err != nil {
		return EquipmentView{}, mapEquipmentRepoError(err)
	}
	return view, nil
}

// CreateEquipment validates input and stores new equipment. A missing status
// defaults to Available.
func (s *EquipmentService) CreateEquipment(ctx context.Context, input EquipmentInput) (view EquipmentView, err error) {
	if s == nil {
		err = fmt.Errorf("EquipmentService is nil")
		return
	}
	if s.equipment == nil {
		err = fmt.Errorf("equipment repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEquipment")
	defer func() {
		logOutcome(ctx, logger, err, "failed to create equipment", "equipment created", "equipment_id", view.ID)
	}()

	input = normalizeEquipmentInput(input)
	if vErr := validateInput(ctx, input, MessageInvalidEquipment); vErr != nil {
		err = vErr
		return
	}

	now := s.now().UTC()
	equipment := Equipment{
		Name:            input.Name,
		Model:           input.Model,
		Manufacturer:    input.Manufacturer,
		SerialNumber:    input.SerialNumber,
		AssetTag:        input.AssetTag,
		Category:        input.Category,
		Status:          input.Status,
		LocationID:      input.LocationID,
		CalibrationDate: input.CalibrationDate,
		NextCalibration: input.NextCalibration,
		Cost:            input.Cost,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if equipment.Status == "" {
		equipment.Status = EquipmentStatusAvailable
	}

	var id int64
	id, err = s.equipment.CreateEquipment(ctx, equipment)
	if err != nil {
		err = mapEquipmentRepoError(err)
		return
	}

	view, err = s.equipment.GetEquipment(ctx, id)
	if err != nil {
		err = mapEquipmentRepoError(err)
		return
	}
	return view, nil
}

// UpdateEquipment applies a partial update to existing equipment.
func (s *EquipmentService) UpdateEquipment(ctx context.Context, id int64, patch EquipmentPatch) (view EquipmentView, err error) {
	if s == nil {
		err = fmt.Errorf("EquipmentService is nil")
		return
	}
	if s.equipment == nil {
		err = fmt.Errorf("equipment repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEquipment", "equipment_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update equipment", "equipment updated")
	}()

	var existing EquipmentView
	existing, err = s.equipment.GetEquipment(ctx, id)
	if err != nil {
		err = mapEquipmentRepoError(err)
		return
	}

	patch = normalizeEquipmentPatch(patch)
	if vErr := validateInput(ctx, patch, MessageInvalidEquipment); vErr != nil {
		err = vErr
		return
	}

	updated := applyEquipmentPatch(existing.Equipment, patch)
	updated.UpdatedAt = s.now().UTC()

	if err = s.equipment.UpdateEquipment(ctx, updated); err != nil {
		err = mapEquipmentRepoError(err)
		return
	}

	view, err = s.equipment.GetEquipment(ctx, id)
	if err != nil {
		err = mapEquipmentRepoError(err)
		return
	}
	return view, nil
}

// DeleteEquipment removes equipment. Equipment that still has reservations cannot
// be removed and yields ErrInUse.
func (s *EquipmentService) DeleteEquipment(ctx context.Context, id int64) (err error) {
	if s == nil {
		return fmt.Errorf("EquipmentService is nil")
	}
	if s.equipment == nil {
		return fmt.Errorf("equipment repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEquipment", "equipment_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete equipment", "equipment deleted")
	}()

	if err = s.equipment.DeleteEquipment(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			err = ErrInUse
			return
		}
		err = mapEquipmentRepoError(err)
		return
	}
	return nil
}

func applyEquipmentPatch(base Equipment, patch EquipmentPatch) Equipment {
	updated := base
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Model != nil {
		updated.Model = emptyToNil(*patch.Model)
	}
	if patch.Manufacturer != nil {
		updated.Manufacturer = emptyToNil(*patch.Manufacturer)
	}
	if patch.SerialNumber != nil {
		updated.SerialNumber = emptyToNil(*patch.SerialNumber)
	}
	if patch.AssetTag != nil {
		updated.AssetTag = emptyToNil(*patch.AssetTag)
	}
	if patch.Category != nil {
		updated.Category = emptyToNil(*patch.Category)
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.LocationID != nil {
		if *patch.LocationID == 0 {
			updated.LocationID = nil
		} else {
			locationID := *patch.LocationID
			updated.LocationID = &locationID
		}
	}
	if patch.CalibrationDate != nil {
		updated.CalibrationDate = emptyToNil(*patch.CalibrationDate)
	}
	if patch.NextCalibration != nil {
		updated.NextCalibration = emptyToNil(*patch.NextCalibration)
	}
	if patch.Cost != nil {
		cost := *patch.Cost
		updated.Cost = &cost
	}
	if patch.Notes != nil {
		updated.Notes = emptyToNil(*patch.Notes)
	}
	return updated
}

func normalizeEquipmentInput(input EquipmentInput) EquipmentInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Status = strings.TrimSpace(input.Status)
	input.Model = normalizeOptionalString(input.Model)
	input.Manufacturer = normalizeOptionalString(input.Manufacturer)
	input.SerialNumber = normalizeOptionalString(input.SerialNumber)
	input.AssetTag = normalizeOptionalString(input.AssetTag)
	input.Category = normalizeOptionalString(input.Category)
	input.CalibrationDate = normalizeOptionalString(input.CalibrationDate)
	input.NextCalibration = normalizeOptionalString(input.NextCalibration)
	input.Notes = normalizeOptionalString(input.Notes)
	return input
}

func normalizeEquipmentPatch(patch EquipmentPatch) EquipmentPatch {
	patch.Name = trimOptional(patch.Name)
	patch.Model = trimOptional(patch.Model)
	patch.Manufacturer = trimOptional(patch.Manufacturer)
	patch.SerialNumber = trimOptional(patch.SerialNumber)
	patch.AssetTag = trimOptional(patch.AssetTag)
	patch.Category = trimOptional(patch.Category)
	patch.Status = trimOptional(patch.Status)
	patch.CalibrationDate = trimOptional(patch.CalibrationDate)
	patch.NextCalibration = trimOptional(patch.NextCalibration)
	patch.Notes = trimOptional(patch.Notes)
	return patch
}

func mapEquipmentRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{Message: MessageInvalidEquipment}
		vErr.add("location_id", "location does not exist")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{Message: MessageInvalidEquipment}
		vErr.add("equipment", "equipment violates a storage constraint")
		return vErr
	}
	return err
}
