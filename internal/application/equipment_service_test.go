package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/lab-inventory/internal/persistence"
)

type equipmentRepoStub struct {
	records map[int64]Equipment
	nextID  int64

	created   Equipment
	updated   Equipment
	createErr error
	updateErr error
	deleteErr error
	list      []EquipmentView
	filter    EquipmentFilter
}

func newEquipmentRepoStub(existing ...Equipment) *equipmentRepoStub {
	repo := &equipmentRepoStub{records: make(map[int64]Equipment)}
	for _, equipment := range existing {
		repo.records[equipment.ID] = equipment
		if equipment.ID > repo.nextID {
			repo.nextID = equipment.ID
		}
	}
	return repo
}

func (r *equipmentRepoStub) CreateEquipment(ctx context.Context, equipment Equipment) (int64, error) {
	if r.createErr != nil {
		return 0, r.createErr
	}
	r.nextID++
	equipment.ID = r.nextID
	r.created = equipment
	r.records[equipment.ID] = equipment
	return equipment.ID, nil
}

func (r *equipmentRepoStub) UpdateEquipment(ctx context.Context, equipment Equipment) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = equipment
	r.records[equipment.ID] = equipment
	return nil
}

func (r *equipmentRepoStub) GetEquipment(ctx context.Context, id int64) (EquipmentView, error) {
	equipment, ok := r.records[id]
	if !ok {
		return EquipmentView{}, persistence.ErrNotFound
	}
	return EquipmentView{Equipment: equipment}, nil
}

func (r *equipmentRepoStub) ListEquipment(ctx context.Context, filter EquipmentFilter) ([]EquipmentView, error) {
	r.filter = filter
	return r.list, nil
}

func (r *equipmentRepoStub) DeleteEquipment(ctx context.Context, id int64) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.records[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func TestEquipmentService_CreateEquipment(t *testing.T) {
	t.Run("defaults status and trims fields", func(t *testing.T) {
		repo := newEquipmentRepoStub()
		now := time.Date(2024, time.May, 2, 8, 0, 0, 0, time.UTC)
		svc := NewEquipmentService(repo, func() time.Time { return now })

		cost := 1250.5
		view, err := svc.CreateEquipment(context.Background(), EquipmentInput{
			Name:         "  Centrifuge  ",
			Manufacturer: strPtr(" Eppendorf "),
			SerialNumber: strPtr(""),
			Cost:         &cost,
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if view.Name != "Centrifuge" {
			t.Fatalf("expected trimmed name, got %q", view.Name)
		}
		if view.Status != EquipmentStatusAvailable {
			t.Fatalf("expected default status, got %q", view.Status)
		}
		if view.Manufacturer == nil || *view.Manufacturer != "Eppendorf" {
			t.Fatalf("expected trimmed manufacturer, got %v", view.Manufacturer)
		}
		if view.SerialNumber != nil {
			t.Fatalf("expected blank serial number to be dropped")
		}
		if !repo.created.CreatedAt.Equal(now) || !repo.created.UpdatedAt.Equal(now) {
			t.Fatalf("expected timestamps from injected clock, got %v / %v", repo.created.CreatedAt, repo.created.UpdatedAt)
		}
	})

	t.Run("validates input", func(t *testing.T) {
		svc := NewEquipmentService(newEquipmentRepoStub(), nil)

		cost := -1.0
		_, err := svc.CreateEquipment(context.Background(), EquipmentInput{
			Name:            "Scale",
			Status:          "Lost",
			Cost:            &cost,
			CalibrationDate: strPtr("next week"),
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.Message != MessageInvalidEquipment {
			t.Fatalf("expected invalid equipment message, got %q", vErr.Message)
		}
		for _, field := range []string{"status", "cost", "calibration_date"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("requires a name", func(t *testing.T) {
		svc := NewEquipmentService(newEquipmentRepoStub(), nil)

		_, err := svc.CreateEquipment(context.Background(), EquipmentInput{Name: "   "})

		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Message != MessageMissingFields {
			t.Fatalf("expected missing fields error, got %v", err)
		}
	})

	t.Run("maps unknown locations", func(t *testing.T) {
		repo := newEquipmentRepoStub()
		repo.createErr = persistence.ErrForeignKeyViolation
		svc := NewEquipmentService(repo, nil)

		locationID := int64(9)
		_, err := svc.CreateEquipment(context.Background(), EquipmentInput{Name: "Scale", LocationID: &locationID})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["location_id"]; !ok {
			t.Fatalf("expected location_id error, got %v", vErr.FieldErrors)
		}
	})
}

func TestEquipmentService_UpdateEquipment(t *testing.T) {
	locationID := int64(3)
	cost := 10.0
	existing := Equipment{
		ID:         1,
		Name:       "Microscope",
		Model:      strPtr("CX23"),
		Status:     EquipmentStatusAvailable,
		LocationID: &locationID,
		Cost:       &cost,
	}

	t.Run("applies partial changes", func(t *testing.T) {
		repo := newEquipmentRepoStub(existing)
		now := time.Date(2024, time.May, 3, 8, 0, 0, 0, time.UTC)
		svc := NewEquipmentService(repo, func() time.Time { return now })

		zero := int64(0)
		view, err := svc.UpdateEquipment(context.Background(), 1, EquipmentPatch{
			Status:     strPtr(EquipmentStatusUnderMaintenance),
			Model:      strPtr(""),
			LocationID: &zero,
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if view.Name != "Microscope" {
			t.Fatalf("expected name to be unchanged, got %q", view.Name)
		}
		if view.Status != EquipmentStatusUnderMaintenance {
			t.Fatalf("expected status change, got %q", view.Status)
		}
		if view.Model != nil {
			t.Fatalf("expected model to be cleared")
		}
		if view.LocationID != nil {
			t.Fatalf("expected location to be cleared")
		}
		if view.Cost == nil || *view.Cost != 10 {
			t.Fatalf("expected cost to be unchanged, got %v", view.Cost)
		}
		if !repo.updated.UpdatedAt.Equal(now) {
			t.Fatalf("expected updated at from injected clock, got %v", repo.updated.UpdatedAt)
		}
	})

	t.Run("returns not found for unknown equipment", func(t *testing.T) {
		svc := NewEquipmentService(newEquipmentRepoStub(), nil)

		if _, err := svc.UpdateEquipment(context.Background(), 5, EquipmentPatch{}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects blank names", func(t *testing.T) {
		svc := NewEquipmentService(newEquipmentRepoStub(existing), nil)

		_, err := svc.UpdateEquipment(context.Background(), 1, EquipmentPatch{Name: strPtr(" ")})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["name"]; !ok {
			t.Fatalf("expected name error, got %v", vErr.FieldErrors)
		}
	})
}

func TestEquipmentService_DeleteEquipment(t *testing.T) {
	t.Run("reports equipment with reservations as in use", func(t *testing.T) {
		repo := newEquipmentRepoStub(Equipment{ID: 1, Name: "Scale"})
		repo.deleteErr = persistence.ErrForeignKeyViolation
		svc := NewEquipmentService(repo, nil)

		if err := svc.DeleteEquipment(context.Background(), 1); !errors.Is(err, ErrInUse) {
			t.Fatalf("expected ErrInUse, got %v", err)
		}
	})

	t.Run("deleting twice reports not found", func(t *testing.T) {
		svc := NewEquipmentService(newEquipmentRepoStub(Equipment{ID: 1, Name: "Scale"}), nil)

		if err := svc.DeleteEquipment(context.Background(), 1); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if err := svc.DeleteEquipment(context.Background(), 1); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEquipmentService_ListEquipment(t *testing.T) {
	repo := newEquipmentRepoStub()
	svc := NewEquipmentService(repo, nil)

	items, err := svc.ListEquipment(context.Background(), EquipmentFilter{Search: "  micro ", Status: " Available "})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
	if repo.filter.Search != "micro" || repo.filter.Status != "Available" {
		t.Fatalf("expected trimmed filter, got %#v", repo.filter)
	}
}
