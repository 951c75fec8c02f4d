package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/lab-inventory/internal/persistence"
	"github.com/example/lab-inventory/internal/persistence/sqlite/migration"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dir := t.TempDir()
	config := migration.TempFileTestSQLiteConfig(filepath.Join(dir, "inventory.db"))
	storage, err := Open(config, nil)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}

	t.Cleanup(func() {
		_ = storage.Close()
	})

	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return storage
}

func strPtr(s string) *string { return &s }

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func createEquipment(t *testing.T, storage *Storage, name string) int64 {
	t.Helper()

	id, err := storage.CreateEquipment(context.Background(), persistence.Equipment{
		Name:   name,
		Model:  strPtr(name + "-M"),
		Status: "Available",
	})
	if err != nil {
		t.Fatalf("CreateEquipment failed: %v", err)
	}
	return id
}

func TestStorage_Ping(t *testing.T) {
	storage := newTestStorage(t)
	if err := storage.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestStorage_MigrateIsIdempotent(t *testing.T) {
	storage := newTestStorage(t)
	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestReservationRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	equipmentID := createEquipment(t, storage, "Microscope")

	created := time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)
	id, err := storage.CreateReservation(ctx, persistence.Reservation{
		EquipmentID: equipmentID,
		UserName:    "Dana",
		UserEmail:   strPtr("dana@example.com"),
		StartDate:   day(2024, time.March, 4),
		EndDate:     day(2024, time.March, 6),
		StartTime:   strPtr("09:00"),
		Purpose:     strPtr("imaging"),
		CreatedAt:   created,
	})
	if err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	view, err := storage.GetReservation(ctx, id)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if view.Status != persistence.ReservationStatusConfirmed {
		t.Errorf("expected default status confirmed, got %q", view.Status)
	}
	if !view.StartDate.Equal(day(2024, time.March, 4)) || !view.EndDate.Equal(day(2024, time.March, 6)) {
		t.Errorf("unexpected dates: %v - %v", view.StartDate, view.EndDate)
	}
	if view.EquipmentName == nil || *view.EquipmentName != "Microscope" {
		t.Errorf("expected joined equipment name, got %v", view.EquipmentName)
	}
	if view.EquipmentModel == nil || *view.EquipmentModel != "Microscope-M" {
		t.Errorf("expected joined equipment model, got %v", view.EquipmentModel)
	}
	if view.EndTime != nil || view.Notes != nil {
		t.Errorf("expected unset optional fields to stay nil: %#v", view)
	}
	if !view.CreatedAt.Equal(created) {
		t.Errorf("expected created_at %v, got %v", created, view.CreatedAt)
	}
}

func TestReservationRepository_Constraints(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	equipmentID := createEquipment(t, storage, "Centrifuge")

	t.Run("unknown equipment", func(t *testing.T) {
		_, err := storage.CreateReservation(ctx, persistence.Reservation{
			EquipmentID: equipmentID + 100,
			UserName:    "Dana",
			StartDate:   day(2024, time.May, 1),
			EndDate:     day(2024, time.May, 1),
		})
		if !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := storage.CreateReservation(ctx, persistence.Reservation{
			EquipmentID: equipmentID,
			UserName:    "Dana",
			StartDate:   day(2024, time.May, 3),
			EndDate:     day(2024, time.May, 1),
		})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})

	t.Run("blank user", func(t *testing.T) {
		_, err := storage.CreateReservation(ctx, persistence.Reservation{
			EquipmentID: equipmentID,
			UserName:    "  ",
			StartDate:   day(2024, time.May, 1),
			EndDate:     day(2024, time.May, 1),
		})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})

	t.Run("equipment in use cannot be deleted", func(t *testing.T) {
		if _, err := storage.CreateReservation(ctx, persistence.Reservation{
			EquipmentID: equipmentID,
			UserName:    "Dana",
			StartDate:   day(2024, time.May, 1),
			EndDate:     day(2024, time.May, 2),
		}); err != nil {
			t.Fatalf("CreateReservation failed: %v", err)
		}

		err := storage.DeleteEquipment(ctx, equipmentID)
		if !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})
}

func TestReservationRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	equipmentID := createEquipment(t, storage, "Spectrometer")

	reservation := persistence.Reservation{
		EquipmentID: equipmentID,
		UserName:    "Lee",
		StartDate:   day(2024, time.June, 10),
		EndDate:     day(2024, time.June, 12),
		Status:      persistence.ReservationStatusConfirmed,
	}
	id, err := storage.CreateReservation(ctx, reservation)
	if err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	reservation.ID = id
	reservation.Status = persistence.ReservationStatusCancelled
	reservation.Notes = strPtr("sample delayed")
	if err := storage.UpdateReservation(ctx, reservation); err != nil {
		t.Fatalf("UpdateReservation failed: %v", err)
	}

	view, err := storage.GetReservation(ctx, id)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if view.Status != persistence.ReservationStatusCancelled {
		t.Errorf("expected cancelled, got %q", view.Status)
	}
	if view.Notes == nil || *view.Notes != "sample delayed" {
		t.Errorf("expected notes to be updated, got %v", view.Notes)
	}

	reservation.ID = id + 50
	if err := storage.UpdateReservation(ctx, reservation); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}

	if err := storage.DeleteReservation(ctx, id); err != nil {
		t.Fatalf("DeleteReservation failed: %v", err)
	}
	if err := storage.DeleteReservation(ctx, id); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := storage.GetReservation(ctx, id); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestReservationRepository_List(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	first := createEquipment(t, storage, "Laser")
	second := createEquipment(t, storage, "Oscilloscope")

	seed := []persistence.Reservation{
		{EquipmentID: first, UserName: "A", StartDate: day(2024, time.July, 5), EndDate: day(2024, time.July, 6)},
		{EquipmentID: first, UserName: "B", StartDate: day(2024, time.July, 1), EndDate: day(2024, time.July, 2)},
		{EquipmentID: second, UserName: "C", StartDate: day(2024, time.July, 3), EndDate: day(2024, time.July, 10)},
		{EquipmentID: first, UserName: "D", StartDate: day(2024, time.July, 8), EndDate: day(2024, time.July, 9), Status: persistence.ReservationStatusCancelled},
	}
	for _, r := range seed {
		if _, err := storage.CreateReservation(ctx, r); err != nil {
			t.Fatalf("CreateReservation failed: %v", err)
		}
	}

	t.Run("all ordered by start date", func(t *testing.T) {
		views, err := storage.ListReservations(ctx, persistence.ReservationFilter{})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		got := make([]string, 0, len(views))
		for _, v := range views {
			got = append(got, v.UserName)
		}
		want := []string{"B", "C", "A", "D"}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, got)
			}
		}
	})

	t.Run("equipment filter", func(t *testing.T) {
		views, err := storage.ListReservations(ctx, persistence.ReservationFilter{EquipmentID: &second})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(views) != 1 || views[0].UserName != "C" {
			t.Fatalf("unexpected result: %#v", views)
		}
	})

	t.Run("date window", func(t *testing.T) {
		from := day(2024, time.July, 4)
		to := day(2024, time.July, 7)
		views, err := storage.ListReservations(ctx, persistence.ReservationFilter{
			EndsOnOrAfter:    &from,
			StartsOnOrBefore: &to,
		})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(views) != 2 || views[0].UserName != "C" || views[1].UserName != "A" {
			t.Fatalf("unexpected result: %#v", views)
		}
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		missing := int64(999)
		views, err := storage.ListReservations(ctx, persistence.ReservationFilter{EquipmentID: &missing})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if views == nil || len(views) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", views)
		}
	})

	t.Run("active excludes cancelled", func(t *testing.T) {
		active, err := storage.ListActiveReservations(ctx, first)
		if err != nil {
			t.Fatalf("ListActiveReservations failed: %v", err)
		}
		if len(active) != 2 {
			t.Fatalf("expected 2 active reservations, got %d", len(active))
		}
		for _, r := range active {
			if r.Status == persistence.ReservationStatusCancelled {
				t.Fatalf("cancelled reservation returned: %#v", r)
			}
		}
	})
}

func TestEquipmentRepository(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	locationID, err := storage.CreateLocation(ctx, persistence.Location{
		Building: strPtr("North"),
		Room:     strPtr("101"),
	})
	if err != nil {
		t.Fatalf("CreateLocation failed: %v", err)
	}

	cost := 1250.5
	id, err := storage.CreateEquipment(ctx, persistence.Equipment{
		Name:         "Thermal Cycler",
		Manufacturer: strPtr("Acme Bio"),
		SerialNumber: strPtr("TC-100"),
		Category:     strPtr("PCR"),
		Status:       "Available",
		LocationID:   &locationID,
		Cost:         &cost,
	})
	if err != nil {
		t.Fatalf("CreateEquipment failed: %v", err)
	}
	createEquipment(t, storage, "Balance")

	view, err := storage.GetEquipment(ctx, id)
	if err != nil {
		t.Fatalf("GetEquipment failed: %v", err)
	}
	if view.Location == nil || view.Location.ID != locationID || *view.Location.Building != "North" {
		t.Fatalf("expected joined location, got %#v", view.Location)
	}
	if view.Cost == nil || *view.Cost != cost {
		t.Errorf("expected cost %v, got %v", cost, view.Cost)
	}

	t.Run("search is case-insensitive", func(t *testing.T) {
		views, err := storage.ListEquipment(ctx, persistence.EquipmentFilter{Search: "acme"})
		if err != nil {
			t.Fatalf("ListEquipment failed: %v", err)
		}
		if len(views) != 1 || views[0].ID != id {
			t.Fatalf("unexpected search result: %#v", views)
		}
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		views, err := storage.ListEquipment(ctx, persistence.EquipmentFilter{Search: "%"})
		if err != nil {
			t.Fatalf("ListEquipment failed: %v", err)
		}
		if len(views) != 0 {
			t.Fatalf("expected no match, got %#v", views)
		}
	})

	t.Run("ordered by name", func(t *testing.T) {
		views, err := storage.ListEquipment(ctx, persistence.EquipmentFilter{})
		if err != nil {
			t.Fatalf("ListEquipment failed: %v", err)
		}
		if len(views) != 2 || views[0].Name != "Balance" || views[1].Name != "Thermal Cycler" {
			t.Fatalf("unexpected order: %#v", views)
		}
	})

	t.Run("location and category filters", func(t *testing.T) {
		views, err := storage.ListEquipment(ctx, persistence.EquipmentFilter{Category: "PCR", LocationID: &locationID})
		if err != nil {
			t.Fatalf("ListEquipment failed: %v", err)
		}
		if len(views) != 1 || views[0].ID != id {
			t.Fatalf("unexpected result: %#v", views)
		}
	})

	t.Run("update", func(t *testing.T) {
		equipment := view.Equipment
		equipment.Status = "Under Maintenance"
		equipment.Cost = nil
		if err := storage.UpdateEquipment(ctx, equipment); err != nil {
			t.Fatalf("UpdateEquipment failed: %v", err)
		}
		updated, err := storage.GetEquipment(ctx, id)
		if err != nil {
			t.Fatalf("GetEquipment failed: %v", err)
		}
		if updated.Status != "Under Maintenance" || updated.Cost != nil {
			t.Fatalf("unexpected equipment after update: %#v", updated)
		}
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		_, err := storage.CreateEquipment(ctx, persistence.Equipment{Name: "Broken", Status: "lost"})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})

	t.Run("deleting a location clears equipment location", func(t *testing.T) {
		if err := storage.DeleteLocation(ctx, locationID); err != nil {
			t.Fatalf("DeleteLocation failed: %v", err)
		}
		updated, err := storage.GetEquipment(ctx, id)
		if err != nil {
			t.Fatalf("GetEquipment failed: %v", err)
		}
		if updated.LocationID != nil || updated.Location != nil {
			t.Fatalf("expected location to be cleared, got %#v", updated)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := storage.DeleteEquipment(ctx, id); err != nil {
			t.Fatalf("DeleteEquipment failed: %v", err)
		}
		if _, err := storage.GetEquipment(ctx, id); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestLocationRepository(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	for _, loc := range []persistence.Location{
		{Building: strPtr("South"), Room: strPtr("2")},
		{Building: strPtr("North"), Room: strPtr("9"), Shelf: strPtr("A")},
		{Building: strPtr("North"), Room: strPtr("1")},
	} {
		if _, err := storage.CreateLocation(ctx, loc); err != nil {
			t.Fatalf("CreateLocation failed: %v", err)
		}
	}

	locations, err := storage.ListLocations(ctx)
	if err != nil {
		t.Fatalf("ListLocations failed: %v", err)
	}
	if len(locations) != 3 {
		t.Fatalf("expected 3 locations, got %d", len(locations))
	}
	if *locations[0].Room != "1" || *locations[1].Room != "9" || *locations[2].Building != "South" {
		t.Fatalf("unexpected order: %#v", locations)
	}

	got, err := storage.GetLocation(ctx, locations[1].ID)
	if err != nil {
		t.Fatalf("GetLocation failed: %v", err)
	}
	if got.Shelf == nil || *got.Shelf != "A" {
		t.Errorf("expected shelf A, got %v", got.Shelf)
	}
	if got.Bin != nil {
		t.Errorf("expected nil bin, got %v", *got.Bin)
	}

	if _, err := storage.GetLocation(ctx, 999); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := storage.DeleteLocation(ctx, 999); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
