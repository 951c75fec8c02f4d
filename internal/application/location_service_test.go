package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/lab-inventory/internal/persistence"
)

type locationRepoStub struct {
	records map[int64]Location
	nextID  int64
}

func newLocationRepoStub() *locationRepoStub {
	return &locationRepoStub{records: make(map[int64]Location)}
}

func (r *locationRepoStub) CreateLocation(ctx context.Context, location Location) (int64, error) {
	r.nextID++
	location.ID = r.nextID
	r.records[location.ID] = location
	return location.ID, nil
}

func (r *locationRepoStub) GetLocation(ctx context.Context, id int64) (Location, error) {
	location, ok := r.records[id]
	if !ok {
		return Location{}, persistence.ErrNotFound
	}
	return location, nil
}

func (r *locationRepoStub) ListLocations(ctx context.Context) ([]Location, error) {
	return nil, nil
}

func (r *locationRepoStub) DeleteLocation(ctx context.Context, id int64) error {
	if _, ok := r.records[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func TestLocationService_CreateLocation(t *testing.T) {
	t.Run("requires building or room", func(t *testing.T) {
		svc := NewLocationService(newLocationRepoStub(), nil)

		_, err := svc.CreateLocation(context.Background(), LocationInput{Building: strPtr("  "), Shelf: strPtr("2")})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.Message != MessageMissingFields {
			t.Fatalf("expected missing fields message, got %q", vErr.Message)
		}
	})

	t.Run("accepts a room without a building", func(t *testing.T) {
		svc := NewLocationService(newLocationRepoStub(), nil)

		location, err := svc.CreateLocation(context.Background(), LocationInput{Room: strPtr(" 204 "), Bin: strPtr("")})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if location.ID == 0 || location.Room == nil || *location.Room != "204" {
			t.Fatalf("unexpected location %#v", location)
		}
		if location.Building != nil || location.Bin != nil {
			t.Fatalf("expected absent fields to stay nil, got %#v", location)
		}
	})
}

func TestLocationService_DeleteAndList(t *testing.T) {
	repo := newLocationRepoStub()
	svc := NewLocationService(repo, nil)

	locations, err := svc.ListLocations(context.Background())
	if err != nil || locations == nil {
		t.Fatalf("expected empty non-nil slice, got %#v (%v)", locations, err)
	}

	created, err := svc.CreateLocation(context.Background(), LocationInput{Building: strPtr("North")})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if err := svc.DeleteLocation(context.Background(), created.ID); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if err := svc.DeleteLocation(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetLocation(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
