package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type statsRepoStub struct {
	stats InventoryStats
	err   error
	asOf  time.Time
}

func (r *statsRepoStub) InventoryStats(ctx context.Context, asOf time.Time) (InventoryStats, error) {
	r.asOf = asOf
	return r.stats, r.err
}

func TestStatsService_Summary(t *testing.T) {
	now := time.Date(2024, time.May, 10, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))

	t.Run("passes the current UTC time and fills an empty breakdown", func(t *testing.T) {
		repo := &statsRepoStub{stats: InventoryStats{Equipment: 4, Reservations: 2, ActiveReservations: 1}}
		svc := NewStatsServiceWithLogger(repo, func() time.Time { return now }, nil)

		stats, err := svc.Summary(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Equipment != 4 || stats.ActiveReservations != 1 {
			t.Fatalf("unexpected stats %#v", stats)
		}
		if stats.EquipmentByStatus == nil {
			t.Fatalf("expected a non-nil status breakdown")
		}
		if !repo.asOf.Equal(now) || repo.asOf.Location() != time.UTC {
			t.Fatalf("expected asOf %v in UTC, got %v", now, repo.asOf)
		}
	})

	t.Run("returns repository errors", func(t *testing.T) {
		boom := errors.New("disk I/O error")
		svc := NewStatsServiceWithLogger(&statsRepoStub{err: boom}, nil, nil)

		if _, err := svc.Summary(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("expected repository error, got %v", err)
		}
	})

	t.Run("requires a repository", func(t *testing.T) {
		svc := NewStatsServiceWithLogger(nil, nil, nil)

		if _, err := svc.Summary(context.Background()); err == nil || err.Error() != "stats repository not configured" {
			t.Fatalf("expected missing repository error, got %v", err)
		}
	})
}
