package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutex_SerialisesSameKey(t *testing.T) {
	t.Parallel()

	m := NewKeyedMutex()
	const workers = 32

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "equipment:1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxSeen)
	}
	if m.Len() != 0 {
		t.Fatalf("expected idle keys to be released, got %d", m.Len())
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	t.Parallel()

	m := NewKeyedMutex()
	unlockFirst, err := m.Lock(context.Background(), "equipment:1")
	if err != nil {
		t.Fatalf("lock first: %v", err)
	}
	defer unlockFirst()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockSecond, err := m.Lock(ctx, "equipment:2")
	if err != nil {
		t.Fatalf("expected different key to be available, got %v", err)
	}
	unlockSecond()
}

func TestKeyedMutex_HonoursContext(t *testing.T) {
	t.Parallel()

	m := NewKeyedMutex()
	unlock, err := m.Lock(context.Background(), "equipment:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Lock(ctx, "equipment:1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	unlock()

	if m.Len() != 0 {
		t.Fatalf("expected key to be released after timeout and unlock, got %d", m.Len())
	}

	again, err := m.Lock(context.Background(), "equipment:1")
	if err != nil {
		t.Fatalf("expected lock to be reusable, got %v", err)
	}
	again()
}
