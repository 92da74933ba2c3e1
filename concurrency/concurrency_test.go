package concurrency

import (
	"sync"
	"testing"
)

func TestNewGate_RejectsNonPositiveMax(t *testing.T) {
	if _, err := NewGate(0); err == nil {
		t.Error("expected error for max=0")
	}
	if _, err := NewGate(-1); err == nil {
		t.Error("expected error for negative max")
	}
}

func TestGate_CapsConcurrency(t *testing.T) {
	g, err := NewGate(3)
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !g.TryAcquire() {
			t.Fatalf("acquisition %d should succeed", i)
		}
	}
	if g.TryAcquire() {
		t.Error("acquisition beyond cap should fail")
	}
	if g.Active() != 3 {
		t.Errorf("got %d active, want 3", g.Active())
	}
	if g.Available() != 0 {
		t.Errorf("got %d available, want 0", g.Available())
	}

	g.Release()
	if !g.TryAcquire() {
		t.Error("slot should be reusable after release")
	}
}

func TestGate_CountsRejections(t *testing.T) {
	g, _ := NewGate(1)

	g.TryAcquire()
	g.TryAcquire()
	g.TryAcquire()

	m := g.Snapshot()
	if m.Rejected != 2 {
		t.Errorf("got %d rejected, want 2", m.Rejected)
	}
	if m.TotalExecutions != 1 {
		t.Errorf("got %d total executions, want 1", m.TotalExecutions)
	}
}

func TestGate_ReleaseWithoutAcquirePanics(t *testing.T) {
	g, _ := NewGate(1)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on unmatched release")
		}
	}()
	g.Release()
}

func TestGate_ConcurrentAcquireNeverExceedsCap(t *testing.T) {
	const cap = 4
	g, _ := NewGate(cap)

	var wg sync.WaitGroup
	acquired := make(chan struct{}, 64)

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire() {
				if g.Active() > cap {
					t.Errorf("active %d exceeds cap %d", g.Active(), cap)
				}
				acquired <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(acquired)

	n := int32(len(acquired))
	if n > cap {
		t.Errorf("%d acquisitions succeeded, cap is %d", n, cap)
	}
	if g.Active() != n {
		t.Errorf("got %d active, want %d", g.Active(), n)
	}
}
