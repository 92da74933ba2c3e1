package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nibernar/project-service/cache"
)

func newManager() *Manager {
	return New(cache.NewMemoryStore(), "test:lock:")
}

func TestManager_AcquireRelease(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	token, ok, err := m.Acquire(ctx, "export", "fp1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !ok || token == "" {
		t.Fatalf("expected acquisition with token, got ok=%v token=%q", ok, token)
	}

	locked, err := m.IsLocked(ctx, "export", "fp1")
	if err != nil || !locked {
		t.Fatalf("expected lock held: locked=%v err=%v", locked, err)
	}

	released, err := m.Release(ctx, "export", "fp1", token)
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !released {
		t.Error("expected release to succeed with owner token")
	}

	locked, _ = m.IsLocked(ctx, "export", "fp1")
	if locked {
		t.Error("lock still held after release")
	}
}

func TestManager_SecondAcquireFails(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	if _, ok, _ := m.Acquire(ctx, "export", "fp1", time.Minute); !ok {
		t.Fatal("first acquisition should succeed")
	}
	if _, ok, _ := m.Acquire(ctx, "export", "fp1", time.Minute); ok {
		t.Error("second acquisition on held lock should fail")
	}
}

func TestManager_ConcurrentAcquireExactlyOneWinner(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	results := make(chan bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := m.Acquire(ctx, "export", "contended", time.Minute)
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("got %d winners, want exactly 1", winners)
	}
}

func TestManager_ReleaseWithWrongTokenKeepsLock(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	token, ok, _ := m.Acquire(ctx, "export", "fp1", time.Minute)
	if !ok {
		t.Fatal("acquisition should succeed")
	}

	released, err := m.Release(ctx, "export", "fp1", "not-the-token")
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if released {
		t.Error("release with wrong token must be a no-op")
	}

	if locked, _ := m.IsLocked(ctx, "export", "fp1"); !locked {
		t.Error("lock must stay held after mismatched release")
	}

	if released, _ := m.Release(ctx, "export", "fp1", token); !released {
		t.Error("owner release should still succeed")
	}
}

func TestManager_StaleReleaseLeavesNewHolderIntact(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	oldToken, ok, _ := m.Acquire(ctx, "export", "fp1", 20*time.Millisecond)
	if !ok {
		t.Fatal("acquisition should succeed")
	}

	time.Sleep(40 * time.Millisecond)

	newToken, ok, _ := m.Acquire(ctx, "export", "fp1", time.Minute)
	if !ok {
		t.Fatal("lock should be acquirable after expiry")
	}

	// The previous holder coming back after its TTL must not free the
	// current holder's lock.
	if released, _ := m.Release(ctx, "export", "fp1", oldToken); released {
		t.Error("stale token release must be a no-op")
	}
	if locked, _ := m.IsLocked(ctx, "export", "fp1"); !locked {
		t.Error("new holder's lock was lost")
	}

	if released, _ := m.Release(ctx, "export", "fp1", newToken); !released {
		t.Error("new holder release should succeed")
	}
}

func TestManager_EmptyTokenReleaseIsNoOp(t *testing.T) {
	m := newManager()

	released, err := m.Release(context.Background(), "export", "fp1", "")
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if released {
		t.Error("empty token release must report false")
	}
}

func TestManager_RejectsNonPositiveTTL(t *testing.T) {
	m := newManager()

	if _, _, err := m.Acquire(context.Background(), "export", "fp1", 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}
