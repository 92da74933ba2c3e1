package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(opts ...Option) *Cache {
	return New(NewMemoryStore(), Keyspace("ps", "test", "unit"), opts...)
}

func TestCache_RoundTrip(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	in := payload{Name: "alpha", Count: 3}
	if err := c.Set(ctx, "k1", in, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out payload
	found, err := c.Get(ctx, "k1", &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("expected hit, got miss")
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestCache_MissReturnsFalse(t *testing.T) {
	c := newTestCache()

	var out payload
	found, err := c.Get(context.Background(), "absent", &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("expected miss for absent key")
	}
}

func TestCache_RejectsNonPositiveTTL(t *testing.T) {
	c := newTestCache()

	if err := c.Set(context.Background(), "k1", payload{}, 0); err == nil {
		t.Error("expected error for zero ttl")
	}
	if err := c.Set(context.Background(), "k1", payload{}, -time.Second); err == nil {
		t.Error("expected error for negative ttl")
	}
}

func TestCache_EntryExpires(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k1", payload{Name: "x"}, 20*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out payload
	if found, _ := c.Get(ctx, "k1", &out); !found {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(40 * time.Millisecond)

	if found, _ := c.Get(ctx, "k1", &out); found {
		t.Error("expected miss after expiry")
	}
}

func TestCache_CompressionTransparent(t *testing.T) {
	store := NewMemoryStore()
	c := New(store, "t:", WithCompressionThreshold(64))
	ctx := context.Background()

	big := payload{Name: strings.Repeat("projet de grande taille ", 50), Count: 42}
	if err := c.Set(ctx, "big", big, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	raw, found, err := store.Get(ctx, "t:big")
	if err != nil || !found {
		t.Fatalf("backend read failed: found=%v err=%v", found, err)
	}
	if !strings.HasPrefix(raw, tagGzip) {
		t.Errorf("large value not compressed, raw prefix %q", raw[:4])
	}

	var out payload
	if found, err := c.Get(ctx, "big", &out); err != nil || !found {
		t.Fatalf("Get failed: found=%v err=%v", found, err)
	}
	if out.Name != big.Name || out.Count != big.Count {
		t.Error("compressed round trip mismatch")
	}

	small := payload{Name: "s"}
	if err := c.Set(ctx, "small", small, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	raw, _, _ = store.Get(ctx, "t:small")
	if !strings.HasPrefix(raw, tagJSON) {
		t.Errorf("small value should stay plain JSON, raw prefix %q", raw[:4])
	}
}

func TestCache_DecodesUntaggedLegacyEntry(t *testing.T) {
	store := NewMemoryStore()
	c := New(store, "t:")
	ctx := context.Background()

	if err := store.Set(ctx, "t:old", `{"name":"legacy","count":7}`, time.Minute); err != nil {
		t.Fatalf("backend set failed: %v", err)
	}

	var out payload
	found, err := c.Get(ctx, "old", &out)
	if err != nil || !found {
		t.Fatalf("Get failed: found=%v err=%v", found, err)
	}
	if out.Name != "legacy" || out.Count != 7 {
		t.Errorf("legacy decode mismatch: got %+v", out)
	}
}

func TestCache_CorruptEntryIsSoftMiss(t *testing.T) {
	store := NewMemoryStore()
	c := New(store, "t:")
	ctx := context.Background()

	if err := store.Set(ctx, "t:bad", tagGzip+"not actually gzip", time.Minute); err != nil {
		t.Fatalf("backend set failed: %v", err)
	}

	var out payload
	found, err := c.Get(ctx, "bad", &out)
	if err != nil {
		t.Fatalf("corrupt entry must not surface an error, got %v", err)
	}
	if found {
		t.Error("corrupt entry must read as a miss")
	}
}

func TestCache_KeysStripNamespace(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	for _, k := range []string{"exp:a", "exp:b", "other:c"} {
		if err := c.Set(ctx, k, payload{}, time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	keys, err := c.Keys(ctx, "exp:*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	for _, k := range keys {
		if strings.Contains(k, "unit:") {
			t.Errorf("key %q still carries the namespace prefix", k)
		}
	}
}

func TestCache_DeleteByPattern(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	for _, k := range []string{"exp:a", "exp:b", "keep:c"} {
		if err := c.Set(ctx, k, payload{}, time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	deleted, err := c.DeleteByPattern(ctx, "exp:*")
	if err != nil {
		t.Fatalf("DeleteByPattern failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("got %d deleted, want 2", deleted)
	}

	var out payload
	if found, _ := c.Get(ctx, "keep:c", &out); !found {
		t.Error("non-matching key was deleted")
	}
}

func TestCache_CollectorCountsHitsAndMisses(t *testing.T) {
	collector := NewOpsCollector()
	c := newTestCache(WithCollector(collector))
	ctx := context.Background()

	var out payload
	_, _ = c.Get(ctx, "absent", &out)
	_ = c.Set(ctx, "k1", payload{}, time.Minute)
	_, _ = c.Get(ctx, "k1", &out)

	stats := collector.Snapshot()
	if stats.Hits != 1 {
		t.Errorf("got %d hits, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("got %d misses, want 1", stats.Misses)
	}
}

func TestTyped_MissReturnsNil(t *testing.T) {
	c := newTestCache()
	typed := NewTyped[payload](c)
	ctx := context.Background()

	got, err := typed.Get(ctx, "absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil on miss, got %+v", got)
	}

	in := payload{Name: "typed", Count: 1}
	if err := typed.Set(ctx, "k1", &in, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err = typed.Get(ctx, "k1")
	if err != nil || got == nil {
		t.Fatalf("Get failed: got=%v err=%v", got, err)
	}
	if *got != in {
		t.Errorf("typed round trip mismatch: got %+v, want %+v", *got, in)
	}
}
