package units

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingResolver struct {
	calls int
	known map[string]Resolution
	fail  bool
}

func (r *countingResolver) Resolve(_ context.Context, raw string) (Resolution, error) {
	r.calls++
	if r.fail {
		return DefaultResolution(raw), errors.New("registry unavailable")
	}
	if res, ok := r.known[NormalizeToken(raw)]; ok {
		return res, nil
	}
	return DefaultResolution(raw), nil
}

func TestCachedResolverCachesWithinTTL(t *testing.T) {
	inner := &countingResolver{known: map[string]Resolution{
		"ENG481": {CanonicalID: "ENGINE-48-1", Category: CategoryPrimary, OwnDepartment: true, CountsForMetrics: true},
	}}
	c := NewCachedResolver(inner, time.Minute)

	for i := 0; i < 3; i++ {
		res, err := c.Resolve(context.Background(), "eng481")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if res.CanonicalID != "ENGINE-48-1" {
			t.Fatalf("canonical id = %q", res.CanonicalID)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}
}

func TestCachedResolverServesStaleOnFailure(t *testing.T) {
	inner := &countingResolver{known: map[string]Resolution{
		"ENG481": {CanonicalID: "ENGINE-48-1", OwnDepartment: true, CountsForMetrics: true},
	}}
	c := NewCachedResolver(inner, time.Minute)
	if _, err := c.Resolve(context.Background(), "ENG481"); err != nil {
		t.Fatalf("warm: %v", err)
	}

	inner.fail = true
	c.Invalidate()
	// Re-seed the entry as expired so the next call attempts a refresh.
	c.mu.Lock()
	c.entries["ENG481"] = cacheEntry{
		res: Resolution{CanonicalID: "ENGINE-48-1", OwnDepartment: true, CountsForMetrics: true},
		at:  time.Now().Add(-2 * time.Minute),
	}
	c.mu.Unlock()

	res, err := c.Resolve(context.Background(), "ENG481")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.CanonicalID != "ENGINE-48-1" {
		t.Fatalf("stale value not served: %+v", res)
	}
}

func TestCachedResolverUnknownDefaults(t *testing.T) {
	inner := &countingResolver{}
	c := NewCachedResolver(inner, time.Minute)
	res, err := c.Resolve(context.Background(), " mutual99 ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.CanonicalID != "MUTUAL99" {
		t.Fatalf("canonical id = %q", res.CanonicalID)
	}
	if res.OwnDepartment || res.CountsForMetrics {
		t.Fatalf("unknown unit must be conservative: %+v", res)
	}
}

func TestPruneExpired(t *testing.T) {
	inner := &countingResolver{}
	c := NewCachedResolver(inner, time.Minute)
	if _, err := c.Resolve(context.Background(), "A1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c.mu.Lock()
	c.entries["OLD"] = cacheEntry{at: time.Now().Add(-2 * time.Minute)}
	c.mu.Unlock()

	c.PruneExpired()

	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.entries["OLD"]; ok {
		t.Fatal("expired entry not pruned")
	}
	if _, ok := c.entries["A1"]; !ok {
		t.Fatal("fresh entry pruned")
	}
}
