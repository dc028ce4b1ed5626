package permissions

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/brokerhive/portal/pkg/observability"
)

func newTestCache(t *testing.T, withRedis bool) (*SnapshotCache, *Store, *miniredis.Miniredis, *observability.Metrics) {
	t.Helper()
	store, db := newTestStore(t)
	insertBroker(t, db, "b1", RoleBroker, Set{"nav_home": true})

	var client *redis.Client
	var mr *miniredis.Miniredis
	if withRedis {
		mr = miniredis.RunT(t)
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	cache := NewSnapshotCache(store, client, SnapshotCacheConfig{
		MaxEntries: 16,
		TTL:        time.Minute,
	}, metrics, testLogger())
	return cache, store, mr, metrics
}

func TestCacheMissThenLocalHit(t *testing.T) {
	cache, _, _, metrics := newTestCache(t, false)
	ctx := context.Background()

	perms, err := cache.GetPermissions(ctx, "b1")
	if err != nil {
		t.Fatalf("GetPermissions: %v", err)
	}
	if !perms.Enabled("nav_home") {
		t.Error("nav_home missing on first read")
	}
	if got := testutil.ToFloat64(metrics.CacheMissesTotal); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}

	if _, err := cache.GetPermissions(ctx, "b1"); err != nil {
		t.Fatalf("second GetPermissions: %v", err)
	}
	if got := testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("l1")); got != 1 {
		t.Errorf("l1 hits = %v, want 1", got)
	}
}

func TestCacheRedisTier(t *testing.T) {
	cache, store, mr, metrics := newTestCache(t, true)
	ctx := context.Background()

	// First read fills both tiers.
	if _, err := cache.GetPermissions(ctx, "b1"); err != nil {
		t.Fatalf("GetPermissions: %v", err)
	}
	if !mr.Exists("perms:b1") {
		t.Error("redis tier not filled")
	}

	// A second cache over the same store and redis sees the l2 entry.
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	second := NewSnapshotCache(store, client, SnapshotCacheConfig{TTL: time.Minute}, metrics, testLogger())

	if _, err := second.GetPermissions(ctx, "b1"); err != nil {
		t.Fatalf("GetPermissions via l2: %v", err)
	}
	if got := testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("l2")); got != 1 {
		t.Errorf("l2 hits = %v, want 1", got)
	}
}

func TestCacheReturnsClones(t *testing.T) {
	cache, _, _, _ := newTestCache(t, false)
	ctx := context.Background()

	first, err := cache.GetPermissions(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	first["nav_home"] = false

	second, err := cache.GetPermissions(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Enabled("nav_home") {
		t.Error("mutating a returned set corrupted the cached entry")
	}
}

func TestCacheSaveInvalidatesBothTiers(t *testing.T) {
	cache, _, mr, _ := newTestCache(t, true)
	ctx := context.Background()

	if _, err := cache.GetPermissions(ctx, "b1"); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("perms:b1") {
		t.Fatal("redis not filled before save")
	}

	next := Set{"nav_home": true, "action_export": true}
	if _, err := cache.SavePermissions(ctx, "b1", "admin-1", next, ""); err != nil {
		t.Fatalf("SavePermissions: %v", err)
	}

	if mr.Exists("perms:b1") {
		t.Error("redis entry survived the save")
	}

	perms, err := cache.GetPermissions(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if !perms.Enabled("action_export") {
		t.Error("read after save returned a stale snapshot")
	}
}

func TestCacheResetInvalidates(t *testing.T) {
	cache, _, _, _ := newTestCache(t, false)
	ctx := context.Background()

	next := Set{"nav_home": true, "action_import": true}
	if _, err := cache.SavePermissions(ctx, "b1", "admin-1", next, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetPermissions(ctx, "b1"); err != nil {
		t.Fatal(err)
	}

	tpl, err := cache.ResetToTemplate(ctx, "b1", "admin-1", "")
	if err != nil {
		t.Fatalf("ResetToTemplate: %v", err)
	}
	if tpl.Enabled("action_import") {
		t.Error("reset should drop action_import")
	}

	perms, err := cache.GetPermissions(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if perms.Enabled("action_import") {
		t.Error("read after reset returned a stale snapshot")
	}
}

func TestCacheDegradesWhenRedisDown(t *testing.T) {
	cache, _, mr, _ := newTestCache(t, true)
	ctx := context.Background()

	mr.Close()

	perms, err := cache.GetPermissions(ctx, "b1")
	if err != nil {
		t.Fatalf("GetPermissions with redis down: %v", err)
	}
	if !perms.Enabled("nav_home") {
		t.Error("store fallback returned wrong snapshot")
	}

	// Saves still work; invalidation failure is logged, not fatal.
	next := Set{"nav_home": true, "action_export": true}
	if _, err := cache.SavePermissions(ctx, "b1", "admin-1", next, ""); err != nil {
		t.Fatalf("SavePermissions with redis down: %v", err)
	}
}

func TestCacheFailedSaveKeepsCache(t *testing.T) {
	cache, _, _, _ := newTestCache(t, false)
	ctx := context.Background()

	if _, err := cache.GetPermissions(ctx, "b1"); err != nil {
		t.Fatal(err)
	}

	if _, err := cache.SavePermissions(ctx, "b1", "admin-1", Set{"ghost": true}, ""); err == nil {
		t.Fatal("expected error for unknown key")
	}

	perms, err := cache.GetPermissions(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if !perms.Enabled("nav_home") {
		t.Error("failed save disturbed the cached snapshot")
	}
}
