package metrics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	domain "github.com/pulsedesk/pulsedesk/internal/app/domain/metrics"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// SnapshotCache stores recent snapshots in Redis with a short TTL so bursts
// of dashboard refreshes don't fan out to every source each time. The
// reconciler itself stays stateless; the cache wraps it.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewSnapshotCache creates a cache. TTL defaults to 15 seconds.
func NewSnapshotCache(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("metrics-cache")
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(userID string) string { return "metrics:unified:" + userID }

// Get returns a cached snapshot, if present and decodable.
func (c *SnapshotCache) Get(ctx context.Context, userID string) (domain.Unified, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("snapshot cache read failed")
		}
		return domain.Unified{}, false
	}
	var snap domain.Unified
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Unified{}, false
	}
	return snap, true
}

// Set stores a snapshot. Cache failures are logged and ignored.
func (c *SnapshotCache) Set(ctx context.Context, userID string, snap domain.Unified) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(userID), raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("snapshot cache write failed")
	}
}

// SnapshotStore is the cache behind a CachedReconciler. Satisfied by
// SnapshotCache.
type SnapshotStore interface {
	Get(ctx context.Context, userID string) (domain.Unified, bool)
	Set(ctx context.Context, userID string, snap domain.Unified)
}

var _ SnapshotStore = (*SnapshotCache)(nil)

// CachedReconciler serves snapshots through the cache, falling back to a
// full reconciliation pass on miss.
type CachedReconciler struct {
	inner *Reconciler
	cache SnapshotStore
}

// NewCachedReconciler wraps a reconciler with a snapshot cache.
func NewCachedReconciler(inner *Reconciler, cache SnapshotStore) *CachedReconciler {
	return &CachedReconciler{inner: inner, cache: cache}
}

// Snapshot returns a cached snapshot when fresh, otherwise recomputes.
// Degraded snapshots are not cached so recovery is picked up immediately.
func (c *CachedReconciler) Snapshot(ctx context.Context, userID string) domain.Unified {
	if snap, ok := c.cache.Get(ctx, userID); ok {
		return snap
	}
	snap := c.inner.Snapshot(ctx, userID)
	if snap.DegradedCount() == 0 {
		c.cache.Set(ctx, userID, snap)
	}
	return snap
}
