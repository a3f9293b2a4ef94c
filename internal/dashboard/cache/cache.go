// Package cache holds the named dashboard caches backed by Redis.
//
// Every key carries the RBAC scope suffix, so cached aggregates are never
// shared across identities. Writes to the trace table invalidate every
// scope's variants; a short TTL bounds staleness when a delete is missed.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/shared/metrics"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/redis"
)

// Named dashboard cache entries.
const (
	EntryOverview   = "dashboard:overview"
	EntryCharts     = "dashboard:charts"
	EntryRecent     = "dashboard:recent_traces"
	EntryModelStats = "dashboard:model_stats"
	EntryErrorRate  = "dashboard:error_rate"
)

var entries = []string{EntryOverview, EntryCharts, EntryRecent, EntryModelStats, EntryErrorRate}

type Cache struct {
	redis   *redis.Client
	ttl     time.Duration
	enabled bool
	log     *zap.Logger
}

// New creates the dashboard cache. A nil redis client or enabled=false turns
// every operation into a no-op miss.
func New(redisClient *redis.Client, ttl time.Duration, enabled bool, log *zap.Logger) *Cache {
	return &Cache{
		redis:   redisClient,
		ttl:     ttl,
		enabled: enabled && redisClient != nil,
		log:     log,
	}
}

func key(entry, scopeSuffix string) string {
	return entry + ":" + scopeSuffix
}

// Get unmarshals the cached value for (entry, scope) into v, reporting
// whether it was present. Cache failures count as misses.
func (c *Cache) Get(ctx context.Context, entry, scopeSuffix string, v interface{}) bool {
	if !c.enabled {
		return false
	}

	raw, err := c.redis.Get(ctx, key(entry, scopeSuffix))
	if err != nil {
		metrics.CacheRequests.WithLabelValues(entry, "miss").Inc()
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		c.log.Debug("discarding undecodable cache entry", zap.String("entry", entry), zap.Error(err))
		metrics.CacheRequests.WithLabelValues(entry, "miss").Inc()
		return false
	}

	metrics.CacheRequests.WithLabelValues(entry, "hit").Inc()
	return true
}

// Set stores v for (entry, scope) with the configured TTL. Best-effort:
// failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, entry, scopeSuffix string, v interface{}) {
	if !c.enabled {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.log.Debug("failed to marshal cache value", zap.String("entry", entry), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key(entry, scopeSuffix), string(data), c.ttl); err != nil {
		c.log.Debug("cache set failed", zap.String("entry", entry), zap.Error(err))
	}
}

// Invalidate drops every scope variant of all named entries. Called after
// each trace write and bulk delete. Best-effort by design: a failed delete
// only means a stale read until the TTL expires.
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.enabled {
		return
	}

	for _, entry := range entries {
		if err := c.redis.DelByPattern(ctx, entry+":*"); err != nil {
			c.log.Debug("cache invalidation failed", zap.String("entry", entry), zap.Error(err))
		}
	}
}
