package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// CachedQuerier memoizes successful range results for identical specs
// within a TTL, so back-to-back reports over the same window do not hammer
// the backend. Failures are never cached. Safe for concurrent use; each
// instance carries its own lock.
type CachedQuerier struct {
	next Querier
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	series   model.SampleSeries
	storedAt time.Time
}

// NewCachedQuerier wraps a querier with a TTL cache. A non-positive TTL
// disables caching and the wrapper becomes a pass-through.
func NewCachedQuerier(next Querier, ttl time.Duration) *CachedQuerier {
	return &CachedQuerier{
		next:    next,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Range implements Querier.
func (c *CachedQuerier) Range(ctx context.Context, spec model.QuerySpec) (model.SampleSeries, error) {
	if c.ttl <= 0 {
		return c.next.Range(ctx, spec)
	}

	key := cacheKey(spec)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Since(entry.storedAt) < c.ttl {
		c.hits.Add(1)
		return entry.series, nil
	}
	c.misses.Add(1)

	series, err := c.next.Range(ctx, spec)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{series: series, storedAt: time.Now()}
	c.mu.Unlock()

	return series, nil
}

// Reachable implements Querier by delegating; reachability is never cached.
func (c *CachedQuerier) Reachable(ctx context.Context) bool {
	return c.next.Reachable(ctx)
}

// Stats returns cumulative hit and miss counts.
func (c *CachedQuerier) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops expired entries. The run loop calls this between passes so
// a long-lived process does not accumulate dead windows.
func (c *CachedQuerier) Purge() {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	for key, entry := range c.entries {
		if time.Since(entry.storedAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// cacheKey identifies a spec by everything that affects its result. The
// window is quantized to the step: ranges anchored at "now" drift by a
// few seconds between passes, and at step resolution those are the same
// query.
func cacheKey(spec model.QuerySpec) string {
	start, end := spec.Start, spec.End
	if spec.Step > 0 {
		start = start.Truncate(spec.Step)
		end = end.Truncate(spec.Step)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d|%d",
		spec.Kind, spec.Aggregation, spec.Namespace, spec.PodSelector,
		start.Unix(), end.Unix(), int64(spec.Step/time.Second))
}
