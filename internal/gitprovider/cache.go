package gitprovider

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/metrics"
)

type cacheEntry[V any] struct {
	value     V
	createdAt time.Time
}

// promiseCache memoizes computations per key. Concurrent misses for a key share one computation;
// failed computations are not stored, and a value computed across a Clear is returned but dropped.
type promiseCache[V any] struct {
	layer   entities.CacheLayer
	ttl     time.Duration
	metrics *metrics.RouterMetrics
	now     func() time.Time

	mu         sync.Mutex
	entries    map[string]cacheEntry[V]
	generation uint64
	group      singleflight.Group
}

func newPromiseCache[V any](
	layer entities.CacheLayer,
	ttl time.Duration,
	routerMetrics *metrics.RouterMetrics,
) *promiseCache[V] {
	return &promiseCache[V]{
		layer:   layer,
		ttl:     ttl,
		metrics: routerMetrics,
		now:     time.Now,
		entries: make(map[string]cacheEntry[V]),
	}
}

func (c *promiseCache[V]) Get(key string, compute func() (V, error)) (V, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && !c.expiredLocked(entry) {
		c.mu.Unlock()
		c.metrics.RegisterCacheHit(c.layer)
		return entry.value, nil
	}
	generation := c.generation
	c.mu.Unlock()

	// the flight key carries the generation so a call issued after Clear never joins a stale flight
	flightKey := strconv.FormatUint(generation, 10) + "|" + key
	result, err, shared := c.group.Do(flightKey, func() (any, error) {
		c.metrics.RegisterCacheMiss(c.layer)
		value, computeErr := compute()
		if computeErr != nil {
			return value, computeErr
		}

		c.mu.Lock()
		if c.generation == generation {
			c.entries[key] = cacheEntry[V]{value: value, createdAt: c.now()}
		}
		c.mu.Unlock()
		return value, nil
	})
	if shared {
		c.metrics.RegisterCacheHit(c.layer)
	}

	value, _ := result.(V)
	return value, err
}

// Peek returns the stored value without computing anything.
func (c *promiseCache[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.expiredLocked(entry) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *promiseCache[V]) Delete(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
	}
	c.generation++
}

func (c *promiseCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry[V])
	c.generation++
}

func (c *promiseCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *promiseCache[V]) expiredLocked(entry cacheEntry[V]) bool {
	return c.ttl > 0 && c.now().Sub(entry.createdAt) > c.ttl
}
