//go:build unit

package gitprovider

import (
	"time"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/metrics"
)

// NewStringCacheForTest exposes the promise cache with a controllable clock.
func NewStringCacheForTest(ttl time.Duration, now func() time.Time) *promiseCache[string] {
	cache := newPromiseCache[string](entities.CacheLayer("test"), ttl, metrics.NewRouterMetrics())
	cache.now = now
	return cache
}

// VisibilityStorageKey exposes the persisted visibility key of a root.
func VisibilityStorageKey(root entities.Locator) string {
	return visibilityStoragePrefix + root.Key()
}

// StarredStorageKey exposes the persisted star key of a root.
func StarredStorageKey(root entities.Locator) string {
	return starredStoragePrefix + root.Key()
}
