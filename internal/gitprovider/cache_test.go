//go:build unit

package gitprovider_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitrouter/internal/gitprovider"
)

func TestPromiseCache(t *testing.T) {
	t.Parallel()

	t.Run("should compute once and serve the stored value afterwards", func(t *testing.T) {
		t.Parallel()

		// given
		cache := gitprovider.NewStringCacheForTest(0, time.Now)
		var calls atomic.Int32
		compute := func() (string, error) {
			calls.Add(1)
			return "value", nil
		}

		// when
		first, firstErr := cache.Get("key", compute)
		second, secondErr := cache.Get("key", compute)

		// then
		require.NoError(t, firstErr)
		require.NoError(t, secondErr)
		assert.Equal(t, "value", first)
		assert.Equal(t, "value", second)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("should share one computation between concurrent misses", func(t *testing.T) {
		t.Parallel()

		// given
		cache := gitprovider.NewStringCacheForTest(0, time.Now)
		release := make(chan struct{})
		var calls atomic.Int32
		compute := func() (string, error) {
			calls.Add(1)
			<-release
			return "shared", nil
		}

		// when
		var wg sync.WaitGroup
		results := make([]string, 5)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = cache.Get("key", compute)
			}(i)
		}
		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		// then
		assert.Equal(t, int32(1), calls.Load())
		for _, result := range results {
			assert.Equal(t, "shared", result)
		}
	})

	t.Run("should not store failures", func(t *testing.T) {
		t.Parallel()

		// given
		cache := gitprovider.NewStringCacheForTest(0, time.Now)
		var calls atomic.Int32
		compute := func() (string, error) {
			calls.Add(1)
			return "", errors.New("boom")
		}

		// when
		_, firstErr := cache.Get("key", compute)
		_, secondErr := cache.Get("key", compute)

		// then
		require.Error(t, firstErr)
		require.Error(t, secondErr)
		assert.Equal(t, int32(2), calls.Load())
		_, ok := cache.Peek("key")
		assert.False(t, ok)
	})

	t.Run("should expire entries older than the ttl", func(t *testing.T) {
		t.Parallel()

		// given
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		var mu sync.Mutex
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		cache := gitprovider.NewStringCacheForTest(time.Minute, clock)
		_, err := cache.Get("key", func() (string, error) { return "old", nil })
		require.NoError(t, err)

		// when
		mu.Lock()
		now = now.Add(2 * time.Minute)
		mu.Unlock()
		value, err := cache.Get("key", func() (string, error) { return "new", nil })

		// then
		require.NoError(t, err)
		assert.Equal(t, "new", value)
	})

	t.Run("should drop a value computed across a clear", func(t *testing.T) {
		t.Parallel()

		// given
		cache := gitprovider.NewStringCacheForTest(0, time.Now)
		started := make(chan struct{})
		release := make(chan struct{})
		done := make(chan string)
		go func() {
			value, _ := cache.Get("key", func() (string, error) {
				close(started)
				<-release
				return "stale", nil
			})
			done <- value
		}()
		<-started

		// when
		cache.Clear()
		close(release)
		stale := <-done

		// then
		assert.Equal(t, "stale", stale)
		_, ok := cache.Peek("key")
		assert.False(t, ok)
		fresh, err := cache.Get("key", func() (string, error) { return "fresh", nil })
		require.NoError(t, err)
		assert.Equal(t, "fresh", fresh)
	})

	t.Run("should delete single keys", func(t *testing.T) {
		t.Parallel()

		// given
		cache := gitprovider.NewStringCacheForTest(0, time.Now)
		_, _ = cache.Get("a", func() (string, error) { return "a", nil })
		_, _ = cache.Get("b", func() (string, error) { return "b", nil })

		// when
		cache.Delete("a")

		// then
		_, hasA := cache.Peek("a")
		b, hasB := cache.Peek("b")
		assert.False(t, hasA)
		assert.True(t, hasB)
		assert.Equal(t, "b", b)
	})
}
