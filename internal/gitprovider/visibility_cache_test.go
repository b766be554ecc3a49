//go:build unit

package gitprovider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/gitprovider"
	"github.com/rios0rios0/gitrouter/test/domain/entitybuilders"
)

func privateFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, "/work/app")
	f.spy.SetRemotes("/work/app", entitybuilders.NewRemoteBuilder().BuildRemote())
	f.spy.SetVisibility("/work/app", entities.VisibilityPrivate)
	f.discover(t, "/work")
	return f
}

func TestVisibility(t *testing.T) {
	t.Parallel()

	t.Run("should compute once and persist the result", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)

		// when
		first, firstErr := f.service.Visibility(context.Background(), "/work/app")
		second, secondErr := f.service.Visibility(context.Background(), "/work/app/src")

		// then
		require.NoError(t, firstErr)
		require.NoError(t, secondErr)
		assert.Equal(t, entities.VisibilityPrivate, first)
		assert.Equal(t, entities.VisibilityPrivate, second)
		assert.Equal(t, 1, f.spy.Calls("visibility"))
		assert.True(t, f.storage.Has(gitprovider.VisibilityStorageKey(entities.NewFileLocator("/work/app"))))
	})

	t.Run("should reuse the persisted result while the remotes match", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)
		_, err := f.service.Visibility(context.Background(), "/work/app")
		require.NoError(t, err)
		restarted := f.newService()
		t.Cleanup(restarted.Dispose)
		_, err = restarted.RegisterProvider(f.spy)
		require.NoError(t, err)
		require.NoError(t, restarted.Discover(context.Background(), []string{"/work"}, gitprovider.DiscoverOptions{}))

		// when
		visibility, err := restarted.Visibility(context.Background(), "/work/app")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityPrivate, visibility)
		assert.Equal(t, 1, f.spy.Calls("visibility"))
	})

	t.Run("should recompute when the remotes changed since it was persisted", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)
		_, err := f.service.Visibility(context.Background(), "/work/app")
		require.NoError(t, err)
		f.spy.SetRemotes("/work/app",
			entitybuilders.NewRemoteBuilder().WithURL("https://github.com/acme/renamed.git").BuildRemote())
		f.spy.SetVisibility("/work/app", entities.VisibilityPublic)
		restarted := f.newService()
		t.Cleanup(restarted.Dispose)
		_, err = restarted.RegisterProvider(f.spy)
		require.NoError(t, err)
		require.NoError(t, restarted.Discover(context.Background(), []string{"/work"}, gitprovider.DiscoverOptions{}))

		// when
		visibility, err := restarted.Visibility(context.Background(), "/work/app")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityPublic, visibility)
		assert.Equal(t, 2, f.spy.Calls("visibility"))
	})

	t.Run("should ignore an expired persisted result", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t, "/work/app")
		f.spy.SetVisibility("/work/app", entities.VisibilityPrivate)
		key := gitprovider.VisibilityStorageKey(entities.NewFileLocator("/work/app"))
		stale := entities.NewVisibilityInfo(entities.VisibilityPublic, "", time.Now().Add(-2*entities.DefaultVisibilityTTL))
		require.NoError(t, f.storage.Store(key, stale))
		f.discover(t, "/work")

		// when
		visibility, err := f.service.Visibility(context.Background(), "/work/app")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityPrivate, visibility)
		assert.Equal(t, 1, f.spy.Calls("visibility"))
	})

	t.Run("should not persist local repositories", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t, "/work/app")
		f.discover(t, "/work")

		// when
		visibility, err := f.service.Visibility(context.Background(), "/work/app")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityLocal, visibility)
		assert.False(t, f.storage.Has(gitprovider.VisibilityStorageKey(entities.NewFileLocator("/work/app"))))
	})

	t.Run("should answer public on failure without caching it", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)
		f.spy.VisibilityErr = errors.New("offline")

		// when
		failed, failedErr := f.service.Visibility(context.Background(), "/work/app")
		f.spy.VisibilityErr = nil
		recovered, recoveredErr := f.service.Visibility(context.Background(), "/work/app")

		// then
		require.NoError(t, failedErr)
		require.NoError(t, recoveredErr)
		assert.Equal(t, entities.VisibilityPublic, failed)
		assert.Equal(t, entities.VisibilityPrivate, recovered)
		assert.Equal(t, 2, f.spy.Calls("visibility"))
	})

	t.Run("should fail for paths outside known repositories", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t)

		// when
		_, err := f.service.Visibility(context.Background(), "/nowhere")

		// then
		require.ErrorIs(t, err, entities.ErrRepositoryNotFound)
	})
}

func TestAggregateVisibility(t *testing.T) {
	t.Parallel()

	t.Run("should be local without repositories", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t)

		// when
		visibility, err := f.service.Visibility(context.Background(), "")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityLocal, visibility)
	})

	t.Run("should agree when every repository agrees", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t, "/work/a", "/work/b")
		f.spy.SetVisibility("/work/a", entities.VisibilityPrivate)
		f.spy.SetVisibility("/work/b", entities.VisibilityPrivate)
		f.discover(t, "/work")

		// when
		visibility, err := f.service.Visibility(context.Background(), "")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityPrivate, visibility)
	})

	t.Run("should be mixed on disagreement and refresh when repositories are added", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t, "/work/a", "/work/b", "/extra/c")
		f.spy.SetVisibility("/work/a", entities.VisibilityPublic)
		f.spy.SetVisibility("/work/b", entities.VisibilityPublic)
		f.spy.SetVisibility("/extra/c", entities.VisibilityPrivate)
		f.discover(t, "/work")
		before, err := f.service.Visibility(context.Background(), "")
		require.NoError(t, err)

		// when
		f.discover(t, "/extra")
		after, err := f.service.Visibility(context.Background(), "")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityPublic, before)
		assert.Equal(t, entities.VisibilityMixed, after)
	})

	t.Run("should recompute repository visibility when the repository set changes", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t, "/work/app", "/extra/c")
		f.discover(t, "/work")
		before, err := f.service.Visibility(context.Background(), "/work/app")
		require.NoError(t, err)
		f.spy.SetVisibility("/work/app", entities.VisibilityPrivate)

		// when
		f.discover(t, "/extra")
		after, err := f.service.Visibility(context.Background(), "/work/app")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityLocal, before)
		assert.Equal(t, entities.VisibilityPrivate, after)
		assert.Equal(t, 2, f.spy.Calls("visibility"))
	})

	t.Run("should answer public when a repository fails", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t, "/work/a", "/work/b")
		f.spy.VisibilityErr = errors.New("offline")
		f.discover(t, "/work")

		// when
		visibility, err := f.service.Visibility(context.Background(), "")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityPublic, visibility)
	})
}

func TestResetCaches(t *testing.T) {
	t.Parallel()

	t.Run("should purge persisted visibility", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)
		_, err := f.service.Visibility(context.Background(), "/work/app")
		require.NoError(t, err)

		// when
		f.service.ResetCaches(entities.CacheVisibility)

		// then
		assert.False(t, f.storage.Has(gitprovider.VisibilityStorageKey(entities.NewFileLocator("/work/app"))))
		_, err = f.service.Visibility(context.Background(), "/work/app")
		require.NoError(t, err)
		assert.Equal(t, 2, f.spy.Calls("visibility"))
	})

	t.Run("should forward the provider layer to providers", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t)

		// when
		f.service.ResetCaches(entities.CacheProviders)
		f.service.ResetCaches()

		// then
		assert.Equal(t, 2, f.spy.Calls("reset"))
	})

	t.Run("should recompute visibility after a provider reset", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t, "/work/app")
		f.discover(t, "/work")
		before, err := f.service.Visibility(context.Background(), "/work/app")
		require.NoError(t, err)
		f.spy.SetVisibility("/work/app", entities.VisibilityPrivate)

		// when
		f.service.ResetCaches(entities.CacheProviders)
		after, err := f.service.Visibility(context.Background(), "/work/app")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.VisibilityLocal, before)
		assert.Equal(t, entities.VisibilityPrivate, after)
		assert.Equal(t, 2, f.spy.Calls("visibility"))
	})

	t.Run("should keep persisted visibility on a provider reset", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)
		_, err := f.service.Visibility(context.Background(), "/work/app")
		require.NoError(t, err)

		// when
		f.service.ResetCaches(entities.CacheProviders)

		// then
		assert.True(t, f.storage.Has(gitprovider.VisibilityStorageKey(entities.NewFileLocator("/work/app"))))
	})

	t.Run("should leave other layers alone", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)
		_, err := f.service.Visibility(context.Background(), "/work/app")
		require.NoError(t, err)

		// when
		f.service.ResetCaches(entities.CacheBestRemotes, entities.CacheAccess)

		// then
		_, err = f.service.Visibility(context.Background(), "/work/app")
		require.NoError(t, err)
		assert.Equal(t, 1, f.spy.Calls("visibility"))
	})
}
