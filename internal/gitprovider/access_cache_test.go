//go:build unit

package gitprovider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/gitprovider"
)

var free = entities.Subscription{Plan: "free"} //nolint:gochecknoglobals // shared fixture

func TestAccess(t *testing.T) {
	t.Parallel()

	t.Run("should allow everything on a paid plan without asking for visibility", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)

		// when
		result, err := f.service.Access(context.Background(), entities.FeatureGraph, "/work/app")

		// then
		require.NoError(t, err)
		assert.True(t, result.IsAllowed())
		assert.Equal(t, "pro", result.Plan)
		assert.Zero(t, f.spy.Calls("visibility"))
	})

	t.Run("should deny private repositories on a free plan", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)
		f.subscriptions.Subscription = free

		// when
		first, firstErr := f.service.Access(context.Background(), entities.FeatureWorktrees, "/work/app")
		second, secondErr := f.service.Access(context.Background(), entities.FeatureWorktrees, "/work/app")

		// then
		require.NoError(t, firstErr)
		require.NoError(t, secondErr)
		assert.Equal(t, entities.AllowanceDenied, first.Allowed)
		assert.Equal(t, entities.VisibilityPrivate, first.Visibility)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, f.spy.Calls("visibility"))
	})

	t.Run("should allow public and local repositories on a free plan", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t, "/work/public", "/work/local")
		f.spy.SetVisibility("/work/public", entities.VisibilityPublic)
		f.subscriptions.Subscription = free
		f.discover(t, "/work")

		// when
		public, publicErr := f.service.Access(context.Background(), entities.FeatureGraph, "/work/public")
		local, localErr := f.service.Access(context.Background(), entities.FeatureGraph, "/work/local")

		// then
		require.NoError(t, publicErr)
		require.NoError(t, localErr)
		assert.True(t, public.IsAllowed())
		assert.True(t, local.IsAllowed())
		assert.Equal(t, entities.VisibilityLocal, local.Visibility)
	})

	t.Run("should treat an unreadable subscription as paid", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)
		f.subscriptions.Subscription = free
		f.subscriptions.CurrentErr = errors.New("account service down")

		// when
		result, err := f.service.Access(context.Background(), entities.FeatureGraph, "/work/app")

		// then
		require.NoError(t, err)
		assert.True(t, result.IsAllowed())
	})

	t.Run("should allow without caching when visibility fails", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)
		f.subscriptions.Subscription = free
		f.spy.VisibilityErr = errors.New("offline")

		// when
		failed, failedErr := f.service.Access(context.Background(), entities.FeatureGraph, "/work/app")
		f.spy.VisibilityErr = nil
		recovered, recoveredErr := f.service.Access(context.Background(), entities.FeatureGraph, "/work/app")

		// then
		require.NoError(t, failedErr)
		require.NoError(t, recoveredErr)
		assert.True(t, failed.IsAllowed())
		assert.Equal(t, entities.AllowanceDenied, recovered.Allowed)
	})

	t.Run("should aggregate the workspace", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t, "/work/public", "/work/private")
		f.spy.SetVisibility("/work/public", entities.VisibilityPublic)
		f.spy.SetVisibility("/work/private", entities.VisibilityPrivate)
		f.subscriptions.Subscription = free
		f.discover(t, "/work")

		// when
		result, err := f.service.Access(context.Background(), entities.FeatureLaunchpad, "")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.AllowanceMixed, result.Allowed)
		assert.Equal(t, entities.VisibilityMixed, result.Visibility)
		assert.Equal(t, entities.FeatureLaunchpad, result.Feature)
	})

	t.Run("should allow an empty workspace", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t)
		f.subscriptions.Subscription = free

		// when
		result, err := f.service.Access(context.Background(), entities.FeatureGraph, "")

		// then
		require.NoError(t, err)
		assert.True(t, result.IsAllowed())
	})

	t.Run("should recompute after the repository set changed", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(t, "/work/private", "/extra/public")
		f.spy.SetVisibility("/work/private", entities.VisibilityPrivate)
		f.spy.SetVisibility("/extra/public", entities.VisibilityPublic)
		f.subscriptions.Subscription = free
		f.discover(t, "/work")
		before, err := f.service.Access(context.Background(), entities.FeatureGraph, "")
		require.NoError(t, err)

		// when
		f.discover(t, "/extra")
		after, err := f.service.Access(context.Background(), entities.FeatureGraph, "")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.AllowanceDenied, before.Allowed)
		assert.Equal(t, entities.AllowanceMixed, after.Allowed)
	})
}

func TestChangeSubscription(t *testing.T) {
	t.Parallel()

	t.Run("should clear cached access and notify on a plan change", func(t *testing.T) {
		t.Parallel()

		// given
		f := privateFixture(t)
		f.subscriptions.Subscription = free
		denied, err := f.service.Access(context.Background(), entities.FeatureGraph, "/work/app")
		require.NoError(t, err)
		var events []gitprovider.SubscriptionChangeEvent
		f.service.OnDidChangeSubscription(func(event gitprovider.SubscriptionChangeEvent) {
			events = append(events, event)
		})
		paid := entities.Subscription{Plan: "pro", Paid: true}

		// when
		changeErr := f.service.ChangeSubscription(context.Background(), paid)
		allowed, accessErr := f.service.Access(context.Background(), entities.FeatureGraph, "/work/app")
		unchangedErr := f.service.ChangeSubscription(context.Background(), paid)

		// then
		require.NoError(t, changeErr)
		require.NoError(t, accessErr)
		require.NoError(t, unchangedErr)
		assert.Equal(t, entities.AllowanceDenied, denied.Allowed)
		assert.True(t, allowed.IsAllowed())
		require.Len(t, events, 1)
		assert.Equal(t, free, events[0].Previous)
		assert.Equal(t, paid, events[0].Current)
	})
}
