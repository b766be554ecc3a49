//go:build unit

package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

func indexRepository(path string) *entities.Repository {
	return entities.NewRepository("git", entities.RepositoryInfo{Path: path}, entities.RepositoryOptions{})
}

func TestRepositoryIndex(t *testing.T) {
	t.Parallel()

	t.Run("should keep the first repository added under a key", func(t *testing.T) {
		t.Parallel()

		// given
		index := entities.NewRepositoryIndex()
		first := indexRepository("/work/app")
		second := indexRepository("/work/app/")

		// when
		kept, inserted := index.Add(first)
		again, insertedAgain := index.Add(second)

		// then
		assert.True(t, inserted)
		assert.Same(t, first, kept)
		assert.False(t, insertedAgain)
		assert.Same(t, first, again)
		assert.Equal(t, 1, index.Len())
	})

	t.Run("should find the closest ancestor repository", func(t *testing.T) {
		t.Parallel()

		// given
		index := entities.NewRepositoryIndex()
		outer := indexRepository("/work/app")
		inner := indexRepository("/work/app/vendor/lib")
		index.Add(outer)
		index.Add(inner)

		// when
		fromInner, okInner := index.GetClosest("/work/app/vendor/lib/src/main.go")
		fromOuter, okOuter := index.GetClosest("/work/app/cmd")
		_, okNone := index.GetClosest("/elsewhere/file")

		// then
		require.True(t, okInner)
		assert.Same(t, inner, fromInner)
		require.True(t, okOuter)
		assert.Same(t, outer, fromOuter)
		assert.False(t, okNone)
	})

	t.Run("should list and filter repositories sorted by path", func(t *testing.T) {
		t.Parallel()

		// given
		index := entities.NewRepositoryIndex()
		index.Add(indexRepository("/work/zeta"))
		index.Add(indexRepository("/work/alpha"))
		index.Add(indexRepository("/other/beta"))

		// when
		values := index.Values()
		filtered := index.Filter(func(r *entities.Repository) bool { return entities.IsDescendant("/work", r.Path()) })

		// then
		require.Len(t, values, 3)
		assert.Equal(t, "/other/beta", values[0].Path())
		assert.Equal(t, "/work/zeta", values[2].Path())
		require.Len(t, filtered, 2)
		assert.Equal(t, "/work/alpha", filtered[0].Path())
	})

	t.Run("should remove by path", func(t *testing.T) {
		t.Parallel()

		// given
		index := entities.NewRepositoryIndex()
		repo := indexRepository("/work/app")
		index.Add(repo)

		// when
		removed, ok := index.Remove("/work/app/")

		// then
		assert.True(t, ok)
		assert.Same(t, repo, removed)
		assert.False(t, index.Has("/work/app"))
	})
}
