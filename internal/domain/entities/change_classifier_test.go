//go:build unit

package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

func TestClassifyGitPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		relative string
		expected entities.ChangeSet
	}{
		{"index", "index", entities.NewChangeSet(entities.ChangeIndex)},
		{"index lock", "index.lock", entities.NewChangeSet(entities.ChangeIndex)},
		{"head", "HEAD", entities.NewChangeSet(entities.ChangeHead, entities.ChangeHeads)},
		{"orig head", "ORIG_HEAD", entities.NewChangeSet(entities.ChangeHeads)},
		{"merge", "MERGE_HEAD", entities.NewChangeSet(entities.ChangeMerge, entities.ChangeStatus)},
		{"cherry-pick", "CHERRY_PICK_HEAD", entities.NewChangeSet(entities.ChangeCherryPick, entities.ChangeStatus)},
		{"rebase dir", "rebase-merge/done", entities.NewChangeSet(entities.ChangeRebase, entities.ChangeStatus)},
		{"config", "config", entities.NewChangeSet(entities.ChangeConfig, entities.ChangeRemotes)},
		{"branch ref", "refs/heads/feature/x", entities.NewChangeSet(entities.ChangeHeads)},
		{"remote ref", "refs/remotes/origin/main", entities.NewChangeSet(entities.ChangeRemotes)},
		{"stash reflog", "logs/refs/stash", entities.NewChangeSet(entities.ChangeStash)},
		{"tag", "refs/tags/v1.0.0", entities.NewChangeSet(entities.ChangeTags)},
		{"worktree", "worktrees/wt1/HEAD", entities.NewChangeSet(entities.ChangeWorktrees)},
		{"unclassified", "objects/ab/cdef", entities.NewChangeSet(entities.ChangeUnknown)},
	}

	for _, tt := range tests {
		t.Run("should classify "+tt.name, func(t *testing.T) {
			t.Parallel()

			// when
			changes, discard := entities.ClassifyGitPath(tt.relative)

			// then
			assert.False(t, discard)
			assert.Equal(t, tt.expected, changes)
		})
	}

	t.Run("should discard FETCH_HEAD", func(t *testing.T) {
		t.Parallel()

		// when
		_, discard := entities.ClassifyGitPath("FETCH_HEAD")

		// then
		assert.True(t, discard)
	})
}

func TestClassifyRepositoryPath(t *testing.T) {
	t.Parallel()

	t.Run("should classify paths inside the git directory", func(t *testing.T) {
		t.Parallel()

		// when
		changes, discard, inGitDir := entities.ClassifyRepositoryPath("/work/app", "/work/app/.git/refs/tags/v2")

		// then
		assert.True(t, inGitDir)
		assert.False(t, discard)
		assert.True(t, changes.Has(entities.ChangeTags))
	})

	t.Run("should report ignore file edits as working-tree changes", func(t *testing.T) {
		t.Parallel()

		// when
		changes, _, inGitDir := entities.ClassifyRepositoryPath("/work/app", "/work/app/sub/.gitignore")

		// then
		assert.False(t, inGitDir)
		assert.Equal(t, entities.NewChangeSet(entities.ChangeIgnores), changes)
	})

	t.Run("should leave plain working-tree files unclassified", func(t *testing.T) {
		t.Parallel()

		// when
		changes, discard, inGitDir := entities.ClassifyRepositoryPath("/work/app", "/work/app/main.go")

		// then
		assert.False(t, inGitDir)
		assert.False(t, discard)
		assert.True(t, changes.IsEmpty())
	})
}
