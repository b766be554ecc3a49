package entities

import (
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// gitDirName is the metadata directory inside a working copy.
const gitDirName = ".git"

type changeRule struct {
	pattern glob.Glob
	changes ChangeSet
	discard bool
}

// changeRules classify a path relative to the .git directory; the first matching rule wins.
var changeRules = []changeRule{ //nolint:gochecknoglobals // fixed classification table
	{pattern: glob.MustCompile("FETCH_HEAD", '/'), discard: true},
	{pattern: glob.MustCompile("index", '/'), changes: NewChangeSet(ChangeIndex)},
	{pattern: glob.MustCompile("HEAD", '/'), changes: NewChangeSet(ChangeHead, ChangeHeads)},
	{pattern: glob.MustCompile("ORIG_HEAD", '/'), changes: NewChangeSet(ChangeHeads)},
	{pattern: glob.MustCompile("CHERRY_PICK_HEAD", '/'), changes: NewChangeSet(ChangeCherryPick, ChangeStatus)},
	{pattern: glob.MustCompile("MERGE_HEAD", '/'), changes: NewChangeSet(ChangeMerge, ChangeStatus)},
	{
		pattern: glob.MustCompile("{REBASE_HEAD,rebase-merge,rebase-merge/**,rebase-apply,rebase-apply/**}", '/'),
		changes: NewChangeSet(ChangeRebase, ChangeStatus),
	},
	{pattern: glob.MustCompile("config", '/'), changes: NewChangeSet(ChangeConfig, ChangeRemotes)},
	{pattern: glob.MustCompile("{refs/heads,refs/heads/**}", '/'), changes: NewChangeSet(ChangeHeads)},
	{pattern: glob.MustCompile("{refs/remotes,refs/remotes/**}", '/'), changes: NewChangeSet(ChangeRemotes)},
	{pattern: glob.MustCompile("{refs/stash,refs/stash/**,logs/refs/stash}", '/'), changes: NewChangeSet(ChangeStash)},
	{pattern: glob.MustCompile("{refs/tags,refs/tags/**}", '/'), changes: NewChangeSet(ChangeTags)},
	{pattern: glob.MustCompile("{worktrees,worktrees/**}", '/'), changes: NewChangeSet(ChangeWorktrees)},
}

// ClassifyGitPath maps a path relative to the .git directory to the changes it implies.
// discard is true for paths that must never produce a notification (FETCH_HEAD).
func ClassifyGitPath(relative string) (changes ChangeSet, discard bool) {
	rel := strings.TrimPrefix(NormalizePath(relative), "/")
	// lock files are written next to the file they guard
	rel = strings.TrimSuffix(rel, ".lock")

	for _, rule := range changeRules {
		if rule.pattern.Match(rel) {
			return rule.changes, rule.discard
		}
	}
	return NewChangeSet(ChangeUnknown), false
}

// ClassifyRepositoryPath classifies an absolute path inside the repository rooted at repoPath.
// inGitDir reports whether the path belongs to the .git directory rather than the working tree.
func ClassifyRepositoryPath(repoPath, changed string) (changes ChangeSet, discard, inGitDir bool) {
	root := NormalizePath(repoPath)
	target := NormalizePath(changed)
	gitDir := path.Join(root, gitDirName)

	if IsDescendant(gitDir, target) {
		relative := strings.TrimPrefix(strings.TrimPrefix(target, gitDir), "/")
		changes, discard = ClassifyGitPath(relative)
		return changes, discard, true
	}

	if path.Base(target) == ".gitignore" {
		return NewChangeSet(ChangeIgnores), false, false
	}
	return 0, false, false
}
