package local

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// git directories whose entries carry repository state; the rest of .git is not watched
var watchedGitDirs = []string{ //nolint:gochecknoglobals // lookup table
	"",
	"refs",
	"refs/heads",
	"refs/remotes",
	"refs/tags",
	"rebase-merge",
	"rebase-apply",
	"worktrees",
}

type repositoryWatcher struct {
	watcher *fsnotify.Watcher
	sink    func(entities.FileChange)
	once    sync.Once
	done    chan struct{}
}

// Watch subscribes to filesystem notifications under path. fsnotify is not recursive, so every
// working-tree directory is added individually and new directories are added as they appear.
func (p *LocalProviderRepository) Watch(path string, sink func(entities.FileChange)) (io.Closer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}

	for _, dir := range p.watchPaths(path) {
		logger.Debugf("Adding path to FS watcher: %s", dir)
		if addErr := watcher.Add(dir); addErr != nil {
			joined := errors.Join(addErr, watcher.Close())
			return nil, fmt.Errorf("watch %s: %w", dir, joined)
		}
	}

	w := &repositoryWatcher{watcher: watcher, sink: sink, done: make(chan struct{})}
	go p.watchLoop(w)
	return w, nil
}

func (p *LocalProviderRepository) watchPaths(path string) []string {
	root := filepath.FromSlash(path)
	paths := []string{}

	if gitDir, err := p.gitDir(path); err == nil {
		for _, sub := range watchedGitDirs {
			dir := filepath.Join(gitDir, filepath.FromSlash(sub))
			if info, statErr := p.fs.Stat(dir); statErr == nil && info.IsDir() {
				paths = append(paths, dir)
			}
		}
	}

	_ = afero.Walk(p.fs, root, func(current string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil //nolint:nilerr // best effort
		}
		if info.Name() == gitDirName {
			return filepath.SkipDir
		}
		if rel, relErr := filepath.Rel(root, current); relErr == nil && rel != "." &&
			p.isExcluded(filepath.ToSlash(rel), info.Name()) {
			return filepath.SkipDir
		}
		paths = append(paths, current)
		return nil
	})
	return paths
}

func (p *LocalProviderRepository) watchLoop(w *repositoryWatcher) {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			change, relevant := toFileChange(ev)
			if !relevant {
				continue
			}
			if ev.Has(fsnotify.Create) {
				p.addCreatedDir(w.watcher, ev.Name)
			}
			logger.Debugf("fsnotify event %s on %s", ev.Op, ev.Name)
			w.sink(change)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Errorf("fsnotify error: %v", err)
		}
	}
}

func (p *LocalProviderRepository) addCreatedDir(watcher *fsnotify.Watcher, name string) {
	info, err := p.fs.Stat(name)
	if err != nil || !info.IsDir() || info.Name() == gitDirName {
		return
	}
	if addErr := watcher.Add(name); addErr != nil {
		logger.Debugf("Failed to watch new directory %s: %v", name, addErr)
	}
}

func toFileChange(ev fsnotify.Event) (entities.FileChange, bool) {
	change := entities.FileChange{Path: entities.NormalizePath(ev.Name)}
	switch {
	case ev.Has(fsnotify.Create):
		change.Op = entities.FileCreated
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		change.Op = entities.FileDeleted
	case ev.Has(fsnotify.Write):
		change.Op = entities.FileChanged
	default:
		return change, false
	}
	return change, true
}

func (w *repositoryWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
