package entities

import (
	"io"
	"path"
	"sort"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

const (
	// DefaultRepositoryChangeDelay is the debounce applied to repository-state changes.
	DefaultRepositoryChangeDelay = 250 * time.Millisecond
	// DefaultFileSystemChangeDelay is the debounce applied to working-tree changes.
	DefaultFileSystemChangeDelay = 2500 * time.Millisecond
)

// RepositoryInfo is what a provider reports when it finds a repository boundary.
type RepositoryInfo struct {
	Path   string
	Root   Locator
	Folder string
	Closed bool
}

// FileChangeOp is the kind of a raw filesystem notification.
type FileChangeOp int

const (
	FileCreated FileChangeOp = iota
	FileChanged
	FileDeleted
)

func (op FileChangeOp) String() string {
	switch op {
	case FileCreated:
		return "create"
	case FileDeleted:
		return "delete"
	default:
		return "change"
	}
}

// FileChange is a raw notification produced by a provider's filesystem watch.
type FileChange struct {
	Path string
	Op   FileChangeOp
}

// RepositoryChangeEvent carries every change coalesced since the previous emission.
type RepositoryChangeEvent struct {
	Repository *Repository
	Changes    ChangeSet
}

// Changed is a shortcut for Changes.Changed.
func (e RepositoryChangeEvent) Changed(mode ChangeMode, kinds ...ChangeKind) bool {
	return e.Changes.Changed(mode, kinds...)
}

// FileSystemChangeEvent carries the working-tree paths changed since the previous emission.
type FileSystemChangeEvent struct {
	Repository *Repository
	Paths      []string
}

// RepositoryEventSink is the owning service's aggregate event sink.
type RepositoryEventSink interface {
	RepositoryChanged(event RepositoryChangeEvent)
	RepositoryFileSystemChanged(event FileSystemChangeEvent)
}

// RepositoryOptions configures a Repository handle.
type RepositoryOptions struct {
	ChangeDelay     time.Duration
	FileSystemDelay time.Duration
	Sink            RepositoryEventSink
	// Starred restores a persisted star without firing Starred.
	Starred bool
}

// Repository is an opened, identity-stable handle on one working copy. It coalesces low-level
// notifications into debounced RepositoryChangeEvent and FileSystemChangeEvent emissions.
type Repository struct {
	id         string
	path       string
	root       Locator
	providerID string
	folder     string

	sink            RepositoryEventSink
	changeDelay     time.Duration
	fileSystemDelay time.Duration

	mu        sync.Mutex
	closed    bool
	suspended bool
	disposed  bool
	starred   bool
	updatedAt time.Time

	pendingChanges ChangeSet
	changeTimer    *time.Timer

	pendingPaths     map[string]struct{}
	fileSystemTimer  *time.Timer
	fsSubscriptions  map[int]time.Duration
	nextSubscription int

	watcher io.Closer

	fetchSampler     func() (time.Time, error)
	fetchSampleTimer *time.Timer
	lastFetched      time.Time
	fetchSampled     bool

	onDidChange           *Emitter[RepositoryChangeEvent]
	onDidChangeFileSystem *Emitter[FileSystemChangeEvent]
}

// NewRepository creates the handle for info, owned by providerID.
func NewRepository(providerID string, info RepositoryInfo, opts RepositoryOptions) *Repository {
	if opts.ChangeDelay <= 0 {
		opts.ChangeDelay = DefaultRepositoryChangeDelay
	}
	if opts.FileSystemDelay <= 0 {
		opts.FileSystemDelay = DefaultFileSystemChangeDelay
	}

	repoPath := NormalizePath(info.Path)
	root := info.Root
	if root.Path == "" {
		root = NewFileLocator(repoPath)
	}
	root.Path = NormalizePath(root.Path)

	return &Repository{
		id:                    PathKey(repoPath),
		path:                  repoPath,
		root:                  root,
		providerID:            providerID,
		folder:                info.Folder,
		closed:                info.Closed,
		starred:               opts.Starred,
		sink:                  opts.Sink,
		changeDelay:           opts.ChangeDelay,
		fileSystemDelay:       opts.FileSystemDelay,
		updatedAt:             time.Now(),
		fsSubscriptions:       make(map[int]time.Duration),
		onDidChange:           NewEmitter[RepositoryChangeEvent]("repository.change"),
		onDidChangeFileSystem: NewEmitter[FileSystemChangeEvent]("repository.filesystem"),
	}
}

// ID is the comparison key derived from the normalized path.
func (it *Repository) ID() string { return it.id }

// Path is the normalized repository path.
func (it *Repository) Path() string { return it.path }

// Root is the locator of the repository root.
func (it *Repository) Root() Locator { return it.root }

// ProviderID names the provider owning this repository.
func (it *Repository) ProviderID() string { return it.providerID }

// Folder is the workspace root the repository was discovered under, if any.
func (it *Repository) Folder() string { return it.folder }

// Name is the last path segment.
func (it *Repository) Name() string { return path.Base(it.path) }

func (it *Repository) String() string { return it.path }

// Closed reports whether the provider has closed the repository.
func (it *Repository) Closed() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.closed
}

// SetClosed updates the closed flag, firing Closed or Opened when it changes.
func (it *Repository) SetClosed(closed bool) {
	it.mu.Lock()
	changed := it.closed != closed
	it.closed = closed
	it.mu.Unlock()

	if !changed {
		return
	}
	if closed {
		it.FireChange(ChangeClosed)
	} else {
		it.FireChange(ChangeOpened)
	}
}

// Starred reports whether the repository is starred.
func (it *Repository) Starred() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.starred
}

// SetStarred updates the starred flag, firing Starred when it changes.
func (it *Repository) SetStarred(starred bool) {
	it.mu.Lock()
	changed := it.starred != starred
	it.starred = starred
	it.mu.Unlock()

	if changed {
		it.FireChange(ChangeStarred)
	}
}

// Suspended reports whether emissions are currently held back.
func (it *Repository) Suspended() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.suspended
}

// UpdatedAt is the time of the last repository-state notification.
func (it *Repository) UpdatedAt() time.Time {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.updatedAt
}

// OnDidChange subscribes to coalesced repository change events.
func (it *Repository) OnDidChange(fn func(RepositoryChangeEvent)) func() {
	return it.onDidChange.Subscribe(fn)
}

// OnDidChangeFileSystem subscribes to coalesced working-tree change events.
func (it *Repository) OnDidChangeFileSystem(fn func(FileSystemChangeEvent)) func() {
	return it.onDidChangeFileSystem.Subscribe(fn)
}

// FireChange queues kinds for the next coalesced emission. While a flush is scheduled further calls
// only grow the pending set. While suspended the changes stay queued until Resume.
func (it *Repository) FireChange(kinds ...ChangeKind) {
	if len(kinds) == 0 {
		kinds = []ChangeKind{ChangeUnknown}
	}

	it.mu.Lock()
	if it.disposed {
		it.mu.Unlock()
		return
	}
	it.updatedAt = time.Now()
	it.pendingChanges = it.pendingChanges.With(kinds...)
	it.scheduleFetchSampleLocked()

	if it.suspended {
		logger.Debugf("Queueing suspended repository changes %s for %s", it.pendingChanges, it.path)
		it.mu.Unlock()
		return
	}
	if it.changeTimer == nil {
		it.changeTimer = time.AfterFunc(it.changeDelay, it.flushChanges)
	}
	it.mu.Unlock()
}

// flushChanges emits the pending change set to local listeners and then to the sink.
func (it *Repository) flushChanges() {
	it.mu.Lock()
	if it.changeTimer != nil {
		it.changeTimer.Stop()
		it.changeTimer = nil
	}
	if it.suspended || it.disposed || it.pendingChanges.IsEmpty() {
		it.mu.Unlock()
		return
	}
	changes := it.pendingChanges
	it.pendingChanges = 0
	it.mu.Unlock()

	event := RepositoryChangeEvent{Repository: it, Changes: changes}
	it.onDidChange.Fire(event)
	if it.sink != nil {
		it.sink.RepositoryChanged(event)
	}
}

// WatchFileSystem starts delivering working-tree change events; the effective debounce is the
// slowest of the configured delay and every active subscription. The returned function unsubscribes.
func (it *Repository) WatchFileSystem(delay time.Duration) func() {
	it.mu.Lock()
	it.nextSubscription++
	id := it.nextSubscription
	it.fsSubscriptions[id] = delay
	it.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			it.mu.Lock()
			delete(it.fsSubscriptions, id)
			if len(it.fsSubscriptions) == 0 {
				it.pendingPaths = nil
				if it.fileSystemTimer != nil {
					it.fileSystemTimer.Stop()
					it.fileSystemTimer = nil
				}
			}
			it.mu.Unlock()
		})
	}
}

// FireFileSystemChange queues a working-tree path. Ignored unless someone watches the filesystem.
func (it *Repository) FireFileSystemChange(changed string) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.disposed || len(it.fsSubscriptions) == 0 {
		return
	}
	if it.pendingPaths == nil {
		it.pendingPaths = make(map[string]struct{})
	}
	it.pendingPaths[NormalizePath(changed)] = struct{}{}

	if it.suspended {
		return
	}
	if it.fileSystemTimer == nil {
		it.fileSystemTimer = time.AfterFunc(it.fileSystemDelayLocked(), it.flushFileSystemChanges)
	}
}

func (it *Repository) fileSystemDelayLocked() time.Duration {
	delay := it.fileSystemDelay
	for _, d := range it.fsSubscriptions {
		if d > delay {
			delay = d
		}
	}
	return delay
}

func (it *Repository) flushFileSystemChanges() {
	it.mu.Lock()
	if it.fileSystemTimer != nil {
		it.fileSystemTimer.Stop()
		it.fileSystemTimer = nil
	}
	if it.suspended || it.disposed || len(it.pendingPaths) == 0 {
		it.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(it.pendingPaths))
	for p := range it.pendingPaths {
		paths = append(paths, p)
	}
	it.pendingPaths = nil
	it.mu.Unlock()

	sort.Strings(paths)
	event := FileSystemChangeEvent{Repository: it, Paths: paths}
	it.onDidChangeFileSystem.Fire(event)
	if it.sink != nil {
		it.sink.RepositoryFileSystemChanged(event)
	}
}

// HandleFileChange folds a raw provider notification into the right pending state.
func (it *Repository) HandleFileChange(change FileChange) {
	changes, discard, inGitDir := ClassifyRepositoryPath(it.path, change.Path)
	if discard {
		it.mu.Lock()
		it.scheduleFetchSampleLocked()
		it.mu.Unlock()
		return
	}
	if inGitDir {
		it.FireChange(changes.Kinds()...)
		return
	}
	if !changes.IsEmpty() {
		it.FireChange(changes.Kinds()...)
	}
	it.FireFileSystemChange(change.Path)
}

// Suspend holds back emissions until Resume.
func (it *Repository) Suspend() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.suspended = true
}

// Resume lifts the suspension and immediately flushes anything queued meanwhile.
func (it *Repository) Resume() {
	it.mu.Lock()
	if !it.suspended {
		it.mu.Unlock()
		return
	}
	it.suspended = false
	hasChanges := !it.pendingChanges.IsEmpty()
	hasPaths := len(it.pendingPaths) > 0
	it.mu.Unlock()

	if hasChanges {
		it.flushChanges()
	}
	if hasPaths {
		it.flushFileSystemChanges()
	}
}

// SetWatcher attaches the provider watch so Dispose can release it.
func (it *Repository) SetWatcher(watcher io.Closer) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.watcher = watcher
}

// SetFetchSampler installs the function used to sample the time of the last remote sync.
func (it *Repository) SetFetchSampler(sampler func() (time.Time, error)) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.fetchSampler = sampler
	it.fetchSampled = false
}

// LastFetched returns the last sampled remote sync time, sampling on first use.
func (it *Repository) LastFetched() (time.Time, error) {
	it.mu.Lock()
	if it.fetchSampled || it.fetchSampler == nil {
		fetched := it.lastFetched
		it.mu.Unlock()
		return fetched, nil
	}
	it.mu.Unlock()
	return it.sampleFetch()
}

func (it *Repository) sampleFetch() (time.Time, error) {
	it.mu.Lock()
	sampler := it.fetchSampler
	it.fetchSampleTimer = nil
	it.mu.Unlock()
	if sampler == nil {
		return time.Time{}, nil
	}

	fetched, err := sampler()
	if err != nil {
		return time.Time{}, err
	}

	it.mu.Lock()
	it.lastFetched = fetched
	it.fetchSampled = true
	it.mu.Unlock()
	return fetched, nil
}

func (it *Repository) scheduleFetchSampleLocked() {
	if it.fetchSampler == nil || it.disposed {
		return
	}
	if it.fetchSampleTimer != nil {
		it.fetchSampleTimer.Stop()
	}
	it.fetchSampleTimer = time.AfterFunc(it.changeDelay, func() {
		if _, err := it.sampleFetch(); err != nil {
			logger.Debugf("Failed to sample last fetch time for %s: %v", it.path, err)
		}
	})
}

// Dispose stops every timer and releases the provider watch. Pending changes are dropped.
func (it *Repository) Dispose() {
	it.mu.Lock()
	if it.disposed {
		it.mu.Unlock()
		return
	}
	it.disposed = true
	for _, timer := range []*time.Timer{it.changeTimer, it.fileSystemTimer, it.fetchSampleTimer} {
		if timer != nil {
			timer.Stop()
		}
	}
	it.changeTimer = nil
	it.fileSystemTimer = nil
	it.fetchSampleTimer = nil
	it.pendingChanges = 0
	it.pendingPaths = nil
	watcher := it.watcher
	it.watcher = nil
	it.mu.Unlock()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logger.Warnf("Failed to stop watching %s: %v", it.path, err)
		}
	}
}

// Disposed reports whether Dispose was called.
func (it *Repository) Disposed() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.disposed
}
