package gitprovider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

// DiscoverOptions tunes Discover.
type DiscoverOptions struct {
	// Force rescans roots that were already discovered.
	Force bool
}

// OpenOptions tunes GetOrOpenRepository.
type OpenOptions struct {
	// DetectNested looks for a repository nested below the closest known one.
	DetectNested bool
}

type discoveredRepository struct {
	providerID string
	info       entities.RepositoryInfo
}

// Discover scans the given workspace roots concurrently. A root is scanned at most once at a time:
// concurrent calls for the same root wait for the running scan. A provider failing to scan a root is
// logged and contributes nothing; the root is then scanned again on the next call. Once every root
// settled, the repositories found are indexed and announced in a single event.
func (s *GitProviderService) Discover(ctx context.Context, roots []string, opts DiscoverOptions) error {
	var (
		mu      sync.Mutex
		found   []discoveredRepository
		scanned []string
		wg      sync.WaitGroup
	)
	for _, root := range roots {
		locator := entities.ParseLocator(root)
		key := locator.Key()

		s.mu.Lock()
		skip := s.discovered[key] && !opts.Force
		if opts.Force {
			s.visited = make(map[string]bool)
		}
		s.mu.Unlock()
		if skip {
			logger.Debugf("Skipping already discovered root %s", locator)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			// the scan outlives callers that stop waiting
			result, _, _ := s.discoveryGroup.Do(key, func() (any, error) {
				return s.scanRoot(context.WithoutCancel(ctx), locator), nil
			})
			scan, _ := result.(rootScan)

			mu.Lock()
			defer mu.Unlock()
			found = append(found, scan.repositories...)
			if !scan.failed {
				scanned = append(scanned, key)
			}
		}()
	}
	wg.Wait()

	added := s.addRepositories(found)

	s.mu.Lock()
	for _, key := range scanned {
		s.discovered[key] = true
	}
	s.mu.Unlock()

	if len(added) > 0 {
		s.repositorySetChanged()
	}
	s.fireRepositoriesChanged(openOnly(added), nil)
	return nil
}

type rootScan struct {
	repositories []discoveredRepository
	failed       bool
}

// scanRoot lists the repositories below root with the provider the root routes to.
func (s *GitProviderService) scanRoot(ctx context.Context, root entities.Locator) rootScan {
	resolution, err := s.registry.Resolve(root, s.hasOpenRepositories)
	if err != nil {
		logger.WithField("root", root.String()).Warnf("No provider can discover root: %v", err)
		return rootScan{failed: true}
	}

	infos, err := s.discoverWith(ctx, resolution.Provider, root)
	if err != nil {
		return rootScan{failed: true}
	}
	id := resolution.Provider.Descriptor().ID
	found := make([]discoveredRepository, 0, len(infos))
	for _, info := range infos {
		found = append(found, discoveredRepository{providerID: id, info: info})
	}
	return rootScan{repositories: found}
}

func (s *GitProviderService) discoverWith(
	ctx context.Context,
	provider repositories.ProviderRepository,
	root entities.Locator,
) ([]entities.RepositoryInfo, error) {
	id := provider.Descriptor().ID
	s.metrics.RegisterDiscoveryAttempt(id)
	start := time.Now()

	infos, err := provider.DiscoverRepositories(ctx, root)
	s.metrics.ObserveDiscoveryDuration(id, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RegisterDiscoveryFailure(id)
		logger.WithFields(logger.Fields{
			"provider": id,
			"root":     root.String(),
		}).Warnf("Repository discovery failed: %v", err)
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"provider": id,
		"root":     root.String(),
		"count":    len(infos),
	}).Debug("Discovered repositories")
	return infos, nil
}

// addRepositories creates the handles of newly found repositories and adds them to the index.
// Repositories already known are left untouched. Only the index insert runs under the lock.
func (s *GitProviderService) addRepositories(found []discoveredRepository) []*entities.Repository {
	candidates := make([]*entities.Repository, 0, len(found))
	for _, item := range found {
		if s.index.Has(item.info.Path) {
			continue
		}
		candidates = append(candidates, s.newRepository(item.providerID, item.info))
	}
	if len(candidates) == 0 {
		return nil
	}

	added := make([]*entities.Repository, 0, len(candidates))
	s.mu.Lock()
	watch := s.opts.Watch
	for _, repo := range candidates {
		if _, inserted := s.index.Add(repo); inserted {
			added = append(added, repo)
		}
	}
	s.mu.Unlock()

	for _, repo := range candidates {
		if !slices.Contains(added, repo) {
			repo.Dispose()
		}
	}
	for _, repo := range added {
		s.attach(repo, watch)
	}
	return added
}

// repositorySetChanged drops what derives from the set of repositories. Persisted visibility is kept.
func (s *GitProviderService) repositorySetChanged() {
	s.access.Clear()
	s.visibility.Clear(false)
}

func (s *GitProviderService) newRepository(providerID string, info entities.RepositoryInfo) *entities.Repository {
	root := info.Root
	if root.Path == "" {
		root = entities.NewFileLocator(info.Path)
	}
	return entities.NewRepository(providerID, info, entities.RepositoryOptions{
		ChangeDelay:     s.opts.RepositoryChangeDelay,
		FileSystemDelay: s.opts.FileSystemChangeDelay,
		Sink:            s,
		Starred:         s.loadStarred(root),
	})
}

// attach wires the provider capabilities of a freshly indexed repository. The watch is attached when
// watching was enabled at insert time; EnableWatching covers the others.
func (s *GitProviderService) attach(repo *entities.Repository, watch bool) {
	provider, err := s.providerFor(repo)
	if err != nil {
		return
	}

	if fetchInfo, ok := provider.(repositories.FetchInfoProvider); ok {
		repoPath := repo.Path()
		repo.SetFetchSampler(func() (time.Time, error) {
			return fetchInfo.LastFetched(context.Background(), repoPath)
		})
	}
	if watch {
		s.attachWatch(repo, provider)
	}
}

func (s *GitProviderService) attachWatch(repo *entities.Repository, provider repositories.ProviderRepository) {
	watching, ok := provider.(repositories.WatchingProvider)
	if !ok {
		return
	}
	watcher, err := watching.Watch(repo.Path(), repo.HandleFileChange)
	if err != nil {
		logger.WithFields(logger.Fields{
			"provider": repo.ProviderID(),
			"path":     repo.Path(),
		}).Warnf("Failed to watch repository: %v", err)
		return
	}
	repo.SetWatcher(watcher)
}

// EnableWatching attaches the provider filesystem watch to every known repository and to the ones
// opened from now on.
func (s *GitProviderService) EnableWatching() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Watch {
		return
	}
	s.opts.Watch = true
	for _, repo := range s.index.Values() {
		if provider, err := s.providerFor(repo); err == nil {
			s.attachWatch(repo, provider)
		}
	}
}

// removeRepositories drops every matching repository from the index and the caches, disposing it.
func (s *GitProviderService) removeRepositories(match func(*entities.Repository) bool) []*entities.Repository {
	s.mu.Lock()
	removed := make([]*entities.Repository, 0)
	for _, repo := range s.index.Filter(match) {
		if _, ok := s.index.Remove(repo.Path()); ok {
			removed = append(removed, repo)
		}
	}
	if len(removed) > 0 {
		s.visited = make(map[string]bool)
	}
	s.mu.Unlock()

	if len(removed) == 0 {
		return removed
	}
	for _, repo := range removed {
		repo.Dispose()
	}
	s.remotes.Forget(removed...)
	s.repositorySetChanged()
	return removed
}

// RemoveRoots forgets workspace roots, disposing the repositories found under them.
func (s *GitProviderService) RemoveRoots(roots []string) []*entities.Repository {
	locators := make([]entities.Locator, 0, len(roots))
	s.mu.Lock()
	for _, root := range roots {
		locator := entities.ParseLocator(root)
		delete(s.discovered, locator.Key())
		locators = append(locators, locator)
	}
	s.mu.Unlock()

	removed := s.removeRepositories(func(repo *entities.Repository) bool {
		for _, root := range locators {
			if repo.Folder() != "" && entities.PathKey(repo.Folder()) == entities.PathKey(root.Path) {
				return true
			}
			if entities.IsDescendant(root.Path, repo.Path()) {
				return true
			}
		}
		return false
	})
	s.fireRepositoriesChanged(nil, removed)
	return removed
}

// GetOrOpenRepository returns the repository containing the locator, opening it through its provider
// when it is not known yet. With DetectNested a repository nested below the closest known one is
// looked for too; paths already probed are remembered for that check only. Concurrent calls for the
// same path share one probe.
func (s *GitProviderService) GetOrOpenRepository(
	ctx context.Context,
	locator entities.Locator,
	opts OpenOptions,
) (*entities.Repository, error) {
	resolution, err := s.registry.Resolve(locator, s.hasOpenRepositories)
	if err != nil {
		return nil, err
	}
	path := resolution.Path

	if closest, found := s.index.GetClosest(path); found && !opts.DetectNested {
		return closest, nil
	}

	flight := entities.PathKey(path)
	if opts.DetectNested {
		flight = "nested:" + flight
	}
	result, err, _ := s.probeGroup.Do(flight, func() (any, error) {
		return s.probe(context.WithoutCancel(ctx), resolution.Provider, path, opts)
	})
	if err != nil {
		return nil, err
	}
	repo, _ := result.(*entities.Repository)
	return repo, nil
}

func (s *GitProviderService) probe(
	ctx context.Context,
	provider repositories.ProviderRepository,
	path string,
	opts OpenOptions,
) (*entities.Repository, error) {
	key := entities.PathKey(path)
	closest, found := s.index.GetClosest(path)
	if found && !opts.DetectNested {
		return closest, nil
	}

	if found {
		s.mu.Lock()
		seen := s.visited[key]
		s.visited[key] = true
		s.mu.Unlock()
		if seen {
			return closest, nil
		}
	}

	rootPath, err := provider.FindRepositoryRoot(ctx, path)
	if err != nil {
		s.forgetVisited(key)
		return nil, fmt.Errorf("failed to find the repository of %s: %w", path, err)
	}
	if rootPath == "" {
		if found {
			return closest, nil
		}
		return nil, fmt.Errorf("%w: %s", entities.ErrRepositoryNotFound, path)
	}
	if found && entities.PathKey(rootPath) == closest.ID() {
		return closest, nil
	}

	repo, err := s.openRepository(provider, rootPath)
	if err != nil {
		s.forgetVisited(key)
		return nil, err
	}
	return repo, nil
}

func (s *GitProviderService) forgetVisited(key string) {
	s.mu.Lock()
	delete(s.visited, key)
	s.mu.Unlock()
}

// openRepository adds the repository at rootPath, at most once at a time per path.
func (s *GitProviderService) openRepository(
	provider repositories.ProviderRepository,
	rootPath string,
) (*entities.Repository, error) {
	rootPath = entities.NormalizePath(rootPath)
	result, err, _ := s.openGroup.Do(entities.PathKey(rootPath), func() (any, error) {
		if existing, ok := s.index.Get(rootPath); ok {
			return existing, nil
		}

		added := s.addRepositories([]discoveredRepository{{
			providerID: provider.Descriptor().ID,
			info: entities.RepositoryInfo{
				Path: rootPath,
				Root: entities.NewFileLocator(rootPath),
			},
		}})
		repo, ok := s.index.Get(rootPath)
		if !ok {
			return nil, fmt.Errorf("%w: %s", entities.ErrRepositoryNotFound, rootPath)
		}
		if len(added) > 0 {
			s.repositorySetChanged()
			s.fireRepositoriesChanged(openOnly(added), nil)
		}
		return repo, nil
	})
	if err != nil {
		return nil, err
	}
	repo, _ := result.(*entities.Repository)
	return repo, nil
}

// handleProviderEvent applies a provider lifecycle notification to the matching repository.
func (s *GitProviderService) handleProviderEvent(providerID string, event entities.ProviderEvent) {
	provider, err := s.registry.Get(providerID)
	if err != nil {
		return
	}

	repo, known := s.index.Get(event.Path)
	switch event.Kind {
	case entities.ProviderRepositoryOpened:
		if known {
			repo.SetClosed(false)
			return
		}
		if _, openErr := s.openRepository(provider, event.Path); openErr != nil && !errors.Is(openErr, entities.ErrRepositoryNotFound) {
			logger.WithField("provider", providerID).Warnf("Failed to open %s: %v", event.Path, openErr)
		}
	case entities.ProviderRepositoryClosed:
		if known {
			repo.SetClosed(true)
		}
	case entities.ProviderRepositoryWillChange:
		logger.WithField("provider", providerID).Debugf("Repository %s is about to change", event.Path)
	case entities.ProviderRepositoryChanged:
		if known {
			repo.FireChange(event.Changes.Kinds()...)
		}
	}
}

func openOnly(repos []*entities.Repository) []*entities.Repository {
	result := make([]*entities.Repository, 0, len(repos))
	for _, repo := range repos {
		if !repo.Closed() {
			result = append(result, repo)
		}
	}
	return result
}
