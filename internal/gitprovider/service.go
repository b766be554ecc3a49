package gitprovider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/metrics"
	infraRepos "github.com/rios0rios0/gitrouter/internal/infrastructure/repositories"
)

const starredStoragePrefix = "starred:"

// Options configures the service.
type Options struct {
	RepositoryChangeDelay time.Duration
	FileSystemChangeDelay time.Duration
	VisibilityTTL         time.Duration
	// Watch attaches the provider filesystem watch to every opened repository.
	Watch bool
}

// OptionsFromSettings maps the loaded settings onto service options.
func OptionsFromSettings(settings *entities.Settings) Options {
	return Options{
		RepositoryChangeDelay: settings.RepositoryChangeDelay,
		FileSystemChangeDelay: settings.FileSystemChangeDelay,
		VisibilityTTL:         settings.VisibilityTTL,
	}
}

// GitProviderService is the single entry point routing every operation to the provider owning a
// locator, serving the results from the cache layers where possible.
type GitProviderService struct {
	registry      *infraRepos.ProviderRegistry
	hosting       *infraRepos.HostingRegistry
	storage       repositories.StorageRepository
	subscriptions repositories.SubscriptionRepository
	metrics       *metrics.RouterMetrics
	opts          Options

	index *entities.RepositoryIndex
	etag  atomic.Int64

	// mu serializes mutations of the index and the discovery bookkeeping
	mu             sync.Mutex
	discovered     map[string]bool
	visited        map[string]bool
	lifecycleUnsub map[string]func()
	disposed       bool

	discoveryGroup singleflight.Group
	openGroup      singleflight.Group
	probeGroup     singleflight.Group

	visibility *visibilityCache
	access     *accessCache
	remotes    *remotesCache

	events serviceEvents
}

var _ entities.RepositoryEventSink = (*GitProviderService)(nil)

// NewGitProviderService wires the service over its collaborators.
func NewGitProviderService(
	registry *infraRepos.ProviderRegistry,
	hosting *infraRepos.HostingRegistry,
	storage repositories.StorageRepository,
	subscriptions repositories.SubscriptionRepository,
	routerMetrics *metrics.RouterMetrics,
	opts Options,
) *GitProviderService {
	if routerMetrics == nil {
		routerMetrics = metrics.NewRouterMetrics()
	}
	return &GitProviderService{
		registry:       registry,
		hosting:        hosting,
		storage:        storage,
		subscriptions:  subscriptions,
		metrics:        routerMetrics,
		opts:           opts,
		index:          entities.NewRepositoryIndex(),
		discovered:     make(map[string]bool),
		visited:        make(map[string]bool),
		lifecycleUnsub: make(map[string]func()),
		visibility:     newVisibilityCache(storage, opts.VisibilityTTL, routerMetrics),
		access:         newAccessCache(routerMetrics),
		remotes:        newRemotesCache(hosting, routerMetrics),
		events:         newServiceEvents(),
	}
}

// Etag is the version stamp bumped on every provider-set or repository-set change.
func (s *GitProviderService) Etag() int64 {
	return s.etag.Load()
}

// RegisterProvider adds a provider and returns the function that unregisters it.
func (s *GitProviderService) RegisterProvider(provider repositories.ProviderRepository) (func(), error) {
	if err := s.registry.Register(provider); err != nil {
		return nil, err
	}
	descriptor := provider.Descriptor()
	logger.WithField("provider", descriptor.ID).Debug("Registered provider")

	if lifecycle, ok := provider.(repositories.LifecycleProvider); ok {
		unsubscribe := lifecycle.SubscribeRepositoryEvents(func(event entities.ProviderEvent) {
			s.handleProviderEvent(descriptor.ID, event)
		})
		s.mu.Lock()
		s.lifecycleUnsub[descriptor.ID] = unsubscribe
		s.mu.Unlock()
	}

	s.fireProvidersChanged([]entities.ProviderDescriptor{descriptor}, nil)

	var once sync.Once
	return func() {
		once.Do(func() { s.UnregisterProvider(descriptor.ID) })
	}, nil
}

// UnregisterProvider removes a provider with every repository it owns. The provider-removed event fires
// once routing no longer sees the provider, and the repositories-removed event fires after it.
func (s *GitProviderService) UnregisterProvider(id string) bool {
	provider, ok := s.registry.Unregister(id)
	if !ok {
		return false
	}

	s.mu.Lock()
	if unsubscribe, found := s.lifecycleUnsub[id]; found {
		unsubscribe()
		delete(s.lifecycleUnsub, id)
	}
	s.mu.Unlock()

	s.fireProvidersChanged(nil, []entities.ProviderDescriptor{provider.Descriptor()})

	removed := s.removeRepositories(func(repo *entities.Repository) bool {
		return repo.ProviderID() == id
	})
	logger.WithFields(logger.Fields{
		"provider":     id,
		"repositories": len(removed),
	}).Debug("Unregistered provider")
	s.fireRepositoriesChanged(nil, removed)
	return true
}

// Providers lists the registered provider descriptors in registration order.
func (s *GitProviderService) Providers() []entities.ProviderDescriptor {
	providers := s.registry.All()
	descriptors := make([]entities.ProviderDescriptor, 0, len(providers))
	for _, p := range providers {
		descriptors = append(descriptors, p.Descriptor())
	}
	return descriptors
}

// Resolve routes a locator to its provider. When the locator lies inside a known repository of that
// provider, the returned path is the repository path.
func (s *GitProviderService) Resolve(locator entities.Locator) (infraRepos.Resolution, error) {
	resolution, err := s.registry.Resolve(locator, s.hasOpenRepositories)
	if err != nil {
		return infraRepos.Resolution{}, err
	}
	if repo, ok := s.index.GetClosest(resolution.Path); ok && repo.ProviderID() == resolution.ProviderID() {
		resolution.Path = repo.Path()
	}
	return resolution, nil
}

func (s *GitProviderService) hasOpenRepositories(providerID string) bool {
	for _, repo := range s.index.Values() {
		if repo.ProviderID() == providerID && !repo.Closed() {
			return true
		}
	}
	return false
}

// GetRepository returns the known repository containing the locator.
func (s *GitProviderService) GetRepository(locator entities.Locator) (*entities.Repository, bool) {
	resolution, err := s.registry.Resolve(locator, s.hasOpenRepositories)
	if err != nil {
		return nil, false
	}
	return s.index.GetClosest(resolution.Path)
}

// Repositories returns every known repository, sorted by path.
func (s *GitProviderService) Repositories() []*entities.Repository {
	return s.index.Values()
}

// OpenRepositories returns the repositories that are not closed.
func (s *GitProviderService) OpenRepositories() []*entities.Repository {
	return s.index.Filter(func(repo *entities.Repository) bool { return !repo.Closed() })
}

// OpenRepositoryCount is the number of repositories that are not closed.
func (s *GitProviderService) OpenRepositoryCount() int {
	return len(s.OpenRepositories())
}

func (s *GitProviderService) providerFor(repo *entities.Repository) (repositories.ProviderRepository, error) {
	return s.registry.Get(repo.ProviderID())
}

// repositoryFor returns the known repository containing path together with its provider.
func (s *GitProviderService) repositoryFor(path string) (*entities.Repository, repositories.ProviderRepository, error) {
	repo, ok := s.GetRepository(entities.ParseLocator(path))
	if !ok {
		if _, err := s.registry.Resolve(entities.ParseLocator(path), s.hasOpenRepositories); err != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %s", entities.ErrRepositoryNotFound, path)
	}
	provider, err := s.providerFor(repo)
	if err != nil {
		return nil, nil, err
	}
	return repo, provider, nil
}

// GetRemotes lists the remotes of the repository containing path.
func (s *GitProviderService) GetRemotes(ctx context.Context, path string) ([]entities.Remote, error) {
	repo, provider, err := s.repositoryFor(path)
	if err != nil {
		return nil, err
	}
	return provider.GetRemotes(ctx, repo.Path())
}

// Visibility returns the visibility of the repository containing path, or the aggregate over every
// open repository when path is empty. Failures resolve to public and are not cached.
func (s *GitProviderService) Visibility(ctx context.Context, path string) (entities.Visibility, error) {
	if path == "" {
		visibility, err := s.visibility.Aggregate(ctx, s.OpenRepositories(), s.providerFor)
		if err != nil {
			logger.WithField("layer", entities.CacheVisibility).Warnf("Failed to compute aggregate visibility: %v", err)
			return entities.VisibilityPublic, nil
		}
		return visibility, nil
	}

	repo, provider, err := s.repositoryFor(path)
	if err != nil {
		return "", err
	}
	return s.repositoryVisibility(ctx, repo, provider), nil
}

func (s *GitProviderService) repositoryVisibility(
	ctx context.Context,
	repo *entities.Repository,
	provider repositories.ProviderRepository,
) entities.Visibility {
	visibility, err := s.visibility.Get(ctx, repo, provider)
	if err != nil {
		logger.WithFields(logger.Fields{
			"layer": entities.CacheVisibility,
			"path":  repo.Path(),
		}).Warnf("Failed to compute visibility: %v", err)
		return entities.VisibilityPublic
	}
	return visibility
}

// Access checks whether feature is available, for the repository containing path or for the whole
// workspace when path is empty. Failures resolve to allowed and are not cached.
func (s *GitProviderService) Access(
	ctx context.Context,
	feature entities.Feature,
	path string,
) (entities.AccessResult, error) {
	subscription := s.currentSubscription(ctx)

	if path == "" {
		return s.access.GetWorkspace(feature, func() (entities.AccessResult, error) {
			return s.workspaceAccess(ctx, feature, subscription), nil
		})
	}

	repo, provider, err := s.repositoryFor(path)
	if err != nil {
		return entities.AccessResult{}, err
	}
	result, err := s.repositoryAccess(ctx, feature, subscription, repo, provider)
	if err != nil {
		// the permissive answer is returned but not cached
		result.Allowed = entities.AllowanceAllowed
	}
	return result, nil
}

func (s *GitProviderService) repositoryAccess(
	ctx context.Context,
	feature entities.Feature,
	subscription entities.Subscription,
	repo *entities.Repository,
	provider repositories.ProviderRepository,
) (entities.AccessResult, error) {
	return s.access.GetRepository(feature, repo, func() (entities.AccessResult, error) {
		result := entities.AccessResult{Feature: feature, Allowed: entities.AllowanceAllowed, Plan: subscription.Plan}
		if subscription.Paid {
			return result, nil
		}

		visibility, err := s.visibility.Get(ctx, repo, provider)
		if err != nil {
			logger.WithFields(logger.Fields{
				"layer": entities.CacheAccess,
				"path":  repo.Path(),
			}).Warnf("Failed to check access: %v", err)
			result.Visibility = entities.VisibilityPublic
			return result, err
		}
		result.Visibility = visibility
		if visibility == entities.VisibilityPrivate {
			result.Allowed = entities.AllowanceDenied
		}
		return result, nil
	})
}

func (s *GitProviderService) workspaceAccess(
	ctx context.Context,
	feature entities.Feature,
	subscription entities.Subscription,
) entities.AccessResult {
	result := entities.AccessResult{Feature: feature, Allowed: entities.AllowanceAllowed, Plan: subscription.Plan}
	repos := s.OpenRepositories()
	if subscription.Paid || len(repos) == 0 {
		return result
	}

	results := make([]entities.AccessResult, 0, len(repos))
	visibilities := make([]entities.Visibility, 0, len(repos))
	for _, repo := range repos {
		provider, err := s.providerFor(repo)
		if err != nil {
			continue
		}
		repoResult, err := s.repositoryAccess(ctx, feature, subscription, repo, provider)
		if err != nil {
			repoResult.Allowed = entities.AllowanceAllowed
		}
		results = append(results, repoResult)
		visibilities = append(visibilities, repoResult.Visibility)
	}

	result.Allowed = aggregateAllowance(results)
	result.Visibility = entities.AggregateVisibility(visibilities...)
	return result
}

func (s *GitProviderService) currentSubscription(ctx context.Context) entities.Subscription {
	if s.subscriptions == nil {
		return entities.Subscription{Paid: true}
	}
	subscription, err := s.subscriptions.Current(ctx)
	if err != nil {
		logger.Warnf("Failed to read the current subscription: %v", err)
		return entities.Subscription{Paid: true}
	}
	return subscription
}

// ChangeSubscription switches the plan, clearing the access cache when it changed.
func (s *GitProviderService) ChangeSubscription(ctx context.Context, subscription entities.Subscription) error {
	mutable, ok := s.subscriptions.(repositories.MutableSubscriptionRepository)
	if !ok {
		return &entities.ProviderNotSupportedError{ProviderID: "subscription", Capability: "changing the plan"}
	}

	previous := s.currentSubscription(ctx)
	if !mutable.Set(subscription) {
		return nil
	}
	s.access.Clear()
	etag := s.etag.Add(1)
	s.events.subscription.Fire(SubscriptionChangeEvent{Previous: previous, Current: subscription, Etag: etag})
	return nil
}

// GetBestRemotesWithProviders ranks the remotes of the repository containing path.
func (s *GitProviderService) GetBestRemotesWithProviders(
	ctx context.Context,
	path string,
) ([]entities.RankedRemote, error) {
	repo, provider, err := s.repositoryFor(path)
	if err != nil {
		return nil, err
	}
	return s.remotes.Get(ctx, repo, provider)
}

// GetBestRemoteWithIntegration returns the best ranked remote backed by a connected hosting service.
func (s *GitProviderService) GetBestRemoteWithIntegration(
	ctx context.Context,
	path string,
) (*entities.RankedRemote, error) {
	ranked, err := s.GetBestRemotesWithProviders(ctx, path)
	if err != nil {
		return nil, err
	}
	for i := range ranked {
		if s.remotes.connectionFor(ranked[i].Remote) != nil {
			return &ranked[i], nil
		}
	}
	return nil, nil //nolint:nilnil // no remote has an integration
}

// ResetCaches clears the given layers, every layer when none is given. Resetting visibility also
// clears access, which is derived from it, and purges the persisted visibility of open repositories.
func (s *GitProviderService) ResetCaches(layers ...entities.CacheLayer) {
	if len(layers) == 0 {
		layers = entities.AllCacheLayers()
	}

	for _, layer := range layers {
		logger.WithField("layer", layer).Debug("Resetting cache")
		switch layer {
		case entities.CacheProviders:
			for _, provider := range s.registry.All() {
				if resetter, ok := provider.(repositories.CacheResettingProvider); ok {
					resetter.ResetCaches(entities.CacheProviders)
				}
			}
			s.visibility.Clear(false)
			s.access.Clear()
		case entities.CacheVisibility:
			s.visibility.Clear(true, s.Repositories()...)
			s.access.Clear()
		case entities.CacheAccess:
			s.access.Clear()
		case entities.CacheBestRemotes:
			s.remotes.Clear()
		}
	}
}

// SetStarred stars or unstars the repository containing path and persists the flag.
func (s *GitProviderService) SetStarred(path string, starred bool) error {
	repo, _, err := s.repositoryFor(path)
	if err != nil {
		return err
	}

	if s.storage != nil {
		key := starredStoragePrefix + repo.Root().Key()
		var storeErr error
		if starred {
			storeErr = s.storage.Store(key, true)
		} else {
			storeErr = s.storage.Delete(key)
		}
		if storeErr != nil {
			return fmt.Errorf("failed to persist star of %s: %w", repo.Path(), storeErr)
		}
	}
	repo.SetStarred(starred)
	return nil
}

func (s *GitProviderService) loadStarred(root entities.Locator) bool {
	if s.storage == nil {
		return false
	}
	var starred bool
	found, err := s.storage.Get(starredStoragePrefix+root.Key(), &starred)
	if err != nil {
		logger.Debugf("Failed to read star of %s: %v", root, err)
		return false
	}
	return found && starred
}

// LastFetched returns when the repository containing path last synced with a remote.
func (s *GitProviderService) LastFetched(path string) (time.Time, error) {
	repo, provider, err := s.repositoryFor(path)
	if err != nil {
		return time.Time{}, err
	}
	if _, ok := provider.(repositories.FetchInfoProvider); !ok {
		return time.Time{}, &entities.ProviderNotSupportedError{
			ProviderID: repo.ProviderID(),
			Capability: "fetch information",
		}
	}
	return repo.LastFetched()
}

// Suspend holds back the change events of every repository, e.g. while the host application is not
// focused. Resume releases what was queued meanwhile.
func (s *GitProviderService) Suspend() {
	for _, repo := range s.index.Values() {
		repo.Suspend()
	}
}

// Resume flushes the changes queued while suspended.
func (s *GitProviderService) Resume() {
	for _, repo := range s.index.Values() {
		repo.Resume()
	}
}

// Dispose unregisters every provider, disposing every repository.
func (s *GitProviderService) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.mu.Unlock()

	for _, provider := range s.registry.All() {
		s.UnregisterProvider(provider.Descriptor().ID)
	}
	removed := s.removeRepositories(func(*entities.Repository) bool { return true })
	s.fireRepositoriesChanged(nil, removed)
}
