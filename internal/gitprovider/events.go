package gitprovider

import (
	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// ProvidersChangeEvent reports providers registered or unregistered.
type ProvidersChangeEvent struct {
	Added   []entities.ProviderDescriptor
	Removed []entities.ProviderDescriptor
	Etag    int64
}

// RepositoriesChangeEvent reports repositories added to or removed from the index. Added repositories
// are already retrievable from the index when the event fires.
type RepositoriesChangeEvent struct {
	Added   []*entities.Repository
	Removed []*entities.Repository
	Etag    int64
}

// SubscriptionChangeEvent reports a plan change.
type SubscriptionChangeEvent struct {
	Previous entities.Subscription
	Current  entities.Subscription
	Etag     int64
}

type serviceEvents struct {
	providers    *entities.Emitter[ProvidersChangeEvent]
	repositories *entities.Emitter[RepositoriesChangeEvent]
	repository   *entities.Emitter[entities.RepositoryChangeEvent]
	fileSystem   *entities.Emitter[entities.FileSystemChangeEvent]
	subscription *entities.Emitter[SubscriptionChangeEvent]
}

func newServiceEvents() serviceEvents {
	return serviceEvents{
		providers:    entities.NewEmitter[ProvidersChangeEvent]("providers"),
		repositories: entities.NewEmitter[RepositoriesChangeEvent]("repositories"),
		repository:   entities.NewEmitter[entities.RepositoryChangeEvent]("repository"),
		fileSystem:   entities.NewEmitter[entities.FileSystemChangeEvent]("filesystem"),
		subscription: entities.NewEmitter[SubscriptionChangeEvent]("subscription"),
	}
}

// OnDidChangeProviders subscribes to provider-set changes.
func (s *GitProviderService) OnDidChangeProviders(fn func(ProvidersChangeEvent)) func() {
	return s.events.providers.Subscribe(fn)
}

// OnDidChangeRepositories subscribes to repository-set changes.
func (s *GitProviderService) OnDidChangeRepositories(fn func(RepositoriesChangeEvent)) func() {
	return s.events.repositories.Subscribe(fn)
}

// OnDidChangeRepository subscribes to the coalesced change events of every repository.
func (s *GitProviderService) OnDidChangeRepository(fn func(entities.RepositoryChangeEvent)) func() {
	return s.events.repository.Subscribe(fn)
}

// OnDidChangeRepositoryFileSystem subscribes to the working-tree change events of every repository.
func (s *GitProviderService) OnDidChangeRepositoryFileSystem(fn func(entities.FileSystemChangeEvent)) func() {
	return s.events.fileSystem.Subscribe(fn)
}

// OnDidChangeSubscription subscribes to plan changes.
func (s *GitProviderService) OnDidChangeSubscription(fn func(SubscriptionChangeEvent)) func() {
	return s.events.subscription.Subscribe(fn)
}

// RepositoryChanged is the aggregate sink every repository handle reports to.
func (s *GitProviderService) RepositoryChanged(event entities.RepositoryChangeEvent) {
	s.metrics.RegisterRepositoryChangeEvent()

	if event.Changed(entities.ChangeModeAny, entities.ChangeRemotes, entities.ChangeRemoteProviders) {
		s.remotes.Forget(event.Repository)
	}
	if event.Changed(entities.ChangeModeAny, entities.ChangeClosed, entities.ChangeOpened) {
		s.access.Clear()
		s.visibility.ForgetAggregate()
		s.metrics.SetRepositoriesOpen(s.OpenRepositoryCount())
	}

	s.events.repository.Fire(event)
}

// RepositoryFileSystemChanged is the aggregate sink of working-tree changes.
func (s *GitProviderService) RepositoryFileSystemChanged(event entities.FileSystemChangeEvent) {
	s.metrics.RegisterFileSystemChangeEvent()
	s.events.fileSystem.Fire(event)
}

func (s *GitProviderService) fireProvidersChanged(added, removed []entities.ProviderDescriptor) {
	etag := s.etag.Add(1)
	s.metrics.SetProvidersRegistered(s.registry.Len())
	s.events.providers.Fire(ProvidersChangeEvent{Added: added, Removed: removed, Etag: etag})
}

func (s *GitProviderService) fireRepositoriesChanged(added, removed []*entities.Repository) {
	if len(added) == 0 && len(removed) == 0 {
		return
	}
	etag := s.etag.Add(1)
	s.metrics.SetRepositoriesOpen(s.OpenRepositoryCount())
	s.events.repositories.Fire(RepositoriesChangeEvent{Added: added, Removed: removed, Etag: etag})
}
