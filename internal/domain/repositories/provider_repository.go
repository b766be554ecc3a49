package repositories

import (
	"context"
	"io"
	"time"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// ProviderRepository abstracts a version-control backend (local git, a virtual/remote provider, ...).
// The routing layer only needs these operations; anything else is an optional capability below.
type ProviderRepository interface {
	// Descriptor returns the immutable identity of the provider.
	Descriptor() entities.ProviderDescriptor

	// CanHandle returns the normalized path when the provider claims the locator.
	CanHandle(locator entities.Locator) (string, bool)

	// DiscoverRepositories finds the repositories under a workspace root.
	DiscoverRepositories(ctx context.Context, root entities.Locator) ([]entities.RepositoryInfo, error)

	// FindRepositoryRoot walks up from path to the enclosing repository; "" when there is none.
	FindRepositoryRoot(ctx context.Context, path string) (string, error)

	// GetRemotes lists the remotes configured for the repository at path.
	GetRemotes(ctx context.Context, path string) ([]entities.Remote, error)

	// GetUpstreamRemoteName returns the remote tracked by the current branch; "" when none.
	GetUpstreamRemoteName(ctx context.Context, path string) (string, error)

	// Visibility computes the repository visibility and the remotes hash backing it.
	Visibility(ctx context.Context, path string) (entities.Visibility, string, error)
}

// WatchingProvider delivers raw filesystem notifications for a repository.
type WatchingProvider interface {
	Watch(path string, sink func(entities.FileChange)) (io.Closer, error)
}

// FetchInfoProvider reports when the repository last synced with a remote.
type FetchInfoProvider interface {
	LastFetched(ctx context.Context, path string) (time.Time, error)
}

// CacheResettingProvider drops provider-held caches.
type CacheResettingProvider interface {
	ResetCaches(layers ...entities.CacheLayer)
}

// LifecycleProvider reports repository lifecycle events. The returned function unsubscribes.
type LifecycleProvider interface {
	SubscribeRepositoryEvents(fn func(entities.ProviderEvent)) func()
}
