//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, dummies) for
// repository interfaces. These are hand-crafted implementations, no mock frameworks.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

// SpyProviderRepository implements repositories.ProviderRepository and every optional capability
// as a configurable spy. It is safe for concurrent use.
type SpyProviderRepository struct {
	mu sync.Mutex

	// --- identity ---
	ID      string
	Schemes []string
	// Claims restricts CanHandle to paths below these prefixes; empty claims everything.
	Claims []string

	// --- DiscoverRepositories ---
	Repositories  []entities.RepositoryInfo
	DiscoverErr   error
	DiscoverGate  chan struct{} // when set, discovery blocks until it is closed
	DiscoverCalls int

	// --- FindRepositoryRoot ---
	Roots         []string
	FindRootErr   error
	FindRootGate  chan struct{} // when set, the lookup blocks until it is closed
	FindRootCalls int

	// --- GetRemotes / GetUpstreamRemoteName ---
	Remotes       map[string][]entities.Remote
	RemotesErr    error
	RemotesCalls  int
	Upstreams     map[string]string
	UpstreamErr   error
	UpstreamCalls int

	// --- Visibility ---
	Visibilities    map[string]entities.Visibility
	VisibilityErr   error
	VisibilityGate  chan struct{}
	VisibilityCalls int

	// --- LastFetched ---
	FetchTimes map[string]time.Time
	FetchErr   error

	// --- Watch ---
	WatchErr   error
	WatchSinks map[string]func(entities.FileChange)

	// --- ResetCaches ---
	ResetCalls int

	listeners map[int]func(entities.ProviderEvent)
	nextID    int
}

var (
	_ repositories.ProviderRepository     = (*SpyProviderRepository)(nil)
	_ repositories.WatchingProvider       = (*SpyProviderRepository)(nil)
	_ repositories.FetchInfoProvider      = (*SpyProviderRepository)(nil)
	_ repositories.CacheResettingProvider = (*SpyProviderRepository)(nil)
	_ repositories.LifecycleProvider      = (*SpyProviderRepository)(nil)
)

// NewSpyProviderRepository creates a file-scheme spy with the given id.
func NewSpyProviderRepository(id string) *SpyProviderRepository {
	return &SpyProviderRepository{
		ID:           id,
		Schemes:      []string{entities.SchemeFile},
		Remotes:      make(map[string][]entities.Remote),
		Upstreams:    make(map[string]string),
		Visibilities: make(map[string]entities.Visibility),
		FetchTimes:   make(map[string]time.Time),
		WatchSinks:   make(map[string]func(entities.FileChange)),
	}
}

func (p *SpyProviderRepository) Descriptor() entities.ProviderDescriptor {
	return entities.ProviderDescriptor{ID: p.ID, Name: p.ID, Schemes: p.Schemes}
}

func (p *SpyProviderRepository) CanHandle(locator entities.Locator) (string, bool) {
	if !p.Descriptor().Supports(locator.Scheme) {
		return "", false
	}
	if len(p.Claims) == 0 {
		return locator.Path, true
	}
	for _, claim := range p.Claims {
		if entities.IsDescendant(claim, locator.Path) {
			return locator.Path, true
		}
	}
	return "", false
}

func (p *SpyProviderRepository) DiscoverRepositories(
	ctx context.Context,
	root entities.Locator,
) ([]entities.RepositoryInfo, error) {
	p.mu.Lock()
	p.DiscoverCalls++
	gate := p.DiscoverGate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.DiscoverErr != nil {
		return nil, p.DiscoverErr
	}
	result := make([]entities.RepositoryInfo, 0, len(p.Repositories))
	for _, info := range p.Repositories {
		if entities.IsDescendant(root.Path, info.Path) {
			result = append(result, info)
		}
	}
	return result, nil
}

// FindRepositoryRoot returns the deepest configured root containing path.
func (p *SpyProviderRepository) FindRepositoryRoot(ctx context.Context, path string) (string, error) {
	p.mu.Lock()
	p.FindRootCalls++
	gate := p.FindRootGate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FindRootErr != nil {
		return "", p.FindRootErr
	}
	best := ""
	for _, root := range p.Roots {
		if entities.IsDescendant(root, path) && len(root) > len(best) {
			best = root
		}
	}
	return best, nil
}

func (p *SpyProviderRepository) GetRemotes(_ context.Context, path string) ([]entities.Remote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RemotesCalls++
	if p.RemotesErr != nil {
		return nil, p.RemotesErr
	}
	return append([]entities.Remote(nil), p.Remotes[path]...), nil
}

func (p *SpyProviderRepository) GetUpstreamRemoteName(_ context.Context, path string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.UpstreamCalls++
	return p.Upstreams[path], p.UpstreamErr
}

func (p *SpyProviderRepository) Visibility(ctx context.Context, path string) (entities.Visibility, string, error) {
	p.mu.Lock()
	p.VisibilityCalls++
	gate := p.VisibilityGate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.VisibilityErr != nil {
		return "", "", p.VisibilityErr
	}
	visibility, ok := p.Visibilities[path]
	if !ok {
		visibility = entities.VisibilityLocal
	}
	return visibility, entities.RemotesFingerprint(p.Remotes[path]), nil
}

func (p *SpyProviderRepository) LastFetched(_ context.Context, path string) (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FetchErr != nil {
		return time.Time{}, p.FetchErr
	}
	return p.FetchTimes[path], nil
}

func (p *SpyProviderRepository) Watch(path string, sink func(entities.FileChange)) (io.Closer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WatchErr != nil {
		return nil, p.WatchErr
	}
	p.WatchSinks[path] = sink
	return closerFunc(func() error {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.WatchSinks, path)
		return nil
	}), nil
}

func (p *SpyProviderRepository) ResetCaches(_ ...entities.CacheLayer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ResetCalls++
}

func (p *SpyProviderRepository) SubscribeRepositoryEvents(fn func(entities.ProviderEvent)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listeners == nil {
		p.listeners = make(map[int]func(entities.ProviderEvent))
	}
	p.nextID++
	id := p.nextID
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// Emit delivers a lifecycle event to every subscriber.
func (p *SpyProviderRepository) Emit(event entities.ProviderEvent) {
	p.mu.Lock()
	listeners := make([]func(entities.ProviderEvent), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}

// SendFileChange pushes a raw notification into the watch of path.
func (p *SpyProviderRepository) SendFileChange(path string, change entities.FileChange) bool {
	p.mu.Lock()
	sink, ok := p.WatchSinks[path]
	p.mu.Unlock()
	if ok {
		sink(change)
	}
	return ok
}

// Listeners is the number of lifecycle subscribers.
func (p *SpyProviderRepository) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// Calls returns a consistent snapshot of a call counter by name.
func (p *SpyProviderRepository) Calls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch strings.ToLower(name) {
	case "discover":
		return p.DiscoverCalls
	case "findroot":
		return p.FindRootCalls
	case "remotes":
		return p.RemotesCalls
	case "upstream":
		return p.UpstreamCalls
	case "visibility":
		return p.VisibilityCalls
	case "reset":
		return p.ResetCalls
	default:
		panic(errors.New("unknown call counter " + name))
	}
}

// SetVisibility changes the visibility reported for path.
func (p *SpyProviderRepository) SetVisibility(path string, visibility entities.Visibility) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Visibilities[path] = visibility
}

// SetRemotes changes the remotes reported for path.
func (p *SpyProviderRepository) SetRemotes(path string, remotes ...entities.Remote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Remotes[path] = remotes
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
