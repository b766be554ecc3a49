package repositories

import (
	"fmt"
	"sync"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

// Resolution is the provider responsible for a locator and the path it normalized the locator to.
type Resolution struct {
	Provider domainRepos.ProviderRepository
	Path     string
}

// ProviderID is a shortcut for the resolved provider's id.
func (r Resolution) ProviderID() string {
	return r.Provider.Descriptor().ID
}

// ProviderRegistry manages the registered backend providers and routes locators to them.
type ProviderRegistry struct {
	mu sync.RWMutex
	// registration order breaks ties between candidates
	providers []domainRepos.ProviderRepository
}

// NewProviderRegistry creates an empty provider registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{}
}

// Register adds a provider. Registering an id twice is an error.
func (r *ProviderRegistry) Register(provider domainRepos.ProviderRepository) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := provider.Descriptor().ID
	for _, p := range r.providers {
		if p.Descriptor().ID == id {
			return fmt.Errorf("%w: %q", entities.ErrProviderAlreadyRegistered, id)
		}
	}
	r.providers = append(r.providers, provider)
	return nil
}

// Unregister removes the provider with the given id and returns it.
func (r *ProviderRegistry) Unregister(id string) (domainRepos.ProviderRepository, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.providers {
		if p.Descriptor().ID == id {
			r.providers = append(r.providers[:i:i], r.providers[i+1:]...)
			return p, true
		}
	}
	return nil, false
}

// Get returns the provider registered under id.
func (r *ProviderRegistry) Get(id string) (domainRepos.ProviderRepository, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers {
		if p.Descriptor().ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown provider %q", entities.ErrProviderNotFound, id)
}

// All returns every provider in registration order.
func (r *ProviderRegistry) All() []domainRepos.ProviderRepository {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domainRepos.ProviderRepository, len(r.providers))
	copy(result, r.providers)
	return result
}

// Names returns the ids of the registered providers in registration order.
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Descriptor().ID)
	}
	return names
}

// Len is the number of registered providers.
func (r *ProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Candidates returns every provider claiming the locator, in registration order.
func (r *ProviderRegistry) Candidates(locator entities.Locator) []Resolution {
	providers := r.All()

	candidates := make([]Resolution, 0, len(providers))
	for _, p := range providers {
		if normalized, ok := p.CanHandle(locator); ok {
			candidates = append(candidates, Resolution{Provider: p, Path: normalized})
		}
	}
	return candidates
}

// Resolve routes a locator to exactly one provider. When several providers claim it, the first one
// (in registration order) that currently has an open repository wins, else the first candidate.
func (r *ProviderRegistry) Resolve(
	locator entities.Locator,
	hasOpenRepositories func(providerID string) bool,
) (Resolution, error) {
	candidates := r.Candidates(locator)

	switch len(candidates) {
	case 0:
		return Resolution{}, &entities.ProviderNotFoundError{Locator: locator}
	case 1:
		return candidates[0], nil
	}

	if hasOpenRepositories != nil {
		for _, candidate := range candidates {
			if hasOpenRepositories(candidate.ProviderID()) {
				return candidate, nil
			}
		}
	}
	return candidates[0], nil
}
