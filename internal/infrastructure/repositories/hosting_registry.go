package repositories

import (
	"sync"

	domainRepos "github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

// HostingRegistry manages the configured hosting service connections.
type HostingRegistry struct {
	mu      sync.RWMutex
	order   []string
	hosting map[string]domainRepos.HostingRepository
}

// NewHostingRegistry creates an empty hosting registry.
func NewHostingRegistry() *HostingRegistry {
	return &HostingRegistry{
		hosting: make(map[string]domainRepos.HostingRepository),
	}
}

// Register adds a hosting connection under its type, replacing any previous one.
func (r *HostingRegistry) Register(h domainRepos.HostingRepository) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.hosting[h.Type()]; !exists {
		r.order = append(r.order, h.Type())
	}
	r.hosting[h.Type()] = h
}

// Get returns the hosting connection of the given type, or nil if not registered.
func (r *HostingRegistry) Get(hostingType string) domainRepos.HostingRepository {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hosting[hostingType]
}

// ForURL returns the first hosting connection recognising the remote URL, or nil.
func (r *HostingRegistry) ForURL(rawURL string) domainRepos.HostingRepository {
	for _, h := range r.All() {
		if h.MatchesURL(rawURL) {
			return h
		}
	}
	return nil
}

// All returns every registered hosting connection in registration order.
func (r *HostingRegistry) All() []domainRepos.HostingRepository {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domainRepos.HostingRepository, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.hosting[name])
	}
	return result
}

// Names returns the list of registered hosting types.
func (r *HostingRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
