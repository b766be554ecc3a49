//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

// InMemoryStorageRepository implements repositories.StorageRepository over a map of YAML documents.
type InMemoryStorageRepository struct {
	mu      sync.Mutex
	Entries map[string][]byte

	GetErr   error
	StoreErr error
	GetGate  chan struct{} // when set, Get blocks until it is closed
	getCalls int
}

var _ repositories.StorageRepository = (*InMemoryStorageRepository)(nil)

// NewInMemoryStorageRepository creates an empty store.
func NewInMemoryStorageRepository() *InMemoryStorageRepository {
	return &InMemoryStorageRepository{Entries: make(map[string][]byte)}
}

func (s *InMemoryStorageRepository) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	s.getCalls++
	gate := s.GetGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return false, s.GetErr
	}
	data, ok := s.Entries[key]
	if !ok {
		return false, nil
	}
	return true, yaml.Unmarshal(data, out)
}

func (s *InMemoryStorageRepository) Store(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StoreErr != nil {
		return s.StoreErr
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	s.Entries[key] = data
	return nil
}

func (s *InMemoryStorageRepository) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Entries, key)
	return nil
}

// Has reports whether key is stored.
func (s *InMemoryStorageRepository) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Entries[key]
	return ok
}

// GetCalls is the number of Get calls so far.
func (s *InMemoryStorageRepository) GetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}
