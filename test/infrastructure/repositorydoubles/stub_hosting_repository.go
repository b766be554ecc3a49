//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"
	"sync"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

// StubHostingRepository implements repositories.HostingRepository with canned metadata keyed by
// the repository full name.
type StubHostingRepository struct {
	mu sync.Mutex

	HostingType string
	Connected   bool
	Metadata    map[string]*entities.RepositoryMetadata
	MetadataErr error

	MetadataCalls []string
}

var _ repositories.HostingRepository = (*StubHostingRepository)(nil)

// NewStubHostingRepository creates a connected stub of the given hosting type.
func NewStubHostingRepository(hostingType string) *StubHostingRepository {
	return &StubHostingRepository{
		HostingType: hostingType,
		Connected:   true,
		Metadata:    make(map[string]*entities.RepositoryMetadata),
	}
}

func (h *StubHostingRepository) Type() string { return h.HostingType }

func (h *StubHostingRepository) MatchesURL(rawURL string) bool {
	info, err := entities.ParseRemoteURL(rawURL)
	return err == nil && info.Type == h.HostingType
}

func (h *StubHostingRepository) IsConnected() bool { return h.Connected }

func (h *StubHostingRepository) GetRepositoryMetadata(
	_ context.Context,
	info entities.HostingInfo,
) (*entities.RepositoryMetadata, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.MetadataCalls = append(h.MetadataCalls, info.FullName())
	if h.MetadataErr != nil {
		return nil, h.MetadataErr
	}
	metadata, ok := h.Metadata[info.FullName()]
	if !ok {
		return nil, fmt.Errorf("repository %s not found", info.FullName())
	}
	return metadata, nil
}

// WithRepository registers the metadata of a hosted repository.
func (h *StubHostingRepository) WithRepository(fullName string, fork, private bool) *StubHostingRepository {
	h.Metadata[fullName] = &entities.RepositoryMetadata{FullName: fullName, IsFork: fork, Private: private}
	return h
}

// Calls is the number of metadata lookups so far.
func (h *StubHostingRepository) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.MetadataCalls)
}
