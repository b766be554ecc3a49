package repositories

import (
	"context"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// HostingRepository abstracts a Git hosting service connection (GitHub, GitLab, Azure DevOps).
type HostingRepository interface {
	// Type returns the hosting identifier (e.g. "github").
	Type() string

	// MatchesURL returns true if the remote URL belongs to this service.
	MatchesURL(rawURL string) bool

	// IsConnected reports whether the connection is plausibly authenticated already,
	// so querying it will not force an interactive sign-in.
	IsConnected() bool

	// GetRepositoryMetadata looks up the hosted repository behind a remote.
	GetRepositoryMetadata(ctx context.Context, info entities.HostingInfo) (*entities.RepositoryMetadata, error)
}
