package gitprovider

import (
	"context"
	"time"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// BoundRepository forwards service operations with the repository path filled in.
type BoundRepository struct {
	service    *GitProviderService
	repository *entities.Repository
}

// Bind returns the forwarding adapter for repo.
func (s *GitProviderService) Bind(repo *entities.Repository) *BoundRepository {
	return &BoundRepository{service: s, repository: repo}
}

func (b *BoundRepository) Repository() *entities.Repository { return b.repository }

func (b *BoundRepository) Path() string { return b.repository.Path() }

func (b *BoundRepository) Remotes(ctx context.Context) ([]entities.Remote, error) {
	return b.service.GetRemotes(ctx, b.repository.Path())
}

func (b *BoundRepository) Visibility(ctx context.Context) (entities.Visibility, error) {
	return b.service.Visibility(ctx, b.repository.Path())
}

func (b *BoundRepository) Access(ctx context.Context, feature entities.Feature) (entities.AccessResult, error) {
	return b.service.Access(ctx, feature, b.repository.Path())
}

func (b *BoundRepository) BestRemotes(ctx context.Context) ([]entities.RankedRemote, error) {
	return b.service.GetBestRemotesWithProviders(ctx, b.repository.Path())
}

func (b *BoundRepository) BestRemoteWithIntegration(ctx context.Context) (*entities.RankedRemote, error) {
	return b.service.GetBestRemoteWithIntegration(ctx, b.repository.Path())
}

func (b *BoundRepository) LastFetched() (time.Time, error) {
	return b.service.LastFetched(b.repository.Path())
}

func (b *BoundRepository) SetStarred(starred bool) error {
	return b.service.SetStarred(b.repository.Path(), starred)
}
