package gitprovider

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/metrics"
)

const (
	visibilityStoragePrefix = "visibility:"
	// aggregateKey is the cache key of the "all repositories" entry.
	aggregateKey = ""
)

// visibilityCache resolves repository visibility through memory, then the persisted tier, then the provider.
type visibilityCache struct {
	storage repositories.StorageRepository
	ttl     time.Duration
	now     func() time.Time
	memory  *promiseCache[entities.Visibility]
}

func newVisibilityCache(
	storage repositories.StorageRepository,
	ttl time.Duration,
	routerMetrics *metrics.RouterMetrics,
) *visibilityCache {
	if ttl <= 0 {
		ttl = entities.DefaultVisibilityTTL
	}
	return &visibilityCache{
		storage: storage,
		ttl:     ttl,
		now:     time.Now,
		memory:  newPromiseCache[entities.Visibility](entities.CacheVisibility, 0, routerMetrics),
	}
}

func visibilityStorageKey(repo *entities.Repository) string {
	return visibilityStoragePrefix + repo.Root().Key()
}

// Get returns the visibility of one repository.
func (c *visibilityCache) Get(
	ctx context.Context,
	repo *entities.Repository,
	provider repositories.ProviderRepository,
) (entities.Visibility, error) {
	return c.memory.Get(repo.ID(), func() (entities.Visibility, error) {
		return c.compute(context.WithoutCancel(ctx), repo, provider)
	})
}

func (c *visibilityCache) compute(
	ctx context.Context,
	repo *entities.Repository,
	provider repositories.ProviderRepository,
) (entities.Visibility, error) {
	key := visibilityStorageKey(repo)

	if visibility, ok := c.fromStorage(ctx, key, repo, provider); ok {
		return visibility, nil
	}

	visibility, remotesHash, err := provider.Visibility(ctx, repo.Path())
	if err != nil {
		return "", fmt.Errorf("failed to compute visibility of %s: %w", repo.Path(), err)
	}

	if visibility != entities.VisibilityLocal && c.storage != nil {
		info := entities.NewVisibilityInfo(visibility, remotesHash, c.now())
		if storeErr := c.storage.Store(key, info); storeErr != nil {
			logger.Warnf("Failed to persist visibility of %s: %v", repo.Path(), storeErr)
		}
	}
	return visibility, nil
}

// fromStorage returns the persisted visibility when it is younger than the TTL and still matches the
// current remotes. Stale entries are deleted.
func (c *visibilityCache) fromStorage(
	ctx context.Context,
	key string,
	repo *entities.Repository,
	provider repositories.ProviderRepository,
) (entities.Visibility, bool) {
	if c.storage == nil {
		return "", false
	}

	var info entities.VisibilityInfo
	found, err := c.storage.Get(key, &info)
	if err != nil {
		logger.Warnf("Failed to read persisted visibility of %s: %v", repo.Path(), err)
		return "", false
	}
	if !found {
		return "", false
	}

	if info.Expired(c.now(), c.ttl) {
		logger.Debugf("Persisted visibility of %s expired", repo.Path())
		c.deleteStored(key)
		return "", false
	}

	remotes, err := provider.GetRemotes(ctx, repo.Path())
	if err != nil {
		logger.Debugf("Cannot validate persisted visibility of %s: %v", repo.Path(), err)
		return "", false
	}
	if !info.StillValid(remotes) {
		logger.Debugf("Persisted visibility of %s no longer matches its remotes", repo.Path())
		c.deleteStored(key)
		return "", false
	}
	return info.Visibility, true
}

func (c *visibilityCache) deleteStored(key string) {
	if err := c.storage.Delete(key); err != nil {
		logger.Warnf("Failed to delete persisted visibility %q: %v", key, err)
	}
}

type visibilityResult struct {
	visibility entities.Visibility
	err        error
}

// Aggregate folds the visibility of every repository, stopping at the first disagreement.
func (c *visibilityCache) Aggregate(
	ctx context.Context,
	repos []*entities.Repository,
	providerFor func(*entities.Repository) (repositories.ProviderRepository, error),
) (entities.Visibility, error) {
	return c.memory.Get(aggregateKey, func() (entities.Visibility, error) {
		switch len(repos) {
		case 0:
			return entities.VisibilityLocal, nil
		case 1:
			provider, err := providerFor(repos[0])
			if err != nil {
				return "", err
			}
			return c.Get(ctx, repos[0], provider)
		}

		// buffered so the remaining goroutines finish after an early return
		results := make(chan visibilityResult, len(repos))
		for _, repo := range repos {
			go func(repo *entities.Repository) {
				provider, err := providerFor(repo)
				if err != nil {
					results <- visibilityResult{err: err}
					return
				}
				visibility, err := c.Get(ctx, repo, provider)
				results <- visibilityResult{visibility: visibility, err: err}
			}(repo)
		}

		var first entities.Visibility
		for range repos {
			result := <-results
			if result.err != nil {
				return "", result.err
			}
			if first == "" {
				first = result.visibility
				continue
			}
			if result.visibility != first {
				return entities.VisibilityMixed, nil
			}
		}
		return first, nil
	})
}

// ForgetAggregate drops only the aggregate entry.
func (c *visibilityCache) ForgetAggregate() {
	c.memory.Delete(aggregateKey)
}

// Clear drops the memory tier. With purge, the persisted entries of repos are deleted as well.
func (c *visibilityCache) Clear(purge bool, repos ...*entities.Repository) {
	c.memory.Clear()
	if !purge || c.storage == nil {
		return
	}
	for _, repo := range repos {
		c.deleteStored(visibilityStorageKey(repo))
	}
}
