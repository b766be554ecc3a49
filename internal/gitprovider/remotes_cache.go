package gitprovider

import (
	"context"
	"fmt"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/metrics"
	infraRepos "github.com/rios0rios0/gitrouter/internal/infrastructure/repositories"
)

const (
	weightDefault  = 1000
	weightUpstream = 6
	// weightUpstreamName and weightOriginName apply to remotes named "upstream" and "origin".
	weightUpstreamName = 5
	weightOriginName   = 4
	weightForkAdjust   = 3
)

// remotesCache ranks the remotes of a repository, keyed by its root locator.
type remotesCache struct {
	hosting *infraRepos.HostingRegistry
	memory  *promiseCache[[]entities.RankedRemote]
}

func newRemotesCache(hosting *infraRepos.HostingRegistry, routerMetrics *metrics.RouterMetrics) *remotesCache {
	return &remotesCache{
		hosting: hosting,
		memory:  newPromiseCache[[]entities.RankedRemote](entities.CacheBestRemotes, 0, routerMetrics),
	}
}

func (c *remotesCache) Get(
	ctx context.Context,
	repo *entities.Repository,
	provider repositories.ProviderRepository,
) ([]entities.RankedRemote, error) {
	return c.memory.Get(repo.Root().Key(), func() ([]entities.RankedRemote, error) {
		return c.rank(context.WithoutCancel(ctx), repo, provider)
	})
}

func (c *remotesCache) Forget(repos ...*entities.Repository) {
	keys := make([]string, 0, len(repos))
	for _, repo := range repos {
		keys = append(keys, repo.Root().Key())
	}
	c.memory.Delete(keys...)
}

func (c *remotesCache) Clear() {
	c.memory.Clear()
}

func (c *remotesCache) rank(
	ctx context.Context,
	repo *entities.Repository,
	provider repositories.ProviderRepository,
) ([]entities.RankedRemote, error) {
	remotes, err := provider.GetRemotes(ctx, repo.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes of %s: %w", repo.Path(), err)
	}
	upstream, err := provider.GetUpstreamRemoteName(ctx, repo.Path())
	if err != nil {
		logger.Debugf("No upstream remote for %s: %v", repo.Path(), err)
		upstream = ""
	}

	ranked := make([]entities.RankedRemote, 0, len(remotes))
	for _, remote := range remotes {
		ranked = append(ranked, entities.RankedRemote{Remote: remote, Weight: baseWeight(remote, upstream)})
	}

	foundOriginal := false
	for i := range ranked {
		if foundOriginal {
			break
		}
		if ranked[i].Weight <= 0 || ranked[i].Weight >= weightDefault {
			continue
		}
		isFork, ok := c.probeFork(ctx, ranked[i].Remote)
		if !ok {
			continue
		}
		if isFork {
			ranked[i].Weight -= weightForkAdjust
		} else {
			ranked[i].Weight += weightForkAdjust
			foundOriginal = true
		}
	}

	sortRankedRemotes(ranked)
	return ranked, nil
}

func baseWeight(remote entities.Remote, upstream string) int {
	switch {
	case remote.Default:
		return weightDefault
	case upstream != "" && remote.Name == upstream:
		return weightUpstream
	case remote.Name == "upstream":
		return weightUpstreamName
	case remote.Name == "origin":
		return weightOriginName
	default:
		return 0
	}
}

// probeFork asks the hosting connection of remote whether it is a fork. Only already connected
// services are asked.
func (c *remotesCache) probeFork(ctx context.Context, remote entities.Remote) (bool, bool) {
	hosting := c.connectionFor(remote)
	if hosting == nil {
		return false, false
	}
	metadata, err := hosting.GetRepositoryMetadata(ctx, *remote.Hosting)
	if err != nil {
		logger.Debugf("Failed to get metadata of remote %s: %v", remote.Name, err)
		return false, false
	}
	return metadata.IsFork, true
}

// connectionFor returns the connected hosting service of remote, or nil.
func (c *remotesCache) connectionFor(remote entities.Remote) repositories.HostingRepository {
	if remote.Hosting == nil || c.hosting == nil {
		return nil
	}
	hosting := c.hosting.Get(remote.Hosting.Type)
	if hosting == nil || !hosting.IsConnected() {
		return nil
	}
	return hosting
}

// sortRankedRemotes orders by descending weight; remotes both weighing zero sort by name.
func sortRankedRemotes(ranked []entities.RankedRemote) {
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Weight == 0 && b.Weight == 0 {
			return a.Name < b.Name
		}
		return a.Weight > b.Weight
	})
}
