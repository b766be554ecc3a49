package gitprovider

import (
	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/metrics"
)

// accessCache holds feature gating results, workspace-wide by feature and per repository.
// Both halves are always cleared together.
type accessCache struct {
	workspace  *promiseCache[entities.AccessResult]
	repository *promiseCache[entities.AccessResult]
}

func newAccessCache(routerMetrics *metrics.RouterMetrics) *accessCache {
	return &accessCache{
		workspace:  newPromiseCache[entities.AccessResult](entities.CacheAccess, 0, routerMetrics),
		repository: newPromiseCache[entities.AccessResult](entities.CacheAccess, 0, routerMetrics),
	}
}

func (c *accessCache) GetWorkspace(
	feature entities.Feature,
	compute func() (entities.AccessResult, error),
) (entities.AccessResult, error) {
	return c.workspace.Get(string(feature), compute)
}

func (c *accessCache) GetRepository(
	feature entities.Feature,
	repo *entities.Repository,
	compute func() (entities.AccessResult, error),
) (entities.AccessResult, error) {
	return c.repository.Get(string(feature)+"|"+repo.ID(), compute)
}

func (c *accessCache) Clear() {
	c.workspace.Clear()
	c.repository.Clear()
}

// aggregateAllowance is allowed when every result allows, denied when none does, mixed otherwise.
func aggregateAllowance(results []entities.AccessResult) entities.Allowance {
	if len(results) == 0 {
		return entities.AllowanceAllowed
	}
	allowed := 0
	for _, result := range results {
		if result.IsAllowed() {
			allowed++
		}
	}
	switch allowed {
	case len(results):
		return entities.AllowanceAllowed
	case 0:
		return entities.AllowanceDenied
	default:
		return entities.AllowanceMixed
	}
}
