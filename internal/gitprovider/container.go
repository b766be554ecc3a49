package gitprovider

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/metrics"
	infraRepos "github.com/rios0rios0/gitrouter/internal/infrastructure/repositories"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/repositories/local"
)

// RegisterProviders registers the service with the DIG container.
func RegisterProviders(container *dig.Container) error {
	return container.Provide(func(
		settings *entities.Settings,
		registry *infraRepos.ProviderRegistry,
		hosting *infraRepos.HostingRegistry,
		storage repositories.StorageRepository,
		subscriptions repositories.SubscriptionRepository,
		routerMetrics *metrics.RouterMetrics,
		localProvider *local.LocalProviderRepository,
	) (*GitProviderService, error) {
		service := NewGitProviderService(
			registry, hosting, storage, subscriptions, routerMetrics, OptionsFromSettings(settings),
		)
		if _, err := service.RegisterProvider(localProvider); err != nil {
			return nil, err
		}
		return service, nil
	})
}
