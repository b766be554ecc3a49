package repositories

import (
	"github.com/spf13/afero"
	"go.uber.org/dig"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitrouter/internal/domain/repositories"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/metrics"
	adoRepo "github.com/rios0rios0/gitrouter/internal/infrastructure/repositories/azuredevops"
	ghRepo "github.com/rios0rios0/gitrouter/internal/infrastructure/repositories/github"
	glRepo "github.com/rios0rios0/gitrouter/internal/infrastructure/repositories/gitlab"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/repositories/local"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/repositories/storage"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/repositories/subscription"
)

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	if err := container.Provide(afero.NewOsFs); err != nil {
		return err
	}
	if err := container.Provide(NewProviderRegistry); err != nil {
		return err
	}
	if err := container.Provide(NewHostingRegistryFromSettings); err != nil {
		return err
	}
	if err := container.Provide(func(fs afero.Fs, settings *entities.Settings) domainRepos.StorageRepository {
		return storage.NewFileStorageRepository(fs, settings.StoragePath)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(settings *entities.Settings) domainRepos.SubscriptionRepository {
		return subscription.NewSettingsSubscriptionRepository(settings)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(
		fs afero.Fs,
		hosting *HostingRegistry,
		settings *entities.Settings,
	) *local.LocalProviderRepository {
		return local.NewLocalProviderRepository(fs, hosting, local.Options{
			Excludes: settings.Excludes,
			MaxDepth: settings.MaxDepth,
		})
	}); err != nil {
		return err
	}
	if err := container.Provide(metrics.NewRouterMetrics); err != nil {
		return err
	}

	return nil
}

// NewHostingRegistryFromSettings connects every hosting service with a configured or
// environment-provided token.
func NewHostingRegistryFromSettings(settings *entities.Settings) (*HostingRegistry, error) {
	reg := NewHostingRegistry()

	github, err := ghRepo.NewGitHubHostingRepository(
		settings.HostingToken(entities.HostingGitHub),
		settings.HostingBaseURL(entities.HostingGitHub),
	)
	if err != nil {
		return nil, err
	}
	reg.Register(github)
	reg.Register(glRepo.NewGitLabHostingRepository(
		settings.HostingToken(entities.HostingGitLab),
		settings.HostingBaseURL(entities.HostingGitLab),
	))
	reg.Register(adoRepo.NewAzureDevOpsHostingRepository(
		settings.HostingToken(entities.HostingAzureDevOps),
		settings.HostingBaseURL(entities.HostingAzureDevOps),
	))

	return reg, nil
}
