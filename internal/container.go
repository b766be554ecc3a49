package internal

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/gitrouter/internal/domain/commands"
	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/gitprovider"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/controllers"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/repositories"
)

// RegisterProviders registers all internal providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// bottom-up: entities -> infrastructure repos -> service -> domain commands -> controllers
	if err := entities.RegisterProviders(container); err != nil {
		return err
	}
	if err := repositories.RegisterProviders(container); err != nil {
		return err
	}
	if err := gitprovider.RegisterProviders(container); err != nil {
		return err
	}
	if err := commands.RegisterProviders(container); err != nil {
		return err
	}
	if err := controllers.RegisterProviders(container); err != nil {
		return err
	}

	if err := container.Provide(NewAppInternal); err != nil {
		return err
	}

	return nil
}
