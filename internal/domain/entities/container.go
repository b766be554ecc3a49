package entities

import (
	"go.uber.org/dig"
)

// RegisterProviders registers all entity providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	if err := container.Provide(LoadSettings); err != nil {
		return err
	}
	return nil
}
