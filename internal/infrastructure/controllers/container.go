package controllers

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// RegisterProviders registers all controller providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register controller constructors
	if err := container.Provide(NewDiscoverController); err != nil {
		return err
	}
	if err := container.Provide(NewInspectController); err != nil {
		return err
	}
	if err := container.Provide(NewWatchController); err != nil {
		return err
	}
	if err := container.Provide(NewControllers); err != nil {
		return err
	}

	return nil
}

// NewControllers aggregates all controllers into a slice for the AppInternal.
func NewControllers(
	discoverController *DiscoverController,
	inspectController *InspectController,
	watchController *WatchController,
) *[]entities.Controller {
	return &[]entities.Controller{
		discoverController,
		inspectController,
		watchController,
	}
}
