package entities

import (
	"errors"
	"fmt"
)

var (
	ErrProviderNotFound          = errors.New("no provider found")
	ErrProviderNotSupported      = errors.New("provider does not support the operation")
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
	ErrRepositoryNotFound        = errors.New("repository not found")
)

// ProviderNotFoundError is returned when no registered provider claims a locator.
type ProviderNotFoundError struct {
	Locator Locator
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("no provider found for %s", e.Locator)
}

func (e *ProviderNotFoundError) Unwrap() error { return ErrProviderNotFound }

// ProviderNotSupportedError is returned when a provider lacks an optional capability.
type ProviderNotSupportedError struct {
	ProviderID string
	Capability string
}

func (e *ProviderNotSupportedError) Error() string {
	return fmt.Sprintf("provider %q does not support %s", e.ProviderID, e.Capability)
}

func (e *ProviderNotSupportedError) Unwrap() error { return ErrProviderNotSupported }
