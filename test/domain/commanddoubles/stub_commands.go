//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/gitrouter/internal/domain/commands"
	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// StubDiscoverCommand is a stub implementation of commands.Discover.
type StubDiscoverCommand struct {
	ExecuteCallCount int
	ExecuteErr       error
	Repositories     []*entities.Repository
	LastOpts         commands.DiscoverOptions
}

var _ commands.Discover = (*StubDiscoverCommand)(nil)

func (s *StubDiscoverCommand) Execute(
	_ context.Context,
	opts commands.DiscoverOptions,
) ([]*entities.Repository, error) {
	s.ExecuteCallCount++
	s.LastOpts = opts
	return s.Repositories, s.ExecuteErr
}

// StubInspectCommand is a stub implementation of commands.Inspect.
type StubInspectCommand struct {
	ExecuteCallCount int
	ExecuteErr       error
	Report           *commands.InspectReport
	LastOpts         commands.InspectOptions
}

var _ commands.Inspect = (*StubInspectCommand)(nil)

func (s *StubInspectCommand) Execute(
	_ context.Context,
	opts commands.InspectOptions,
) (*commands.InspectReport, error) {
	s.ExecuteCallCount++
	s.LastOpts = opts
	return s.Report, s.ExecuteErr
}

// StubWatchCommand is a stub implementation of commands.Watch.
type StubWatchCommand struct {
	ExecuteCallCount int
	ExecuteErr       error
	LastOpts         commands.WatchOptions
}

var _ commands.Watch = (*StubWatchCommand)(nil)

func (s *StubWatchCommand) Execute(
	_ context.Context,
	opts commands.WatchOptions,
) error {
	s.ExecuteCallCount++
	s.LastOpts = opts
	return s.ExecuteErr
}
