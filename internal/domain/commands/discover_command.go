package commands

import (
	"context"
	"errors"
	"path/filepath"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/gitprovider"
)

// Discover is the interface for the discover command.
type Discover interface {
	Execute(ctx context.Context, opts DiscoverOptions) ([]*entities.Repository, error)
}

// DiscoverOptions holds runtime options for a discovery.
type DiscoverOptions struct {
	Roots   []string // Falls back to the configured roots, then to the working directory
	Force   bool
	Verbose bool
}

// DiscoverCommand scans workspace roots and lists the repositories found under them.
type DiscoverCommand struct {
	service  *gitprovider.GitProviderService
	settings *entities.Settings
}

// NewDiscoverCommand creates a new DiscoverCommand.
func NewDiscoverCommand(service *gitprovider.GitProviderService, settings *entities.Settings) *DiscoverCommand {
	return &DiscoverCommand{service: service, settings: settings}
}

// Execute discovers the roots and returns the open repositories below them, sorted by path.
func (it *DiscoverCommand) Execute(ctx context.Context, opts DiscoverOptions) ([]*entities.Repository, error) {
	if opts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	roots, err := resolveRoots(opts.Roots, it.settings)
	if err != nil {
		return nil, err
	}

	logger.Infof("Discovering repositories under %d root(s)...", len(roots))
	if err = it.service.Discover(ctx, roots, gitprovider.DiscoverOptions{Force: opts.Force}); err != nil {
		return nil, err
	}

	var found []*entities.Repository
	for _, repo := range it.service.OpenRepositories() {
		for _, root := range roots {
			if entities.IsDescendant(entities.ParseLocator(root).Path, repo.Path()) {
				found = append(found, repo)
				break
			}
		}
	}
	logger.Infof("Found %d repositories", len(found))
	return found, nil
}

// resolveRoots picks the explicit roots, else the configured ones, else the working directory,
// making bare paths absolute.
func resolveRoots(explicit []string, settings *entities.Settings) ([]string, error) {
	roots := explicit
	if len(roots) == 0 && settings != nil {
		roots = settings.Roots
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}

	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		locator := entities.ParseLocator(root)
		if !locator.IsFile() {
			resolved = append(resolved, root)
			continue
		}
		abs, err := filepath.Abs(filepath.FromSlash(locator.Path))
		if err != nil {
			return nil, errors.Join(errors.New("failed to resolve root "+root), err)
		}
		resolved = append(resolved, entities.NormalizePath(abs))
	}
	return resolved, nil
}
