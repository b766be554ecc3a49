package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/gitprovider"
)

// Inspect is the interface for the inspect command.
type Inspect interface {
	Execute(ctx context.Context, opts InspectOptions) (*InspectReport, error)
}

// InspectOptions holds runtime options for an inspection.
type InspectOptions struct {
	Path     string
	Features []entities.Feature
}

// InspectReport is everything the router knows about one repository.
type InspectReport struct {
	Path        string
	ProviderID  string
	Starred     bool
	Visibility  entities.Visibility
	Remotes     []entities.RankedRemote
	Integration *entities.RankedRemote
	Access      []entities.AccessResult
	LastFetched time.Time
}

// InspectCommand opens the repository containing a path and reports its routing information.
type InspectCommand struct {
	service *gitprovider.GitProviderService
}

// NewInspectCommand creates a new InspectCommand.
func NewInspectCommand(service *gitprovider.GitProviderService) *InspectCommand {
	return &InspectCommand{service: service}
}

// Execute opens the repository containing opts.Path, nested ones included, and collects its report.
func (it *InspectCommand) Execute(ctx context.Context, opts InspectOptions) (*InspectReport, error) {
	target := opts.Path
	if target == "" {
		target = "."
	}
	locator := entities.ParseLocator(target)
	if locator.IsFile() {
		abs, err := filepath.Abs(filepath.FromSlash(locator.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", target, err)
		}
		locator = entities.NewFileLocator(abs)
	}

	repo, err := it.service.GetOrOpenRepository(ctx, locator, gitprovider.OpenOptions{DetectNested: true})
	if err != nil {
		return nil, err
	}
	bound := it.service.Bind(repo)
	logger.Infof("Inspecting %s (provider: %s)", repo.Path(), repo.ProviderID())

	report := &InspectReport{
		Path:       repo.Path(),
		ProviderID: repo.ProviderID(),
		Starred:    repo.Starred(),
	}

	if report.Visibility, err = bound.Visibility(ctx); err != nil {
		return nil, err
	}
	if report.Remotes, err = bound.BestRemotes(ctx); err != nil {
		return nil, fmt.Errorf("failed to rank remotes: %w", err)
	}
	if report.Integration, err = bound.BestRemoteWithIntegration(ctx); err != nil {
		return nil, fmt.Errorf("failed to find an integrated remote: %w", err)
	}

	for _, feature := range opts.Features {
		result, accessErr := bound.Access(ctx, feature)
		if accessErr != nil {
			return nil, accessErr
		}
		report.Access = append(report.Access, result)
	}

	report.LastFetched, err = bound.LastFetched()
	if err != nil && !errors.Is(err, entities.ErrProviderNotSupported) {
		logger.Warnf("Failed to read the last fetch of %s: %v", repo.Path(), err)
	}
	return report, nil
}
