package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
	"github.com/rios0rios0/gitrouter/internal/gitprovider"
	"github.com/rios0rios0/gitrouter/internal/infrastructure/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

// Watch is the interface for the watch command.
type Watch interface {
	Execute(ctx context.Context, opts WatchOptions) error
}

// WatchOptions holds runtime options for watching.
type WatchOptions struct {
	Roots []string
	// FileSystemDelay overrides the working-tree debounce; zero keeps the configured one.
	FileSystemDelay time.Duration
	// MetricsAddr serves the Prometheus metrics when not empty, e.g. ":9090".
	MetricsAddr string
}

// WatchCommand discovers the roots and reports every repository change until the context is done.
type WatchCommand struct {
	service  *gitprovider.GitProviderService
	settings *entities.Settings
	metrics  *metrics.RouterMetrics

	mu          sync.Mutex
	unwatchers  map[string]func()
	fsDelay     time.Duration
	subscribers []func()
}

// NewWatchCommand creates a new WatchCommand.
func NewWatchCommand(
	service *gitprovider.GitProviderService,
	settings *entities.Settings,
	routerMetrics *metrics.RouterMetrics,
) *WatchCommand {
	return &WatchCommand{
		service:    service,
		settings:   settings,
		metrics:    routerMetrics,
		unwatchers: make(map[string]func()),
	}
}

// Execute blocks until ctx is done, then disposes the service.
func (it *WatchCommand) Execute(ctx context.Context, opts WatchOptions) error {
	roots, err := resolveRoots(opts.Roots, it.settings)
	if err != nil {
		return err
	}

	it.fsDelay = opts.FileSystemDelay
	if it.fsDelay <= 0 && it.settings != nil {
		it.fsDelay = it.settings.FileSystemChangeDelay
	}

	var server *http.Server
	if opts.MetricsAddr != "" {
		if server, err = it.serveMetrics(opts.MetricsAddr); err != nil {
			return err
		}
	}

	it.subscribe()
	defer it.unsubscribe()

	it.service.EnableWatching()
	if err = it.service.Discover(ctx, roots, gitprovider.DiscoverOptions{}); err != nil {
		return err
	}
	for _, repo := range it.service.OpenRepositories() {
		it.watchRepository(repo)
	}
	logger.Infof("Watching %d repositories, press Ctrl+C to stop", it.service.OpenRepositoryCount())

	<-ctx.Done()
	logger.Info("Stopping watch...")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warnf("Failed to stop the metrics server: %v", shutdownErr)
		}
	}
	it.service.Dispose()
	return nil
}

func (it *WatchCommand) subscribe() {
	it.subscribers = append(it.subscribers,
		it.service.OnDidChangeRepositories(func(event gitprovider.RepositoriesChangeEvent) {
			for _, repo := range event.Added {
				logger.WithField("etag", event.Etag).Infof("Repository added: %s", repo.Path())
				it.watchRepository(repo)
			}
			for _, repo := range event.Removed {
				logger.WithField("etag", event.Etag).Infof("Repository removed: %s", repo.Path())
				it.unwatchRepository(repo)
			}
		}),
		it.service.OnDidChangeRepository(func(event entities.RepositoryChangeEvent) {
			logger.WithFields(logger.Fields{
				"repository": event.Repository.Path(),
				"changes":    event.Changes.String(),
			}).Info("Repository changed")
		}),
		it.service.OnDidChangeRepositoryFileSystem(func(event entities.FileSystemChangeEvent) {
			logger.WithFields(logger.Fields{
				"repository": event.Repository.Path(),
				"paths":      len(event.Paths),
			}).Info("Working tree changed")
			for _, changed := range event.Paths {
				logger.Debugf("  %s", changed)
			}
		}),
	)
}

func (it *WatchCommand) unsubscribe() {
	for _, unsubscribe := range it.subscribers {
		unsubscribe()
	}
	it.subscribers = nil

	it.mu.Lock()
	defer it.mu.Unlock()
	for key, unwatch := range it.unwatchers {
		unwatch()
		delete(it.unwatchers, key)
	}
}

func (it *WatchCommand) watchRepository(repo *entities.Repository) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if _, ok := it.unwatchers[repo.ID()]; ok {
		return
	}
	it.unwatchers[repo.ID()] = repo.WatchFileSystem(it.fsDelay)
}

func (it *WatchCommand) unwatchRepository(repo *entities.Repository) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if unwatch, ok := it.unwatchers[repo.ID()]; ok {
		unwatch()
		delete(it.unwatchers, repo.ID())
	}
}

func (it *WatchCommand) serveMetrics(addr string) (*http.Server, error) {
	registry := prometheus.NewRegistry()
	if err := it.metrics.RegisterAllMetrics(registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: metricsShutdownTimeout}

	go func() {
		logger.Infof("Serving metrics on %s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server failed: %v", err)
		}
	}()
	return server, nil
}
