package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rios0rios0/gitrouter/internal/domain/entities"
)

// RouterMetrics contains Prometheus metrics for the routing service.
type RouterMetrics struct {
	metrics map[string]prometheus.Collector
}

const (
	metricNamespace = "gitrouter"

	cacheHitTotal              = "cache_hit_total"
	cacheMissTotal             = "cache_miss_total"
	discoveryAttemptTotal      = "discovery_attempt_total"
	discoveryFailureTotal      = "discovery_failure_total"
	discoveryDurationSeconds   = "discovery_duration_seconds"
	repositoriesOpen           = "repositories_open"
	providersRegistered        = "providers_registered"
	repositoryChangeEventTotal = "repository_change_event_total"
	fileSystemChangeEventTotal = "filesystem_change_event_total"

	// Labels
	cacheLayerLabel = "layer"
	providerLabel   = "provider"
)

// NewRouterMetrics returns new RouterMetrics.
func NewRouterMetrics() *RouterMetrics {
	return &RouterMetrics{
		metrics: map[string]prometheus.Collector{
			cacheHitTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      cacheHitTotal,
					Help:      "Total number of cache lookups answered from memory",
				},
				[]string{cacheLayerLabel},
			),
			cacheMissTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      cacheMissTotal,
					Help:      "Total number of cache lookups that had to compute the value",
				},
				[]string{cacheLayerLabel},
			),
			discoveryAttemptTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      discoveryAttemptTotal,
					Help:      "Total number of provider discovery calls",
				},
				[]string{providerLabel},
			),
			discoveryFailureTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      discoveryFailureTotal,
					Help:      "Total number of provider discovery calls that failed",
				},
				[]string{providerLabel},
			),
			discoveryDurationSeconds: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricNamespace,
					Name:      discoveryDurationSeconds,
					Help:      "Time taken by a provider to discover the repositories of one root, in seconds",
					Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
				},
				[]string{providerLabel},
			),
			repositoriesOpen: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: metricNamespace,
					Name:      repositoriesOpen,
					Help:      "Current number of open repositories",
				},
			),
			providersRegistered: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: metricNamespace,
					Name:      providersRegistered,
					Help:      "Current number of registered providers",
				},
			),
			repositoryChangeEventTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      repositoryChangeEventTotal,
					Help:      "Total number of coalesced repository change events emitted",
				},
			),
			fileSystemChangeEventTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      fileSystemChangeEventTotal,
					Help:      "Total number of coalesced working-tree change events emitted",
				},
			),
		},
	}
}

// RegisterAllMetrics registers every collector with registerer.
func (m *RouterMetrics) RegisterAllMetrics(registerer prometheus.Registerer) error {
	for _, pm := range m.metrics {
		if err := registerer.Register(pm); err != nil {
			return err
		}
	}
	return nil
}

// InitCacheLayers initializes the cache counters of every layer.
func (m *RouterMetrics) InitCacheLayers() {
	for _, layer := range entities.AllCacheLayers() {
		if c, ok := m.metrics[cacheHitTotal].(*prometheus.CounterVec); ok {
			c.WithLabelValues(string(layer)).Add(0)
		}
		if c, ok := m.metrics[cacheMissTotal].(*prometheus.CounterVec); ok {
			c.WithLabelValues(string(layer)).Add(0)
		}
	}
}

// RegisterCacheHit records a lookup served from memory.
func (m *RouterMetrics) RegisterCacheHit(layer entities.CacheLayer) {
	if c, ok := m.metrics[cacheHitTotal].(*prometheus.CounterVec); ok {
		c.WithLabelValues(string(layer)).Inc()
	}
}

// RegisterCacheMiss records a lookup that started a computation.
func (m *RouterMetrics) RegisterCacheMiss(layer entities.CacheLayer) {
	if c, ok := m.metrics[cacheMissTotal].(*prometheus.CounterVec); ok {
		c.WithLabelValues(string(layer)).Inc()
	}
}

// RegisterDiscoveryAttempt records a provider discovery call.
func (m *RouterMetrics) RegisterDiscoveryAttempt(provider string) {
	if c, ok := m.metrics[discoveryAttemptTotal].(*prometheus.CounterVec); ok {
		c.WithLabelValues(provider).Inc()
	}
}

// RegisterDiscoveryFailure records a failed provider discovery call.
func (m *RouterMetrics) RegisterDiscoveryFailure(provider string) {
	if c, ok := m.metrics[discoveryFailureTotal].(*prometheus.CounterVec); ok {
		c.WithLabelValues(provider).Inc()
	}
}

// ObserveDiscoveryDuration records how long a provider discovery call took.
func (m *RouterMetrics) ObserveDiscoveryDuration(provider string, seconds float64) {
	if h, ok := m.metrics[discoveryDurationSeconds].(*prometheus.HistogramVec); ok {
		h.WithLabelValues(provider).Observe(seconds)
	}
}

// SetRepositoriesOpen records the current number of open repositories.
func (m *RouterMetrics) SetRepositoriesOpen(count int) {
	if g, ok := m.metrics[repositoriesOpen].(prometheus.Gauge); ok {
		g.Set(float64(count))
	}
}

// SetProvidersRegistered records the current number of registered providers.
func (m *RouterMetrics) SetProvidersRegistered(count int) {
	if g, ok := m.metrics[providersRegistered].(prometheus.Gauge); ok {
		g.Set(float64(count))
	}
}

// RegisterRepositoryChangeEvent records one coalesced repository change emission.
func (m *RouterMetrics) RegisterRepositoryChangeEvent() {
	if c, ok := m.metrics[repositoryChangeEventTotal].(prometheus.Counter); ok {
		c.Inc()
	}
}

// RegisterFileSystemChangeEvent records one coalesced working-tree change emission.
func (m *RouterMetrics) RegisterFileSystemChangeEvent() {
	if c, ok := m.metrics[fileSystemChangeEventTotal].(prometheus.Counter); ok {
		c.Inc()
	}
}
