package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a collector by metric name for testing.
func (m *RouterMetrics) Collector(name string) prometheus.Collector {
	return m.metrics[name]
}
