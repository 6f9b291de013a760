package record

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sarchlab/cachesim/cache"
)

// Metrics holds the run counters of one simulation.
type Metrics struct {
	registry *prometheus.Registry

	Hits       prometheus.Counter
	Misses     prometheus.Counter
	Evictions  prometheus.Counter
	ColdMisses prometheus.Counter

	Sets        prometheus.Gauge
	LinesPerSet prometheus.Gauge
	BlockSize   prometheus.Gauge
}

// NewMetrics creates the counters in a private registry under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		}),
		Misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "misses_total",
			Help:      "Total number of misses that evicted a line",
		}),
		Evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Total number of evicted lines",
		}),
		ColdMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cold_misses_total",
			Help:      "Total number of misses that filled an empty line",
		}),
		Sets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sets",
			Help:      "Number of cache sets",
		}),
		LinesPerSet: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lines_per_set",
			Help:      "Associativity of each set",
		}),
		BlockSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "block_size_bytes",
			Help:      "Cache block size in bytes",
		}),
	}
}

// Observe adds the statistics of a run and sets the geometry gauges.
func (m *Metrics) Observe(stats cache.Statistics, config cache.Config) {
	m.Hits.Add(float64(stats.Hits))
	m.Misses.Add(float64(stats.Misses))
	m.Evictions.Add(float64(stats.Evictions))
	m.ColdMisses.Add(float64(stats.ColdMisses))

	m.Sets.Set(float64(config.NumSets()))
	m.LinesPerSet.Set(float64(config.LinesPerSet))
	m.BlockSize.Set(float64(config.BlockSize()))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile writes the metrics in the Prometheus text format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// WriteMetrics writes the counters of one run to path.
func WriteMetrics(path string, stats cache.Statistics, config cache.Config) error {
	m := NewMetrics("csim")
	m.Observe(stats, config)
	return m.WriteFile(path)
}
