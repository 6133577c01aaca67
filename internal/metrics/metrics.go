// Package metrics exposes Prometheus metrics for the resume index.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers do not collide on the default one.
type Metrics struct {
	registry      *prometheus.Registry
	insertsTotal  *prometheus.CounterVec
	queriesTotal  *prometheus.CounterVec
	persistRetry  *prometheus.CounterVec
	indexSize     prometheus.Gauge
	ledgerSize    prometheus.Gauge
	divergence    prometheus.Gauge
	queryDuration prometheus.Histogram
}

// New creates and registers all collectors, including the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		insertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resumatch_inserts_total",
				Help: "Resume insertions by result",
			},
			[]string{"result"},
		),
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resumatch_queries_total",
				Help: "Match queries by result",
			},
			[]string{"result"},
		),
		persistRetry: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resumatch_persist_retries_total",
				Help: "Persistence retries by step (snapshot, backup, ledger)",
			},
			[]string{"step"},
		),
		indexSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "resumatch_index_size",
			Help: "Vectors in the resume index",
		}),
		ledgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "resumatch_ledger_size",
			Help: "Ids in the identity ledger",
		}),
		divergence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "resumatch_index_divergence",
			Help: "Index size minus ledger length; non-zero needs a rebuild",
		}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "resumatch_query_duration_seconds",
			Help:    "Match query latency including embedding",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
	}
	m.registry.MustRegister(
		m.insertsTotal, m.queriesTotal, m.persistRetry,
		m.indexSize, m.ledgerSize, m.divergence, m.queryDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveInsert counts one insertion.
func (m *Metrics) ObserveInsert(result string) {
	m.insertsTotal.WithLabelValues(result).Inc()
}

// ObserveQuery counts one query and records its latency.
func (m *Metrics) ObserveQuery(result string, elapsed time.Duration) {
	m.queriesTotal.WithLabelValues(result).Inc()
	m.queryDuration.Observe(elapsed.Seconds())
}

// ObservePersistRetry counts one retried persistence step.
func (m *Metrics) ObservePersistRetry(step string) {
	m.persistRetry.WithLabelValues(step).Inc()
}

// SetSizes updates the size and divergence gauges.
func (m *Metrics) SetSizes(indexSize, ledgerLen int) {
	m.indexSize.Set(float64(indexSize))
	m.ledgerSize.Set(float64(ledgerLen))
	m.divergence.Set(float64(indexSize - ledgerLen))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
