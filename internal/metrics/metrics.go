// Package metrics exposes Prometheus collectors for the cache, extractor and pre-warm sweep.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolve outcomes
const (
	OutcomeHit         = "hit"
	OutcomeRefreshed   = "refreshed"
	OutcomeEmpty       = "empty"
	OutcomeError       = "error"
	OutcomeStaleServed = "stale_served"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry           *prometheus.Registry
	resolveTotal       *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	sharedRefreshes    *prometheus.CounterVec
	storeWriteFailures prometheus.Counter
	sweepDuration      prometheus.Histogram
	sweepFailures      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herobuilds",
			Name:      "resolve_total",
			Help:      "Cache resolutions by namespace and outcome.",
		}, []string{"namespace", "outcome"}),
		extractionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "herobuilds",
			Name:      "extraction_duration_seconds",
			Help:      "Time spent rendering and parsing source pages.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		}, []string{"kind", "result"}),
		sharedRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herobuilds",
			Name:      "shared_refresh_total",
			Help:      "Resolutions that joined an in-flight refresh for the same key.",
		}, []string{"namespace"}),
		storeWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "herobuilds",
			Name:      "store_write_failures_total",
			Help:      "Freshly extracted records that could not be persisted.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "herobuilds",
			Name:      "prewarm_sweep_duration_seconds",
			Help:      "Duration of a full pre-warm sweep over the catalog.",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 8),
		}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "herobuilds",
			Name:      "prewarm_failures_total",
			Help:      "Catalog entries that failed to refresh during a sweep.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.resolveTotal,
		m.extractionDuration,
		m.sharedRefreshes,
		m.storeWriteFailures,
		m.sweepDuration,
		m.sweepFailures,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveResolve(namespace, outcome string) {
	if m == nil {
		return
	}
	m.resolveTotal.WithLabelValues(namespace, outcome).Inc()
}

func (m *Metrics) ObserveExtraction(kind string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.extractionDuration.WithLabelValues(kind, result).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveShared(namespace string) {
	if m == nil {
		return
	}
	m.sharedRefreshes.WithLabelValues(namespace).Inc()
}

func (m *Metrics) ObserveStoreWriteFailure() {
	if m == nil {
		return
	}
	m.storeWriteFailures.Inc()
}

func (m *Metrics) ObserveSweep(elapsed time.Duration, failures int) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(elapsed.Seconds())
	m.sweepFailures.Add(float64(failures))
}
