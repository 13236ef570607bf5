package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsNamespace prefixes every storefront metric.
const MetricsNamespace = "storefront"

// Metrics is the storefront's Prometheus collector set.
// It owns its registry so that tests can build independent instances.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	degradations     *prometheus.CounterVec
	mutations        *prometheus.CounterVec
	activeViews      *prometheus.GaugeVec
	sessionsDropped  prometheus.Counter
}

// NewMetrics creates and registers all collectors, plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "degradations_total",
			Help:      "Results served with missing or discarded input, by operation and reason code.",
		}, []string{"operation", "reason"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "mutations_total",
			Help:      "Cart mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		activeViews: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "active_views",
			Help:      "Open view sessions by kind.",
		}, []string{"kind"}),
		sessionsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "invalidated_sessions_total",
			Help:      "Upstream 401 responses that invalidated a session.",
		}),
	}

	m.registry.MustRegister(
		m.upstreamRequests,
		m.upstreamDuration,
		m.degradations,
		m.mutations,
		m.activeViews,
		m.sessionsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(operation, outcome string, elapsed time.Duration) {
	m.upstreamRequests.WithLabelValues(operation, outcome).Inc()
	m.upstreamDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveDegradation counts each reason code of a degraded result.
func (m *Metrics) ObserveDegradation(operation string, reasonCodes []string) {
	for _, code := range reasonCodes {
		m.degradations.WithLabelValues(operation, code).Inc()
	}
}

// ObserveMutation counts a cart mutation outcome.
func (m *Metrics) ObserveMutation(operation, outcome string) {
	m.mutations.WithLabelValues(operation, outcome).Inc()
}

// SetActiveViews reports the number of open views of one kind.
func (m *Metrics) SetActiveViews(kind string, n int) {
	m.activeViews.WithLabelValues(kind).Set(float64(n))
}

// ObserveSessionInvalidated counts a session dropped after an upstream 401.
func (m *Metrics) ObserveSessionInvalidated() {
	m.sessionsDropped.Inc()
}
