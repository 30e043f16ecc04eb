// Package metrics provides Prometheus metrics for the vitals service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Components reported through RecordComponentError.
const (
	ComponentDevice      = "device"
	ComponentPrediction  = "prediction"
	ComponentPersistence = "persistence"
	ComponentProfile     = "profile"
	ComponentNotify      = "notify"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Acquisition
	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	componentErrors *prometheus.CounterVec

	// Pagination
	paginationFetches *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager with its own registry unless one is supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vitals",
		histogramBuckets: prometheus.DefBuckets,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.cycles = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "poller",
		Name:      "cycles_total",
		Help:      "Acquisition cycles by outcome, including skipped ticks",
	}, []string{"outcome"})

	m.cycleDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "poller",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of acquisition cycles that ran",
		Buckets:   m.histogramBuckets,
	})

	m.componentErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "poller",
		Name:      "component_errors_total",
		Help:      "Failures reported by the device, prediction and persistence collaborators",
	}, []string{"component"})

	m.paginationFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pagination",
		Name:      "fetches_total",
		Help:      "Pagination fetches by direction and result",
	}, []string{"direction", "result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})
}

// RecordCycle counts one poller tick. Duration is observed only for cycles that ran.
func (m *Manager) RecordCycle(outcome string, duration time.Duration) {
	m.cycles.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.cycleDuration.Observe(duration.Seconds())
	}
}

// RecordComponentError counts a collaborator failure.
func (m *Manager) RecordComponentError(component string) {
	m.componentErrors.WithLabelValues(component).Inc()
}

// RecordPaginationFetch counts one pagination fetch.
func (m *Manager) RecordPaginationFetch(direction, result string) {
	m.paginationFetches.WithLabelValues(direction, result).Inc()
}

// RecordHTTPRequest counts and times one HTTP request.
func (m *Manager) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// Registry returns the registry backing this manager.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
