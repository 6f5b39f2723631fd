package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for the dice roller
type Metrics struct {
	// Roll counters
	RollsTotal        *prometheus.CounterVec
	RollFailuresTotal prometheus.Counter
	EmbedRendersTotal prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	HTTPErrorsTotal            *prometheus.CounterVec

	// State gauges
	RollsStored       prometheus.Gauge
	UptimeSeconds     prometheus.Gauge
	Goroutines        prometheus.Gauge
	DatabaseSizeBytes prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diceroller_rolls_total",
				Help: "Total number of rolls stored, by campaign",
			},
			[]string{"campaign"},
		),
		RollFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "diceroller_roll_failures_total",
				Help: "Total number of roll submissions that could not be stored",
			},
		),
		EmbedRendersTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "diceroller_embed_renders_total",
				Help: "Total number of rendered dice roll widgets",
			},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diceroller_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "diceroller_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diceroller_http_errors_total",
				Help: "Total number of HTTP error responses by type",
			},
			[]string{"error_type"},
		),

		RollsStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "diceroller_rolls_stored",
				Help: "Number of rolls in the roll table",
			},
		),
		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "diceroller_uptime_seconds",
				Help: "Time since the server started",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "diceroller_goroutines",
				Help: "Number of running goroutines",
			},
		),
		DatabaseSizeBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "diceroller_database_size_bytes",
				Help: "Size of the database file in bytes",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.RollsTotal,
		m.RollFailuresTotal,
		m.EmbedRendersTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.HTTPErrorsTotal,
		m.RollsStored,
		m.UptimeSeconds,
		m.Goroutines,
		m.DatabaseSizeBytes,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncRolls counts a stored roll for the named campaign
func IncRolls(campaign string) {
	m := Global()
	if m != nil {
		m.RollsTotal.WithLabelValues(campaign).Inc()
	}
}

// IncRollFailures counts a roll that could not be stored
func IncRollFailures() {
	m := Global()
	if m != nil {
		m.RollFailuresTotal.Inc()
	}
}

// IncEmbedRenders counts a rendered widget
func IncEmbedRenders() {
	m := Global()
	if m != nil {
		m.EmbedRendersTotal.Inc()
	}
}

// IncHTTPErrors increments the HTTP error counter
func IncHTTPErrors(errorType string) {
	m := Global()
	if m != nil {
		m.HTTPErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
