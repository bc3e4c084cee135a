// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "liquidity_mining_lab"

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Simulation metrics
	SimulationsTotal   *prometheus.CounterVec
	SimulationDuration prometheus.Histogram
	EpochsSimulated    prometheus.Counter
	EpochsSkipped      prometheus.Counter

	// Verification metrics
	VerificationsTotal *prometheus.CounterVec
	ClaimsChecked      prometheus.Counter
	ClaimDivergences   *prometheus.CounterVec

	// Persistence metrics
	RowsStored *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on its own registry, so
// several instances can coexist in tests.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SimulationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of reward simulations by status",
		}, []string{"status"}),
		SimulationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Reward simulation duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		EpochsSimulated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "epochs_total",
			Help:      "Total number of epochs whose reward was allocated",
		}),
		EpochsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "epochs_skipped_total",
			Help:      "Total number of epochs skipped because nobody was staked",
		}),

		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "runs_total",
			Help:      "Total number of epoch verifications by result",
		}, []string{"result"}),
		ClaimsChecked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "claims_checked_total",
			Help:      "Total number of observed claims compared",
		}),
		ClaimDivergences: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "divergences_total",
			Help:      "Total number of divergences by source",
		}, []string{"source"}),

		RowsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "rows_stored_total",
			Help:      "Total number of rows written by table",
		}, []string{"table"}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful simulation",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSimulation records one simulator run.
func (m *Metrics) RecordSimulation(duration time.Duration, epochs, skipped int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SimulationsTotal.WithLabelValues("error").Inc()
		return
	}
	m.SimulationsTotal.WithLabelValues("ok").Inc()
	m.SimulationDuration.Observe(duration.Seconds())
	m.EpochsSimulated.Add(float64(epochs - skipped))
	m.EpochsSkipped.Add(float64(skipped))
	m.LastSuccessfulRun.SetToCurrentTime()
}

// RecordVerification records one verified epoch.
func (m *Metrics) RecordVerification(match bool, claims int, divergencesBySource map[string]int) {
	if m == nil {
		return
	}
	result := "divergent"
	if match {
		result = "match"
	}
	m.VerificationsTotal.WithLabelValues(result).Inc()
	m.ClaimsChecked.Add(float64(claims))
	for source, n := range divergencesBySource {
		m.ClaimDivergences.WithLabelValues(source).Add(float64(n))
	}
}

// RecordVerificationError records a verification that could not run.
func (m *Metrics) RecordVerificationError() {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues("error").Inc()
}

// RecordRowsStored records rows written to table.
func (m *Metrics) RecordRowsStored(table string, n int) {
	if m == nil {
		return
	}
	m.RowsStored.WithLabelValues(table).Add(float64(n))
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(route string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, http.StatusText(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
