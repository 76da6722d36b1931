// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Refresh metrics
	RefreshCyclesTotal    *prometheus.CounterVec
	RefreshCycleDuration  prometheus.Histogram
	ChainFailuresTotal    *prometheus.CounterVec
	ChainTokens           *prometheus.GaugeVec
	SignalsReceivedTotal  *prometheus.CounterVec
	LastSuccessfulRefresh prometheus.Gauge

	// Relay metrics
	RelayMessagesTotal   *prometheus.CounterVec
	RelayReconnectsTotal prometheus.Counter
	RelayConnected       prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a new Metrics instance registered on reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_registry"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Refresh metrics
		RefreshCyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "cycles_total",
			Help:      "Total number of refresh cycles by status",
		}, []string{"status"}),
		RefreshCycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "cycle_duration_seconds",
			Help:      "Refresh cycle duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ChainFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "chain_failures_total",
			Help:      "Total number of failed chain aggregations",
		}, []string{"chain"}),
		ChainTokens: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "tokens",
			Help:      "Number of tokens in the published table of a chain",
		}, []string{"chain"}),
		SignalsReceivedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "signals_received_total",
			Help:      "Total number of upstream signals that triggered a cycle",
		}, []string{"event"}),
		LastSuccessfulRefresh: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful refresh cycle",
		}),

		// Relay metrics
		RelayMessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Total number of upstream messages by event and outcome",
		}, []string{"event", "outcome"}),
		RelayReconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "reconnects_total",
			Help:      "Total number of upstream reconnect attempts",
		}),
		RelayConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "connected",
			Help:      "1 while the upstream connection is open",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRefreshCycle records a finished refresh cycle.
func RecordRefreshCycle(status string, durationSeconds float64, unixNow int64) {
	DefaultMetrics.RefreshCyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RefreshCycleDuration.Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulRefresh.Set(float64(unixNow))
	}
}

// RecordChainFailure increments the failure counter of chain.
func RecordChainFailure(chain string) {
	DefaultMetrics.ChainFailuresTotal.WithLabelValues(chain).Inc()
}

// UpdateChainTokens sets the published token count of chain.
func UpdateChainTokens(chain string, n int) {
	DefaultMetrics.ChainTokens.WithLabelValues(chain).Set(float64(n))
}

// RecordSignal records an upstream signal that started a cycle.
func RecordSignal(event string) {
	DefaultMetrics.SignalsReceivedTotal.WithLabelValues(event).Inc()
}

// RecordRelayMessage records an upstream message. outcome is "emitted",
// "ignored" or "invalid".
func RecordRelayMessage(event, outcome string) {
	DefaultMetrics.RelayMessagesTotal.WithLabelValues(event, outcome).Inc()
}

// RecordRelayReconnect increments the reconnect counter.
func RecordRelayReconnect() {
	DefaultMetrics.RelayReconnectsTotal.Inc()
}

// SetRelayConnected updates the relay connection gauge.
func SetRelayConnected(connected bool) {
	if connected {
		DefaultMetrics.RelayConnected.Set(1)
		return
	}
	DefaultMetrics.RelayConnected.Set(0)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}
