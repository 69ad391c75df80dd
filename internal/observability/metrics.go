// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics (API process)
	SessionRequests *prometheus.CounterVec

	// Session metrics (worker process)
	SessionsFinished *prometheus.CounterVec
	SessionDuration  *prometheus.HistogramVec
	StageDuration    *prometheus.HistogramVec

	// Ingestion metrics
	PagesFetched      prometheus.Counter
	TransfersIngested prometheus.Counter
	IngestionStops    *prometheus.CounterVec

	// Enrichment metrics
	EnrichmentUnits *prometheus.CounterVec

	// Upstream metrics
	ProviderLatency *prometheus.HistogramVec
	ProviderErrors  *prometheus.CounterVec

	// Analysis metrics
	TradesMatched prometheus.Counter
}

// NewMetrics creates a new Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_lab"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SessionRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "session_requests_total",
			Help:      "Session requests by outcome (started, already_evaluated, no_slot, busy, error)",
		}, []string{"outcome"}),

		SessionsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "finished_total",
			Help:      "Sessions reaching a terminal status",
		}, []string{"status"}),
		SessionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "duration_seconds",
			Help:      "Session wall-clock duration in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 900},
		}, []string{"status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),

		PagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pages_fetched_total",
			Help:      "Transfer-history pages fetched and committed",
		}),
		TransfersIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "transfers_ingested_total",
			Help:      "Valid BUY/SELL transfers written to session ledgers",
		}),
		IngestionStops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "stops_total",
			Help:      "Ingestion loop terminations by reason",
		}, []string{"reason"}),

		EnrichmentUnits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "units_total",
			Help:      "Enrichment units by stage and outcome",
		}, []string{"stage", "outcome"}),

		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_latency_seconds",
			Help:      "Upstream call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_errors_total",
			Help:      "Failed upstream calls",
		}, []string{"provider", "operation"}),

		TradesMatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "trades_matched_total",
			Help:      "FIFO trades matched",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the current values to a Prometheus Pushgateway.
// Worker processes exit after one session, so they push instead of being scraped.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job, instance string) error {
	err := push.New(gatewayURL, job).
		Gatherer(m.registry).
		Grouping("instance", instance).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// UseNamespace replaces DefaultMetrics with a fresh instance under namespace.
// Call once at startup, before anything is recorded.
func UseNamespace(namespace string) {
	DefaultMetrics = NewMetrics(namespace)
}

// Handler returns the /metrics handler of DefaultMetrics.
func Handler() http.Handler {
	return DefaultMetrics.Handler()
}

// RecordSessionRequest records the outcome of a session request.
func RecordSessionRequest(outcome string) {
	DefaultMetrics.SessionRequests.WithLabelValues(outcome).Inc()
}

// RecordSessionFinished records a terminal session status and its duration.
func RecordSessionFinished(status string, durationSeconds float64) {
	DefaultMetrics.SessionsFinished.WithLabelValues(status).Inc()
	DefaultMetrics.SessionDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordStage records a pipeline stage duration.
func RecordStage(stage string, durationSeconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordPage records a committed ingestion page.
func RecordPage(transfers int) {
	DefaultMetrics.PagesFetched.Inc()
	DefaultMetrics.TransfersIngested.Add(float64(transfers))
}

// RecordIngestionStop records why an ingestion loop ended.
func RecordIngestionStop(reason string) {
	DefaultMetrics.IngestionStops.WithLabelValues(reason).Inc()
}

// RecordEnrichment records enrichment unit outcomes.
func RecordEnrichment(stage, outcome string, n int) {
	if n <= 0 {
		return
	}
	DefaultMetrics.EnrichmentUnits.WithLabelValues(stage, outcome).Add(float64(n))
}

// RecordProviderCall records upstream call latency and failures.
func RecordProviderCall(provider, operation string, seconds float64, err error) {
	DefaultMetrics.ProviderLatency.WithLabelValues(provider, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.ProviderErrors.WithLabelValues(provider, operation).Inc()
	}
}

// RecordTradesMatched adds to the matched trades counter.
func RecordTradesMatched(n int) {
	DefaultMetrics.TradesMatched.Add(float64(n))
}
