package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restoreassist_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "restoreassist_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	creditDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restoreassist_credit_decisions_total",
		Help: "Credit gate decisions by feature and outcome (unlimited, consumed, rejected)",
	}, []string{"feature", "outcome"})

	invoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restoreassist_invoices_created_total",
		Help: "Invoices created with an allocated number",
	})

	llmAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restoreassist_llm_attempts_total",
		Help: "Narrative generation attempts by provider and result",
	}, []string{"provider", "result"})

	llmDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "restoreassist_llm_duration_seconds",
		Help:    "Duration of narrative generation calls",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	}, []string{"provider"})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "restoreassist_circuit_breaker_state",
		Help: "Circuit breaker state per dependency (0 closed, 1 open, 2 half-open)",
	}, []string{"name"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "restoreassist_search_duration_seconds",
		Help:    "Duration of full-text search requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restoreassist_billing_webhook_events_total",
		Help: "Billing webhook events by type and result",
	}, []string{"type", "result"})

	handshakesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restoreassist_oauth_handshakes_swept_total",
		Help: "Stale OAuth handshake states cleared by the sweeper",
	})

	degradedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restoreassist_degraded_requests_total",
		Help: "Requests served in degraded mode because an optional table is missing",
	}, []string{"capability"})

	notificationStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "restoreassist_notification_streams",
		Help: "Open websocket notification streams",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveCreditDecision counts a credit gate outcome.
func ObserveCreditDecision(feature, outcome string) {
	creditDecisions.WithLabelValues(feature, outcome).Inc()
}

// IncInvoicesCreated counts a created invoice.
func IncInvoicesCreated() {
	invoicesCreated.Inc()
}

// ObserveLLMAttempt records one provider attempt.
func ObserveLLMAttempt(provider, result string, duration time.Duration) {
	llmAttempts.WithLabelValues(provider, result).Inc()
	if duration > 0 {
		llmDuration.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

// SetBreakerState publishes a circuit breaker state.
func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

// ObserveSearch records a search request.
func ObserveSearch(result string, duration time.Duration) {
	searchDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveWebhook counts a billing webhook event.
func ObserveWebhook(eventType, result string) {
	webhookEvents.WithLabelValues(eventType, result).Inc()
}

// AddHandshakesSwept counts cleared handshake states.
func AddHandshakesSwept(n int64) {
	if n > 0 {
		handshakesSwept.Add(float64(n))
	}
}

// ObserveDegraded counts a request served without an optional capability.
func ObserveDegraded(capability string) {
	degradedRequests.WithLabelValues(capability).Inc()
}

// StreamOpened increments the open notification stream gauge.
func StreamOpened() {
	notificationStreams.Inc()
}

// StreamClosed decrements the open notification stream gauge.
func StreamClosed() {
	notificationStreams.Dec()
}
