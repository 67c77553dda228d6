package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	codeOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_code_operations_total",
			Help: "Registration code operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Webhook deliveries by gateway and outcome.",
		},
		[]string{"gateway", "outcome"},
	)

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by status (initiated/completed/failed).",
		},
		[]string{"status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(codeOperations, webhookEvents, paymentsTotal, httpRequests, httpDuration)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// IncCodeOperation counts create/validate/consume/expire calls.
// result: ok|not_found|invalid|error
func IncCodeOperation(operation, result string) {
	codeOperations.WithLabelValues(norm(operation), norm(result)).Inc()
}

// IncWebhook counts deliveries. outcome: success|ignored|already_processed|duplicate|bad_signature|bad_payload|not_found|error
func IncWebhook(gateway, outcome string) {
	webhookEvents.WithLabelValues(norm(gateway), norm(outcome)).Inc()
}

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveHTTP(method, route, code string, seconds float64) {
	httpRequests.WithLabelValues(method, route, code).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}
