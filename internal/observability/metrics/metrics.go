package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pawfam_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pawfam_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pawfam_auth_events_total",
		Help: "Count of authentication events by kind and result",
	}, []string{"event", "result"})

	resourcesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pawfam_resources_created_total",
		Help: "Count of created orders, bookings and applications",
	}, []string{"resource"})

	lifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pawfam_lifecycle_transitions_total",
		Help: "Count of lifecycle mutations by resource, action and result",
	}, []string{"resource", "action", "result"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pawfam_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"scope"})

	idempotentReplays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pawfam_idempotent_replays_total",
		Help: "Creates answered from a stored idempotency key",
	}, []string{"resource"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuth records a register, login, reset or token check outcome
func ObserveAuth(event, result string) {
	authEvents.WithLabelValues(event, result).Inc()
}

// ObserveCreated counts a newly persisted resource
func ObserveCreated(resource string) {
	resourcesCreated.WithLabelValues(resource).Inc()
}

// ObserveTransition records a status, cancel, edit or delete attempt
func ObserveTransition(resource, action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	lifecycleTransitions.WithLabelValues(resource, action, result).Inc()
}

// ObserveRateLimited counts a rejected request for the limiter scope
func ObserveRateLimited(scope string) {
	rateLimited.WithLabelValues(scope).Inc()
}

// ObserveIdempotentReplay counts a create served from an idempotency key
func ObserveIdempotentReplay(resource string) {
	idempotentReplays.WithLabelValues(resource).Inc()
}
