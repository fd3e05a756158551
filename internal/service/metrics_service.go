package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/survey-pulse-api/internal/models"
)

// MetricsService owns the Prometheus registry and the counters the
// admission pipeline and lifecycle sweep report into.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	admitted        *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	cacheOperations *prometheus.CounterVec
}

// NewMetricsService registers all collectors on a fresh registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		admitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_submissions_admitted_total",
			Help: "Responses accepted by the admission pipeline.",
		}, []string{"survey_id"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_submissions_rejected_total",
			Help: "Responses rejected by the admission pipeline, by reason.",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_lifecycle_transitions_total",
			Help: "Survey status transitions by source and target state.",
		}, []string{"from", "to"}),
		cacheOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statistics_cache_operations_total",
			Help: "Statistics cache lookups by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(m.httpRequests, m.httpDuration, m.admitted, m.rejected, m.transitions, m.cacheOperations)
	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest observes one finished request.
func (m *MetricsService) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSubmissionAdmitted counts one accepted response.
func (m *MetricsService) RecordSubmissionAdmitted(surveyID string) {
	m.admitted.WithLabelValues(surveyID).Inc()
}

// RecordSubmissionRejected counts one rejection by error code.
func (m *MetricsService) RecordSubmissionRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

// RecordLifecycleTransition counts one status transition.
func (m *MetricsService) RecordLifecycleTransition(from, to models.SurveyStatus) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// RecordCacheOutcome counts a statistics cache hit or miss.
func (m *MetricsService) RecordCacheOutcome(outcome string) {
	m.cacheOperations.WithLabelValues(outcome).Inc()
}
