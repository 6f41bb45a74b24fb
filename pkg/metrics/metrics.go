// Package metrics holds the service's prometheus collectors and the small
// recording helpers the rest of the code calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invict_crm_http_requests_total",
			Help: "HTTP requests by route and status code.",
		},
		[]string{"method", "route", "code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invict_crm_http_request_duration_seconds",
			Help:    "Latency of HTTP handlers in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	jobsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invict_crm_jobs_enqueued_total",
			Help: "Jobs handed to the broker, by job name and result.",
		},
		[]string{"job", "result"},
	)

	jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invict_crm_jobs_processed_total",
			Help: "Jobs finished by the worker, by job name and outcome (ok, retry, failed, dropped).",
		},
		[]string{"job", "outcome"},
	)

	leadsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invict_crm_leads_created_total",
			Help: "Leads captured, by source.",
		},
		[]string{"source"},
	)

	paymentEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invict_crm_payment_events_total",
			Help: "Payment provider webhook events, by event type.",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(Collectors()...)
}

// Collectors returns every collector owned by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestTotal,
		httpRequestDuration,
		jobsEnqueuedTotal,
		jobsProcessedTotal,
		leadsCreatedTotal,
		paymentEventsTotal,
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordRequest(method, route string, code int, d time.Duration) {
	httpRequestTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordEnqueue records whether a job reached the broker.
func RecordEnqueue(job string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	jobsEnqueuedTotal.WithLabelValues(job, result).Inc()
}

func RecordJob(job, outcome string) {
	jobsProcessedTotal.WithLabelValues(job, outcome).Inc()
}

func RecordLead(source string) {
	if source == "" {
		source = "unknown"
	}
	leadsCreatedTotal.WithLabelValues(source).Inc()
}

func RecordPaymentEvent(event string) {
	paymentEventsTotal.WithLabelValues(event).Inc()
}
