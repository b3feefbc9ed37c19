// Package metrics holds the client's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Metrics groups every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Navigations      *prometheus.CounterVec
	SessionMutations *prometheus.CounterVec
	APIRequests      *prometheus.CounterVec
	APIDuration      *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paydesk",
			Name:      "navigations_total",
			Help:      "Route guard decisions by view.",
		}, []string{"view", "decision"}),
		SessionMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paydesk",
			Name:      "session_mutations_total",
			Help:      "Session store mutations by action.",
		}, []string{"action"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paydesk",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Outbound REST API calls by endpoint and status.",
		}, []string{"endpoint", "status"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "paydesk",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Latency of outbound REST API calls.",
			Buckets:   histogramBuckets,
		}, []string{"endpoint"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paydesk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Served HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "paydesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of served HTTP requests.",
			Buckets:   histogramBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Navigations,
		m.SessionMutations,
		m.APIRequests,
		m.APIDuration,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveNavigation records a guard decision.
func (m *Metrics) ObserveNavigation(view, decision string) {
	if m == nil {
		return
	}
	m.Navigations.WithLabelValues(view, decision).Inc()
}

// ObserveSessionMutation records a store action.
func (m *Metrics) ObserveSessionMutation(action string) {
	if m == nil {
		return
	}
	m.SessionMutations.WithLabelValues(action).Inc()
}

// ObserveAPI records an outbound call. status 0 means a transport failure.
func (m *Metrics) ObserveAPI(endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.APIRequests.WithLabelValues(endpoint, label).Inc()
	m.APIDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
