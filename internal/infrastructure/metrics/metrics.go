// Package metrics exposes engine activity as Prometheus metrics
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/claim-review/internal/application/port"
)

const namespace = "claim_review"

// EngineMetrics implements port.Metrics
type EngineMetrics struct {
	registry *prometheus.Registry

	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	AdvisorResults  *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
}

var _ port.Metrics = (*EngineMetrics)(nil)

// New creates the metric set on its own registry, together with the Go
// runtime and process collectors
func New() *EngineMetrics {
	m := &EngineMetrics{
		registry: prometheus.NewRegistry(),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Claim commands executed, by command and outcome",
		}, []string{"command", "outcome"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Claim command latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		AdvisorResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisor_results_total",
			Help:      "Reconciliation advisor runs, by outcome",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code",
		}, []string{"method", "route", "code"}),
	}

	m.registry.MustRegister(
		m.CommandsTotal,
		m.CommandDuration,
		m.AdvisorResults,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// CommandExecuted records one command
func (m *EngineMetrics) CommandExecuted(command, outcome string, elapsed time.Duration) {
	m.CommandsTotal.WithLabelValues(command, outcome).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// AdvisorResult records one advisor run
func (m *EngineMetrics) AdvisorResult(outcome string) {
	m.AdvisorResults.WithLabelValues(outcome).Inc()
}

// HTTPRequest records one served request
func (m *EngineMetrics) HTTPRequest(method, route, code string) {
	m.HTTPRequests.WithLabelValues(method, route, code).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *EngineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
