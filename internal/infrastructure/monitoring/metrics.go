package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Navigation policy
	Decisions *prometheus.CounterVec

	// Bridge protocol
	BridgeMessages *prometheus.CounterVec

	// Readiness detector
	ReadinessPolls    prometheus.Counter
	ReadinessDuration *prometheus.HistogramVec

	// Host -> page script evaluation
	ScriptEvaluations *prometheus.CounterVec

	UIVersionChanges *prometheus.CounterVec
	UpdateChecks     *prometheus.CounterVec

	// Diagnostics HTTP
	RequestsTotal *prometheus.CounterVec

	Uptime    prometheus.GaugeFunc
	startTime time.Time
}

// NewMetrics creates a new metrics collector on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetduck_navigation_decisions_total",
				Help: "Navigation requests classified, by matching rule and action",
			},
			[]string{"rule", "action"},
		),
		BridgeMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetduck_bridge_messages_total",
				Help: "Bridge messages received from the page",
			},
			[]string{"command", "outcome"},
		),
		ReadinessPolls: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tweetduck_readiness_polls_total",
				Help: "Readiness probe ticks executed",
			},
		),
		ReadinessDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tweetduck_readiness_seconds",
				Help:    "Time from navigation start to readiness",
				Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"signal"},
		),
		ScriptEvaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetduck_script_evaluations_total",
				Help: "Host initiated script evaluations",
			},
			[]string{"outcome"},
		),
		UIVersionChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetduck_ui_version_changes_total",
				Help: "UI version cookie changes applied",
			},
			[]string{"version"},
		),
		UpdateChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetduck_update_checks_total",
				Help: "Release feed checks",
			},
			[]string{"outcome"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetduck_http_requests_total",
				Help: "Diagnostics HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tweetduck_uptime_seconds",
			Help: "Shell uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the exposition handler for the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision records a classifier decision
func (m *Metrics) RecordDecision(rule, action string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(rule, action).Inc()
}

// RecordBridgeMessage records a bridge message; outcome is handled, ignored or invalid
func (m *Metrics) RecordBridgeMessage(command, outcome string) {
	if m == nil {
		return
	}
	m.BridgeMessages.WithLabelValues(command, outcome).Inc()
}

// RecordPoll records one readiness tick
func (m *Metrics) RecordPoll() {
	if m == nil {
		return
	}
	m.ReadinessPolls.Inc()
}

// RecordReady records time to readiness for the emitted signal
func (m *Metrics) RecordReady(signal string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ReadinessDuration.WithLabelValues(signal).Observe(elapsed.Seconds())
}

// RecordScript records a script evaluation outcome (ok, failed, stale)
func (m *Metrics) RecordScript(outcome string) {
	if m == nil {
		return
	}
	m.ScriptEvaluations.WithLabelValues(outcome).Inc()
}

// RecordUIVersionChange records an applied UI version
func (m *Metrics) RecordUIVersionChange(version string) {
	if m == nil {
		return
	}
	m.UIVersionChanges.WithLabelValues(version).Inc()
}

// RecordUpdateCheck records a release feed check outcome
func (m *Metrics) RecordUpdateCheck(outcome string) {
	if m == nil {
		return
	}
	m.UpdateChecks.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records a diagnostics request
func (m *Metrics) RecordHTTPRequest(method, path, status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
}
