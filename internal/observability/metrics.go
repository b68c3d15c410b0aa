// Package observability defines the Prometheus metrics of a play session.
//
// Metrics are registered on an injected registry so that tests and
// multiple sessions stay isolated. Nil *Metrics is valid and records
// nothing.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "gistr"

// Transition results.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultStale    = "stale"
	ResultFailed   = "failed"
)

// Sampling outcomes.
const (
	OutcomeShaped   = "shaped"
	OutcomeUnshaped = "unshaped"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
)

// Metrics holds the counters and histograms of the trial engine.
type Metrics struct {
	// TransitionsTotal counts trial events by event and result.
	// Labels: event, result (accepted, rejected, stale, failed)
	TransitionsTotal *prometheus.CounterVec

	// InfosTotal counts fired infos by name.
	InfosTotal *prometheus.CounterVec

	// ReconciliationsTotal counts reconciliation decisions.
	// Labels: decision (inform, read, stay, error)
	ReconciliationsTotal *prometheus.CounterVec

	// ReconcileSeconds measures reconciliation latency.
	ReconcileSeconds prometheus.Histogram

	// SamplesTotal counts tree queries by outcome.
	// Labels: outcome (shaped, unshaped, empty, error)
	SamplesTotal *prometheus.CounterVec

	// DrawsTotal counts draws by kind.
	// Labels: kind (root, tip)
	DrawsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "trial",
			Name:      "transitions_total",
			Help:      "Trial events by event and result",
		}, []string{"event", "result"}),
		InfosTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "trial",
			Name:      "infos_total",
			Help:      "Infos fired by name",
		}, []string{"name"}),
		ReconciliationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "trial",
			Name:      "reconciliations_total",
			Help:      "Reconciliation decisions",
		}, []string{"decision"}),
		ReconcileSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "trial",
			Name:      "reconcile_seconds",
			Help:      "Reconciliation latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		SamplesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sampling",
			Name:      "samples_total",
			Help:      "Tree queries by outcome",
		}, []string{"outcome"}),
		DrawsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sampling",
			Name:      "draws_total",
			Help:      "Draws in a tree by kind",
		}, []string{"kind"}),
	}
}

// Transition records a trial event.
func (m *Metrics) Transition(event, result string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(event, result).Inc()
}

// Infos records fired infos.
func (m *Metrics) Infos(names ...string) {
	if m == nil {
		return
	}
	for _, n := range names {
		m.InfosTotal.WithLabelValues(n).Inc()
	}
}

// Reconciliation records a reconciliation decision and its latency.
func (m *Metrics) Reconciliation(decision string, seconds float64) {
	if m == nil {
		return
	}
	m.ReconciliationsTotal.WithLabelValues(decision).Inc()
	m.ReconcileSeconds.Observe(seconds)
}

// Sample records a tree query outcome.
func (m *Metrics) Sample(outcome string) {
	if m == nil {
		return
	}
	m.SamplesTotal.WithLabelValues(outcome).Inc()
}

// Draw records a draw; root reports whether the root was drawn.
func (m *Metrics) Draw(root bool) {
	if m == nil {
		return
	}
	kind := "tip"
	if root {
		kind = "root"
	}
	m.DrawsTotal.WithLabelValues(kind).Inc()
}

// WriteTextfile writes the gathered metrics to path in the text
// exposition format.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
