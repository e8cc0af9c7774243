// Package metrics counts plan outcomes with Prometheus collectors.
//
// A CLI run is short-lived, so metrics are not served over HTTP. They are
// written in text exposition format for the node_exporter textfile
// collector when a metrics file is configured.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swapengine"

// Metrics holds the engine's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Quotes        *prometheus.CounterVec
	PlansBuilt    *prometheus.CounterVec
	PlanFailures  *prometheus.CounterVec
	Broadcasts    *prometheus.CounterVec
	BuildDuration prometheus.Histogram
	FeeRate       prometheus.Gauge
}

// New registers a fresh set of collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "amm",
			Name:      "quotes_total",
			Help:      "Quotes computed, by trade mode and result.",
		}, []string{"mode", "result"}),
		PlansBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "plans_built_total",
			Help:      "Execution plans that reached the ready stage, by action.",
		}, []string{"action"}),
		PlanFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "plan_failures_total",
			Help:      "Plans aborted, by action and failing stage.",
		}, []string{"action", "stage"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "broadcasts_total",
			Help:      "Signed plans handed to the broadcaster, by result.",
		}, []string{"result"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "build_duration_seconds",
			Help:      "Wall time to build a plan, collaborator reads included.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		FeeRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "fee_rate_sat_vb",
			Help:      "Fee rate used by the last plan.",
		}),
	}
	m.registry.MustRegister(m.Quotes, m.PlansBuilt, m.PlanFailures, m.Broadcasts, m.BuildDuration, m.FeeRate)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveQuote counts a quote.
func (m *Metrics) ObserveQuote(mode string, err error) {
	if m == nil {
		return
	}
	m.Quotes.WithLabelValues(mode, result(err)).Inc()
}

// ObservePlan records a finished build. stage is empty on success.
func (m *Metrics) ObservePlan(action, stage string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		m.PlanFailures.WithLabelValues(action, stage).Inc()
		return
	}
	m.PlansBuilt.WithLabelValues(action).Inc()
}

// ObserveBroadcast counts a broadcast attempt.
func (m *Metrics) ObserveBroadcast(err error) {
	if m == nil {
		return
	}
	m.Broadcasts.WithLabelValues(result(err)).Inc()
}

// SetFeeRate records the rate of the last plan.
func (m *Metrics) SetFeeRate(satPerVB uint64) {
	if m == nil {
		return
	}
	m.FeeRate.Set(float64(satPerVB))
}

// WriteFile writes every collector to path in text exposition format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
