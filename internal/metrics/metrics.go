// Package metrics defines the Prometheus collectors of the sync loop and the
// command surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Ticks        *prometheus.CounterVec
	TickDuration prometheus.Histogram
	SetFailures  *prometheus.CounterVec
	Commands     *prometheus.CounterVec
	Keyframes    prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replaydirector_sync_ticks_total",
				Help: "Playback sync ticks by state",
			},
			[]string{"state"},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "replaydirector_sync_tick_duration_seconds",
				Help:    "Duration of driving sync ticks",
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
			},
		),
		SetFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replaydirector_host_set_failures_total",
				Help: "Render host set calls that failed",
			},
			[]string{"parameter"},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replaydirector_commands_total",
				Help: "Sequence commands by action and result",
			},
			[]string{"action", "result"},
		),
		Keyframes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "replaydirector_active_keyframes",
				Help: "Keyframes in the active sequence",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Ticks, m.TickDuration, m.SetFailures, m.Commands, m.Keyframes)
	}
	return m
}

// Command records the outcome of one command.
func (m *Metrics) Command(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Commands.WithLabelValues(action, result).Inc()
}
