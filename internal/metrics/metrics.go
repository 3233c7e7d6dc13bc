// Package metrics exposes Prometheus instrumentation for the beacon serve
// mode.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	StreamListeners = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iqgen_stream_listeners",
		Help: "Number of connected raw-stream listeners",
	})
	OscillatorTables = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iqgen_oscillator_tables",
		Help: "Number of cached oscillator tables",
	})
)

// Counters
var (
	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iqgen_runs_total",
		Help: "Total symbol generation runs completed",
	})
	SamplesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iqgen_samples_total",
		Help: "Total I/Q sample pairs generated",
	})
	BlocksBroadcastTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iqgen_blocks_broadcast_total",
		Help: "Total output blocks handed to the broadcaster",
	})
	BlocksDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iqgen_blocks_dropped_total",
		Help: "Total blocks dropped on slow listeners",
	})
)
