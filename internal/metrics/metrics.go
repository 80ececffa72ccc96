package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "powergrid_commands_total",
		Help: "Total number of graph commands, labelled by operation and status.",
	}, []string{"op", "status"})

	CommandsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "powergrid_commands_rejected_total",
		Help: "Total number of commands rejected due to a full queue.",
	})

	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "powergrid_command_duration_ms",
		Help:    "Time spent executing a graph command on the worker, in milliseconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
	}, []string{"op"})

	PowerChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "powergrid_power_changes_total",
		Help: "Total number of node powered-state notifications, labelled by new state.",
	}, []string{"powered"})

	PoweredNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "powergrid_powered_nodes",
		Help: "Number of nodes currently reading as powered.",
	})

	SinkDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "powergrid_sink_deliveries_total",
		Help: "Total number of changes delivered to sinks, labelled by sink type and status.",
	}, []string{"sink", "status"})

	SinkDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "powergrid_sink_dropped_total",
		Help: "Total number of changes dropped because the sink queue was full.",
	})

	Reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "powergrid_reloads_total",
		Help: "Total number of circuit reloads, labelled by mode (incremental, rebuild, failed).",
	}, []string{"mode"})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "powergrid_queue_utilization_ratio",
		Help: "Current command queue utilization (0-1).",
	})
)
