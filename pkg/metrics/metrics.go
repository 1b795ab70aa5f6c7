package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LiveEvents push events by name and outcome (accepted, dropped_room, duplicate, unknown)
	LiveEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impact_chat_live_events_total",
			Help: "Push events seen by the live router",
		},
		[]string{"event", "outcome"},
	)

	// HistoryLoads history reconciliations by outcome (applied, stale, failed)
	HistoryLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impact_chat_history_loads_total",
			Help: "History loads by outcome",
		},
		[]string{"outcome"},
	)

	HistoryLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "impact_chat_history_load_duration_seconds",
			Help:    "Wall time of the paired history fetch",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Joins room joins by outcome (joined, failed, emit_error)
	Joins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impact_chat_joins_total",
			Help: "Room joins by outcome",
		},
		[]string{"outcome"},
	)

	// Commands REST commands by name and status class
	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impact_chat_commands_total",
			Help: "REST commands by name and result",
		},
		[]string{"command", "result"},
	)

	Reconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "impact_chat_transport_reconnects_total",
			Help: "Transport reconnect attempts",
		},
	)
)
