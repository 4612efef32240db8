// Package metrics exposes the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AutomationRuns counts script executions by script name and
	// outcome status.
	AutomationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scriptify_automation_runs_total",
		Help: "Script hook executions by script and status.",
	}, []string{"script", "status"})

	// Messages counts dispatched messages by delivery mode.
	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scriptify_messages_total",
		Help: "Messages dispatched, by mode (immediate, deferred).",
	}, []string{"mode"})

	// PendingSwept counts pending messages delivered by the sweeper.
	PendingSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scriptify_pending_swept_total",
		Help: "Pending messages claimed and delivered by the sweeper.",
	})

	// SweepFailures counts pending messages that were claimed but
	// could not be delivered.
	SweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scriptify_sweep_failures_total",
		Help: "Pending messages claimed but not delivered.",
	})
)
