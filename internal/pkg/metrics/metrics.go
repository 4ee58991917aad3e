// Package metrics defines the custom Prometheus metrics of the taskboard
// API. All collectors are registered with the default registry through
// promauto when the package is imported; HTTP request metrics come from the
// echoprometheus middleware instead.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskboard"

// ── Relationship engine ───────────────────────────────────────────────────────

// OperationDuration measures a multi-step mutation from first to last step.
// Labels:
//   - operation: e.g. "task.create", "user.replace"
//   - result: "ok" or "error"
var OperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of relationship-engine operations.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation", "result"},
)

// StepsTotal counts saga steps that completed.
var StepsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "saga_steps_total",
		Help:      "Total number of relationship-engine steps applied.",
	},
	[]string{"operation", "step"},
)

// PartialFailuresTotal counts operations that failed after at least one step
// had already been applied, leaving partial side effects in the store.
var PartialFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "saga_partial_failures_total",
		Help:      "Operations that failed with earlier steps already applied.",
	},
	[]string{"operation", "step"},
)

// IdempotentReplaysTotal counts creations answered from a stored idempotency key.
var IdempotentReplaysTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Create requests answered from an idempotency key.",
	},
	[]string{"scope"},
)

// ── Queries ───────────────────────────────────────────────────────────────────

// QueriesTotal counts list requests.
// Labels:
//   - collection: "users" or "tasks"
//   - kind: "list", "count" or "rejected"
var QueriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "List and count requests, by collection.",
	},
	[]string{"collection", "kind"},
)

// ── Assignment events ─────────────────────────────────────────────────────────

// AssignmentEventsTotal counts audit events by type and persistence outcome.
var AssignmentEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignment_events_total",
		Help:      "Assignment audit events handled by the dispatcher.",
	},
	[]string{"type", "result"},
)

// EventsQueueDepth tracks the number of events waiting in each worker channel.
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
