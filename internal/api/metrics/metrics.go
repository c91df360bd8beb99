// Package metrics defines and registers all custom Prometheus metrics for
// the commerce API. It is the single source of truth for metric names,
// labels, and help strings. Metrics register themselves with the default
// registry at package init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "commerce"

// ── Lifecycle metrics ─────────────────────────────────────────────────────────

// LifecycleTransitionsTotal counts accepted state transitions.
// Labels:
//   - entity: "order" or "ticket"
//   - to_status: the status the entity moved into
var LifecycleTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lifecycle_transitions_total",
		Help:      "Total number of accepted lifecycle transitions, by entity and target status.",
	},
	[]string{"entity", "to_status"},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// AuthzDenialsTotal counts authorization denials.
// Label:
//   - reason: "no_principal", "expired_principal", or "insufficient_role"
var AuthzDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_denials_total",
		Help:      "Total number of authorization denials, by reason.",
	},
	[]string{"reason"},
)

// ── Assignment metrics ────────────────────────────────────────────────────────

// AssignmentsTotal counts assignment attempts by outcome.
// Label:
//   - result: "assigned", "no_agent", "already_assigned", or "error"
var AssignmentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignments_total",
		Help:      "Total number of delivery assignment attempts, by result.",
	},
	[]string{"result"},
)

// AssignmentConflictsTotal counts optimistic-concurrency losses during
// assignment: the order left the confirmed state between read and write.
var AssignmentConflictsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignment_conflicts_total",
		Help:      "Total number of assignment writes rejected by the version check.",
	},
)

// AssignmentQueueDepth tracks the number of orders waiting in each
// assignment worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AssignmentQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "assignment_queue_depth",
		Help:      "Current number of orders pending in each assignment worker channel.",
	},
	[]string{"worker_id"},
)

// AssignmentDuration measures how long one assignment attempt takes from
// dequeue to persistence.
// Label:
//   - result: "assigned" or "error"
var AssignmentDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "assignment_duration_seconds",
		Help:      "Duration of an assignment attempt from dequeue to persistence.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"result"},
)
