// Package metrics defines and registers all custom Prometheus metrics for the
// pinsync server. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics register with the default Prometheus registry at package init and
// are exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pinsync"

// ── Account metrics ───────────────────────────────────────────────────────────

// UsersRegisteredTotal counts successful registrations.
// Label:
//   - role: "normal" or "artist"
var UsersRegisteredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_registered_total",
		Help:      "Total number of accounts created, by role.",
	},
	[]string{"role"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ApprovalDecisionsTotal counts artist approval decisions that were persisted.
// Label:
//   - decision: "approved" or "rejected"
var ApprovalDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approval_decisions_total",
		Help:      "Total number of artist approval decisions, by outcome.",
	},
	[]string{"decision"},
)

// ── Engagement metrics ────────────────────────────────────────────────────────

// LikesToggledTotal counts like toggles applied to uploads.
// Label:
//   - action: "like" (membership added) or "unlike" (membership removed)
var LikesToggledTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "likes_toggled_total",
		Help:      "Total number of like toggles applied, by direction.",
	},
	[]string{"action"},
)

// DownloadsRecordedTotal counts download increments.
var DownloadsRecordedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "downloads_recorded_total",
		Help:      "Total number of download increments recorded.",
	},
)

// UploadsCreatedTotal counts upload records created.
var UploadsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_created_total",
		Help:      "Total number of uploads created.",
	},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts decision notification outcomes.
// Label:
//   - result: "sent", "failed", "skipped" (dedup hit), or "dropped" (queue full)
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of decision notification attempts, by result.",
	},
	[]string{"result"},
)

// NotificationQueueDepth tracks the events waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
