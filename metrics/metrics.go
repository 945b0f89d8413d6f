// Package metrics holds the Prometheus collectors for the sync core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskmate"

var (
	ActiveSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "livesync",
			Name:      "active_subscriptions",
			Help:      "Live subscriptions currently open.",
		},
		[]string{"kind"},
	)

	Snapshots = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "livesync",
			Name:      "snapshots_total",
			Help:      "Snapshots delivered to subscribers.",
		},
		[]string{"kind"},
	)

	SubscriptionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "livesync",
			Name:      "subscription_errors_total",
			Help:      "Subscriptions that ended with an error.",
		},
		[]string{"kind"},
	)

	RemoteEdits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "livesync",
			Name:      "remote_edit_notices_total",
			Help:      "Notices raised for edits made by another collaborator.",
		},
	)

	Confirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "livesync",
			Name:      "mutation_outcomes_total",
			Help:      "Submitted writes by outcome.",
		},
		[]string{"outcome"},
	)

	WriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "write_failures_total",
			Help:      "Store operations that failed.",
		},
		[]string{"op"},
	)
)

const (
	KindList   = "list"
	KindDetail = "detail"
)
