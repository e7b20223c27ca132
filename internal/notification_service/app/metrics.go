package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsConsumedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notification_worker",
			Name:      "messages_consumed_total",
			Help:      "Total number of notification requests pulled off the queue.",
		},
		[]string{"type"}, // EMAIL, SMS, TELEGRAM, or "unknown" for unparseable requests
	)

	notificationsAckedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notification_worker",
			Name:      "messages_acked_total",
			Help:      "Total number of notification requests dispatched and acknowledged.",
		},
		[]string{"type"},
	)

	notificationsEscalatedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notification_worker",
			Name:      "messages_escalated_total",
			Help:      "Total number of notification requests escalated after failure.",
		},
		[]string{"type", "failure_class"}, // failure_class: "validation", "transient", "permanent"
	)

	dispatchDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notification_worker",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of channel dispatch calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	heartbeatsPublishedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notification_worker",
			Name:      "heartbeats_published_total",
			Help:      "Total number of liveness heartbeats published.",
		},
	)
)
