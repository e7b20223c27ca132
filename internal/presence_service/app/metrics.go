package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	presenceConnectsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "connections_opened_total",
			Help:      "Total number of socket connections registered.",
		},
	)

	presenceDisconnectsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "connections_closed_total",
			Help:      "Total number of socket connections unregistered.",
		},
	)

	presenceBroadcastsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "broadcasts_total",
			Help:      "Total number of presence transitions broadcast to other users.",
		},
		[]string{"transition"}, // "online", "offline"
	)

	friendActionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "presence",
			Name:      "friend_actions_total",
			Help:      "Total number of friend actions routed.",
		},
		[]string{"outcome"}, // "delivered", "target_offline", "rejected"
	)
)
