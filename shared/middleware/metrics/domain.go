package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiceweave_votes_total",
			Help: "Votes applied, by poll type",
		},
		[]string{"poll_type"},
	)

	PollsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voiceweave_polls_resolved_total",
			Help: "Polls moved from active to resolved",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiceweave_notifications_total",
			Help: "Resolution notification sends, by result",
		},
		[]string{"result"},
	)

	RetentionDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiceweave_retention_deleted_total",
			Help: "Records removed by the retention sweeper",
		},
		[]string{"kind"},
	)

	LiveSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "voiceweave_live_subscribers",
			Help: "Open websocket live views",
		},
		[]string{"view"},
	)
)
