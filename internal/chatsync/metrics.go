package chatsync

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// pumpsRunning counts sessions whose Updates channel is still open.
var pumpsRunning atomic.Int64

// ActiveSessions reports sessions whose Updates channel has not closed yet.
func ActiveSessions() int64 {
	return pumpsRunning.Load()
}

var (
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "garment_portal_chatsync_sessions_active",
			Help: "Chat sessions whose update stream is still open.",
		},
	)
	eventsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "garment_portal_chatsync_events_applied_total",
			Help: "Feed inserts merged into a chat session.",
		},
	)
	eventsDuplicate = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "garment_portal_chatsync_events_duplicate_total",
			Help: "Feed inserts dropped because the session had already seen the message.",
		},
	)
	sendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "garment_portal_chatsync_send_failures_total",
			Help: "Optimistic sends that failed to reach the store.",
		},
	)
)

func init() {
	prometheus.MustRegister(sessionsActive, eventsApplied, eventsDuplicate, sendFailures)
}
