package websocket

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "garment_portal_ws_connections",
			Help: "Current number of active websocket connections.",
		},
	)
	wsRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "garment_portal_ws_rooms",
			Help: "Current number of websocket rooms.",
		},
	)
	wsMessagesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "garment_portal_ws_messages_delivered_total",
			Help: "Total websocket frames delivered to clients.",
		},
	)
	wsForcedSignOuts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "garment_portal_ws_signed_out_disconnects_total",
			Help: "Connections closed because their user signed out.",
		},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsRooms, wsMessagesDelivered, wsForcedSignOuts)
}

func incConnections() {
	wsConnections.Inc()
}

func decConnections() {
	wsConnections.Dec()
}

func setRooms(count int) {
	wsRooms.Set(float64(count))
}

func addDelivered(count int) {
	wsMessagesDelivered.Add(float64(count))
}
