package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics, exposed on /metrics
var (
	connectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tradepulse",
		Subsystem: "websocket",
		Name:      "connections_total",
		Help:      "Total number of websocket subscriber connections accepted.",
	})

	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tradepulse",
		Subsystem: "websocket",
		Name:      "active_connections",
		Help:      "Number of currently connected websocket subscribers.",
	})

	messagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tradepulse",
		Subsystem: "websocket",
		Name:      "messages_sent_total",
		Help:      "Total number of frames delivered to subscriber buffers.",
	})

	broadcastDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tradepulse",
		Subsystem: "websocket",
		Name:      "broadcast_drops_total",
		Help:      "Broadcasts dropped because a subscriber buffer was full.",
	})
)
