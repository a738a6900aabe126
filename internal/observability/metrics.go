// Package observability exposes the server's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectedClients is the number of open WebSocket connections,
	// identified or not.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_clients",
		Help: "Open WebSocket connections.",
	})

	// EventsProcessed counts inbound client events by type.
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_processed_total",
		Help: "Inbound WebSocket events processed, by event type.",
	}, []string{"type"})

	// MessagesSent counts messages appended to chat logs.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Messages appended to chat logs.",
	})

	// Uploads counts attachment uploads by outcome.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_uploads_total",
		Help: "Attachment upload attempts, by outcome.",
	}, []string{"outcome"})
)
