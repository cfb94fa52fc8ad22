// Package metrics exposes Prometheus instrumentation for the hub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks registered connections by role.
	ActiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vetline",
		Name:      "active_connections",
		Help:      "Currently registered connections by role.",
	}, []string{"role"})

	// EventsDispatched counts inbound events handled by the hub.
	EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vetline",
		Name:      "events_dispatched_total",
		Help:      "Inbound events dispatched, by event name.",
	}, []string{"event"})

	// HelpRequests counts help requests by terminal outcome.
	HelpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vetline",
		Name:      "help_requests_total",
		Help:      "Help requests by outcome (matched, unavailable, expired, cancelled).",
	}, []string{"outcome"})

	// ActiveRooms tracks live chat rooms.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vetline",
		Name:      "active_rooms",
		Help:      "Chat rooms currently open.",
	})

	// ActiveCalls tracks non-terminal call sessions.
	ActiveCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vetline",
		Name:      "active_calls",
		Help:      "Call sessions not yet ended or failed.",
	})

	// SignalingFrames counts relayed WebRTC frames by kind.
	SignalingFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vetline",
		Name:      "signaling_frames_total",
		Help:      "WebRTC signaling frames relayed, by kind.",
	}, []string{"kind"})
)
