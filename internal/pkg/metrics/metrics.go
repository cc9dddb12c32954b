package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warbler_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warbler_ws_connections",
			Help: "Current number of websocket connections on this process",
		},
	)

	WSEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_ws_events_dropped_total",
			Help: "Websocket events dropped before delivery",
		},
		[]string{"reason"}, // "rate_limited", "slow_client", "invalid"
	)

	BusEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_bus_events_published_total",
			Help: "Events published to the realtime bus",
		},
		[]string{"event", "mode"}, // mode: "backplane" or "local"
	)

	BusEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_bus_events_received_total",
			Help: "Events received from the realtime backplane",
		},
		[]string{"event"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_notifications_created_total",
			Help: "In-app notifications stored",
		},
		[]string{"type"},
	)

	NotificationsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_notifications_suppressed_total",
			Help: "Notifications skipped by the dedup policy",
		},
		[]string{"type"},
	)

	PushDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_push_dispatched_total",
			Help: "Push notifications handed to the provider",
		},
		[]string{"result"}, // "ok", "error", "circuit_open", "rate_limited"
	)

	FeedAssembly = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warbler_feed_assembly_seconds",
			Help:    "Time spent assembling a feed page",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)
)
