package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	apiRequestsTotal         *prometheus.CounterVec
	apiLatencySeconds        *prometheus.HistogramVec
	apiErrorsTotal           *prometheus.CounterVec
	messagesPublishedTotal   *prometheus.CounterVec
	syncLoadLatencySeconds   *prometheus.HistogramVec
	streamClientsActiveGauge prometheus.Gauge
	broadcastHeartbeatsTotal prometheus.Counter
	broadcastsActiveGauge    prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the portal API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		messagesPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_messages_published_total",
			Help: "Total number of messages appended to shared collections.",
		}, []string{"collection"})

		syncLoadLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_sync_load_seconds",
			Help:    "Latency distribution of collection load-and-filter passes.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"collection"})

		streamClientsActiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_stream_clients_active",
			Help: "Number of live message stream subscriptions.",
		})

		broadcastHeartbeatsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_broadcast_heartbeats_total",
			Help: "Total number of broadcast heartbeat writes.",
		})

		broadcastsActiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_broadcasts_active",
			Help: "Number of live class broadcast descriptors.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			messagesPublishedTotal,
			syncLoadLatencySeconds,
			streamClientsActiveGauge,
			broadcastHeartbeatsTotal,
			broadcastsActiveGauge,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// MessagesPublishedTotal counts records appended per collection.
func MessagesPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesPublishedTotal
}

// SyncLoadLatency observes collection load-and-filter latency.
func SyncLoadLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return syncLoadLatencySeconds
}

// StreamClientsActive tracks live stream subscriptions.
func StreamClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActiveGauge
}

// BroadcastHeartbeats counts heartbeat writes.
func BroadcastHeartbeats() prometheus.Counter {
	RegisterMetrics()
	return broadcastHeartbeatsTotal
}

// BroadcastsActive tracks live broadcast descriptors.
func BroadcastsActive() prometheus.Gauge {
	RegisterMetrics()
	return broadcastsActiveGauge
}
