package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodboard_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DocumentStoreLatency records document-store call latency by operation
	// and collection.
	DocumentStoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moodboard_docstore_latency_seconds",
		Help:    "Document store call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "collection"})

	// OptimisticRollbacks counts optimistic mutations undone after a remote
	// failure.
	OptimisticRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moodboard_optimistic_rollbacks_total",
		Help: "Total number of optimistic mutations rolled back",
	})

	// WebSocketConnectionsTotal is the gauge of active WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moodboard_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// FeedEventsTotal counts feed events delivered by type.
	FeedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodboard_feed_events_total",
		Help: "Total feed events delivered by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure
	// by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodboard_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// StoreMetrics records document-store call latency.
type StoreMetrics struct{}

// NewStoreMetrics returns a new StoreMetrics instance.
func NewStoreMetrics() *StoreMetrics {
	return &StoreMetrics{}
}

// ObserveCall records the latency of a document-store call.
func (m *StoreMetrics) ObserveCall(operation, collection string, start time.Time) {
	DocumentStoreLatency.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
}

// TrackCall returns a function that records latency when called (e.g. defer).
func (m *StoreMetrics) TrackCall(operation, collection string) func() {
	start := time.Now()
	return func() {
		m.ObserveCall(operation, collection, start)
	}
}

// RecordFeedEvent increments the feed events counter for the event type.
func RecordFeedEvent(eventType string) {
	FeedEventsTotal.WithLabelValues(eventType).Inc()
}
