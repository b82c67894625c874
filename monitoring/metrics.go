package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "match_queue_length",
			Help: "Current number of users waiting for a match",
		},
	)

	activeCalls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_calls",
			Help: "Current number of ongoing calls",
		},
	)

	matchOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_operations_total",
			Help: "Total matchmaking operations",
		},
		[]string{"operation", "status"},
	)

	fallbackMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fallback_matches_total",
			Help: "Total matches resolved with a fake video after the fallback window",
		},
	)

	callDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "call_duration_seconds",
			Help:    "Duration of finished calls",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// Track matchmaking operations
func (m *Monitor) TrackMatchOperation(operation, status string) {
	matchOperations.WithLabelValues(operation, status).Inc()
}

func (m *Monitor) TrackFallbackMatch() {
	fallbackMatches.Inc()
}

// Track call duration at termination
func (m *Monitor) TrackCallDuration(duration time.Duration) {
	callDuration.Observe(duration.Seconds())
}

func (m *Monitor) SetQueueLength(n int) {
	queueLength.Set(float64(n))
}

func (m *Monitor) SetActiveCalls(n int) {
	activeCalls.Set(float64(n))
}
