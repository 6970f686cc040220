package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// GenerationsTotal counts generate requests by outcome.
	GenerationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marv",
		Subsystem: "gateway",
		Name:      "generations_total",
		Help:      "Total number of copy generation requests, labeled by result.",
	}, []string{"result"})

	// GenerationsInFlight is the number of streams currently being relayed.
	GenerationsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "marv",
		Subsystem: "gateway",
		Name:      "generations_in_flight",
		Help:      "Current number of copy generation streams being relayed.",
	})

	// FirstChunkSeconds is the latency from request to the first relayed fragment.
	FirstChunkSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "marv",
		Subsystem: "gateway",
		Name:      "first_chunk_seconds",
		Help:      "Time from accepting a generate request to flushing its first fragment.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
	})

	// StreamDurationSeconds is the end-to-end duration of relayed streams.
	StreamDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "marv",
		Subsystem: "gateway",
		Name:      "stream_duration_seconds",
		Help:      "End-to-end duration of a relayed generation stream.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 60, 120, 300},
	}, []string{"result"})

	// ChunksRelayedTotal counts fragments written to clients.
	ChunksRelayedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "marv",
		Subsystem: "gateway",
		Name:      "chunks_relayed_total",
		Help:      "Total number of generated text fragments relayed to clients.",
	})
)

// Result labels.
const (
	ResultSuccess          = "success"
	ResultValidationError  = "validation_error"
	ResultUnavailable      = "upstream_unavailable"
	ResultUpstreamError    = "upstream_error"
	ResultMidStreamError   = "mid_stream_error"
	ResultClientDisconnect = "client_disconnect"
)

// Register registers gateway metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			GenerationsTotal,
			GenerationsInFlight,
			FirstChunkSeconds,
			StreamDurationSeconds,
			ChunksRelayedTotal,
		)
	})
}
