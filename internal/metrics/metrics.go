package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "engine_sessions_active",
		Help: "Currently active analysis sessions",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_sessions_total",
		Help: "Total analysis sessions opened",
	})

	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_frames_processed_total",
		Help: "Video frames scored successfully",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_frames_dropped_total",
		Help: "Pending frames evicted by per-session backpressure",
	})

	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_frame_decode_errors_total",
		Help: "Frames rejected because the image payload could not be decoded",
	})

	FrameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_frame_duration_seconds",
		Help:    "Frame latency from dequeue to features response",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 1.0, 2.0},
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_stage_duration_seconds",
		Help:    "Per-stage latency",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
	}, []string{"stage"})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage", "error_type"})

	AudioChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_audio_chunks_total",
		Help: "Audio chunks forwarded to the transcriber",
	})

	SessionsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_sessions_reaped_total",
		Help: "Sessions torn down by the idle reaper",
	})
)
