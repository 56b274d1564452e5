package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesExtractedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storylens_frames_extracted_total",
		Help: "Total number of frames extracted, by mode",
	}, []string{"mode"})

	ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storylens_extraction_duration_seconds",
		Help:    "Duration of a frame extraction run",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storylens_analyses_total",
		Help: "Total number of analysis requests, by kind and status",
	}, []string{"kind", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storylens_request_duration_seconds",
		Help:    "Duration of inference endpoint round trips, by kind",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"kind"})
)

// RecordAnalysis increments the analyses counter with a success/error status.
func RecordAnalysis(kind string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	AnalysesTotal.WithLabelValues(kind, status).Inc()
}
