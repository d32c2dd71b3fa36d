package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the note service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Pipeline metrics
	PipelineRuns  *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	// Transcription metrics
	TranscriptionRequests  *prometheus.CounterVec
	TranscriptionPolls     prometheus.Counter
	TranscriptionFallbacks prometheus.Counter

	// Generation metrics
	GenerationFailures *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talknote_pipeline_runs_total",
			Help: "Audio note pipeline runs by outcome and final stage",
		}, []string{"outcome", "stage"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "talknote_pipeline_stage_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900, 1800},
		}, []string{"stage"}),

		TranscriptionRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talknote_transcription_requests_total",
			Help: "Transcription requests by recognition mode",
		}, []string{"mode"}),
		TranscriptionPolls: factory.NewCounter(prometheus.CounterOpts{
			Name: "talknote_transcription_polls_total",
			Help: "Status polls issued for long-running recognition jobs",
		}),
		TranscriptionFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "talknote_transcription_fallbacks_total",
			Help: "Long-running jobs that fell back to a blocking wait after a polling error",
		}),

		GenerationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talknote_generation_failures_total",
			Help: "Text generation failures by operation",
		}, []string{"op"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talknote_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"path", "code"}),
	}
}

func (m *Metrics) RecordRun(outcome, stage string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(outcome, stage).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordTranscription(mode string) {
	if m == nil {
		return
	}
	m.TranscriptionRequests.WithLabelValues(mode).Inc()
}

func (m *Metrics) RecordPoll() {
	if m == nil {
		return
	}
	m.TranscriptionPolls.Inc()
}

func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.TranscriptionFallbacks.Inc()
}

func (m *Metrics) RecordGenerationFailure(op string) {
	if m == nil {
		return
	}
	m.GenerationFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordHTTP(path, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(path, code).Inc()
}
