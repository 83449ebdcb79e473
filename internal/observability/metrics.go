package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions      prometheus.Gauge
	UtterancesFinalized *prometheus.CounterVec
	TranscriptsRejected *prometheus.CounterVec
	TranslationResults  *prometheus.CounterVec
	StaleResultsDropped prometheus.Counter
	SpeechJobs          *prometheus.CounterVec
	DisplayUpdates      prometheus.Counter
	RecognitionLatency  prometheus.Histogram
	TranslationLatency  prometheus.Histogram
	SynthesisLatency    prometheus.Histogram

	stages *stageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		stages: newStageWindow(256),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active translation sessions.",
		}),
		UtterancesFinalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_finalized_total",
			Help:      "Finalized speech segments by finalize reason.",
		}, []string{"reason"}),
		TranscriptsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_rejected_total",
			Help:      "Transcripts withheld from display by cause.",
		}, []string{"cause"}),
		TranslationResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_results_total",
			Help:      "Completed translation jobs by outcome.",
		}, []string{"outcome"}),
		StaleResultsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_dropped_total",
			Help:      "Translation results discarded for arriving out of order.",
		}),
		SpeechJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_jobs_total",
			Help:      "Text-to-speech jobs by outcome.",
		}, []string{"outcome"}),
		DisplayUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_updates_total",
			Help:      "Accepted display updates pushed to listeners.",
		}),
		RecognitionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognition_latency_ms",
			Help:      "Speech recognition latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000},
		}),
		TranslationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_latency_ms",
			Help:      "Translation latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_ms",
			Help:      "Speech synthesis latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000},
		}),
	}
}

func (m *Metrics) ObserveRecognitionLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.RecognitionLatency.Observe(float64(d.Milliseconds()))
	m.stages.Observe(StageRecognize, float64(d.Milliseconds()))
}

func (m *Metrics) ObserveTranslationLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.TranslationLatency.Observe(float64(d.Milliseconds()))
	m.stages.Observe(StageTranslate, float64(d.Milliseconds()))
}

func (m *Metrics) ObserveSynthesisLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.SynthesisLatency.Observe(float64(d.Milliseconds()))
	m.stages.Observe(StageSynthesize, float64(d.Milliseconds()))
}

// LatencySnapshot reports rolling per-stage latency percentiles.
func (m *Metrics) LatencySnapshot() LatencySnapshot {
	if m == nil || m.stages == nil {
		return LatencySnapshot{GeneratedAt: time.Now().UTC()}
	}
	return m.stages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
