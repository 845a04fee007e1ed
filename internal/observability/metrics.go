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
	Turns           *prometheus.CounterVec
	GatewayErrors   *prometheus.CounterVec
	TrackedSessions prometheus.Gauge
	StageLatency    *prometheus.HistogramVec

	turnStages *turnStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversational turns by outcome.",
		}, []string{"outcome"}),
		GatewayErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_errors_total",
			Help:      "Gateway errors by gateway and error class.",
		}, []string{"gateway", "class"}),
		TrackedSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_sessions",
			Help:      "Number of sessions currently holding a transcript.",
		}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Pipeline stage latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000},
		}, []string{"stage"}),
		turnStages: newTurnStageWindow(256),
	}
}

// ObserveStage records a stage duration in both the Prometheus histogram
// and the rolling window behind the perf snapshot endpoint.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	ms := float64(d.Milliseconds())
	m.StageLatency.WithLabelValues(stage).Observe(ms)
	m.turnStages.Observe(stage, ms)
}

// ObserveIndicator counts a named degradation event in the perf snapshot.
func (m *Metrics) ObserveIndicator(name string) {
	m.turnStages.ObserveIndicator(name)
}

// SnapshotTurnStages returns rolling per-stage latency statistics.
func (m *Metrics) SnapshotTurnStages() TurnStageSnapshot {
	return m.turnStages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
