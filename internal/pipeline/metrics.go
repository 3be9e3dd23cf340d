package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lyricsync/internal/cue"
)

// Metrics collects per-process run statistics. Each Runner owns its own
// registry; the CLI writes it to a node-exporter textfile after a run.
type Metrics struct {
	registry      *prometheus.Registry
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	diagnostics   *prometheus.CounterVec
	lyricsSource  *prometheus.CounterVec
	cues          prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// NewMetrics registers the pipeline collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lyricsync_runs_total",
			Help: "Pipeline runs by outcome",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lyricsync_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lyricsync_diagnostics_total",
			Help: "Reconciliation diagnostics by kind",
		}, []string{"kind"}),
		lyricsSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lyricsync_lyrics_source_total",
			Help: "Where reference lyrics came from",
		}, []string{"source"}),
		cues: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lyricsync_last_run_cues",
			Help: "Cue count of the most recent successful run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lyricsync_last_success_timestamp_seconds",
			Help: "Unix time of the most recent successful run",
		}),
	}
	m.registry.MustRegister(m.runs, m.stageDuration, m.diagnostics, m.lyricsSource, m.cues, m.lastSuccess)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeStage(stage string, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *Metrics) recordLyricsSource(source string) {
	if source == "" {
		source = "none"
	}
	m.lyricsSource.WithLabelValues(source).Inc()
}

func (m *Metrics) recordSuccess(cues []cue.Cue, diags []cue.Diagnostic, now time.Time) {
	m.runs.WithLabelValues("success").Inc()
	for kind, n := range cue.CountByKind(diags) {
		m.diagnostics.WithLabelValues(string(kind)).Add(float64(n))
	}
	m.cues.Set(float64(len(cues)))
	m.lastSuccess.Set(float64(now.Unix()))
}

func (m *Metrics) recordFailure() {
	m.runs.WithLabelValues("failure").Inc()
}

// WriteTextfile writes the registry in the Prometheus text format. An empty
// path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
