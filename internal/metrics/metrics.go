// Package metrics collects per-run Prometheus metrics and exports them in
// the node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one hdrkit process. All methods are safe
// on a nil receiver, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	toolInvocations *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	files           *prometheus.CounterVec
	fileDuration    *prometheus.HistogramVec
	extractions     *prometheus.CounterVec
	injections      *prometheus.CounterVec
	bytesSaved      prometheus.Counter
}

// New creates a Metrics backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		toolInvocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hdrkit_tool_invocations_total",
			Help: "External tool invocations by outcome",
		}, []string{"tool", "outcome"}),
		toolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hdrkit_tool_duration_seconds",
			Help:    "Wall time of external tool invocations",
			Buckets: prometheus.ExponentialBuckets(0.05, 2.5, 12), // 50ms to ~3h
		}, []string{"tool"}),
		files: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hdrkit_files_total",
			Help: "Processed files by encoding approach and result",
		}, []string{"approach", "result"}),
		fileDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hdrkit_file_duration_seconds",
			Help:    "End-to-end processing time per file",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		}, []string{"approach"}),
		extractions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hdrkit_metadata_extractions_total",
			Help: "Metadata extraction attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
		injections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hdrkit_post_processing_total",
			Help: "Post-encode outcomes (injected, fallback, none)",
		}, []string{"outcome"}),
		bytesSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "hdrkit_bytes_saved_total",
			Help: "Input bytes minus output bytes across successful encodes",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveTool records one finished tool invocation.
func (m *Metrics) ObserveTool(tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolInvocations.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveExtraction records a metadata extraction attempt. kind is "rpu"
// or "hdr10plus".
func (m *Metrics) ObserveExtraction(kind, outcome string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(kind, outcome).Inc()
}

// ObservePostProcessing records how a run's post-encode phase ended.
func (m *Metrics) ObservePostProcessing(outcome string) {
	if m == nil {
		return
	}
	m.injections.WithLabelValues(outcome).Inc()
}

// ObserveFile records a finished file.
func (m *Metrics) ObserveFile(approach, result string, elapsed time.Duration, inputSize, outputSize uint64) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(approach, result).Inc()
	m.fileDuration.WithLabelValues(approach).Observe(elapsed.Seconds())
	if outputSize > 0 && inputSize > outputSize {
		m.bytesSaved.Add(float64(inputSize - outputSize))
	}
}

// WriteToTextfile writes all metrics to path atomically, for collection by
// node_exporter's textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
