// Package telemetry exposes Prometheus counters for an evaluation run.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage labels for StageDuration.
const (
	StageModel   = "model"
	StageDecode  = "decode"
	StageForward = "forward"
	StageAlign   = "align"
	StageMetrics = "metrics"
	StageExport  = "export"
)

var (
	// ItemsTotal counts processed test items.
	// Labels: status (success/error)
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segan_eval_items_total",
			Help: "Total number of test items evaluated",
		},
		[]string{"status"},
	)

	// SlicesTotal counts generator forward passes.
	SlicesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "segan_eval_slices_total",
			Help: "Total number of slices passed through the generator",
		},
	)

	// ExamplesTotal counts exported examples.
	ExamplesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "segan_eval_examples_total",
			Help: "Total number of examples written to disk",
		},
	)

	// StageDuration observes per-item stage latency in seconds.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "segan_eval_stage_duration_seconds",
			Help:    "Per-item stage duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
)

// RecordItem records the outcome of one test item.
func RecordItem(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	ItemsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records the time elapsed since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
