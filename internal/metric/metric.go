// Package metric holds the Prometheus metrics of a signclean run and writes
// them to a node_exporter textfile.
package metric

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/WilliamM-L/trouve-mon-spot/internal/pathutil"
)

const namespace = "signclean"

// Stage label values.
const (
	StageInput  = "input"
	StageFilter = "filter"
	StageOutput = "output"
)

// Metrics contains the run-level metrics. Each Metrics owns a private
// registry so runs and tests never share state.
type Metrics struct {
	registry *prometheus.Registry

	FeaturesRead     prometheus.Counter
	FeaturesRemoved  prometheus.Counter
	FeaturesWritten  prometheus.Counter
	StageDuration    *prometheus.HistogramVec
	LastRunSuccess   prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// New creates a Metrics instance with every metric registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		FeaturesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_read_total",
			Help:      "Features loaded from the input collection",
		}),
		FeaturesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_removed_total",
			Help:      "Features dropped by the exclusion patterns",
		}),
		FeaturesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_written_total",
			Help:      "Features written to the output collection",
		}),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"stage"},
		),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "Whether the last run succeeded (1) or failed (0)",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last run finished",
		}),
	}

	m.registry.MustRegister(
		m.FeaturesRead,
		m.FeaturesRemoved,
		m.FeaturesWritten,
		m.StageDuration,
		m.LastRunSuccess,
		m.LastRunTimestamp,
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun records the feature counts and outcome of a finished run.
func (m *Metrics) RecordRun(read, removed, written int, success bool, finished time.Time) {
	m.FeaturesRead.Add(float64(read))
	m.FeaturesRemoved.Add(float64(removed))
	m.FeaturesWritten.Add(float64(written))
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes every metric to path in the Prometheus text format,
// creating parent directories as needed. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	if err := pathutil.ValidateFilePath(path); err != nil {
		return fmt.Errorf("invalid metrics file: %w", err)
	}
	if err := pathutil.EnsureParentDir(path); err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
