package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics holds the Prometheus metrics of generation runs
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	SchemaFiles      prometheus.Gauge
	ModulesDeclared  prometheus.Gauge
	BindingFiles     prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics. A fresh registry
// is used when registry is nil.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modgen_runs_total",
				Help: "Total number of generation runs",
			},
			[]string{"status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modgen_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		SchemaFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modgen_schema_files",
			Help: "Number of schema files compiled by the last run",
		}),
		ModulesDeclared: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modgen_modules_declared",
			Help: "Number of module declarations found by the last run",
		}),
		BindingFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modgen_binding_files",
			Help: "Number of binding files generated by the last run",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modgen_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}

	registry.MustRegister(
		m.RunsTotal,
		m.StageDuration,
		m.SchemaFiles,
		m.ModulesDeclared,
		m.BindingFiles,
		m.LastRunTimestamp,
	)

	return m
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format, for
// collection by a node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func (m *Metrics) observeStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) recordRun(status string, counts RunCounts, finished time.Time) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.SchemaFiles.Set(float64(counts.SchemaFiles))
	m.ModulesDeclared.Set(float64(counts.Modules))
	m.BindingFiles.Set(float64(counts.BindingFiles))
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}
