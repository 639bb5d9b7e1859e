package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments
type OTelMetrics struct {
	runsTotal     metric.Int64Counter
	stageDuration metric.Float64Histogram
	modules       metric.Int64Gauge
}

// NewOTelMetrics creates instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter(InstrumentationName)

	m := &OTelMetrics{}
	var err error

	m.runsTotal, err = meter.Int64Counter(
		"modgen.runs",
		metric.WithDescription("Total number of generation runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}

	m.stageDuration, err = meter.Float64Histogram(
		"modgen.stage.duration",
		metric.WithDescription("Duration of each pipeline stage in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage duration histogram: %w", err)
	}

	m.modules, err = meter.Int64Gauge(
		"modgen.modules",
		metric.WithDescription("Number of module declarations found by the last run"),
		metric.WithUnit("{module}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create modules gauge: %w", err)
	}

	return m, nil
}

func (m *OTelMetrics) recordStage(ctx context.Context, stage string, d time.Duration) {
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *OTelMetrics) recordRun(ctx context.Context, status string, counts RunCounts) {
	m.runsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.modules.Record(ctx, int64(counts.Modules))
}
