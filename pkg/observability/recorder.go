package observability

import (
	"context"
	"time"
)

// RunCounts summarises the output of one run
type RunCounts struct {
	SchemaFiles  int
	Modules      int
	BindingFiles int
}

// Recorder fans run measurements out to Prometheus and OpenTelemetry. Either
// side may be nil; a nil Recorder records nothing.
type Recorder struct {
	Prom *Metrics
	OTel *OTelMetrics
}

// ObserveStage records the duration of one pipeline stage
func (r *Recorder) ObserveStage(ctx context.Context, stage string, d time.Duration) {
	if r == nil {
		return
	}
	if r.Prom != nil {
		r.Prom.observeStage(stage, d)
	}
	if r.OTel != nil {
		r.OTel.recordStage(ctx, stage, d)
	}
}

// RecordRun records the outcome of a run
func (r *Recorder) RecordRun(ctx context.Context, status string, counts RunCounts) {
	if r == nil {
		return
	}
	if r.Prom != nil {
		r.Prom.recordRun(status, counts, time.Now())
	}
	if r.OTel != nil {
		r.OTel.recordRun(ctx, status, counts)
	}
}
