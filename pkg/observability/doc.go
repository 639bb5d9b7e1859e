// Package observability provides structured logging, run metrics and
// OpenTelemetry tracing for modgen.
//
// # Logging
//
// Loggers are logrus loggers writing to stderr; stdout is reserved for
// directives read by the build system:
//
//	logger, err := observability.NewLogger("info", observability.FormatText, nil)
//	observability.FromContext(ctx, logger).Info("Resolved schema files")
//
// Every pipeline run gets an id (NewRunID, WithRunID) that FromContext adds
// to log entries, together with the trace and span ids of a recording span.
//
// # Metrics
//
// Run metrics are kept in a Prometheus registry and written with
// WriteTextfile for a node exporter textfile collector, since a build step
// has no long-lived endpoint to scrape:
//
//	m := observability.NewMetrics(nil)
//	rec := &observability.Recorder{Prom: m}
//	rec.ObserveStage(ctx, "compile", d)
//	rec.RecordRun(ctx, observability.StatusSuccess, counts)
//	m.WriteTextfile("/var/lib/node_exporter/modgen.prom")
//
// When OpenTelemetry is enabled the same measurements go to OTelMetrics.
//
// # Tracing
//
// InitOTel installs OTLP/gRPC trace and metric providers; pipeline stages
// start spans from Tracer(). ShutdownOTel flushes them before exit.
package observability
