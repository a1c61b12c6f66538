// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for tree building, route resolution and asset emission.
//
// Metrics collected:
//   - approutes_operations_total: Counter of traced operations by name
//   - approutes_operation_errors_total: Counter of failed operations by name
//   - approutes_operation_duration_seconds: Histogram of operation duration
//   - approutes_issues_total: Counter of routing issues by severity
//   - approutes_entrypoints: Gauge of entrypoints in the last resolution
//   - approutes_assets_total: Counter of emitter decisions by disposition
//   - approutes_invalidations_total: Counter of invalidated directories
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it
// before building:
//
//	otel.SetTracerProvider(tp)
//	tel := telemetry.New(telemetry.WithRegistry(reg))
package telemetry
