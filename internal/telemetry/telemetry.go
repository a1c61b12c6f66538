package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name.
const defaultTracerName = "approutes"

// Variable labels of the exported metrics. Constant labels must not reuse them.
const (
	LabelOperation   = "operation"
	LabelSeverity    = "severity"
	LabelDisposition = "disposition"
)

// VariableLabels lists every variable label name.
var VariableLabels = []string{LabelOperation, LabelSeverity, LabelDisposition}

// Config configures metrics and tracing.
type Config struct {
	// Namespace is the metrics namespace (default: "approutes").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for operation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// TracerName is the name of the tracer (default: "approutes").
	TracerName string
}

// Option configures Telemetry.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:  "approutes",
		Buckets:    prometheus.DefBuckets,
		Registry:   prometheus.DefaultRegisterer,
		TracerName: defaultTracerName,
	}
}

// Telemetry records metrics and spans for tree building, route resolution
// and asset emission. A nil *Telemetry is valid and records nothing.
type Telemetry struct {
	tracer trace.Tracer

	operations      *prometheus.CounterVec
	operationErrors *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	issues          *prometheus.CounterVec
	entrypoints     prometheus.Gauge
	assets          *prometheus.CounterVec
	invalidations   prometheus.Counter
}

// New registers the metrics and resolves the tracer from the global
// OpenTelemetry provider.
func New(opts ...Option) *Telemetry {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Telemetry{
		tracer: otel.Tracer(config.TracerName),

		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operations_total",
			Help:        "Total number of traced operations by name",
			ConstLabels: config.ConstLabels,
		}, []string{LabelOperation}),

		operationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operation_errors_total",
			Help:        "Total number of failed operations by name",
			ConstLabels: config.ConstLabels,
		}, []string{LabelOperation}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operation_duration_seconds",
			Help:        "Operation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{LabelOperation}),

		issues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "issues_total",
			Help:        "Total number of routing issues reported by severity",
			ConstLabels: config.ConstLabels,
		}, []string{LabelSeverity}),

		entrypoints: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "entrypoints",
			Help:        "Number of entrypoints in the last resolution",
			ConstLabels: config.ConstLabels,
		}),

		assets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "assets_total",
			Help:        "Total number of assets handled by the emitter by disposition",
			ConstLabels: config.ConstLabels,
		}, []string{LabelDisposition}),

		invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "invalidations_total",
			Help:        "Total number of memoized directories invalidated",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Span is an in-progress operation.
type Span struct {
	t     *Telemetry
	span  trace.Span
	name  string
	start time.Time
}

// Start begins an operation. The returned context carries the span.
func (t *Telemetry) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	if t == nil {
		return ctx, nil
	}
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, &Span{t: t, span: span, name: name, start: time.Now()}
}

// SetAttributes adds attributes to the span.
func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attrs...)
}

// End finishes the operation, recording err on the span if non-nil.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	s.t.operations.WithLabelValues(s.name).Inc()
	s.t.duration.WithLabelValues(s.name).Observe(time.Since(s.start).Seconds())
	if err != nil {
		s.t.operationErrors.WithLabelValues(s.name).Inc()
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// Issue counts one routing issue.
func (t *Telemetry) Issue(severity string) {
	if t == nil {
		return
	}
	t.issues.WithLabelValues(severity).Inc()
}

// Entrypoints records the size of the last resolved entrypoint table.
func (t *Telemetry) Entrypoints(n int) {
	if t == nil {
		return
	}
	t.entrypoints.Set(float64(n))
}

// Asset counts one emitter decision ("node", "client", "skipped" or "failed").
func (t *Telemetry) Asset(disposition string) {
	if t == nil {
		return
	}
	t.assets.WithLabelValues(disposition).Inc()
}

// Invalidated counts memoized directories dropped after a change.
func (t *Telemetry) Invalidated(n int) {
	if t == nil || n <= 0 {
		return
	}
	t.invalidations.Add(float64(n))
}
