package infrastructure

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"tabkit/internal/config"
)

const (
	ServiceName         = "tabkit"
	ServiceVersion      = "1.0.0"
	InstrumentationName = "tabkit"
)

// OTelProviders holds the OpenTelemetry providers for one run. Tracer and
// Meter are no-ops when the corresponding signal is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	Logger         *slog.Logger

	textfilePath string
}

// InitializeOTel sets up tracing and metrics. Spans are written to traceOut.
func InitializeOTel(tracing config.TracingConfig, metrics config.MetricsConfig, traceOut io.Writer, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()
	if logger == nil {
		logger = slog.Default()
	}

	providers := &OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(InstrumentationName),
		Meter:  metricnoop.NewMeterProvider().Meter(InstrumentationName),
		Logger: logger,
	}

	res := createResource()

	if tracing.Enabled {
		if err := initializeTracing(ctx, tracing, traceOut, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if metrics.Enabled {
		if err := initializeMetrics(ctx, metrics, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource() *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("service.instance.id", generateInstanceID()),
	)
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg config.TracingConfig, out io.Writer, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithWriter(out),
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(ServiceVersion))

	providers.Logger.DebugContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.Exporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

// initializeMetrics sets up a meter provider backed by a private Prometheus
// registry that is written to a textfile on Shutdown.
func initializeMetrics(ctx context.Context, cfg config.MetricsConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.MeterProvider = mp
	providers.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(ServiceVersion))
	providers.Registry = registry
	providers.textfilePath = cfg.TextfilePath

	providers.Logger.DebugContext(ctx, "Metrics initialized",
		slog.String("textfile", cfg.TextfilePath))
	return nil
}

// Shutdown writes the metrics textfile and flushes pending spans.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.Registry != nil && p.textfilePath != "" {
		if err := prometheus.WriteToTextfile(p.textfilePath, p.Registry); err != nil {
			errs = append(errs, fmt.Errorf("metrics textfile: %w", err))
		}
	}

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	return stderrors.Join(errs...)
}

// generateInstanceID returns a per-process instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError marks span as failed with err.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// PipelineMetrics are the instruments recorded by one run.
type PipelineMetrics struct {
	Runs          metric.Int64Counter
	FilesIngested metric.Int64Counter
	RowsIngested  metric.Int64Counter
	MissingFilled metric.Int64Counter
	StepDuration  metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	runs, err := meter.Int64Counter(
		"runs",
		metric.WithDescription("Number of invocations by operation and status"),
	)
	if err != nil {
		return nil, err
	}

	files, err := meter.Int64Counter(
		"files_ingested",
		metric.WithDescription("Number of input files read"),
	)
	if err != nil {
		return nil, err
	}

	rows, err := meter.Int64Counter(
		"rows_ingested",
		metric.WithDescription("Number of data rows read from input files"),
	)
	if err != nil {
		return nil, err
	}

	missing, err := meter.Int64Counter(
		"join_missing_cells",
		metric.WithDescription("Cells set to the missing-value marker while joining"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"step_duration",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		Runs:          runs,
		FilesIngested: files,
		RowsIngested:  rows,
		MissingFilled: missing,
		StepDuration:  duration,
	}, nil
}

// RecordStep records how long a step took and whether it failed
func (m *PipelineMetrics) RecordStep(ctx context.Context, step string, d time.Duration, err error) {
	m.StepDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("status", status(err)),
	))
}

// RecordRun counts one finished invocation
func (m *PipelineMetrics) RecordRun(ctx context.Context, op string, err error) {
	m.Runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("status", status(err)),
	))
}

// RecordFile counts one ingested file and its rows
func (m *PipelineMetrics) RecordFile(ctx context.Context, rows int) {
	m.FilesIngested.Add(ctx, 1)
	m.RowsIngested.Add(ctx, int64(rows))
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
