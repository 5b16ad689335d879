// Package tracing wraps OpenTelemetry span creation behind a small
// Service interface, trimmed to the surface the query dispatcher
// actually drives: one span per dispatched operation, a table
// attribute, and error recording.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Common errors.
var (
	ErrServiceClosed       = errors.New("tracing service is closed")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrInvalidSamplingRate = errors.New("sampling rate must be between 0.0 and 1.0")
	ErrEmptyServiceName    = errors.New("service name cannot be empty")
	ErrUnsupportedExporter = errors.New("unsupported exporter type")
)

// Service provides the span lifecycle the dispatcher needs around
// every query: start one span per op, attach attributes, record a
// failure, and shut the provider down at process exit.
type Service interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	SetAttributes(ctx context.Context, attrs ...attribute.KeyValue)
	RecordError(ctx context.Context, err error)
	Shutdown(ctx context.Context) error
}

// Span represents a single operation within a trace.
type Span interface {
	End()
	SetAttributes(attrs ...attribute.KeyValue)
	RecordError(err error)
}

// ExporterType specifies the type of trace exporter.
type ExporterType string

const (
	// GRPCExporter uses gRPC for OTLP trace export.
	GRPCExporter ExporterType = "otlp-grpc"
	// StdoutExporter writes traces to stdout (useful for development).
	StdoutExporter ExporterType = "stdout"
)

// Config holds configuration for the tracing service.
type Config struct {
	// ServiceName identifies the service in traces (required when
	// Enabled).
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Environment specifies the deployment environment.
	Environment string

	// Endpoint is the OTLP collector endpoint (e.g., "localhost:4317"),
	// used only by the grpc exporter.
	Endpoint string

	// ExporterType specifies the type of trace exporter.
	ExporterType ExporterType

	// Insecure disables TLS for the OTLP connection.
	Insecure bool

	// Headers are custom headers to include in OTLP exports.
	Headers map[string]string

	// SamplingRatio determines the fraction of traces to sample (0.0 to 1.0).
	SamplingRatio float64

	// Enabled controls whether tracing is active. When false, all
	// operations become no-ops.
	Enabled bool

	// BatchTimeout is the maximum time between batch exports.
	BatchTimeout time.Duration

	// MaxExportBatchSize is the maximum number of spans per batch.
	MaxExportBatchSize int

	// MaxQueueSize is the maximum queue size for pending spans.
	MaxQueueSize int
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.ServiceName == "" {
		return ErrEmptyServiceName
	}

	if c.SamplingRatio < 0.0 || c.SamplingRatio > 1.0 {
		return ErrInvalidSamplingRate
	}

	if c.ExporterType != GRPCExporter && c.ExporterType != StdoutExporter {
		return fmt.Errorf("%w: %s", ErrUnsupportedExporter, c.ExporterType)
	}

	if c.BatchTimeout <= 0 {
		return fmt.Errorf("%w: batch timeout must be positive", ErrInvalidConfig)
	}

	if c.MaxExportBatchSize <= 0 {
		return fmt.Errorf("%w: max export batch size must be positive", ErrInvalidConfig)
	}

	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("%w: max queue size must be positive", ErrInvalidConfig)
	}

	return nil
}

// applyDefaults fills in the batching knobs callers rarely set
// explicitly, mirroring the teacher's DefaultConfig without requiring
// every caller to repeat them.
func (c *Config) applyDefaults() {
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 5 * time.Second
	}
	if c.MaxExportBatchSize <= 0 {
		c.MaxExportBatchSize = 512
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 2048
	}
	if c.ExporterType == "" {
		c.ExporterType = StdoutExporter
	}
}

// NewService creates a new tracing service with the provided
// configuration. Returns a no-op service if tracing is disabled.
func NewService(cfg Config) (Service, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if !cfg.Enabled {
		return &noopService{}, nil
	}

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := createExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRatio)),
		sdktrace.WithBatcher(
			exporter,
			sdktrace.WithBatchTimeout(cfg.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(cfg.MaxExportBatchSize),
			sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
		),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	tracer := provider.Tracer(
		cfg.ServiceName,
		trace.WithInstrumentationVersion(cfg.ServiceVersion),
	)

	return &service{
		tracer:   tracer,
		provider: provider,
	}, nil
}

// service is the concrete implementation of Service.
type service struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	mu       sync.RWMutex
	closed   bool
}

func (s *service) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return ctx, &noopSpan{}
	}

	ctx, span := s.tracer.Start(ctx, name)
	return ctx, &spanWrapper{span: span}
}

func (s *service) SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

func (s *service) RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServiceClosed
	}

	s.closed = true

	if s.provider == nil {
		return nil
	}

	if err := s.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown provider: %w", err)
	}

	return nil
}

// spanWrapper wraps an OpenTelemetry span.
type spanWrapper struct {
	span trace.Span
}

func (w *spanWrapper) End()                                      { w.span.End() }
func (w *spanWrapper) SetAttributes(attrs ...attribute.KeyValue) { w.span.SetAttributes(attrs...) }
func (w *spanWrapper) RecordError(err error)                     { w.span.RecordError(err) }

// noopService is a no-op implementation used when tracing is disabled.
type noopService struct{}

func (n *noopService) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, &noopSpan{}
}
func (n *noopService) SetAttributes(_ context.Context, _ ...attribute.KeyValue) {}
func (n *noopService) RecordError(_ context.Context, _ error)                   {}
func (n *noopService) Shutdown(_ context.Context) error                         { return nil }

// noopSpan is a no-op implementation of Span.
type noopSpan struct{}

func (n *noopSpan) End()                                  {}
func (n *noopSpan) SetAttributes(_ ...attribute.KeyValue) {}
func (n *noopSpan) RecordError(_ error)                   {}

// createResource creates an OpenTelemetry resource with service information.
func createResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.ServiceVersion),
	}

	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentKey.String(cfg.Environment))
	}

	return resource.New(
		context.Background(),
		resource.WithAttributes(attrs...),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithContainer(),
		resource.WithHost(),
	)
}

// createExporter creates an OpenTelemetry span exporter for cfg's
// ExporterType.
func createExporter(cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case GRPCExporter:
		return createGRPCExporter(cfg)
	case StdoutExporter:
		if os.Getenv("INTEGRATION_TEST_QUIET") == "true" {
			return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
		}
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExporter, cfg.ExporterType)
	}
}

func createGRPCExporter(cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}

	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	client := otlptracegrpc.NewClient(opts...)
	return otlptrace.New(context.Background(), client)
}
