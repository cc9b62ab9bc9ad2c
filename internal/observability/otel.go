package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Metrics holds the custom instruments. A nil *Metrics records nothing.
type Metrics struct {
	APIRequests          metric.Int64Counter
	APIRequestDuration   metric.Float64Histogram
	AssessmentsSubmitted metric.Int64Counter
	DraftSaves           metric.Int64Counter
	RateLimitHits        metric.Int64Counter
}

// Manager owns the tracer and meter providers.
type Manager struct {
	settings       Settings
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	metricsHandler http.Handler
	extraReaders   []sdkmetric.Reader
	shutdownFuncs  []func(context.Context) error
}

// Option customizes a Manager.
type Option func(*Manager)

// WithReader adds a metric reader, typically a ManualReader in tests.
func WithReader(r sdkmetric.Reader) Option {
	return func(m *Manager) { m.extraReaders = append(m.extraReaders, r) }
}

// NewManager sets up tracing and metrics. When settings are disabled the
// manager is inert and Metrics returns nil.
func NewManager(settings Settings, opts ...Option) (*Manager, error) {
	m := &Manager{settings: settings}
	for _, opt := range opts {
		opt(m)
	}
	if !settings.Enabled {
		return m, nil
	}

	res, err := m.newResource()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}
	if err := m.initTracing(res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := m.initMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return m, nil
}

func (m *Manager) newResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(m.settings.ServiceName),
			semconv.ServiceVersion(m.settings.ServiceVersion),
			attribute.String("service.instance.id", m.settings.ServiceInstance),
		),
	)
}

func (m *Manager) initTracing(res *resource.Resource) error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case m.settings.ConsoleOutput:
		opts := []stdouttrace.Option{}
		if m.settings.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case m.settings.OTLP.Enabled:
		exporter, err = m.newOTLPTraceExporter()
	default:
		exporter = noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(m.settings.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	m.tracerProvider = tp
	m.shutdownFuncs = append(m.shutdownFuncs, tp.Shutdown)
	return nil
}

func (m *Manager) initMetrics(res *resource.Resource) error {
	readers, err := m.metricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	metrics, err := newMetrics(mp.Meter(m.settings.ServiceName))
	if err != nil {
		return err
	}
	m.metrics = metrics
	return nil
}

func (m *Manager) metricReaders() ([]sdkmetric.Reader, error) {
	readers := append([]sdkmetric.Reader(nil), m.extraReaders...)

	if m.settings.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(m.settings.CollectionInterval)))
	}

	if m.settings.OTLP.Enabled {
		reader, err := m.newOTLPMetricsReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if m.settings.Prometheus.Enabled {
		reader, handler, err := newPrometheusReader()
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
		m.metricsHandler = handler
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	m.APIRequests, err = meter.Int64Counter(
		"jobprep_api_requests_total",
		metric.WithDescription("Total number of requests sent to the career backend"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request count metric: %w", err)
	}

	m.APIRequestDuration, err = meter.Float64Histogram(
		"jobprep_api_request_duration_seconds",
		metric.WithDescription("Latency of requests to the career backend"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API duration metric: %w", err)
	}

	m.AssessmentsSubmitted, err = meter.Int64Counter(
		"jobprep_assessments_submitted_total",
		metric.WithDescription("Total number of assessment submissions"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assessment metric: %w", err)
	}

	m.DraftSaves, err = meter.Int64Counter(
		"jobprep_draft_saves_total",
		metric.WithDescription("Total number of résumé draft saves by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create draft save metric: %w", err)
	}

	m.RateLimitHits, err = meter.Int64Counter(
		"jobprep_rate_limit_hits_total",
		metric.WithDescription("Total number of requests rejected by the rate limiter"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return &m, nil
}

// Metrics returns the instruments, or nil when observability is disabled.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// MetricsHandler serves the Prometheus scrape endpoint. It is nil unless the
// Prometheus exporter is enabled.
func (m *Manager) MetricsHandler() http.Handler {
	return m.metricsHandler
}

// MetricsPath is where MetricsHandler should be mounted.
func (m *Manager) MetricsPath() string {
	return m.settings.Prometheus.Endpoint
}

// HTTPMiddleware returns otelhttp instrumentation, or a pass-through when disabled.
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !m.settings.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		m.settings.ServiceName,
		otelhttp.WithTracerProvider(m.tracerProvider),
		otelhttp.WithMeterProvider(m.meterProvider),
	)
}

// Tracer returns a tracer for the service.
func (m *Manager) Tracer(name string) oteltrace.Tracer {
	if !m.settings.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown flushes and stops every provider.
func (m *Manager) Shutdown(ctx context.Context) error {
	for _, shutdown := range m.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RecordAPIRequest counts one backend call. Status 0 means no response arrived.
func (m *Metrics) RecordAPIRequest(ctx context.Context, endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", statusClass(status)),
	)
	m.APIRequests.Add(ctx, 1, attrs)
	m.APIRequestDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordAssessmentSubmitted counts a submission attempt.
func (m *Metrics) RecordAssessmentSubmitted(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.AssessmentsSubmitted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", ok)))
}

// RecordDraftSave counts a draft save by result (ok, quota, error).
func (m *Metrics) RecordDraftSave(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.DraftSaves.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordRateLimitHit counts a rejected request. key is the limiter bucket kind.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", kind)))
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

type noOpSpanExporter struct{}

func (noOpSpanExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }

func (noOpSpanExporter) Shutdown(context.Context) error { return nil }

func (m *Manager) newOTLPTraceExporter() (trace.SpanExporter, error) {
	cfg := m.settings.OTLP
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

func (m *Manager) newOTLPMetricsReader() (sdkmetric.Reader, error) {
	cfg := m.settings.OTLP
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(m.settings.CollectionInterval)), nil
}
