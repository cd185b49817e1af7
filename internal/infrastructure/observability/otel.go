package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/doctorconsole"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount      metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	QueueAdvanceCount metric.Int64Counter
	RecordingCount    metric.Int64Counter
	UploadCount       metric.Int64Counter
	UploadDuration    metric.Float64Histogram
	UploadBytes       metric.Int64Histogram
	SubmitCount       metric.Int64Counter
}

// Setup initializes OpenTelemetry tracing and metric export
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics against the global meter provider
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(instrumentationName))
}

// NewMetrics creates the console instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	queueAdvanceCount, err := meter.Int64Counter(
		"console.queue.advance.count",
		metric.WithDescription("Queue advance attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	recordingCount, err := meter.Int64Counter(
		"console.recording.started.count",
		metric.WithDescription("Recordings started"),
	)
	if err != nil {
		return nil, err
	}

	uploadCount, err := meter.Int64Counter(
		"console.transcription.upload.count",
		metric.WithDescription("Transcription uploads by outcome"),
	)
	if err != nil {
		return nil, err
	}

	uploadDuration, err := meter.Float64Histogram(
		"console.transcription.upload.duration",
		metric.WithDescription("Transcription upload round trip in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	uploadBytes, err := meter.Int64Histogram(
		"console.transcription.upload.bytes",
		metric.WithDescription("Size of uploaded recordings"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	submitCount, err := meter.Int64Counter(
		"console.consultation.submit.count",
		metric.WithDescription("Consultation submissions by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:      requestCount,
		RequestDuration:   requestDuration,
		QueueAdvanceCount: queueAdvanceCount,
		RecordingCount:    recordingCount,
		UploadCount:       uploadCount,
		UploadDuration:    uploadDuration,
		UploadBytes:       uploadBytes,
		SubmitCount:       submitCount,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// Outcome returns the metric outcome label for err
func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordRequestMetric records an HTTP request metric
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordQueueAdvance records a queue advance attempt
func RecordQueueAdvance(ctx context.Context, metrics *Metrics, err error) {
	if metrics == nil {
		return
	}
	metrics.QueueAdvanceCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", Outcome(err))))
}

// RecordRecordingStarted records a started capture
func RecordRecordingStarted(ctx context.Context, metrics *Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordingCount.Add(ctx, 1)
}

// RecordUpload records a finished transcription upload
func RecordUpload(ctx context.Context, metrics *Metrics, size int, duration time.Duration, err error) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", Outcome(err)))
	metrics.UploadCount.Add(ctx, 1, attrs)
	metrics.UploadDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	metrics.UploadBytes.Record(ctx, int64(size), attrs)
}

// RecordSubmit records a consultation submission attempt
func RecordSubmit(ctx context.Context, metrics *Metrics, err error) {
	if metrics == nil {
		return
	}
	metrics.SubmitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", Outcome(err))))
}
