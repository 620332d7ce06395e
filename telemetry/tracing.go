package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/satishbabariya/coconutdal/runtime/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys
var (
	AttrOperation   = attribute.Key("coconutdal.operation")
	AttrOperationID = attribute.Key("coconutdal.operation_id")
	AttrVariant     = attribute.Key("coconutdal.variant")
	AttrMode        = attribute.Key("coconutdal.mode")
	AttrClassified  = attribute.Key("coconutdal.classified")
	AttrStatement   = attribute.Key("db.statement")
)

// TracingMiddleware starts one client span per command.
func TracingMiddleware(tracer trace.Tracer) client.Middleware {
	return func(ctx context.Context, event *client.QueryEvent, next func() error) error {
		_, span := tracer.Start(ctx, "coconutdal."+event.Operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				AttrOperation.String(event.Operation),
				AttrOperationID.String(event.ID),
				AttrVariant.String(event.Variant.String()),
				AttrMode.String(event.Mode.String()),
				AttrStatement.String(event.Query),
			),
		)
		defer span.End()

		err := next()
		if err != nil {
			span.SetAttributes(AttrClassified.Bool(event.Classified))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	}
}

// TracingConfig configures InitTracing.
type TracingConfig struct {
	Endpoint       string  // localhost:4318
	ServiceName    string  // coconut
	ServiceVersion string
	SampleRate     float64 // 0 or 1 samples everything
	Insecure       bool
}

// InitTracing installs a global tracer provider exporting over OTLP/HTTP and
// returns its shutdown function.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRate > 0 && cfg.SampleRate < 1.0 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}
