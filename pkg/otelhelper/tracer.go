// Package otelhelper provides tracing and metrics for rule processing.
package otelhelper

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	RuleIDKey      = "hireflow.rule.id"
	RuleNameKey    = "hireflow.rule.name"
	TriggerKey     = "hireflow.trigger"
	ActionIndexKey = "hireflow.action.index"
	ActionKindKey  = "hireflow.action.kind"
	ExecutionIDKey = "hireflow.execution.id"
	EventIDKey     = "hireflow.event.id"
	EntityIDKey    = "hireflow.entity.id"
)

// Tracer returns a tracer from the global provider, a no-op until InitTracer installs one.
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// InitTracer installs an OTLP/HTTP tracer provider as the global provider and returns its
// shutdown func. The exporter reads its endpoint from the standard OTEL_EXPORTER_OTLP_* variables.
// instanceID tells replicas of the same binary apart and may be empty.
func InitTracer(ctx context.Context, serviceName, instanceID string) (func(context.Context) error, error) {
	res, err := newResource(serviceName, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func newResource(serviceName, instanceID string) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if instanceID != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(instanceID))
	}

	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, attrs...),
	)
}
