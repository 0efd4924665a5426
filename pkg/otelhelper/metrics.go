package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/dukex/hireflow"

// Metrics holds the engine counters. The zero value and a nil *Metrics are no-ops.
type Metrics struct {
	executions     metric.Int64Counter
	actionAttempts metric.Int64Counter
	recorderErrors metric.Int64Counter
	droppedEvents  metric.Int64Counter
}

// NewMetrics registers the engine counters on the global meter provider. Counters
// are dropped unless InitMeter installed a provider first.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.GetMeterProvider())
}

func NewMetricsFrom(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	executions, err := meter.Int64Counter("hireflow.executions",
		metric.WithDescription("Rule executions by terminal status"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, err
	}

	actionAttempts, err := meter.Int64Counter("hireflow.action.attempts",
		metric.WithDescription("Collaborator calls made by actions"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	recorderErrors, err := meter.Int64Counter("hireflow.recorder.errors",
		metric.WithDescription("Failed writes of execution records"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	droppedEvents, err := meter.Int64Counter("hireflow.events.dropped",
		metric.WithDescription("Re-trigger events dropped at the depth limit"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		executions:     executions,
		actionAttempts: actionAttempts,
		recorderErrors: recorderErrors,
		droppedEvents:  droppedEvents,
	}, nil
}

func (m *Metrics) ExecutionCompleted(ctx context.Context, ruleID, status string) {
	if m == nil || m.executions == nil {
		return
	}

	m.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(RuleIDKey, ruleID),
		attribute.String("status", status),
	))
}

func (m *Metrics) ActionAttempted(ctx context.Context, kind string, failed bool) {
	if m == nil || m.actionAttempts == nil {
		return
	}

	m.actionAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String(ActionKindKey, kind),
		attribute.Bool("failed", failed),
	))
}

func (m *Metrics) RecorderError(ctx context.Context, op string) {
	if m == nil || m.recorderErrors == nil {
		return
	}

	m.recorderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *Metrics) EventDropped(ctx context.Context, trigger string) {
	if m == nil || m.droppedEvents == nil {
		return
	}

	m.droppedEvents.Add(ctx, 1, metric.WithAttributes(attribute.String(TriggerKey, trigger)))
}
