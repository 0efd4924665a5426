package otelhelper

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const metricExportInterval = 15 * time.Second

// InitMeter installs an OTLP/HTTP meter provider as the global provider and returns its
// shutdown func, which flushes pending data points. Call it before NewMetrics.
func InitMeter(ctx context.Context, serviceName, instanceID string) (func(context.Context) error, error) {
	res, err := newResource(serviceName, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to build metric resource: %w", err)
	}

	exporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(metricExportInterval),
		)),
	)

	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}
