package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const ExecutionStatusKey = "hireflow.execution.status"

// SetError records err on span and marks the span failed. A nil err is ignored.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}

// SetExecutionStatus tags span with the terminal status of an execution. Anything other than
// success marks the span failed with message.
func SetExecutionStatus(span trace.Span, status, message string) {
	span.SetAttributes(attribute.String(ExecutionStatusKey, status))

	if status == "success" {
		span.SetStatus(codes.Ok, "")

		return
	}

	span.SetStatus(codes.Error, message)
}
