package session

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for render sessions.
const defaultTracerName = "blospray"

// startSpan opens a span for one session phase. The span carries the
// server address and the current state.
func (s *Session) startSpan(ctx context.Context, phase string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("blospray.server", s.cfg.Addr),
		attribute.String("blospray.state", s.state.String()),
	)
	return s.tracer.Start(ctx, "blospray."+phase,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// endSpan records the outcome of a phase and ends its span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func defaultTracer() trace.Tracer {
	return otel.Tracer(defaultTracerName)
}
