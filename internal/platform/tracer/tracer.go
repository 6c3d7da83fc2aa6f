// Package tracer is a thin OpenTelemetry wrapper used by the services.
// Without a configured provider the global no-op tracer is used.
package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans for one instrumentation scope.
type Tracer struct {
	tracer trace.Tracer
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithTracer injects a pre-configured tracer, typically from a test provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Tracer) {
		o.tracer = t
	}
}

// New creates a tracer named "clientiq/<component>".
func New(component string, opts ...Option) *Tracer {
	t := &Tracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer("clientiq/" + component)
	}
	return t
}

// Start opens a span. A nil Tracer returns a no-op span.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	if t == nil {
		return ctx, &Span{span: trace.SpanFromContext(ctx)}
	}
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Span{span: span, owned: true}
}

// Span wraps an OpenTelemetry span.
type Span struct {
	span  trace.Span
	owned bool
}

// End completes the span, recording err when non-nil.
func (s *Span) End(err error) {
	if !s.owned {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

// SetAttributes adds attributes to the span.
func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if s.owned {
		s.span.SetAttributes(attrs...)
	}
}
