// Package telemetry reports store activity through OpenTelemetry.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/statebox/internal/bus"
	"github.com/roach88/statebox/internal/store"
)

const instrumentationName = "github.com/roach88/statebox"

// Observer implements store.Observer using OpenTelemetry.
//
// Every SetState and ResetState gets a span; dispatches and rejected
// mutations are counted per kind.
type Observer struct {
	tracer trace.Tracer
	meter  metric.Meter

	dispatchCounter metric.Int64Counter
	rejectedCounter metric.Int64Counter
}

var _ store.Observer = (*Observer)(nil)

// Option configures the Observer.
type Option func(*Observer)

// WithTracerProvider sets a custom tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *Observer) {
		o.tracer = provider.Tracer(instrumentationName)
	}
}

// WithMeterProvider sets a custom meter provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *Observer) {
		o.meter = provider.Meter(instrumentationName)
	}
}

// New creates an Observer. Without options it uses the global providers.
func New(opts ...Option) (*Observer, error) {
	o := &Observer{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(o)
	}

	var err error
	o.dispatchCounter, err = o.meter.Int64Counter(
		dispatchMetric,
		metric.WithDescription("Number of events dispatched"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	o.rejectedCounter, err = o.meter.Int64Counter(
		rejectedMetric,
		metric.WithDescription("Number of mutations rejected without being applied"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, err
	}

	return o, nil
}

// OnMutationStart opens the span for one mutation.
func (o *Observer) OnMutationStart(ctx context.Context, op store.Operation) context.Context {
	ctx, _ = o.tracer.Start(ctx, "statebox."+string(op),
		trace.WithAttributes(attribute.String("statebox.operation", string(op))),
	)
	return ctx
}

// OnMutationComplete closes the mutation span.
func (o *Observer) OnMutationComplete(ctx context.Context, op store.Operation, changed bool, id string, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Bool("changed", changed),
		attribute.String("id", id),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.rejectedCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("statebox.operation", string(op))),
		)
	}
	span.End()
}

// OnDispatch counts one dispatch and marks it on the active span.
func (o *Observer) OnDispatch(ctx context.Context, kind bus.Kind) {
	o.dispatchCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event.kind", kind.String())),
	)
	trace.SpanFromContext(ctx).AddEvent("dispatch",
		trace.WithAttributes(attribute.String("event.kind", kind.String())),
	)
}
