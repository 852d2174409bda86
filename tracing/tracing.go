// Package tracing reports reactive engine activity as OpenTelemetry spans.
//
// Every resource load gets a span covering the fetch. The fetch receives the span's context,
// so spans it starts become children of the load. Flushes and engine errors are recorded as
// spans too.
//
//	sig.Configure(sig.WithInstrument(tracing.New()))
//
// The tracer comes from the global OpenTelemetry tracer provider unless WithTracer is used.
package tracing

import (
	"context"
	"errors"
	"time"

	"github.com/AnatoleLucet/sig/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "sig"

type Config struct {
	// TracerName is the name of the tracer (default: "sig").
	TracerName string

	// Tracer overrides the tracer from the global provider.
	Tracer trace.Tracer

	// EffectSpans records a span for every effect run. Disabled by default.
	EffectSpans bool

	// SkipEmptyFlushes drops flush spans for flushes that ran no effect. Enabled by default.
	SkipEmptyFlushes bool
}

type Option func(*Config)

func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Config) {
		c.Tracer = tracer
	}
}

func WithEffectSpans(enabled bool) Option {
	return func(c *Config) {
		c.EffectSpans = enabled
	}
}

func WithSkipEmptyFlushes(skip bool) Option {
	return func(c *Config) {
		c.SkipEmptyFlushes = skip
	}
}

// Instrument is a sig.Instrument that starts spans.
type Instrument struct {
	sig.NopInstrument

	config Config
	tracer trace.Tracer
}

var _ sig.Instrument = (*Instrument)(nil)

func New(opts ...Option) *Instrument {
	config := Config{
		TracerName:       defaultTracerName,
		SkipEmptyFlushes: true,
	}
	for _, opt := range opts {
		opt(&config)
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(config.TracerName)
	}

	return &Instrument{config: config, tracer: tracer}
}

// past records a span that already finished.
func (i *Instrument) past(name string, elapsed time.Duration, attrs ...attribute.KeyValue) trace.Span {
	end := time.Now()

	_, span := i.tracer.Start(context.Background(), name,
		trace.WithTimestamp(end.Add(-elapsed)),
		trace.WithAttributes(attrs...),
	)
	span.End(trace.WithTimestamp(end))

	return span
}

func (i *Instrument) EffectRan(name string, elapsed time.Duration) {
	if !i.config.EffectSpans {
		return
	}

	i.past("sig.effect", elapsed, attribute.String("sig.effect", name))
}

func (i *Instrument) Flushed(effects int, elapsed time.Duration) {
	if effects == 0 && i.config.SkipEmptyFlushes {
		return
	}

	i.past("sig.flush", elapsed, attribute.Int("sig.effects", effects))
}

func (i *Instrument) ReactiveError(err error) {
	_, span := i.tracer.Start(context.Background(), "sig.error")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

func (i *Instrument) ResourceLoadStarted(ctx context.Context, name string) context.Context {
	ctx, _ = i.tracer.Start(ctx, "sig.resource.load",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("sig.resource", name)),
	)
	return ctx
}

func (i *Instrument) ResourceLoadFinished(ctx context.Context, _ string, err error) {
	span := trace.SpanFromContext(ctx)

	switch {
	case errors.Is(err, sig.ErrStaleResource):
		span.SetAttributes(attribute.Bool("sig.resource.stale", true))
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
