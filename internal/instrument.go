package internal

import (
	"context"
	"time"
)

// Instrument receives engine events. Calls happen under the runtime lock and must not
// read or write reactive nodes.
type Instrument interface {
	SignalWritten(name string)
	ComputedEvaluated(name string, changed bool)
	EffectRan(name string, elapsed time.Duration)
	Flushed(effects int, elapsed time.Duration)
	ReactiveError(err error)

	// ResourceLoadStarted may return a derived context that is handed to the fetcher
	// and back to ResourceLoadFinished.
	ResourceLoadStarted(ctx context.Context, name string) context.Context
	// err wraps ErrStaleResource when the result was dropped.
	ResourceLoadFinished(ctx context.Context, name string, err error)
}

// NopInstrument ignores every event. Embed it to implement a subset of Instrument.
type NopInstrument struct{}

func (NopInstrument) SignalWritten(string) {}

func (NopInstrument) ComputedEvaluated(string, bool) {}

func (NopInstrument) EffectRan(string, time.Duration) {}

func (NopInstrument) Flushed(int, time.Duration) {}

func (NopInstrument) ReactiveError(error) {}

func (NopInstrument) ResourceLoadFinished(context.Context, string, error) {}

func (NopInstrument) ResourceLoadStarted(ctx context.Context, _ string) context.Context {
	return ctx
}

type multiInstrument []Instrument

// Instruments fans every event out to each of list, in order.
func Instruments(list ...Instrument) Instrument {
	flat := make(multiInstrument, 0, len(list))
	for _, i := range list {
		switch v := i.(type) {
		case nil:
		case multiInstrument:
			flat = append(flat, v...)
		default:
			flat = append(flat, v)
		}
	}

	if len(flat) == 1 {
		return flat[0]
	}
	return flat
}

func (m multiInstrument) SignalWritten(name string) {
	for _, i := range m {
		i.SignalWritten(name)
	}
}

func (m multiInstrument) ComputedEvaluated(name string, changed bool) {
	for _, i := range m {
		i.ComputedEvaluated(name, changed)
	}
}

func (m multiInstrument) EffectRan(name string, elapsed time.Duration) {
	for _, i := range m {
		i.EffectRan(name, elapsed)
	}
}

func (m multiInstrument) Flushed(effects int, elapsed time.Duration) {
	for _, i := range m {
		i.Flushed(effects, elapsed)
	}
}

func (m multiInstrument) ReactiveError(err error) {
	for _, i := range m {
		i.ReactiveError(err)
	}
}

func (m multiInstrument) ResourceLoadStarted(ctx context.Context, name string) context.Context {
	for _, i := range m {
		ctx = i.ResourceLoadStarted(ctx, name)
	}
	return ctx
}

func (m multiInstrument) ResourceLoadFinished(ctx context.Context, name string, err error) {
	for _, i := range m {
		i.ResourceLoadFinished(ctx, name, err)
	}
}
