package sig

import (
	"context"
	"fmt"

	"github.com/AnatoleLucet/sig/v2/internal"
)

type resourceConfig[T any] struct {
	name    string
	initial T
}

// ResourceOption configures a resource.
type ResourceOption[T any] func(*resourceConfig[T])

// WithInitial sets the value Data returns before the first load succeeds.
func WithInitial[T any](v T) ResourceOption[T] {
	return func(c *resourceConfig[T]) { c.initial = v }
}

// WithResourceName sets the name used in logs, metrics and spans.
func WithResourceName[T any](name string) ResourceOption[T] {
	return func(c *resourceConfig[T]) { c.name = name }
}

// Resource wraps an asynchronous fetch in three signals: its data, whether a load is in
// flight, and the error of the last load.
// When loads overlap only the result of the last one issued is committed, whatever order
// they complete in.
type Resource[A, T any] struct {
	name  string
	fetch func(context.Context, A) (T, error)

	data    *Signal[T]
	loading *Signal[bool]
	err     *Signal[error]

	// guarded by the runtime lock
	seq    uint64
	cancel context.CancelFunc
	done   chan struct{}

	dispose func()
}

// NewResource creates an idle resource. Nothing is fetched until Load is called.
func NewResource[A, T any](fetch func(context.Context, A) (T, error), opts ...ResourceOption[T]) *Resource[A, T] {
	cfg := resourceConfig[T]{name: "resource"}
	for _, opt := range opts {
		opt(&cfg)
	}

	done := make(chan struct{})
	close(done)

	return &Resource[A, T]{
		name:  cfg.name,
		fetch: fetch,

		data:    NewSignal(cfg.initial, WithName[T](cfg.name+".data")),
		loading: NewSignal(false, WithName[bool](cfg.name+".loading")),
		err:     NewSignal[error](nil, WithName[error](cfg.name+".error")),

		done: done,
	}
}

// NewResourceWithSource creates a resource that loads source() right away and again each time
// the value returned by source changes. source is tracked like an effect.
func NewResourceWithSource[A, T any](source func() A, fetch func(context.Context, A) (T, error), opts ...ResourceOption[T]) *Resource[A, T] {
	r := NewResource(fetch, opts...)

	r.dispose = NewEffect(func() {
		args := source()
		r.Load(context.Background(), args)
	}, WithEffectName(r.name+".source"))

	return r
}

// Data returns the last committed value, tracking the read.
func (r *Resource[A, T]) Data() T { return r.data.Read() }

// Loading reports whether the latest load is still in flight, tracking the read.
func (r *Resource[A, T]) Loading() bool { return r.loading.Read() }

// Error returns the error of the latest completed load, tracking the read.
func (r *Resource[A, T]) Error() error { return r.err.Read() }

// Done returns a channel closed once the latest issued load has returned.
func (r *Resource[A, T]) Done() <-chan struct{} {
	var done chan struct{}
	internal.GetRuntime().Do(func() { done = r.done })
	return done
}

// Load starts fetching args on a new goroutine and returns a channel closed once the fetch
// has returned and its result was committed or dropped.
// ctx is handed to the fetch, and is cancelled by a later Load or Cancel.
func (r *Resource[A, T]) Load(ctx context.Context, args A) <-chan struct{} {
	rt := internal.GetRuntime()
	done := make(chan struct{})

	var (
		seq     uint64
		loadCtx context.Context
	)
	rt.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}

		r.seq++
		seq = r.seq
		r.done = done

		var cancel context.CancelFunc
		loadCtx, cancel = context.WithCancel(ctx)
		r.cancel = cancel
		loadCtx = rt.Instrument().ResourceLoadStarted(loadCtx, r.name)

		rt.Batch(func() {
			r.loading.Write(true)
			r.err.Write(nil)
		})
	})

	go func() {
		defer close(done)

		value, err := r.call(loadCtx, args)
		r.commit(loadCtx, seq, value, err)
	}()

	return done
}

// Cancel drops the result of the load in flight, if any, and cancels its context.
func (r *Resource[A, T]) Cancel() {
	internal.GetRuntime().Do(func() {
		r.seq++
		if r.cancel != nil {
			r.cancel()
			r.cancel = nil
		}

		r.loading.Write(false)
	})
}

// Dispose stops reloading from the source and cancels the load in flight.
func (r *Resource[A, T]) Dispose() {
	if r.dispose != nil {
		r.dispose()
	}

	r.Cancel()
}

func (r *Resource[A, T]) call(ctx context.Context, args A) (value T, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("sig: %s fetch panicked: %v", r.name, v)
		}
	}()

	return r.fetch(ctx, args)
}

func (r *Resource[A, T]) commit(ctx context.Context, seq uint64, value T, err error) {
	rt := internal.GetRuntime()

	// effects run by the commit panic on this goroutine, nobody is there to recover them
	defer func() {
		if v := recover(); v != nil {
			rt.Logger().Error("resource commit panicked", "resource", r.name, "panic", v)
			if perr, ok := v.(error); ok {
				rt.Instrument().ReactiveError(perr)
			}
		}
	}()

	rt.Do(func() {
		if seq != r.seq {
			stale := fmt.Errorf("%w: %s load %d, latest is %d", internal.ErrStaleResource, r.name, seq, r.seq)
			rt.Logger().Debug("dropping stale resource result", "resource", r.name, "seq", seq, "latest", r.seq)
			rt.Instrument().ResourceLoadFinished(ctx, r.name, stale)
			return
		}

		r.cancel()
		r.cancel = nil
		rt.Instrument().ResourceLoadFinished(ctx, r.name, err)

		rt.Batch(func() {
			if err != nil {
				r.err.Write(err)
			} else {
				r.data.Write(value)
			}
			r.loading.Write(false)
		})
	})
}
