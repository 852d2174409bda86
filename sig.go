package sig

import "github.com/AnatoleLucet/sig/v2/internal"

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

type Signal[T any] struct {
	handle internal.Handle
}

// NewSignal creates your tipical read/write signal.
func NewSignal[T any](initial T, opts ...Option[T]) *Signal[T] {
	return &Signal[T]{
		internal.GetRuntime().NewSignal(initial, nodeOptions(opts)),
	}
}

// Read the current value of the signal, tracking the dependency if within a reactive context.
func (s *Signal[T]) Read() T {
	return as[T](internal.GetRuntime().Read(s.handle))
}

// Peek reads the current value without tracking it.
func (s *Signal[T]) Peek() T {
	return as[T](internal.GetRuntime().Peek(s.handle))
}

// Write a new value to the signal, triggering updates to any dependents.
// Writing a value equal to the current one does nothing.
// Effects run before Write returns, except when it is called from an effect or a batch:
// then they run after the effects already queued.
func (s *Signal[T]) Write(v T) {
	internal.GetRuntime().Write(s.handle, v)
}

// Update writes fn applied to the current value.
func (s *Signal[T]) Update(fn func(T) T) {
	internal.GetRuntime().Update(s.handle, func(v any) any {
		return fn(as[T](v))
	})
}

type Computed[T any] struct {
	handle internal.Handle
}

// NewComputed creates a computed signal that derives its value from other signals (its a memo).
// compute runs lazily, on the first read after one of its dependencies changed.
func NewComputed[T any](compute func() T, opts ...Option[T]) *Computed[T] {
	return &Computed[T]{
		internal.GetRuntime().NewComputed(func() any {
			return compute()
		}, nodeOptions(opts)),
	}
}

// Read the current value of the computed signal, tracking the dependency if within a reactive context.
func (c *Computed[T]) Read() T {
	return as[T](internal.GetRuntime().Read(c.handle))
}

// Peek returns the up to date value without tracking it.
func (c *Computed[T]) Peek() T {
	return as[T](internal.GetRuntime().Peek(c.handle))
}

// EffectFunc is the body of an effect. The func() func() form returns a cleanup called before
// the next run and when the effect is disposed.
type EffectFunc interface {
	func() | func() func()
}

func effectBody[F EffectFunc](fn F) func() func() {
	switch f := any(fn).(type) {
	case func():
		return func() func() {
			f()
			return nil
		}
	case func() func():
		return f
	}

	panic("unreachable")
}

// NewEffect creates a reactive effect that runs the given function
// whenever its dependencies change. It runs once immediately.
// The returned function disposes the effect.
func NewEffect[F EffectFunc](fn F, opts ...EffectOption) func() {
	return newEffect(internal.EffectUser, effectBody(fn), opts)
}

// NewRenderEffect is NewEffect in the render lane: render effects of a flush all run before
// any user effect.
func NewRenderEffect[F EffectFunc](fn F, opts ...EffectOption) func() {
	return newEffect(internal.EffectRender, effectBody(fn), opts)
}

func newEffect(typ internal.EffectType, fn func() func(), opts []EffectOption) func() {
	var cfg effectConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := internal.GetRuntime()
	h := r.NewEffect(typ, fn, cfg.name)

	return func() { r.Dispose(h) }
}

// Batch runs fn and defers effects until it returns, so they run once and see every write.
// Nested batches are flushed by the outermost one, even when fn panics.
func Batch[T any](fn func() T) T {
	var result T
	internal.GetRuntime().Batch(func() { result = fn() })
	return result
}

// NewBatch batches multiple signal writes into a single update cycle,
// instead of triggering updates after each write.
func NewBatch(fn func()) {
	internal.GetRuntime().Batch(fn)
}

// Untrack runs the given function without tracking any reactive dependencies.
func Untrack[T any](fn func() T) T {
	var result T
	internal.GetRuntime().Untrack(func() { result = fn() })
	return result
}

// OnCleanup registers a function to be called when the current owner is disposed,
// or before the current effect runs again.
func OnCleanup(fn func()) {
	internal.GetRuntime().OnCleanup(fn)
}

// OnSettled runs fn once, after the next flush has run every pending effect.
func OnSettled(fn func()) {
	internal.GetRuntime().OnSettled(fn)
}
