package internal

import "time"

type EffectType int

const (
	EffectRender EffectType = iota
	EffectUser
)

// NewEffect creates an effect and runs it immediately. fn may return a cleanup that runs
// before the next run and on disposal.
// If the first run panics the effect is disposed before the panic propagates.
func (r *Runtime) NewEffect(typ EffectType, fn func() func(), name string) Handle {
	r.Lock()
	defer r.Unlock()

	e := r.alloc(KindEffect, name)
	e.run = fn
	e.state = StateDirty
	if typ == EffectRender {
		e.flags.Add(FlagRender)
	}

	h := r.handle(e)
	e.owner = r.newOwner(r.tracker.CurrentOwner(), h)

	// effects triggered by the first run wait for it to return
	r.batcher.Batch(func() {
		defer func() {
			if v := recover(); v != nil {
				parent := e.owner.parent
				e.owner.dispose()

				if !r.catch(parent, v) {
					panic(v)
				}
			}
		}()

		r.execEffect(e)
	}, nil)

	r.flushIfIdle()

	return h
}

// Dispose releases a node. Disposing an effect or computed runs its cleanups. Idempotent.
func (r *Runtime) Dispose(h Handle) {
	r.Lock()
	defer r.Unlock()

	n := r.lookup(h)
	if n == nil {
		return
	}

	if n.owner != nil {
		n.owner.dispose()
		return
	}

	r.disposeNode(n)
}

// execEffect runs the previous cleanups, then the effect body under tracking.
// An effect that dirtied itself while running is queued again.
func (r *Runtime) execEffect(e *node) {
	e.owner.reset()
	e.state = StateClean

	start := time.Now()
	r.evaluate(e, func() {
		if cleanup := e.run(); cleanup != nil {
			e.owner.addCleanup(cleanup)
		}
	})
	r.config.Instrument.EffectRan(e.name, time.Since(start))

	if !e.flags.Has(FlagDisposed) && e.state != StateClean {
		r.schedule(e)
	}
}
