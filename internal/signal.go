package internal

// NodeOptions configures a signal or computed.
type NodeOptions struct {
	Name string
	// Equals reports whether a new value is the same as the current one. Nil selects isEqual.
	Equals func(a, b any) bool
}

func (r *Runtime) NewSignal(initial any, opts NodeOptions) Handle {
	r.Lock()
	defer r.Unlock()

	s := r.alloc(KindSignal, opts.Name)
	s.value = initial
	s.flags.Add(FlagInitialized)
	if opts.Equals != nil {
		s.equals = opts.Equals
	}

	// signals have no evaluation scope, their owner only releases them
	if owner := r.tracker.CurrentOwner(); owner != nil {
		owner.own(r.handle(s))
	}

	return r.handle(s)
}

// Read returns the node's current value, tracking the dependency if within a reactive context.
// Reading a computed brings it up to date first. A released node reads as nil.
func (r *Runtime) Read(h Handle) any {
	r.Lock()
	defer r.Unlock()

	n := r.lookup(h)
	if n == nil {
		return nil
	}

	r.refresh(n)
	r.track(n)

	return n.value
}

// Peek is Read without dependency tracking.
func (r *Runtime) Peek(h Handle) any {
	r.Lock()
	defer r.Unlock()

	n := r.lookup(h)
	if n == nil {
		return nil
	}

	r.refresh(n)

	return n.value
}

// Write sets a new value to the signal, triggering updates to any dependents.
func (r *Runtime) Write(h Handle, v any) {
	r.Lock()
	defer r.Unlock()

	if s := r.lookup(h); s != nil && s.kind == KindSignal {
		r.write(s, v)
	}
}

// Update writes fn(current value).
func (r *Runtime) Update(h Handle, fn func(any) any) {
	r.Lock()
	defer r.Unlock()

	if s := r.lookup(h); s != nil && s.kind == KindSignal {
		r.write(s, fn(s.value))
	}
}

func (r *Runtime) write(s *node, v any) {
	if s.equals(s.value, v) {
		return
	}

	s.value = v
	s.version++
	r.config.Instrument.SignalWritten(s.name)

	for _, id := range s.subs {
		r.mark(r.get(id), StateDirty)
	}

	r.flushIfIdle()
}
