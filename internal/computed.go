package internal

// NewComputed creates a lazy computed. compute runs on the first read.
func (r *Runtime) NewComputed(compute func() any, opts NodeOptions) Handle {
	r.Lock()
	defer r.Unlock()

	c := r.alloc(KindComputed, opts.Name)
	c.compute = compute
	c.state = StateDirty
	if opts.Equals != nil {
		c.equals = opts.Equals
	}

	h := r.handle(c)
	c.owner = r.newOwner(r.tracker.CurrentOwner(), h)

	return h
}

// refresh brings a computed up to date. Signals and effects are left alone.
func (r *Runtime) refresh(n *node) {
	if n.kind != KindComputed {
		return
	}

	if n.flags.Has(FlagRunning) {
		err := r.cycleError(n)
		r.logger().Error("circular dependency", "node", n.name, "path", err.Path)
		r.config.Instrument.ReactiveError(err)
		panic(err)
	}

	// a panic below leaves subscribers checked but unscheduled
	failed := true
	defer func() {
		if failed {
			n.flags.Add(FlagFailed)
		} else {
			n.flags.Remove(FlagFailed)
		}
	}()

	switch n.state {
	case StateClean:
	case StateCheck:
		if r.depsChanged(n) {
			r.recompute(n)
		} else {
			n.state = StateClean
		}
	default:
		r.recompute(n)
	}
	failed = false
}

// depsChanged refreshes n's dependencies in read order and reports whether any of them
// moved past the version n last saw.
func (r *Runtime) depsChanged(n *node) bool {
	for i := 0; i < len(n.deps); i++ {
		e := n.deps[i]

		dep := r.get(e.id)
		if dep == nil {
			return true
		}

		r.refresh(dep)
		if dep.version != e.version {
			return true
		}
	}

	return false
}

func (r *Runtime) recompute(c *node) {
	// nodes created by the previous evaluation belong to it
	c.owner.reset()
	c.state = StateClean

	var value any
	r.evaluate(c, func() { value = c.compute() })

	if c.flags.Has(FlagDisposed) {
		return
	}

	changed := !c.flags.Has(FlagInitialized) || !c.equals(c.value, value)
	if changed {
		c.value = value
		c.version++
	}
	c.flags.Add(FlagInitialized)

	r.config.Instrument.ComputedEvaluated(c.name, changed)
}
