package internal

// Context is a value scoped to an owner subtree.
// The context itself is the key, so two contexts never share a value.
type Context struct {
	rt *Runtime

	defaultValue any
}

func (r *Runtime) NewContext(initial any) *Context {
	return &Context{rt: r, defaultValue: initial}
}

// Value returns the value set on the closest owner, or the default.
func (c *Context) Value() any {
	c.rt.Lock()
	defer c.rt.Unlock()

	for o := c.rt.tracker.CurrentOwner(); o != nil; o = o.parent {
		if v, ok := o.context[c]; ok {
			return v
		}
	}

	return c.defaultValue
}

// Set stores v on the current owner. It does nothing outside an owner.
func (c *Context) Set(v any) {
	c.rt.Lock()
	defer c.rt.Unlock()

	owner := c.rt.tracker.CurrentOwner()
	if owner == nil {
		return
	}

	if owner.context == nil {
		owner.context = make(map[any]any)
	}
	owner.context[c] = v
}
