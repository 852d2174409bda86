package internal

import "slices"

type Owner struct {
	rt *Runtime

	// the computed or effect this owner scopes, zero for plain owners
	node Handle

	// cleanup functions called once, when the owner is reset or disposed
	cleanups []func()

	// called every time the owner is disposed
	disposers []func()

	// panic error handlers
	catchers []func(any)

	// the context values of this owner
	context map[any]any

	// signals created under this owner
	signals []Handle

	parent   *Owner
	children []*Owner
}

func (r *Runtime) NewOwner() *Owner {
	r.Lock()
	defer r.Unlock()

	return r.newOwner(r.tracker.CurrentOwner(), Handle{})
}

func (r *Runtime) newOwner(parent *Owner, node Handle) *Owner {
	o := &Owner{rt: r, node: node, parent: parent}
	if parent != nil {
		parent.children = append(parent.children, o)
	}

	return o
}

// Run calls fn with o as the current owner. A panic is handed to the closest owner with
// error handlers, starting with o. Without any, it propagates.
func (o *Owner) Run(fn func() error) (err error) {
	o.rt.Lock()
	defer o.rt.Unlock()

	defer func() {
		if v := recover(); v != nil {
			if !o.rt.catch(o, v) {
				panic(v)
			}
		}
	}()

	o.rt.tracker.RunWithOwner(o, func() { err = fn() })
	return err
}

func (o *Owner) Parent() *Owner {
	return o.parent
}

func (o *Owner) own(h Handle) {
	o.signals = append(o.signals, h)
}

func (o *Owner) addCleanup(fn func()) {
	o.cleanups = append(o.cleanups, fn)
}

func (o *Owner) removeChild(child *Owner) {
	if i := slices.Index(o.children, child); i >= 0 {
		o.children = slices.Delete(o.children, i, i+1)
	}
}

// reset disposes children, newest first, then runs the cleanups and releases the signals
// and context values set under o.
func (o *Owner) reset() {
	children := o.children
	o.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].dispose()
	}

	cleanups := o.cleanups
	o.cleanups = nil
	for _, fn := range cleanups {
		fn()
	}

	for _, h := range o.signals {
		o.rt.disposeNode(o.rt.lookup(h))
	}
	o.signals = nil
	o.context = nil
}

func (o *Owner) dispose() {
	o.reset()

	for _, fn := range o.disposers {
		fn()
	}

	if n := o.rt.lookup(o.node); n != nil {
		o.rt.disposeNode(n)
	}

	if o.parent != nil {
		o.parent.removeChild(o)
		o.parent = nil
	}
}

// Dispose this owner and all its children.
func (o *Owner) Dispose() {
	o.rt.Lock()
	defer o.rt.Unlock()

	o.dispose()
}

// OnCleanup adds a function called once when the owner is reset or disposed.
func (o *Owner) OnCleanup(fn func()) {
	o.rt.Lock()
	defer o.rt.Unlock()

	o.addCleanup(fn)
}

// OnDispose adds a function called each time Dispose is called.
func (o *Owner) OnDispose(fn func()) {
	o.rt.Lock()
	defer o.rt.Unlock()

	o.disposers = append(o.disposers, fn)
}

// OnError adds a handler for panics raised under this owner.
func (o *Owner) OnError(fn func(any)) {
	o.rt.Lock()
	defer o.rt.Unlock()

	o.catchers = append(o.catchers, fn)
}
