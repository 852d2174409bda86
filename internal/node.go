package internal

import (
	"fmt"
	"slices"
)

// NodeID indexes a slot in the runtime's node arena.
// Zero is never allocated; on the tracker stack it marks an untracked frame.
type NodeID uint32

// Handle is a stable reference to a node.
// Gen changes whenever the slot is released, so a stale handle never resolves to a reused slot.
type Handle struct {
	ID  NodeID
	Gen uint32
}

type NodeKind uint8

const (
	KindSignal NodeKind = iota
	KindComputed
	KindEffect
)

func (k NodeKind) String() string {
	switch k {
	case KindSignal:
		return "signal"
	case KindComputed:
		return "computed"
	case KindEffect:
		return "effect"
	}
	return "unknown"
}

// NodeState orders how stale a node is. A higher state always includes a lower one.
type NodeState uint8

const (
	StateClean NodeState = iota
	StateCheck           // an upstream computed may have changed, verify deps before use
	StateDirty           // a direct dependency changed
)

type NodeFlags uint8

const (
	FlagNone    NodeFlags = 0
	FlagRunning NodeFlags = 1 << iota // node is currently being evaluated
	FlagInitialized
	FlagDisposed
	FlagRender // effect is drained in the render lane
	FlagFailed // last refresh panicked, subscribers must be marked again on the next change
)

func (f NodeFlags) Has(flag NodeFlags) bool { return f&flag != 0 }

func (f *NodeFlags) Add(flag NodeFlags) { *f |= flag }

func (f *NodeFlags) Remove(flag NodeFlags) { *f &^= flag }

// edge is a dependency link, recording the dependency's version at read time.
type edge struct {
	id      NodeID
	version uint64
}

type node struct {
	id    NodeID
	kind  NodeKind
	state NodeState
	flags NodeFlags
	name  string

	// bumped every time value changes
	version uint64
	value   any
	equals  func(a, b any) bool

	compute func() any    // computeds
	run     func() func() // effects, returns an optional cleanup

	// scope of the node's own evaluation, nil for signals
	owner *Owner

	deps []edge
	// deps of the previous evaluation, only set while the node is running
	prevDeps []edge

	// subscriber ids in registration order
	subs []NodeID
}

func (n *node) String() string { return n.name }

func hasEdge(edges []edge, id NodeID) bool {
	for _, e := range edges {
		if e.id == id {
			return true
		}
	}
	return false
}

func removeEdge(edges []edge, id NodeID) []edge {
	return slices.DeleteFunc(edges, func(e edge) bool { return e.id == id })
}

// alloc takes a slot from the free list or grows the arena.
func (r *Runtime) alloc(kind NodeKind, name string) *node {
	var id NodeID
	if k := len(r.free); k > 0 {
		id = r.free[k-1]
		r.free = r.free[:k-1]
	} else {
		id = NodeID(len(r.nodes))
		r.nodes = append(r.nodes, nil)
		r.gens = append(r.gens, 0)
	}

	if name == "" {
		name = fmt.Sprintf("%s#%d", kind, id)
	}

	n := &node{id: id, kind: kind, name: name, equals: isEqual}
	r.nodes[id] = n
	r.live[kind]++

	return n
}

// release returns the slot to the free list and invalidates outstanding handles.
func (r *Runtime) release(n *node) {
	if r.nodes[n.id] != n {
		return
	}

	r.nodes[n.id] = nil
	r.gens[n.id]++
	r.free = append(r.free, n.id)
	r.live[n.kind]--
}

func (r *Runtime) handle(n *node) Handle {
	return Handle{ID: n.id, Gen: r.gens[n.id]}
}

// lookup resolves a handle, returning nil once the node has been released.
func (r *Runtime) lookup(h Handle) *node {
	if h.ID == 0 || int(h.ID) >= len(r.nodes) || r.gens[h.ID] != h.Gen {
		return nil
	}

	return r.nodes[h.ID]
}

func (r *Runtime) get(id NodeID) *node {
	if id == 0 || int(id) >= len(r.nodes) {
		return nil
	}

	return r.nodes[id]
}

func (r *Runtime) unsubscribe(dep *node, sub NodeID) {
	if i := slices.Index(dep.subs, sub); i >= 0 {
		dep.subs = slices.Delete(dep.subs, i, i+1)
	}
}

// track registers dep with the node on top of the tracker stack.
func (r *Runtime) track(dep *node) {
	top := r.tracker.Top()
	if top == 0 {
		return
	}

	sub := r.get(top)
	if sub == nil || !sub.flags.Has(FlagRunning) || sub.flags.Has(FlagDisposed) {
		return
	}

	// most reads repeat the last dependency
	if k := len(sub.deps); k > 0 && sub.deps[k-1].id == dep.id {
		return
	}
	if hasEdge(sub.deps, dep.id) {
		return
	}

	sub.deps = append(sub.deps, edge{id: dep.id, version: dep.version})

	// edges kept from the previous run are already subscribed
	if !hasEdge(sub.prevDeps, dep.id) {
		dep.subs = append(dep.subs, sub.id)
	}
}

// evaluate runs fn with n on top of the tracker stack and n.owner as the current owner,
// rebuilding n's edges from the reads fn performs.
// On success edges that were not read again are dropped. On panic the old edges are kept
// alongside the new ones, so any of them can trigger a retry, and n is left dirty.
func (r *Runtime) evaluate(n *node, fn func()) {
	n.prevDeps, n.deps = n.deps, nil
	n.flags.Add(FlagRunning)
	r.tracker.Push(n.id)

	ok := false
	defer func() {
		r.tracker.Pop()
		n.flags.Remove(FlagRunning)

		prev := n.prevDeps
		n.prevDeps = nil

		if n.flags.Has(FlagDisposed) {
			// disposed mid-run, drop whatever was linked after disposal
			for _, e := range n.deps {
				if dep := r.get(e.id); dep != nil {
					r.unsubscribe(dep, n.id)
				}
			}
			n.deps = nil
			r.release(n)
			return
		}

		if ok {
			for _, e := range prev {
				if !hasEdge(n.deps, e.id) {
					if dep := r.get(e.id); dep != nil {
						r.unsubscribe(dep, n.id)
					}
				}
			}
			return
		}

		for _, e := range prev {
			if !hasEdge(n.deps, e.id) {
				n.deps = append(n.deps, e)
			}
		}
		n.state = StateDirty
	}()

	r.tracker.RunWithOwner(n.owner, fn)
	ok = true
}

// disposeNode unlinks n from the graph and releases its slot.
// A running node keeps its slot until evaluate unwinds.
func (r *Runtime) disposeNode(n *node) {
	if n == nil || n.flags.Has(FlagDisposed) {
		return
	}
	n.flags.Add(FlagDisposed)

	for _, e := range n.deps {
		if dep := r.get(e.id); dep != nil {
			r.unsubscribe(dep, n.id)
		}
	}
	for _, e := range n.prevDeps {
		if dep := r.get(e.id); dep != nil {
			r.unsubscribe(dep, n.id)
		}
	}
	n.deps, n.prevDeps = nil, nil

	for _, id := range n.subs {
		if sub := r.get(id); sub != nil {
			sub.deps = removeEdge(sub.deps, n.id)
			sub.prevDeps = removeEdge(sub.prevDeps, n.id)
		}
	}
	n.subs = nil

	if !n.flags.Has(FlagRunning) {
		r.release(n)
	}
}
