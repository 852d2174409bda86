package internal

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxEffectReruns bounds how many times one effect may run during a single flush.
const DefaultMaxEffectReruns = 100

type Config struct {
	// MaxEffectReruns <= 0 selects DefaultMaxEffectReruns.
	MaxEffectReruns int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Instrument defaults to NopInstrument.
	Instrument Instrument
}

type Runtime struct {
	mu reentrantMutex

	config Config

	// node arena, slot 0 is reserved
	nodes []*node
	gens  []uint32
	free  []NodeID
	live  [3]int

	tracker *Tracker
	batcher *Batcher

	renderQueue *EffectQueue
	userQueue   *EffectQueue

	flushing bool
	settled  []func()
}

func NewRuntime() *Runtime {
	r := &Runtime{
		nodes: make([]*node, 1, 64),
		gens:  make([]uint32, 1, 64),

		tracker: NewTracker(),
		batcher: NewBatcher(),

		renderQueue: NewEffectQueue(),
		userQueue:   NewEffectQueue(),
	}
	r.config = r.withDefaults(Config{})

	return r
}

var (
	once          sync.Once
	globalRuntime *Runtime
)

// GetRuntime returns the process-wide runtime shared by the public API.
func GetRuntime() *Runtime {
	once.Do(func() {
		globalRuntime = NewRuntime()
	})

	return globalRuntime
}

func (r *Runtime) withDefaults(c Config) Config {
	if c.MaxEffectReruns <= 0 {
		c.MaxEffectReruns = DefaultMaxEffectReruns
	}
	if c.Instrument == nil {
		c.Instrument = NopInstrument{}
	}

	return c
}

// Configure replaces the runtime configuration. Zero fields take their defaults.
func (r *Runtime) Configure(c Config) {
	r.Lock()
	defer r.Unlock()

	r.config = r.withDefaults(c)
}

func (r *Runtime) Config() Config {
	r.Lock()
	defer r.Unlock()

	return r.config
}

func (r *Runtime) logger() *slog.Logger {
	if r.config.Logger != nil {
		return r.config.Logger
	}

	return slog.Default()
}

func (r *Runtime) Logger() *slog.Logger {
	r.Lock()
	defer r.Unlock()

	return r.logger()
}

func (r *Runtime) Instrument() Instrument {
	r.Lock()
	defer r.Unlock()

	return r.config.Instrument
}

// Lock acquires the runtime for the calling goroutine. It is reentrant.
func (r *Runtime) Lock() { r.mu.Lock() }

func (r *Runtime) Unlock() { r.mu.Unlock() }

// Do runs fn holding the runtime lock.
func (r *Runtime) Do(fn func()) {
	r.Lock()
	defer r.Unlock()

	fn()
}

type Stats struct {
	Signals   int
	Computeds int
	Effects   int

	// effects waiting for the next flush
	Pending int
	// batch nesting depth at the time of the call
	BatchDepth int
}

func (r *Runtime) Stats() Stats {
	r.Lock()
	defer r.Unlock()

	return Stats{
		Signals:    r.live[KindSignal],
		Computeds:  r.live[KindComputed],
		Effects:    r.live[KindEffect],
		Pending:    r.renderQueue.Len() + r.userQueue.Len(),
		BatchDepth: r.batcher.Depth(),
	}
}

func (r *Runtime) CurrentOwner() *Owner {
	r.Lock()
	defer r.Unlock()

	return r.tracker.CurrentOwner()
}

// Tracking reports whether a read right now would register a dependency.
func (r *Runtime) Tracking() bool {
	r.Lock()
	defer r.Unlock()

	return r.tracker.Top() != 0
}

func (r *Runtime) Untrack(fn func()) {
	r.Lock()
	defer r.Unlock()

	r.tracker.RunUntracked(fn)
}

func (r *Runtime) OnCleanup(fn func()) {
	r.Lock()
	defer r.Unlock()

	if owner := r.tracker.CurrentOwner(); owner != nil {
		owner.addCleanup(fn)
	}
}

// OnSettled runs fn once, after the next flush has drained every queued effect.
func (r *Runtime) OnSettled(fn func()) {
	r.Lock()
	defer r.Unlock()

	r.settled = append(r.settled, fn)
}

// mark raises n to state and propagates a check to everything downstream of a computed.
func (r *Runtime) mark(n *node, state NodeState) {
	if n == nil || n.flags.Has(FlagDisposed) {
		return
	}

	switch n.kind {
	case KindComputed:
		// a stale computed has already marked its subscribers, unless its last refresh failed
		propagate := n.state == StateClean || n.flags.Has(FlagFailed)
		if n.state < state {
			n.state = state
		}
		if !propagate {
			return
		}

		n.flags.Remove(FlagFailed)
		for _, id := range n.subs {
			r.mark(r.get(id), StateCheck)
		}

	case KindEffect:
		if n.state < state {
			n.state = state
		}
		r.schedule(n)
	}
}

func (r *Runtime) schedule(n *node) {
	if n.flags.Has(FlagRender) {
		r.renderQueue.Push(r.handle(n))
	} else {
		r.userQueue.Push(r.handle(n))
	}
}

func (r *Runtime) shift() (Handle, bool) {
	if h, ok := r.renderQueue.Shift(); ok {
		return h, true
	}

	return r.userQueue.Shift()
}

// flush drains the effect queues, render lane first. It is a no-op inside a batch, and
// while a flush is already draining: writes made by effects land at the back of the queue.
func (r *Runtime) flush() {
	if r.flushing || r.batcher.IsBatching() {
		return
	}
	r.flushing = true
	defer func() { r.flushing = false }()

	start := time.Now()
	runs := make(map[Handle]int)

	var failure any
	failed := false

	for {
		h, ok := r.shift()
		if !ok {
			break
		}

		if v, ok := r.flushOne(h, runs); !ok {
			if !failed {
				failure, failed = v, true
			} else {
				r.logger().Debug("dropping effect panic, an earlier one is pending", "panic", v)
			}
		}
	}

	total := 0
	for _, n := range runs {
		total += n
	}
	r.config.Instrument.Flushed(total, time.Since(start))

	settled := r.settled
	r.settled = nil
	r.flushing = false

	for _, fn := range settled {
		fn()
	}

	if failed {
		panic(failure)
	}
}

// flushIfIdle drains the queues unless a batch or flush will do it later.
func (r *Runtime) flushIfIdle() {
	if r.renderQueue.Len()+r.userQueue.Len() > 0 {
		r.flush()
	}
}

// needsRun settles a queued effect's state, verifying upstream computeds when it is only
// marked for a check.
func (r *Runtime) needsRun(n *node) bool {
	if n == nil || n.flags.Has(FlagDisposed) || n.flags.Has(FlagRunning) {
		return false
	}

	switch n.state {
	case StateClean:
		return false
	case StateCheck:
		if !r.depsChanged(n) {
			n.state = StateClean
			return false
		}
	}

	return true
}

// flushOne runs a queued effect if it is still stale, handing a panic to the nearest owner
// with error handlers. It reports the panic value when nobody handled it.
func (r *Runtime) flushOne(h Handle, runs map[Handle]int) (failure any, ok bool) {
	n := r.lookup(h)

	defer func() {
		if v := recover(); v != nil {
			if _, limit := v.(*ReentrancyLimitError); limit {
				panic(v)
			}

			if r.catch(n.owner, v) {
				failure, ok = nil, true
				return
			}
			failure, ok = v, false
		}
	}()

	if !r.needsRun(n) {
		return nil, true
	}

	if runs[h] >= r.config.MaxEffectReruns {
		r.renderQueue.Clear()
		r.userQueue.Clear()

		err := &ReentrancyLimitError{Node: n.name, Limit: r.config.MaxEffectReruns}
		r.logger().Error("reactive flush aborted", "effect", n.name, "limit", err.Limit)
		r.config.Instrument.ReactiveError(err)
		panic(err)
	}
	runs[h]++

	r.execEffect(n)
	return nil, true
}

// catch delivers v to the error handlers of the closest owner that has any.
func (r *Runtime) catch(o *Owner, v any) bool {
	for ; o != nil; o = o.parent {
		if len(o.catchers) == 0 {
			continue
		}

		for _, fn := range o.catchers {
			fn(v)
		}
		return true
	}

	return false
}
