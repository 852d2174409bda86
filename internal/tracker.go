package internal

type Tracker struct {
	// nodes currently being evaluated, innermost last
	// a zero frame suppresses dependency registration
	stack []NodeID

	currentOwner *Owner // for lifecycle/cleanup tracking
}

func NewTracker() *Tracker {
	return &Tracker{
		stack: make([]NodeID, 0, 16),
	}
}

func (t *Tracker) Push(id NodeID) {
	t.stack = append(t.stack, id)
}

func (t *Tracker) Pop() {
	t.stack = t.stack[:len(t.stack)-1]
}

// Top returns the frame dependencies register with, or zero when nothing is tracking.
func (t *Tracker) Top() NodeID {
	if len(t.stack) == 0 {
		return 0
	}

	return t.stack[len(t.stack)-1]
}

func (t *Tracker) Depth() int {
	return len(t.stack)
}

// Path returns the frames from the outermost evaluation of id up to the top of the stack.
func (t *Tracker) Path(id NodeID) []NodeID {
	for i, frame := range t.stack {
		if frame == id {
			return append([]NodeID(nil), t.stack[i:]...)
		}
	}

	return nil
}

func (t *Tracker) RunWithOwner(owner *Owner, fn func()) {
	prev := t.currentOwner
	t.currentOwner = owner
	defer func() { t.currentOwner = prev }()

	fn()
}

func (t *Tracker) RunUntracked(fn func()) {
	t.Push(0)
	defer t.Pop()

	fn()
}

func (t *Tracker) CurrentOwner() *Owner {
	return t.currentOwner
}
