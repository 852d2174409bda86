package internal

// EffectQueue is an insertion-ordered set of effect handles.
// An entry can be pushed again once it has been shifted out.
type EffectQueue struct {
	items  []Handle
	head   int
	queued map[Handle]struct{}
}

func NewEffectQueue() *EffectQueue {
	return &EffectQueue{
		items:  make([]Handle, 0, 16),
		queued: make(map[Handle]struct{}),
	}
}

// Push appends h unless it is already waiting.
func (q *EffectQueue) Push(h Handle) bool {
	if _, ok := q.queued[h]; ok {
		return false
	}

	q.queued[h] = struct{}{}
	q.items = append(q.items, h)
	return true
}

// Shift removes and returns the oldest entry.
func (q *EffectQueue) Shift() (Handle, bool) {
	if q.head >= len(q.items) {
		return Handle{}, false
	}

	h := q.items[q.head]
	q.items[q.head] = Handle{}
	q.head++
	delete(q.queued, h)

	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}

	return h, true
}

func (q *EffectQueue) Len() int {
	return len(q.items) - q.head
}

func (q *EffectQueue) Clear() {
	q.items = q.items[:0]
	q.head = 0
	clear(q.queued)
}
