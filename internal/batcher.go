package internal

type Batcher struct {
	// each nested batch increases the depth by 1
	// if depth > 0, effects are queued until the outermost batch is complete
	depth int
}

func NewBatcher() *Batcher {
	return &Batcher{
		depth: 0,
	}
}

func (b *Batcher) IsBatching() bool {
	return b.depth > 0
}

func (b *Batcher) Depth() int {
	return b.depth
}

// Batch runs fn with the depth raised and calls onComplete when the outermost batch ends,
// even if fn panics.
func (b *Batcher) Batch(fn, onComplete func()) {
	b.depth++
	defer func() {
		b.depth--
		if b.depth == 0 && onComplete != nil {
			onComplete()
		}
	}()

	fn()
}

// Batch defers effect reruns until fn returns, then drains them once each.
func (r *Runtime) Batch(fn func()) {
	r.Lock()
	defer r.Unlock()

	r.batcher.Batch(fn, r.flush)
}
