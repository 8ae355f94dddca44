package lockfree

import "sync/atomic"

// Vec is a fixed-capacity, append-only vector. Slots become visible to
// readers only after their writer publishes them.
type Vec[T any] struct {
	_     [0]func()
	n     atomic.Uint32
	ready []atomic.Bool
	items []T
}

// NewVec returns an empty vector that holds up to capacity items.
func NewVec[T any](capacity int) *Vec[T] {
	return &Vec[T]{
		ready: make([]atomic.Bool, capacity),
		items: make([]T, capacity),
	}
}

// Push appends v and returns its index.
func (v *Vec[T]) Push(item T) (int, error) {
	i := v.n.Add(1) - 1
	if int(i) >= len(v.items) {
		// Keep the counter pinned so it cannot wrap back into range.
		v.n.Store(uint32(len(v.items)))
		return 0, ErrFull
	}
	// No other push can be handed index i.
	v.items[i] = item
	v.ready[i].Store(true)
	return int(i), nil
}

// Get returns the item at i if it has been published.
func (v *Vec[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(v.items) || !v.ready[i].Load() {
		return zero, false
	}
	return v.items[i], true
}

// Len returns the number of reserved slots, some of which may still be
// unpublished.
func (v *Vec[T]) Len() int {
	n := int(v.n.Load())
	if n > len(v.items) {
		return len(v.items)
	}
	return n
}

// Cap returns the capacity.
func (v *Vec[T]) Cap() int { return len(v.items) }

// Range calls fn for every published item in index order until fn returns
// false.
func (v *Vec[T]) Range(fn func(i int, item T) bool) {
	n := v.Len()
	for i := 0; i < n; i++ {
		item, ok := v.Get(i)
		if !ok {
			continue
		}
		if !fn(i, item) {
			return
		}
	}
}
