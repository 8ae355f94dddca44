package lockfree

import "sync/atomic"

// Ring is a bounded multi-producer, single-consumer queue. It never
// allocates after construction.
//
// Every slot carries a sequence number. A producer may fill slot i%n only
// when its sequence equals i, and publishes it by storing i+1; the consumer
// reads it back once the sequence says so and hands the slot to the next lap
// by storing i+n. A producer interrupted between claiming and publishing
// therefore cannot expose a half-written slot.
type Ring[T any] struct {
	_     [0]func()
	head  atomic.Uint32
	tail  atomic.Uint32
	mask  uint32
	seq   []atomic.Uint32
	slots []T
}

// NewRing returns a ring with room for size values, rounded up to a power
// of two.
func NewRing[T any](size int) *Ring[T] {
	n := uint32(1)
	for int(n) < size {
		n <<= 1
	}
	r := &Ring[T]{
		mask:  n - 1,
		seq:   make([]atomic.Uint32, n),
		slots: make([]T, n),
	}
	for i := range r.seq {
		r.seq[i].Store(uint32(i))
	}
	return r
}

// TryPush enqueues v, reporting false if the ring is full.
func (r *Ring[T]) TryPush(v T) bool {
	for {
		head := r.head.Load()
		slot := head & r.mask
		seq := r.seq[slot].Load()
		switch diff := int32(seq - head); {
		case diff == 0:
			if !r.head.CompareAndSwap(head, head+1) {
				continue
			}
			r.slots[slot] = v
			r.seq[slot].Store(head + 1)
			return true
		case diff < 0:
			return false
		}
		// Another producer claimed head; reload.
	}
}

// TryPop dequeues one value. Only one goroutine may pop.
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T
	tail := r.tail.Load()
	slot := tail & r.mask
	if r.seq[slot].Load() != tail+1 {
		return zero, false
	}
	v := r.slots[slot]
	r.slots[slot] = zero
	r.seq[slot].Store(tail + r.mask + 1)
	r.tail.Store(tail + 1)
	return v, true
}

// Len returns the number of claimed slots, including ones still being
// written.
func (r *Ring[T]) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int { return len(r.slots) }
