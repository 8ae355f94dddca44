package lockfree

import (
	"fmt"
	"sync/atomic"
)

const noID = ^uint32(0)

// IDAllocator hands out ids in [0, capacity). Fresh ids come from a bump
// counter; once that passes capacity, ids come back off the free list.
//
// The free list is a stack linked through next[], with its head packed
// together with a generation count so a pop interrupted by a push and pop
// of the same id still notices the change.
type IDAllocator struct {
	_     [0]func()
	bump  atomic.Uint32
	head  atomic.Uint64
	next  []atomic.Uint32
	owned []atomic.Bool
}

// NewIDAllocator returns an allocator for capacity ids.
func NewIDAllocator(capacity int) *IDAllocator {
	a := &IDAllocator{
		next:  make([]atomic.Uint32, capacity),
		owned: make([]atomic.Bool, capacity),
	}
	a.head.Store(packHead(noID, 0))
	return a
}

func packHead(id, gen uint32) uint64 { return uint64(gen)<<32 | uint64(id) }

func unpackHead(v uint64) (id, gen uint32) { return uint32(v), uint32(v >> 32) }

// Cap returns the number of distinct ids.
func (a *IDAllocator) Cap() int { return len(a.next) }

// Alloc reserves an id. It returns ErrExhausted when every id is held.
func (a *IDAllocator) Alloc() (uint32, error) {
	capacity := uint32(len(a.next))
	for {
		n := a.bump.Load()
		if n >= capacity {
			break
		}
		if a.bump.CompareAndSwap(n, n+1) {
			a.owned[n].Store(true)
			return n, nil
		}
	}

	for {
		h := a.head.Load()
		id, gen := unpackHead(h)
		if id == noID {
			return 0, ErrExhausted
		}
		nxt := a.next[id].Load()
		if a.head.CompareAndSwap(h, packHead(nxt, gen+1)) {
			a.owned[id].Store(true)
			return id, nil
		}
	}
}

// Free returns id to the allocator.
func (a *IDAllocator) Free(id uint32) error {
	if id >= uint32(len(a.next)) {
		return fmt.Errorf("free %d: %w", id, ErrInvalidID)
	}
	if !a.owned[id].CompareAndSwap(true, false) {
		return fmt.Errorf("free %d: %w", id, ErrNotAllocated)
	}
	for {
		h := a.head.Load()
		top, gen := unpackHead(h)
		a.next[id].Store(top)
		if a.head.CompareAndSwap(h, packHead(id, gen+1)) {
			return nil
		}
	}
}

// Allocated reports whether id is currently held.
func (a *IDAllocator) Allocated(id uint32) bool {
	return id < uint32(len(a.owned)) && a.owned[id].Load()
}
