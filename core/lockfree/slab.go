package lockfree

import (
	"fmt"
	"sync/atomic"
)

const (
	slotUninit uint32 = iota
	slotReserved
	slotInit
	slotRemoving
)

// Slab is a fixed-capacity set of values addressed by the index Insert
// returned. Each slot moves uninit → reserved → init → removing → uninit;
// only the caller that won the transition into reserved or removing touches
// the payload.
type Slab[T any] struct {
	_     [0]func()
	state []atomic.Uint32
	items []T
	hint  atomic.Uint32
	n     atomic.Int32
}

// NewSlab returns an empty slab with room for capacity values.
func NewSlab[T any](capacity int) *Slab[T] {
	return &Slab[T]{
		state: make([]atomic.Uint32, capacity),
		items: make([]T, capacity),
	}
}

// Insert stores v in a free slot and returns its index. Each slot is tried
// at most once, starting after the last slot handed out, so a call never
// loops; ErrFull means every slot was taken or in transition.
func (s *Slab[T]) Insert(v T) (int, error) {
	capacity := uint32(len(s.items))
	if capacity == 0 {
		return 0, ErrFull
	}
	start := s.hint.Load()
	for k := uint32(0); k < capacity; k++ {
		i := (start + k) % capacity
		if !s.state[i].CompareAndSwap(slotUninit, slotReserved) {
			continue
		}
		s.items[i] = v
		s.state[i].Store(slotInit)
		s.n.Add(1)
		s.hint.Store(i + 1)
		return int(i), nil
	}
	return 0, ErrFull
}

// Get returns the value at i if the slot is initialized. The caller must
// not race Get against Remove of the same index.
func (s *Slab[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(s.items) || s.state[i].Load() != slotInit {
		return zero, false
	}
	return s.items[i], true
}

// Remove moves the value at i out of the slab and frees the slot.
func (s *Slab[T]) Remove(i int) (T, error) {
	var zero T
	if i < 0 || i >= len(s.items) {
		return zero, fmt.Errorf("remove %d: %w", i, ErrInvalidID)
	}
	if !s.state[i].CompareAndSwap(slotInit, slotRemoving) {
		return zero, fmt.Errorf("remove %d: %w", i, ErrNotAllocated)
	}
	v := s.items[i]
	s.items[i] = zero
	s.n.Add(-1)
	s.state[i].Store(slotUninit)
	return v, nil
}

// Len returns the number of initialized slots.
func (s *Slab[T]) Len() int { return int(s.n.Load()) }

// Cap returns the capacity.
func (s *Slab[T]) Cap() int { return len(s.items) }

// Range calls fn for each initialized slot until fn returns false.
func (s *Slab[T]) Range(fn func(i int, v T) bool) {
	for i := range s.items {
		if v, ok := s.Get(i); ok {
			if !fn(i, v) {
				return
			}
		}
	}
}
