package lockfree

import (
	"sync/atomic"
	"unsafe"
)

const (
	optAbsent uint32 = iota
	optPresent
	optBorrowed
)

// Option is a single slot that one side fills and the other empties.
//
// The payload is only read or written by whoever moved the tag to borrowed,
// so at most one caller touches it at a time. Zero-sized payloads never
// touch the slot at all.
type Option[T any] struct {
	_   [0]func()
	tag atomic.Uint32
	v   T
}

func zeroSized[T any]() bool {
	var v T
	return unsafe.Sizeof(v) == 0
}

// IsSome reports whether a value is present.
func (o *Option[T]) IsSome() bool {
	return o.tag.Load() == optPresent
}

// Take removes and returns the value. It fails if the option is empty or
// another caller holds the slot.
func (o *Option[T]) Take() (T, bool) {
	var zero T
	if zeroSized[T]() {
		return zero, o.tag.CompareAndSwap(optPresent, optAbsent)
	}
	if !o.tag.CompareAndSwap(optPresent, optBorrowed) {
		return zero, false
	}
	v := o.v
	o.v = zero
	o.tag.Store(optAbsent)
	return v, true
}

// Insert stores v, dropping any value already present. If another caller
// holds the slot, Insert returns v back with ErrContended.
func (o *Option[T]) Insert(v T) (T, error) {
	var zero T
	if zeroSized[T]() {
		if o.tag.Swap(optPresent) == optPresent {
			drop(zero)
		}
		return zero, nil
	}
	prev := o.tag.Swap(optBorrowed)
	if prev == optBorrowed {
		// The other holder stores its own tag when it finishes.
		return v, ErrContended
	}
	if prev == optPresent {
		drop(o.v)
	}
	o.v = v
	o.tag.Store(optPresent)
	return zero, nil
}
