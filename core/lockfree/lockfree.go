// Package lockfree holds the structures used to hand values between
// interrupt handlers and normal code without blocking.
//
// Nothing here spins waiting on another context: an interrupt handler
// cannot wait for the code it interrupted, so every operation either
// completes or reports failure.
package lockfree

import "errors"

var (
	ErrFull         = errors.New("lockfree: capacity exceeded")
	ErrEmpty        = errors.New("lockfree: empty")
	ErrExhausted    = errors.New("lockfree: no free id")
	ErrInvalidID    = errors.New("lockfree: id out of range")
	ErrNotAllocated = errors.New("lockfree: id is not allocated")
	ErrContended    = errors.New("lockfree: slot is borrowed")
)

// Dropper is implemented by values that release resources when they are
// overwritten or discarded by a container.
type Dropper interface {
	Drop()
}

func drop[T any](v T) {
	if d, ok := any(v).(Dropper); ok {
		d.Drop()
	}
}
