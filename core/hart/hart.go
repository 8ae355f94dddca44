// Package hart assigns every hardware thread a dense id and provides
// storage indexed by it.
package hart

import (
	"sync/atomic"

	"rvcore/core/fault"
	"rvcore/core/irq"
	"rvcore/hal"
)

type cpuBox struct{ c hal.CPU }

var (
	cpu  atomic.Pointer[cpuBox]
	next atomic.Uint32
)

func init() {
	next.Store(1)
}

// Init assigns the calling hart its id and stores it in the hart's scratch
// register. The hart whose mhartid is 0 always gets id 0; the others draw
// from a shared counter. A hart that would get an id >= Count halts.
func Init(c hal.CPU) int {
	cpu.Store(&cpuBox{c: c})

	var id uint32
	if c.HartID() != 0 {
		id = next.Add(1) - 1
		if id >= Count {
			fault.Halt(fault.KindHartExhausted, id, nil)
			return -1
		}
	}
	c.SetScratch(id)
	return int(id)
}

// ID returns the calling hart's id. With a single hart this is the
// constant 0.
func ID() int {
	if Count == 1 {
		return 0
	}
	b := cpu.Load()
	if b == nil {
		return 0
	}
	return int(b.c.Scratch())
}

// Local holds one T per hart. Get needs no synchronization because a hart
// only ever touches its own slot; T must itself be safe against the hart's
// interrupt handlers (an atomic, or a Cell).
type Local[T any] struct {
	slots [Count]T
}

// Get returns the calling hart's slot.
func (l *Local[T]) Get() *T {
	return &l.slots[ID()]
}

// At returns hart id's slot, for inspection from boot code and tests.
func (l *Local[T]) At(id int) *T {
	return &l.slots[id]
}

// Cell is interior-mutable state shared with interrupt handlers on the same
// hart. Access requires the irq.Free token.
type Cell[T any] struct {
	v T
}

// Borrow returns the value for mutation while free is held. The pointer
// must not outlive the critical section that produced free.
func (c *Cell[T]) Borrow(free irq.Free) *T {
	if !free.Valid() {
		panic("hart: Cell borrowed without interrupts disabled")
	}
	return &c.v
}
