// Package irq holds the interrupt gate and the trap dispatch table.
//
// Code that touches state shared with interrupt handlers takes a Free
// token as a parameter. A Free value exists only while interrupts are
// disabled on the calling hart: inside Without/Do, or inside a handler
// called by Dispatch.
package irq

import (
	"sync/atomic"

	"rvcore/hal"
)

// Free is evidence that interrupts are disabled. It has no exported
// constructor. A zero Free{} built elsewhere is not Valid, and Cell.Borrow
// refuses it.
type Free struct {
	_ [0]func()
	p *struct{}
}

var token = &struct{}{}

func newFree() Free { return Free{p: token} }

// Valid reports whether f was produced by this package.
func (f Free) Valid() bool { return f.p == token }

type cpuBox struct{ c hal.CPU }

var cpu atomic.Pointer[cpuBox]

// Install sets the CPU whose interrupt-enable flag the gate drives.
func Install(c hal.CPU) {
	cpu.Store(&cpuBox{c: c})
}

func current() hal.CPU {
	b := cpu.Load()
	if b == nil || b.c == nil {
		panic("irq: no CPU installed")
	}
	return b.c
}

// Without disables interrupts, runs f and restores the previous
// interrupt-enable state. Nested calls leave interrupts disabled until the
// outermost one returns.
func Without[T any](f func(Free) T) T {
	c := current()
	prev := c.DisableInterrupts()
	defer c.RestoreInterrupts(prev)
	return f(newFree())
}

// Do is Without for functions with no result.
func Do(f func(Free)) {
	c := current()
	prev := c.DisableInterrupts()
	defer c.RestoreInterrupts(prev)
	f(newFree())
}
