package irq

import (
	"errors"
	"fmt"
	"sync/atomic"

	"rvcore/core/fault"
)

// NumCodes is the size of the handler table: the standard machine and
// supervisor codes plus platform interrupts 16..63.
const NumCodes = 64

const (
	causeInterrupt = 1 << 63
	codeMask       = NumCodes - 1
)

var ErrBadCode = errors.New("irq: interrupt code out of range")

// Handler runs in interrupt context with interrupts disabled.
type Handler func(code uint32, free Free)

// Cause is a decoded mcause value.
type Cause struct {
	Interrupt bool
	Code      uint32
}

// DecodeCause splits a raw mcause into the interrupt bit and the code.
func DecodeCause(raw uint64) Cause {
	return Cause{
		Interrupt: raw&causeInterrupt != 0,
		Code:      uint32(raw & codeMask),
	}
}

func (c Cause) String() string {
	if c.Interrupt {
		return fmt.Sprintf("interrupt %d", c.Code)
	}
	return fmt.Sprintf("exception %d", c.Code)
}

var (
	table [NumCodes]atomic.Pointer[Handler]
	taken [NumCodes]atomic.Uint64
)

// Register installs h for code, replacing any previous handler.
func Register(code uint32, h Handler) error {
	if code >= NumCodes {
		return fmt.Errorf("register %d: %w", code, ErrBadCode)
	}
	table[code].Store(&h)
	return nil
}

// Unregister removes the handler for code.
func Unregister(code uint32) {
	if code < NumCodes {
		table[code].Store(nil)
	}
}

// Taken returns how many times the interrupt with code has been dispatched.
func Taken(code uint32) uint64 {
	if code >= NumCodes {
		return 0
	}
	return taken[code].Load()
}

// Dispatch routes one trap. It must only be called by the trap entry, where
// the hardware has already disabled interrupts. It reports whether the trap
// was an interrupt; exceptions are left to the caller.
func Dispatch(cause uint64) bool {
	c := DecodeCause(cause)
	if !c.Interrupt {
		return false
	}
	taken[c.Code].Add(1)
	h := table[c.Code].Load()
	if h == nil || *h == nil {
		fault.Halt(fault.KindUnhandledInterrupt, c.Code, nil)
		return true
	}
	(*h)(c.Code, newFree())
	return true
}

// Entry is the trap vector installed on the platform: interrupts go through
// the table, exceptions and panicking handlers halt the hart.
func Entry(cause uint64) {
	defer fault.Recover(uint32(cause & codeMask))
	if !Dispatch(cause) {
		fault.Exception(uint32(cause & codeMask))
	}
}
