// Package fault is the one-way exit for conditions the core cannot recover
// from: the hart reports what happened and stops.
package fault

import (
	"fmt"
	"sync"
	"sync/atomic"

	"rvcore/hal"
)

// Kind classifies a fatal condition.
type Kind uint8

const (
	KindHartExhausted Kind = iota + 1
	KindUnhandledInterrupt
	KindException
	KindCallbackPanic
)

func (k Kind) String() string {
	switch k {
	case KindHartExhausted:
		return "hart id exhausted"
	case KindUnhandledInterrupt:
		return "unhandled interrupt"
	case KindException:
		return "exception"
	case KindCallbackPanic:
		return "panic in interrupt handler"
	default:
		return "unknown"
	}
}

// Info describes a fault.
type Info struct {
	Kind  Kind
	Code  uint32
	Value any
	Stack []byte
}

func (i Info) String() string {
	switch {
	case i.Value != nil:
		return fmt.Sprintf("%s (code %d): %v", i.Kind, i.Code, i.Value)
	default:
		return fmt.Sprintf("%s (code %d)", i.Kind, i.Code)
	}
}

var (
	active atomic.Bool
	once   sync.Once

	handler atomic.Value // func(Info)
	cpu     atomic.Pointer[cpuBox]
)

type cpuBox struct{ c hal.CPU }

// Install sets the CPU that Halt stops.
func Install(c hal.CPU) {
	cpu.Store(&cpuBox{c: c})
}

// SetHandler installs the fault handler.
//
// The handler runs at most once, on the first fault, with interrupts
// disabled. It must not panic.
func SetHandler(fn func(Info)) {
	handler.Store(fn)
}

// Active reports whether a fault has been raised.
func Active() bool {
	return active.Load()
}

// Halt reports the fault and stops the hart.
func Halt(kind Kind, code uint32, value any) {
	report(Info{Kind: kind, Code: code, Value: value})
	stop()
}

// Exception handles a synchronous exception taken by the trap entry.
func Exception(code uint32) {
	Halt(KindException, code, nil)
}

// Recover is deferred around interrupt handlers. A panic escaping the
// handler becomes a KindCallbackPanic fault.
func Recover(code uint32) {
	r := recover()
	if r == nil {
		return
	}
	report(Info{Kind: KindCallbackPanic, Code: code, Value: r, Stack: captureStack()})
	stop()
}

func report(info Info) {
	once.Do(func() {
		active.Store(true)
		if v := handler.Load(); v != nil {
			if fn, ok := v.(func(Info)); ok && fn != nil {
				fn(info)
			}
		}
	})
}

func stop() {
	if b := cpu.Load(); b != nil && b.c != nil {
		b.c.Halt()
	}
	for {
	}
}
