//go:build !tinygo

package hal

import (
	"errors"
	"sync"
	"sync/atomic"
)

const simCodes = 64

var (
	// ErrHalted is the panic value raised when a simulated hart halts.
	ErrHalted = errors.New("hart halted")
	// ErrIdleForever is the panic value raised when a simulated hart waits
	// for an interrupt that no source can ever raise.
	ErrIdleForever = errors.New("wait for interrupt with no interrupt source armed")
)

// SimConfig controls a simulated hart.
type SimConfig struct {
	// HartID is the physical hart id reported by HartID.
	HartID uint32
	// Realtime makes WaitForInterrupt block until another goroutine calls
	// Tick. Otherwise virtual time jumps straight to the armed compare value.
	Realtime bool
}

// Sim is a deterministic single-hart machine: CLINT timer, interrupt
// controller, interrupt enable flag and scratch register.
//
// Interrupts are delivered on the hart's own goroutine at the points where
// real hardware could take them: RestoreInterrupts(true), WaitForInterrupt
// and Advance.
type Sim struct {
	cfg SimConfig

	now atomic.Uint64
	cmp atomic.Uint64

	mie     atomic.Bool
	enabled [simCodes]atomic.Bool
	latched [simCodes]atomic.Bool
	trigger [simCodes]atomic.Uint32

	scratch atomic.Uint32
	halted  atomic.Bool

	inTrap bool
	trap   func(cause uint64)

	traps atomic.Uint64
	wake  chan struct{}
	off   chan struct{}
}

// NewSim returns a simulated hart with interrupts enabled and the timer
// compare disabled.
func NewSim(cfg SimConfig) *Sim {
	s := &Sim{cfg: cfg, wake: make(chan struct{}, 1), off: make(chan struct{})}
	s.cmp.Store(CompareDisabled)
	s.mie.Store(true)
	return s
}

// SetTrapVector installs the function the hart jumps to on a trap.
func (s *Sim) SetTrapVector(fn func(cause uint64)) { s.trap = fn }

// Traps returns the number of interrupts taken so far.
func (s *Sim) Traps() uint64 { return s.traps.Load() }

// Halted reports whether Halt has been called.
func (s *Sim) Halted() bool { return s.halted.Load() }

func (s *Sim) DisableInterrupts() bool { return s.mie.Swap(false) }

func (s *Sim) RestoreInterrupts(enabled bool) {
	s.mie.Store(enabled)
	if enabled {
		s.deliver()
	}
}

func (s *Sim) InterruptsEnabled() bool { return s.mie.Load() }

func (s *Sim) WaitForInterrupt() {
	for s.pendingCode() < 0 {
		if s.cfg.Realtime {
			select {
			case <-s.wake:
			case <-s.off:
				panic(ErrPoweredOff)
			}
			continue
		}
		cmp := s.cmp.Load()
		if !s.enabled[CodeTimer].Load() || cmp == CompareDisabled {
			panic(ErrIdleForever)
		}
		if cmp > s.now.Load() {
			s.now.Store(cmp)
		}
	}
	if s.mie.Load() {
		s.deliver()
	}
}

func (s *Sim) HartID() uint32      { return s.cfg.HartID }
func (s *Sim) Scratch() uint32     { return s.scratch.Load() }
func (s *Sim) SetScratch(v uint32) { s.scratch.Store(v) }

func (s *Sim) Halt() {
	s.mie.Store(false)
	s.halted.Store(true)
	panic(ErrHalted)
}

func (s *Sim) Now() uint64 { return s.now.Load() }

func (s *Sim) SetNow(ticks uint64) { s.now.Store(ticks) }

func (s *Sim) Compare() uint64 { return s.cmp.Load() }

func (s *Sim) SetCompare(ticks uint64) { s.cmp.Store(ticks) }

// Advance moves virtual time forward on the hart's own goroutine and takes
// any interrupt that became pending.
func (s *Sim) Advance(ticks uint64) {
	s.now.Add(ticks)
	if s.mie.Load() {
		s.deliver()
	}
}

// PowerOff makes every later WaitForInterrupt on a realtime hart panic with
// ErrPoweredOff. It may be called more than once.
func (s *Sim) PowerOff() {
	select {
	case <-s.off:
	default:
		close(s.off)
	}
}

// Tick moves virtual time forward from another goroutine. The hart notices
// at its next WaitForInterrupt.
func (s *Sim) Tick(ticks uint64) {
	s.now.Add(ticks)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sim) Enable(code uint32) {
	if code < simCodes {
		s.enabled[code].Store(true)
	}
}

func (s *Sim) Disable(code uint32) {
	if code < simCodes {
		s.enabled[code].Store(false)
	}
}

func (s *Sim) Enabled(code uint32) bool {
	return code < simCodes && s.enabled[code].Load()
}

func (s *Sim) Pending(code uint32) bool {
	if code >= simCodes {
		return false
	}
	if code == CodeTimer {
		return s.now.Load() >= s.cmp.Load()
	}
	return s.latched[code].Load()
}

func (s *Sim) SetPending(code uint32, pending bool) {
	if code >= simCodes || code == CodeTimer {
		return
	}
	s.latched[code].Store(pending)
	if pending {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

func (s *Sim) SetTrigger(code uint32, t Trigger) {
	if code < simCodes {
		s.trigger[code].Store(uint32(t))
	}
}

func (s *Sim) pendingCode() int {
	for code := uint32(0); code < simCodes; code++ {
		if s.enabled[code].Load() && s.Pending(code) {
			return int(code)
		}
	}
	return -1
}

// deliver takes pending interrupts the way the hardware does: the enable
// flag is cleared for the duration of the handler and restored by mret.
func (s *Sim) deliver() {
	if s.inTrap || s.trap == nil {
		return
	}
	for s.mie.Load() {
		code := s.pendingCode()
		if code < 0 {
			return
		}
		if code != CodeTimer && Trigger(s.trigger[code].Load()) == TriggerEdge {
			s.latched[code].Store(false)
		}
		s.mie.Store(false)
		s.inTrap = true
		s.traps.Add(1)
		s.trap(1<<63 | uint64(code))
		s.inTrap = false
		s.mie.Store(true)
	}
}

type simPlatform struct {
	sim    *Sim
	logger Logger
	disp   Display
	heap   Heap
}

// NewSimPlatform bundles a simulated hart with a logger, optional display and
// a heap of heapBytes.
func NewSimPlatform(sim *Sim, logger Logger, disp Display, heapBytes uintptr) Platform {
	return &simPlatform{sim: sim, logger: logger, disp: disp, heap: NewBudgetHeap(heapBytes)}
}

func (p *simPlatform) Logger() Logger   { return p.logger }
func (p *simPlatform) Display() Display { return p.disp }
func (p *simPlatform) CPU() CPU         { return p.sim }
func (p *simPlatform) Timer() Timer     { return p.sim }
func (p *simPlatform) IntC() IntC       { return p.sim }
func (p *simPlatform) Heap() Heap       { return p.heap }

// SetTrapVector installs the trap entry on the simulated hart.
func (p *simPlatform) SetTrapVector(fn func(cause uint64)) { p.sim.SetTrapVector(fn) }

// MemLogger keeps log lines in memory; tests read them back with Lines.
type MemLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *MemLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func (l *MemLogger) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func (l *MemLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}
