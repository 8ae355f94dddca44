// Package rt is the surface applications program against: tasks, threads,
// timed callbacks and the interrupt gate of the calling hart.
package rt

import (
	"errors"
	"fmt"

	"rvcore/core/fault"
	"rvcore/core/hart"
	"rvcore/core/irq"
	"rvcore/core/task"
	"rvcore/core/thread"
	"rvcore/core/timer"
	"rvcore/hal"
)

var ErrNotBooted = errors.New("rt: hart not booted")

// Config sizes the per-hart runtime.
type Config struct {
	MaxThreads int
	MaxTasks   int
	SpawnQueue int
}

func (c Config) withDefaults() Config {
	if c.MaxThreads <= 0 {
		c.MaxThreads = 8
	}
	if c.MaxTasks <= 0 {
		c.MaxTasks = 32
	}
	if c.SpawnQueue <= 0 {
		c.SpawnQueue = 16
	}
	return c
}

// StackConfig describes a thread stack.
type StackConfig struct {
	// Size in bytes; rounded up to thread.StackAlign. Zero picks
	// thread.DefaultStackSize.
	Size int
}

type hartState struct {
	p     hal.Platform
	timer *timer.Queue
	sched *thread.Scheduler
	exec  *task.Executor
}

var harts hart.Local[*hartState]

// Boot brings up the runtime on the calling hart and returns its id.
func Boot(p hal.Platform, cfg Config) (int, error) {
	cfg = cfg.withDefaults()
	cpu := p.CPU()

	fault.Install(cpu)
	irq.Install(cpu)
	id := hart.Init(cpu)
	if id < 0 {
		return id, fmt.Errorf("boot: %w", ErrNotBooted)
	}

	st := &hartState{
		p:     p,
		timer: timer.New(p.Timer(), p.IntC()),
		sched: thread.New(p.Heap(), cfg.MaxThreads),
		exec:  task.New(cpu, cfg.MaxTasks, cfg.SpawnQueue),
	}
	*harts.At(id) = st

	if err := irq.Register(hal.CodeTimer, handleTimer); err != nil {
		return id, fmt.Errorf("boot: %w", err)
	}
	p.SetTrapVector(irq.Entry)
	return id, nil
}

func handleTimer(code uint32, free irq.Free) {
	if st := *harts.Get(); st != nil {
		st.timer.Handle(code, free)
	}
}

func lookup() (*hartState, error) {
	st := *harts.Get()
	if st == nil {
		return nil, ErrNotBooted
	}
	return st, nil
}

// local is lookup for the calls that have no error to report through.
func local() *hartState {
	st, err := lookup()
	if err != nil {
		panic(err)
	}
	return st
}

// SpawnTask queues f on the calling hart's executor.
func SpawnTask(f task.Future) error {
	st, err := lookup()
	if err != nil {
		return fmt.Errorf("spawn task: %w", err)
	}
	return st.exec.Spawn(f)
}

// WaitForAllTasks runs the executor until every task has completed.
func WaitForAllTasks() error {
	st, err := lookup()
	if err != nil {
		return fmt.Errorf("wait for tasks: %w", err)
	}
	return st.exec.WaitAll()
}

// Scope runs fn and waits for the tasks it spawned through s.
func Scope(fn func(s *task.Scope)) error {
	st, err := lookup()
	if err != nil {
		return fmt.Errorf("scope: %w", err)
	}
	return st.exec.Scope(fn)
}

// SpawnThread creates a cooperative thread.
func SpawnThread(entry func(), stack StackConfig) (thread.ID, error) {
	st, err := lookup()
	if err != nil {
		return 0, fmt.Errorf("spawn thread: %w", err)
	}
	return st.sched.Spawn(entry, stack.Size)
}

// PauseThread yields to the next thread.
func PauseThread() {
	local().sched.Pause()
}

// RunThreads runs the spawned threads until all have exited.
func RunThreads() {
	local().sched.Run()
}

// WaitTicks returns a future that is ready after d timer ticks.
func WaitTicks(d uint64) task.Future {
	return task.Sleep(local().timer, d)
}

// WaitThenCall calls cb from the timer interrupt after d ticks.
func WaitThenCall(d uint64, cb func()) {
	local().timer.Wait(d, func(uint64, irq.Free) timer.Result {
		cb()
		return timer.Done()
	})
}

// Every calls cb from the timer interrupt every period ticks until cb
// returns false.
func Every(period uint64, cb func(now uint64) bool) {
	local().timer.Wait(period, func(now uint64, _ irq.Free) timer.Result {
		if cb(now) {
			return timer.Again(period)
		}
		return timer.Done()
	})
}

// HartID returns the calling hart's id.
func HartID() int {
	return hart.ID()
}

// RunWithoutInterrupts runs f with interrupts disabled.
func RunWithoutInterrupts[T any](f func(irq.Free) T) T {
	return irq.Without(f)
}

// Now returns the current timer tick.
func Now() uint64 {
	return local().p.Timer().Now()
}

// Stats is a snapshot of the calling hart's runtime.
type Stats struct {
	Hart        int
	Now         uint64
	TimerQueued int
	TimerFired  uint64
	TimerTraps  uint64
	Threads     int
	Tasks       task.Stats
}

// ReadStats collects the calling hart's counters.
func ReadStats() Stats {
	st := local()
	return Stats{
		Hart:        hart.ID(),
		Now:         st.p.Timer().Now(),
		TimerQueued: irq.Without(st.timer.Len),
		TimerFired:  st.timer.Fired(),
		TimerTraps:  irq.Taken(hal.CodeTimer),
		Threads:     st.sched.Len(),
		Tasks:       st.exec.Stats(),
	}
}
