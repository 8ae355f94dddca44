// Package task is a single-threaded cooperative executor. Tasks are
// futures polled on the hart that runs the executor; a task that returns
// Pending is not polled again until something wakes it.
package task

import (
	"errors"
	"fmt"
	"sync/atomic"

	"rvcore/core/irq"
	"rvcore/core/lockfree"
	"rvcore/hal"
)

var (
	ErrSpawnQueueFull = errors.New("task: spawn queue full")
	ErrTooManyTasks   = errors.New("task: too many tasks")
	ErrReentered      = errors.New("task: executor is already running")
)

// Poll is the outcome of polling a future.
type Poll uint8

const (
	Pending Poll = iota
	Ready
)

func (p Poll) String() string {
	if p == Ready {
		return "ready"
	}
	return "pending"
}

// Future is a unit of work polled by the executor.
type Future interface {
	Poll(cx *Context) Poll
}

// FutureFunc adapts a function to Future.
type FutureFunc func(cx *Context) Poll

func (f FutureFunc) Poll(cx *Context) Poll { return f(cx) }

// Context is handed to a future while it is polled.
type Context struct {
	ex    *Executor
	waker Waker
	scope *Scope
}

// Waker returns the polled task's waker. Clone it to keep it past Poll.
func (cx *Context) Waker() Waker { return cx.waker }

// Spawn starts f as a new task. A task spawned inside a scope belongs to
// that scope as well.
func (cx *Context) Spawn(f Future) error {
	return cx.ex.spawn(f, cx.scope)
}

type record struct {
	fut   Future
	cell  *cell
	scope *Scope
}

// Stats is a snapshot of executor counters.
type Stats struct {
	Spawned   uint64
	Completed uint64
	Polls     uint64
	Live      int
}

// Executor runs tasks on one hart.
type Executor struct {
	cpu   hal.CPU
	queue *lockfree.Ring[*record]
	tasks *lockfree.Slab[*record]

	outstanding atomic.Int32
	spawned     atomic.Uint64
	completed   atomic.Uint64
	polls       atomic.Uint64

	running bool
}

// New returns an executor tracking up to maxTasks tasks, with a spawn queue
// of queueSize entries. cpu is used to idle when no task is awake.
func New(cpu hal.CPU, maxTasks, queueSize int) *Executor {
	return &Executor{
		cpu:   cpu,
		queue: lockfree.NewRing[*record](queueSize),
		tasks: lockfree.NewSlab[*record](maxTasks),
	}
}

// Spawn queues f to run. It may be called from interrupt handlers.
func (e *Executor) Spawn(f Future) error {
	return e.spawn(f, nil)
}

func (e *Executor) spawn(f Future, sc *Scope) error {
	limit := int32(e.tasks.Cap())
	for {
		n := e.outstanding.Load()
		if n >= limit {
			return fmt.Errorf("spawn: %w", ErrTooManyTasks)
		}
		if e.outstanding.CompareAndSwap(n, n+1) {
			break
		}
	}
	r := &record{fut: f, cell: &cell{}, scope: sc}
	r.cell.refs.Store(1)
	if sc != nil {
		sc.live.Add(1)
	}
	if !e.queue.TryPush(r) {
		if sc != nil {
			sc.live.Add(-1)
		}
		e.outstanding.Add(-1)
		return fmt.Errorf("spawn: %w", ErrSpawnQueueFull)
	}
	e.spawned.Add(1)
	return nil
}

// WaitAll runs tasks until every spawned task, including those spawned
// while waiting, has completed.
func (e *Executor) WaitAll() error {
	return e.run(func() bool { return e.outstanding.Load() == 0 })
}

// Stats returns the executor counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Spawned:   e.spawned.Load(),
		Completed: e.completed.Load(),
		Polls:     e.polls.Load(),
		Live:      int(e.outstanding.Load()),
	}
}

func (e *Executor) run(done func() bool) error {
	if e.running {
		return ErrReentered
	}
	e.running = true
	defer func() { e.running = false }()

	for {
		e.drain()
		if done() {
			return nil
		}
		if !e.pollAwake() {
			e.idle()
		}
	}
}

// drain moves newly spawned tasks into the task table. The outstanding
// count keeps the table from overflowing.
func (e *Executor) drain() {
	for {
		r, ok := e.queue.TryPop()
		if !ok {
			return
		}
		if _, err := e.tasks.Insert(r); err != nil {
			panic(fmt.Errorf("task: table out of sync: %w", err))
		}
	}
}

// pollAwake polls every awake task once and reports whether any was.
func (e *Executor) pollAwake() bool {
	polled := false
	e.tasks.Range(func(i int, r *record) bool {
		if !r.cell.state.CompareAndSwap(stateAwake, statePolling) {
			return true
		}
		polled = true
		e.polls.Add(1)
		cx := Context{ex: e, waker: Waker{c: r.cell}, scope: r.scope}
		if r.fut.Poll(&cx) == Ready {
			e.finish(i, r)
			return true
		}
		// A failed swap means the task was woken while it was polled; it
		// stays awake.
		r.cell.state.CompareAndSwap(statePolling, statePending)
		return true
	})
	return polled
}

func (e *Executor) finish(i int, r *record) {
	r.cell.state.Store(stateComplete)
	Waker{c: r.cell}.Release()
	e.tasks.Remove(i)
	r.fut = nil
	if r.scope != nil {
		r.scope.live.Add(-1)
	}
	e.completed.Add(1)
	e.outstanding.Add(-1)
}

// idle waits for an interrupt when nothing is runnable. The check runs
// with interrupts disabled, so a wake raised by a handler either shows up
// in the check or leaves an interrupt pending that ends the wait.
func (e *Executor) idle() {
	irq.Do(func(irq.Free) {
		if e.queue.Len() > 0 || e.anyAwake() {
			return
		}
		e.cpu.WaitForInterrupt()
	})
}

func (e *Executor) anyAwake() bool {
	awake := false
	e.tasks.Range(func(_ int, r *record) bool {
		awake = r.cell.state.Load() == stateAwake
		return !awake
	})
	return awake
}
