// Package thread is a cooperative scheduler for stackful threads on one
// hart. Threads form a ring and run in turn; a thread gives up the hart
// only by calling Pause or by returning from its entry function.
package thread

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"rvcore/core/hart"
	"rvcore/core/irq"
	"rvcore/core/lockfree"
	"rvcore/hal"
)

const (
	// StackAlign is the RISC-V psABI stack alignment.
	StackAlign = 16
	// DefaultStackSize is used when Spawn is given a size <= 0.
	DefaultStackSize = 2048
)

var ErrTooManyThreads = errors.New("thread: too many threads")

// ID identifies a thread. IDs increase with every Spawn and are never
// reused, so a stale ID cannot name a later thread.
type ID uint32

const none = -1

type tcb struct {
	id        ID
	parent    ID
	hasParent bool

	prev, next int32

	entry func()
	stack []byte
	ctx   hal.Context
}

type ring struct {
	current int32
	count   int
	running bool
	// zombie is a thread that has exited but whose stack could not be freed
	// while it was still running on it.
	zombie int32
}

// Scheduler owns the threads of one hart.
type Scheduler struct {
	heap  hal.Heap
	ids   *lockfree.IDAllocator
	seq   atomic.Uint32
	slots []tcb
	idle  hal.Context
	st    hart.Cell[ring]
}

// New returns a scheduler with room for maxThreads threads whose stacks
// come from heap.
func New(heap hal.Heap, maxThreads int) *Scheduler {
	s := &Scheduler{
		heap:  heap,
		ids:   lockfree.NewIDAllocator(maxThreads),
		slots: make([]tcb, maxThreads),
	}
	irq.Do(func(free irq.Free) {
		*s.st.Borrow(free) = ring{current: none, zombie: none}
	})
	return s
}

// Spawn creates a thread running entry on a stack of at least stackSize
// bytes. Inside a running thread the new one runs next; before Run it
// joins the ring behind the threads spawned earlier.
func (s *Scheduler) Spawn(entry func(), stackSize int) (ID, error) {
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}
	size := (uintptr(stackSize) + StackAlign - 1) &^ (StackAlign - 1)

	slot, err := s.ids.Alloc()
	if err != nil {
		return 0, fmt.Errorf("spawn: %w", ErrTooManyThreads)
	}
	stack, err := s.heap.Alloc(size, StackAlign)
	if err != nil {
		s.ids.Free(slot)
		return 0, fmt.Errorf("spawn: stack of %d bytes: %w", size, err)
	}

	t := &s.slots[slot]
	*t = tcb{id: ID(s.seq.Add(1) - 1), entry: entry, stack: stack}
	top := (uintptr(unsafe.Pointer(&stack[0])) + size) &^ (StackAlign - 1)
	i := int32(slot)
	hal.InitContext(&t.ctx, top, func() { s.start(i) })

	irq.Do(func(free irq.Free) {
		r := s.st.Borrow(free)
		if r.current == none {
			t.prev, t.next = i, i
			r.current = i
		} else {
			cur := &s.slots[r.current]
			if r.running {
				t.parent, t.hasParent = cur.id, true
				s.linkAfter(r.current, i)
			} else {
				s.linkAfter(cur.prev, i)
			}
		}
		r.count++
	})
	return t.id, nil
}

// linkAfter inserts i after at. Caller holds the token.
func (s *Scheduler) linkAfter(at, i int32) {
	a := &s.slots[at]
	t := &s.slots[i]
	t.prev, t.next = at, a.next
	s.slots[a.next].prev = i
	a.next = i
}

// Pause hands the hart to the next thread in the ring. It returns at once
// when the caller is the only thread, or when called outside Run.
func (s *Scheduler) Pause() {
	var from, to *hal.Context
	irq.Do(func(free irq.Free) {
		r := s.st.Borrow(free)
		if !r.running || r.current == none {
			return
		}
		cur := r.current
		next := s.slots[cur].next
		if next == cur {
			return
		}
		r.current = next
		from, to = &s.slots[cur].ctx, &s.slots[next].ctx
	})
	if from == nil {
		return
	}
	hal.Switch(from, to)
	s.reap()
}

// Run starts the ring and returns once every thread has exited. It returns
// immediately if there is no thread or the ring is already running.
func (s *Scheduler) Run() {
	var first *hal.Context
	irq.Do(func(free irq.Free) {
		r := s.st.Borrow(free)
		if r.running || r.current == none {
			return
		}
		r.running = true
		first = &s.slots[r.current].ctx
	})
	if first == nil {
		return
	}
	hal.Switch(&s.idle, first)
	s.reap()
	irq.Do(func(free irq.Free) {
		s.st.Borrow(free).running = false
	})
}

// Current returns the running thread.
func (s *Scheduler) Current() (ID, bool) {
	var (
		id ID
		ok bool
	)
	irq.Do(func(free irq.Free) {
		r := s.st.Borrow(free)
		if r.running && r.current != none {
			id, ok = s.slots[r.current].id, true
		}
	})
	return id, ok
}

// Parent returns the thread that spawned the running thread, if it was
// spawned from inside the ring.
func (s *Scheduler) Parent() (ID, bool) {
	var (
		id ID
		ok bool
	)
	irq.Do(func(free irq.Free) {
		r := s.st.Borrow(free)
		if r.running && r.current != none {
			t := &s.slots[r.current]
			id, ok = t.parent, t.hasParent
		}
	})
	return id, ok
}

// Len returns the number of live threads.
func (s *Scheduler) Len() int {
	return irq.Without(func(free irq.Free) int {
		return s.st.Borrow(free).count
	})
}

func (s *Scheduler) start(i int32) {
	s.reap()
	s.slots[i].entry()
	s.exit(i)
}

// exit unlinks thread i and enters the next thread, or the idle context
// when i was the last one. It does not return on hardware.
func (s *Scheduler) exit(i int32) {
	var to *hal.Context
	irq.Do(func(free irq.Free) {
		r := s.st.Borrow(free)
		t := &s.slots[i]
		if t.next == i {
			r.current = none
			to = &s.idle
		} else {
			s.slots[t.prev].next = t.next
			s.slots[t.next].prev = t.prev
			r.current = t.next
			to = &s.slots[t.next].ctx
		}
		t.prev, t.next = none, none
		r.count--
		r.zombie = i
	})
	hal.Enter(to)
}

// reap releases the stack and slot of a thread that exited. It runs on the
// context that exit entered, after the dead thread's stack is out of use.
func (s *Scheduler) reap() {
	z := irq.Without(func(free irq.Free) int32 {
		r := s.st.Borrow(free)
		z := r.zombie
		r.zombie = none
		return z
	})
	if z == none {
		return
	}
	t := &s.slots[z]
	s.heap.Free(t.stack)
	t.stack = nil
	t.entry = nil
	s.ids.Free(uint32(z))
}
