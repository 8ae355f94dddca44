// Package timer keeps a per-hart queue of callbacks ordered by the tick at
// which they are due, and drives the machine timer compare register from
// the front of that queue.
package timer

import (
	"sort"
	"sync/atomic"

	"rvcore/core/hart"
	"rvcore/core/irq"
	"rvcore/hal"
)

// Result tells the queue what to do with a callback after it ran.
type Result struct {
	again bool
	delay uint64
}

// Done drops the callback.
func Done() Result { return Result{} }

// Again schedules the callback to run again delay ticks after the time it
// was handed.
func Again(delay uint64) Result { return Result{again: true, delay: delay} }

// Callback runs in interrupt context. now is the tick the handler read on
// entry.
type Callback func(now uint64, free irq.Free) Result

type entry struct {
	target uint64
	cb     Callback
}

type state struct {
	entries []entry
	staged  []entry
}

// Queue is one hart's timer callback queue.
type Queue struct {
	timer hal.Timer
	intc  hal.IntC

	enabled atomic.Bool
	fired   atomic.Uint64
	st      hart.Cell[state]
}

// New returns an empty queue driving t. The timer interrupt is enabled on
// ic the first time a callback is queued.
func New(t hal.Timer, ic hal.IntC) *Queue {
	q := &Queue{timer: t, intc: ic}
	irq.Do(func(free irq.Free) {
		st := q.st.Borrow(free)
		st.entries = make([]entry, 0, 16)
		t.SetCompare(hal.CompareDisabled)
	})
	return q
}

// Wait queues cb to run once duration ticks have elapsed.
func (q *Queue) Wait(duration uint64, cb Callback) {
	if q.enabled.CompareAndSwap(false, true) {
		q.intc.Enable(hal.CodeTimer)
	}
	irq.Do(func(free irq.Free) {
		st := q.st.Borrow(free)
		target := addTicks(q.timer.Now(), duration)
		if insert(st, entry{target: target, cb: cb}) == 0 {
			q.timer.SetCompare(target)
		}
	})
}

// Handle is the machine timer interrupt handler.
func (q *Queue) Handle(_ uint32, free irq.Free) {
	st := q.st.Borrow(free)
	now := q.timer.Now()

	for len(st.entries) > 0 && st.entries[0].target <= now {
		e := st.entries[0]
		copy(st.entries, st.entries[1:])
		st.entries[len(st.entries)-1] = entry{}
		st.entries = st.entries[:len(st.entries)-1]

		q.fired.Add(1)
		if r := e.cb(now, free); r.again {
			st.staged = append(st.staged, entry{target: addTicks(now, r.delay), cb: e.cb})
		}
	}
	for i := range st.staged {
		insert(st, st.staged[i])
		st.staged[i] = entry{}
	}
	st.staged = st.staged[:0]

	if len(st.entries) > 0 {
		q.timer.SetCompare(st.entries[0].target)
	} else {
		q.timer.SetCompare(hal.CompareDisabled)
	}
}

// Len returns the number of queued callbacks.
func (q *Queue) Len(free irq.Free) int {
	return len(q.st.Borrow(free).entries)
}

// Next returns the tick at which the front callback is due.
func (q *Queue) Next(free irq.Free) (uint64, bool) {
	st := q.st.Borrow(free)
	if len(st.entries) == 0 {
		return 0, false
	}
	return st.entries[0].target, true
}

// Fired returns how many callbacks have run.
func (q *Queue) Fired() uint64 { return q.fired.Load() }

// insert places e after every entry with the same or an earlier target and
// returns its index.
func insert(st *state, e entry) int {
	i := sort.Search(len(st.entries), func(i int) bool {
		return st.entries[i].target > e.target
	})
	st.entries = append(st.entries, entry{})
	copy(st.entries[i+1:], st.entries[i:])
	st.entries[i] = e
	return i
}

// addTicks saturates one below CompareDisabled so a far deadline never
// reads as "no deadline".
func addTicks(now, d uint64) uint64 {
	t := now + d
	if t < now || t == hal.CompareDisabled {
		return hal.CompareDisabled - 1
	}
	return t
}
