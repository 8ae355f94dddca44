package task

import "sync/atomic"

const (
	stateAwake uint32 = iota
	statePending
	statePolling
	stateComplete
)

type cell struct {
	state atomic.Uint32
	refs  atomic.Int32
}

// Waker marks a task runnable. It may be used from interrupt handlers.
//
// Every Waker obtained from Clone holds a reference to the task's state
// cell and must be given back with Release.
type Waker struct {
	c *cell
}

// Clone returns a new reference to the same task.
func (w Waker) Clone() Waker {
	if w.c != nil {
		w.c.refs.Add(1)
	}
	return w
}

// Wake marks the task awake so the executor polls it again. Waking a task
// that has completed does nothing.
func (w Waker) Wake() {
	if w.c == nil {
		return
	}
	for {
		s := w.c.state.Load()
		if s == stateAwake || s == stateComplete {
			return
		}
		if w.c.state.CompareAndSwap(s, stateAwake) {
			return
		}
	}
}

// Release drops this reference.
func (w Waker) Release() {
	if w.c != nil {
		w.c.refs.Add(-1)
	}
}
