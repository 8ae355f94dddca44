package task

import (
	"sync/atomic"

	"rvcore/core/lockfree"
)

// Scope tracks the tasks spawned through it.
type Scope struct {
	ex   *Executor
	live atomic.Int32
}

// Scope calls fn, then runs the executor until every task spawned through
// the scope (and every task those spawned) has completed. Other tasks keep
// running meanwhile but are not waited for. It cannot be called from inside
// a task.
func (e *Executor) Scope(fn func(s *Scope)) error {
	if e.running {
		return ErrReentered
	}
	s := &Scope{ex: e}
	fn(s)
	return e.run(func() bool { return s.live.Load() == 0 })
}

// Spawn starts f as a task of the scope.
func (s *Scope) Spawn(f Future) error {
	return s.ex.spawn(f, s)
}

// Live returns the number of the scope's tasks that have not completed.
func (s *Scope) Live() int { return int(s.live.Load()) }

// Handle receives the result of a task started with SpawnValue.
type Handle[T any] struct {
	res lockfree.Option[T]
}

// Take returns the result once the task has completed.
func (h *Handle[T]) Take() (T, bool) { return h.res.Take() }

// Done reports whether a result is waiting.
func (h *Handle[T]) Done() bool { return h.res.IsSome() }

// SpawnValue starts f in scope s and publishes its result through the
// returned handle. f is not polled again once it has returned Ready.
func SpawnValue[T any](s *Scope, f func(cx *Context) (T, Poll)) (*Handle[T], error) {
	h := &Handle[T]{}
	var (
		v    T
		done bool
	)
	err := s.Spawn(FutureFunc(func(cx *Context) Poll {
		if !done {
			var p Poll
			if v, p = f(cx); p == Pending {
				return Pending
			}
			done = true
		}
		if _, err := h.res.Insert(v); err != nil {
			// The slot is borrowed by a reader; publish on the next poll.
			cx.Waker().Wake()
			return Pending
		}
		return Ready
	}))
	if err != nil {
		return nil, err
	}
	return h, nil
}
