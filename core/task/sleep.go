package task

import (
	"rvcore/core/irq"
	"rvcore/core/lockfree"
	"rvcore/core/timer"
)

type sleep struct {
	q     *timer.Queue
	ticks uint64
	armed bool
	fired lockfree.Option[struct{}]
}

// Sleep returns a future that becomes ready ticks after it is first
// polled.
func Sleep(q *timer.Queue, ticks uint64) Future {
	return &sleep{q: q, ticks: ticks}
}

func (s *sleep) Poll(cx *Context) Poll {
	if !s.armed {
		s.armed = true
		w := cx.Waker().Clone()
		s.q.Wait(s.ticks, func(uint64, irq.Free) timer.Result {
			s.fired.Insert(struct{}{})
			w.Wake()
			w.Release()
			return timer.Done()
		})
	}
	if _, ok := s.fired.Take(); ok {
		return Ready
	}
	return Pending
}

type then struct {
	f  Future
	fn func()
}

// Then returns a future that polls f and calls fn once f is ready.
func Then(f Future, fn func()) Future {
	return &then{f: f, fn: fn}
}

func (t *then) Poll(cx *Context) Poll {
	if t.f.Poll(cx) == Pending {
		return Pending
	}
	if t.fn != nil {
		t.fn()
	}
	return Ready
}

type repeat struct {
	next func() Future
	step func() bool
	cur  Future
}

// Repeat polls the futures produced by next one after another, calling
// step after each becomes ready, until step returns false.
func Repeat(next func() Future, step func() bool) Future {
	return &repeat{next: next, step: step}
}

func (r *repeat) Poll(cx *Context) Poll {
	for {
		if r.cur == nil {
			r.cur = r.next()
		}
		if r.cur.Poll(cx) == Pending {
			return Pending
		}
		r.cur = nil
		if !r.step() {
			return Ready
		}
	}
}
