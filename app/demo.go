package app

import (
	"errors"
	"fmt"
	"strings"

	"rvcore/core/rt"
	"rvcore/core/task"
	"rvcore/hal"
)

var ErrDemoFailed = errors.New("demo failed")

type demo func(log hal.Logger, cfg Config) error

var demos = map[string]demo{
	"tasks":   demoTasks,
	"threads": demoThreads,
}

// demoTasks spawns A and C; A spawns B, which stays pending until a timer
// callback five ticks later wakes it.
func demoTasks(log hal.Logger, _ Config) error {
	var (
		done  []string
		woken bool
		armed bool
	)
	b := task.FutureFunc(func(cx *task.Context) task.Poll {
		if woken {
			done = append(done, "B")
			return task.Ready
		}
		if !armed {
			armed = true
			w := cx.Waker().Clone()
			rt.WaitThenCall(5, func() {
				woken = true
				w.Wake()
				w.Release()
			})
		}
		return task.Pending
	})

	start := rt.Now()
	err := rt.Scope(func(s *task.Scope) {
		s.Spawn(task.FutureFunc(func(cx *task.Context) task.Poll {
			if err := cx.Spawn(b); err != nil {
				log.WriteLineString("tasks: spawn B: " + err.Error())
			}
			done = append(done, "A")
			return task.Ready
		}))
		s.Spawn(task.FutureFunc(func(*task.Context) task.Poll {
			done = append(done, "C")
			return task.Ready
		}))
	})
	if err != nil {
		return err
	}

	elapsed := rt.Now() - start
	log.WriteLineString(fmt.Sprintf("tasks: completed %s after %d ticks", strings.Join(done, ","), elapsed))
	if len(done) != 3 || done[2] != "B" || elapsed < 5 {
		return fmt.Errorf("%w: tasks finished as %v after %d ticks", ErrDemoFailed, done, elapsed)
	}
	return nil
}

// demoThreads runs two threads that each add a fixed amount to a shared
// counter and pause three times.
func demoThreads(log hal.Logger, cfg Config) error {
	const a, b = 3, 5
	counter := 0
	var order []string
	for _, w := range []struct {
		name string
		add  int
	}{{"a", a}, {"b", b}} {
		w := w
		_, err := rt.SpawnThread(func() {
			for i := 0; i < 3; i++ {
				counter += w.add
				order = append(order, w.name)
				rt.PauseThread()
			}
		}, rt.StackConfig{Size: cfg.StackBytes})
		if err != nil {
			return fmt.Errorf("threads: %w", err)
		}
	}
	rt.RunThreads()

	got := strings.Join(order, "")
	log.WriteLineString(fmt.Sprintf("threads: counter=%d order=%s", counter, got))
	if counter != 3*(a+b) || got != "ababab" {
		return fmt.Errorf("%w: counter=%d order=%s", ErrDemoFailed, counter, got)
	}
	return nil
}
