// Package app boots the runtime on a platform and runs the configured
// demos with the console and monitor services around them.
package app

import (
	"fmt"
	"sync/atomic"

	"rvcore/core/rt"
	"rvcore/hal"
	"rvcore/internal/buildinfo"
	"rvcore/services/console"
	"rvcore/services/display"
	"rvcore/services/monitor"
)

// Run boots the calling hart and runs cfg.Demos in order. It returns once
// the demos and the services started for them have finished.
func Run(p hal.Platform, cfg Config) error {
	log := p.Logger()

	var (
		con      *console.Console
		monBand  *display.FB
		stopping atomic.Bool
	)
	if fb := framebuffer(p); fb != nil {
		h := fb.Height()
		if cfg.Console {
			con = console.New(log, display.Band(fb, 0, h-monitor.Height))
			log = con
		}
		monBand = display.Band(fb, h-monitor.Height, monitor.Height)
	}
	installFaultHandler(p, log)

	id, err := rt.Boot(p, rt.Config{
		MaxThreads: cfg.MaxThreads,
		MaxTasks:   cfg.MaxTasks,
		SpawnQueue: cfg.SpawnQueue,
	})
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	log.WriteLineString("rvcore " + buildinfo.String())
	log.WriteLineString(fmt.Sprintf("hart %d up, demos %v", id, cfg.Demos))

	var mon *monitor.Monitor
	if cfg.Monitor {
		mon = monitor.New(monBand, log, rt.ReadStats)
		if err := rt.SpawnTask(mon.Task(cfg.MonitorPeriod, rt.WaitTicks)); err != nil {
			return fmt.Errorf("start monitor: %w", err)
		}
	}
	if con != nil {
		if err := rt.SpawnTask(con.Task(cfg.MonitorPeriod, rt.WaitTicks, stopping.Load)); err != nil {
			return fmt.Errorf("start console: %w", err)
		}
	}

	var demoErr error
	for _, name := range cfg.Demos {
		log.WriteLineString("demo: " + name)
		if err := demos[name](log, cfg); err != nil {
			log.WriteLineString(fmt.Sprintf("demo %s: %v", name, err))
			demoErr = err
			break
		}
	}

	stopping.Store(true)
	if mon != nil {
		mon.Stop()
	}
	if err := rt.WaitForAllTasks(); err != nil {
		return err
	}
	log.WriteLineString("done: " + monitor.Line(rt.ReadStats()))
	if con != nil {
		con.Flush()
	}
	return demoErr
}

func framebuffer(p hal.Platform) hal.Framebuffer {
	d := p.Display()
	if d == nil {
		return nil
	}
	fb := d.Framebuffer()
	if fb == nil || fb.Width() == 0 || fb.Height() <= monitor.Height {
		return nil
	}
	return fb
}
