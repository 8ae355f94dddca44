package app

import (
	"errors"
	"strings"
	"testing"

	"rvcore/core/fault"
	"rvcore/hal"
)

func TestParseBootArgs(t *testing.T) {
	cfg, err := ParseBootArgs(`demo=threads monitor=0 period=25 stack="4096"`)
	if err != nil {
		t.Fatalf("ParseBootArgs() error = %v", err)
	}
	if len(cfg.Demos) != 1 || cfg.Demos[0] != "threads" {
		t.Fatalf("Demos = %v, want [threads]", cfg.Demos)
	}
	if cfg.Monitor {
		t.Fatal("Monitor = true, want false")
	}
	if cfg.MonitorPeriod != 25 || cfg.StackBytes != 4096 {
		t.Fatalf("MonitorPeriod, StackBytes = %d, %d, want 25, 4096", cfg.MonitorPeriod, cfg.StackBytes)
	}
}

func TestParseBootArgsDefaults(t *testing.T) {
	cfg, err := ParseBootArgs("")
	if err != nil {
		t.Fatalf("ParseBootArgs() error = %v", err)
	}
	if strings.Join(cfg.Demos, ",") != "tasks,threads" || !cfg.Monitor {
		t.Fatalf("ParseBootArgs(\"\") = %+v, want both demos and the monitor", cfg)
	}
}

func TestParseBootArgsErrors(t *testing.T) {
	for _, args := range []string{
		"demo=nope",
		"monitor",
		"threads=-1",
		"colour=blue",
		`demo="tasks`,
	} {
		if _, err := ParseBootArgs(args); !errors.Is(err, ErrBadBootArg) {
			t.Fatalf("ParseBootArgs(%q) error = %v, want %v", args, err, ErrBadBootArg)
		}
	}
}

type memFB struct {
	w, h    int
	buf     []byte
	present int
}

func (f *memFB) Width() int              { return f.w }
func (f *memFB) Height() int             { return f.h }
func (f *memFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *memFB) StrideBytes() int        { return f.w * 2 }
func (f *memFB) Buffer() []byte          { return f.buf }
func (f *memFB) ClearRGB(r, g, b uint8) {
	for i := range f.buf {
		f.buf[i] = 0xFF
	}
}
func (f *memFB) Present() error { f.present++; return nil }

type memDisplay struct{ fb *memFB }

func (d memDisplay) Framebuffer() hal.Framebuffer { return d.fb }

func TestRunDemos(t *testing.T) {
	sim := hal.NewSim(hal.SimConfig{})
	fb := &memFB{w: 240, h: 120, buf: make([]byte, 240*120*2)}
	var log hal.MemLogger
	p := hal.NewSimPlatform(sim, &log, memDisplay{fb: fb}, 64<<10)

	cfg, err := ParseBootArgs("demo=tasks,threads monitor=1 period=2")
	if err != nil {
		t.Fatalf("ParseBootArgs() error = %v", err)
	}
	if err := Run(p, cfg); err != nil {
		t.Fatalf("Run() error = %v\nlog:\n%s", err, strings.Join(log.Lines(), "\n"))
	}

	all := strings.Join(log.Lines(), "\n")
	for _, want := range []string{"tasks: completed A,C,B", "threads: counter=24 order=ababab", "monitor: ", "done: "} {
		if !strings.Contains(all, want) {
			t.Fatalf("log missing %q:\n%s", want, all)
		}
	}
	if fb.present == 0 {
		t.Fatal("framebuffer never presented")
	}
}

func TestFaultLinesAndScreen(t *testing.T) {
	lines := faultLines(fault.Info{Kind: fault.KindUnhandledInterrupt, Code: 11, Stack: []byte("a\n\nb\n")})
	want := []string{"rvcore fault:", "kind: unhandled interrupt", "code: 11", "stack:", "a", "b"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("faultLines() = %q, want %q", lines, want)
	}

	fb := &memFB{w: 64, h: 30, buf: make([]byte, 64*30*2)}
	paintFault(memDisplay{fb: fb}, lines)
	if fb.present != 1 {
		t.Fatalf("Present() calls = %d, want 1", fb.present)
	}
}

func TestTakeRunes(t *testing.T) {
	prefix, rest := takeRunes("héllo", 2)
	if prefix != "hé" || rest != "llo" {
		t.Fatalf("takeRunes() = %q, %q, want %q, %q", prefix, rest, "hé", "llo")
	}
}
