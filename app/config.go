package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// DefaultBootArgs is parsed before any arguments given at run time. Set it
// at link time with -ldflags "-X rvcore/app.DefaultBootArgs=...".
var DefaultBootArgs = "demo=tasks,threads monitor=1"

var ErrBadBootArg = errors.New("bad boot argument")

// Config selects what runs after boot and sizes the runtime.
type Config struct {
	Demos         []string
	Monitor       bool
	MonitorPeriod uint64
	Console       bool

	MaxThreads int
	MaxTasks   int
	SpawnQueue int
	StackBytes int
}

// DefaultConfig returns the configuration before any boot arguments apply.
func DefaultConfig() Config {
	return Config{
		MonitorPeriod: 10,
		Console:       true,
		MaxThreads:    8,
		MaxTasks:      32,
		SpawnQueue:    16,
		StackBytes:    2048,
	}
}

// ParseBootArgs applies DefaultBootArgs and then args to DefaultConfig.
func ParseBootArgs(args string) (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.Apply(DefaultBootArgs); err != nil {
		return cfg, fmt.Errorf("default boot args: %w", err)
	}
	if err := cfg.Apply(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Apply parses a shell-quoted list of key=value pairs into c.
func (c *Config) Apply(args string) error {
	words, err := shlex.Split(args)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadBootArg, err)
	}
	for _, w := range words {
		key, val, ok := strings.Cut(w, "=")
		if !ok {
			return fmt.Errorf("%w: %q is not key=value", ErrBadBootArg, w)
		}
		if err := c.set(key, val); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBadBootArg, key, err)
		}
	}
	return nil
}

func (c *Config) set(key, val string) error {
	switch key {
	case "demo":
		c.Demos = c.Demos[:0]
		for _, d := range strings.Split(val, ",") {
			if d = strings.TrimSpace(d); d != "" && d != "none" {
				if _, ok := demos[d]; !ok {
					return fmt.Errorf("unknown demo %q", d)
				}
				c.Demos = append(c.Demos, d)
			}
		}
		return nil
	case "monitor":
		return setBool(&c.Monitor, val)
	case "console":
		return setBool(&c.Console, val)
	case "period":
		n, err := strconv.ParseUint(val, 0, 64)
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.New("must be positive")
		}
		c.MonitorPeriod = n
		return nil
	case "threads":
		return setInt(&c.MaxThreads, val)
	case "tasks":
		return setInt(&c.MaxTasks, val)
	case "queue":
		return setInt(&c.SpawnQueue, val)
	case "stack":
		return setInt(&c.StackBytes, val)
	default:
		return errors.New("unknown key")
	}
}

func setBool(dst *bool, val string) error {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setInt(dst *int, val string) error {
	n, err := strconv.Atoi(val)
	if err != nil {
		return err
	}
	if n <= 0 {
		return errors.New("must be positive")
	}
	*dst = n
	return nil
}
