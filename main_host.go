//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"rvcore/app"
	"rvcore/hal"
)

func main() {
	var (
		headless hal.HeadlessConfig
		window   hal.WindowConfig
		bootArgs string
		heapKB   uint
	)
	flag.BoolVar(&headless.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&headless.Hz, "hz", 1000, "Timer ticks per second.")
	flag.Uint64Var(&headless.Ticks, "ticks", 0, "Stop after N steps in headless mode (0 = until the demos finish).")
	flag.StringVar(&bootArgs, "bootargs", "", "Boot arguments, e.g. \"demo=tasks monitor=1 period=20\".")
	flag.UintVar(&heapKB, "heap", 1024, "Heap size in KiB for thread stacks.")
	flag.Parse()

	cfg, err := app.ParseBootArgs(bootArgs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	headless.HeapBytes = uintptr(heapKB) << 10
	window.HeapBytes = headless.HeapBytes
	window.Hz = headless.Hz

	run := func(p hal.Platform) error { return app.Run(p, cfg) }

	if headless.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, run, headless); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(run, window); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
