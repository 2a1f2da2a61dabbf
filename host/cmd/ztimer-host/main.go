package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ztimer/trace"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
	profile = flag.String("profile", "", "Clock profile JSON (default: microsecond hardware timer)")
	write   = flag.String("write", "", "Write the calibrated profile to this file")
	out     = flag.String("out", "", "Write calibration trace frames to this file")
	rounds  = flag.Int("rounds", 10, "Measurements per clock")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *verbose {
		trace.SetDebugWriter(func(s string) { fmt.Fprintln(os.Stderr, s) })
		trace.SetDebugEnabled(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch flag.Arg(0) {
	case "monitor":
		err = monitor(ctx, *device, *baud, os.Stdout)
	case "calibrate":
		err = calibrate(ctx, *profile, *rounds, os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ztimer-host [flags] monitor|calibrate")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	fmt.Fprintln(os.Stderr, "  monitor    - Print timer trace events streamed by a device")
	fmt.Fprintln(os.Stderr, "  calibrate  - Measure set/sleep overhead of the host clocks")
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
}
