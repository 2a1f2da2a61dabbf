package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"ztimer/config"
	"ztimer/core"
	"ztimer/periph/hosttimer"
	"ztimer/trace"
	"ztimer/ztimer64"
)

// minCalibrateFreq is the slowest clock worth measuring; coarser clocks
// would take seconds per round and show no overhead anyway
const minCalibrateFreq = 1000

// calibrate builds the profile's clocks on a host timer, measures the set
// and sleep overhead of each and stores the results as adjust values
func calibrate(ctx context.Context, path string, rounds int, w io.Writer) error {
	if rounds < 1 {
		return fmt.Errorf("rounds must be at least 1")
	}
	p, err := loadProfile(path)
	if err != nil {
		return err
	}

	hw, err := hardwareFreq(p)
	if err != nil {
		return err
	}
	timer := hosttimer.New(hw)
	timer.Start()
	defer timer.Stop()

	var ring trace.Ring
	clocks, err := p.Build(timer, &ring)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Calibrating %s (%d rounds)\n", p.Board, rounds)
	for _, name := range clocks.Names() {
		cp := p.Clocks[name]
		if cp.Freq < minCalibrateFreq {
			fmt.Fprintf(w, "  %-8s %10d Hz  skipped\n", name, cp.Freq)
			continue
		}
		set, sleep, err := measure(ctx, clocks.Clock(name), cp.Freq/100, rounds)
		if err != nil {
			return err
		}
		cp.AdjustSet = clampAdjust(set)
		cp.AdjustSleep = clampAdjust(sleep)
		fmt.Fprintf(w, "  %-8s %10d Hz  set %+d  sleep %+d\n", name, cp.Freq, set, sleep)

		if wide := clocks.Wide(name); wide != nil {
			wset, err := measureWide(ctx, wide, uint64(cp.Freq/100), rounds)
			if err != nil {
				return err
			}
			// the sleep path below Set is shared with the base clock
			cp.WideAdjustSet = clampAdjust(wset)
			cp.WideAdjustSleep = cp.AdjustSleep
			fmt.Fprintf(w, "  %-8s %10s     set %+d (64 bit)\n", name, "", wset)
		}
		p.Clocks[name] = cp
	}

	if *out != "" {
		if err := writeTrace(&ring, *out); err != nil {
			return err
		}
	}
	if *write != "" {
		if err := p.Save(*write); err != nil {
			return err
		}
		fmt.Fprintf(w, "Profile written to %s\n", *write)
	}
	return nil
}

func loadProfile(path string) (*config.Profile, error) {
	if path == "" {
		return config.DefaultProfile(1000000), nil
	}
	return config.LoadProfile(path)
}

func hardwareFreq(p *config.Profile) (uint32, error) {
	for _, cp := range p.Clocks {
		if cp.Source == config.SourceHardware {
			return cp.Freq, nil
		}
	}
	return 0, config.ErrNoHardware
}

// measure averages the overhead of rounds timers of base ticks. The sleep
// measurement keeps the set adjustment found in the first pass applied.
func measure(ctx context.Context, c *core.Clock, base uint32, rounds int) (set, sleep int32, err error) {
	var sum int64
	for range rounds {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		sum += int64(core.OverheadSet(c, base))
	}
	set = int32(sum / int64(rounds))

	_, adjustSleep := c.Adjust()
	c.SetAdjust(clampAdjust(set), adjustSleep)

	sum = 0
	for range rounds {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		sum += int64(core.OverheadSleep(c, base))
	}
	return set, int32(sum / int64(rounds)), nil
}

// measureWide averages the set overhead of a 64-bit clock
func measureWide(ctx context.Context, c *ztimer64.Clock, base uint64, rounds int) (int32, error) {
	var sum int64
	for range rounds {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		sum += ztimer64.Overhead(c, base)
	}
	return int32(sum / int64(rounds)), nil
}

func clampAdjust(v int32) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}

func writeTrace(ring *trace.Ring, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	if _, err := ring.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return f.Close()
}
