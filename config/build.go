package config

import (
	"fmt"
	"sort"

	"ztimer/core"
	"ztimer/trace"
	"ztimer/ztimer64"
)

// Clocks is a built clock tree
type Clocks struct {
	names  []string
	clocks map[string]*core.Clock
	wide   map[string]*ztimer64.Clock
}

// Build creates the clocks of p on hw. Clock IDs in trace events follow the
// sorted clock names. tracer may be nil.
func (p *Profile) Build(hw core.TimerDriver, tracer trace.Recorder) (*Clocks, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if hw == nil {
		return nil, fmt.Errorf("config: nil hardware timer")
	}

	names := make([]string, 0, len(p.Clocks))
	for name := range p.Clocks {
		names = append(names, name)
	}
	sort.Strings(names)

	b := &builder{
		profile: p,
		hw:      hw,
		tracer:  tracer,
		ids:     make(map[string]uint8, len(names)),
		out: &Clocks{
			names:  names,
			clocks: make(map[string]*core.Clock, len(names)),
			wide:   make(map[string]*ztimer64.Clock),
		},
	}
	for i, name := range names {
		b.ids[name] = uint8(i)
	}
	for _, name := range names {
		if err := b.build(name); err != nil {
			return nil, err
		}
	}
	return b.out, nil
}

type builder struct {
	profile *Profile
	hw      core.TimerDriver
	tracer  trace.Recorder
	ids     map[string]uint8
	out     *Clocks
}

func (b *builder) build(name string) error {
	if _, ok := b.out.clocks[name]; ok {
		return nil
	}
	cp := b.profile.Clocks[name]
	cfg := &core.ClockConfig{
		AdjustSet:   cp.AdjustSet,
		AdjustSleep: cp.AdjustSleep,
		ID:          b.ids[name],
		Tracer:      b.tracer,
	}

	var drv core.TimerDriver
	if cp.Source == SourceHardware {
		drv = b.hw
	} else {
		if err := b.build(cp.Source); err != nil {
			return err
		}
		source := b.profile.Clocks[cp.Source]
		lower := b.out.clocks[cp.Source]
		shift, err := conversion(cp, source)
		if err != nil {
			return fmt.Errorf("clock %q: %w", name, err)
		}
		if shift > 0 {
			drv = core.NewConvertShift(lower, shift)
		} else {
			drv = core.NewConvertFrac(lower, cp.Freq, source.Freq)
		}
	}

	clock := core.NewClock(drv, cfg)
	b.out.clocks[name] = clock
	if cp.Wide {
		b.out.wide[name] = ztimer64.NewClock(clock, &ztimer64.Config{
			AdjustSet:   cp.WideAdjustSet,
			AdjustSleep: cp.WideAdjustSleep,
			ID:          b.ids[name],
			Tracer:      b.tracer,
		})
	}
	trace.Debugf("[CLOCK] %s: %d Hz from %s", name, cp.Freq, cp.Source)
	return nil
}

// Names returns the clock names, sorted
func (c *Clocks) Names() []string {
	return c.names
}

// Clock returns the 32-bit clock called name, or nil
func (c *Clocks) Clock(name string) *core.Clock {
	return c.clocks[name]
}

// Wide returns the 64-bit clock called name, or nil if the profile does not
// mark it wide
func (c *Clocks) Wide(name string) *ztimer64.Clock {
	return c.wide[name]
}
