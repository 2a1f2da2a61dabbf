// Package config loads board clock profiles and builds the clock tree they
// describe on top of a hardware timer.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrNoClocks      = errors.New("profile defines no clocks")
	ErrNoHardware    = errors.New("no clock runs on the hardware timer")
	ErrHardwareInUse = errors.New("more than one clock runs on the hardware timer")
	ErrUnknownSource = errors.New("unknown source clock")
	ErrCycle         = errors.New("clock sources form a cycle")
	ErrFrequency     = errors.New("invalid frequency")
	ErrConvert       = errors.New("invalid conversion")
)

// ParseProfile parses a JSON profile and applies defaults
func ParseProfile(jsonData []byte) (*Profile, error) {
	var profile Profile

	err := json.Unmarshal(jsonData, &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	applyDefaults(&profile)

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// LoadProfile reads and parses a JSON profile file
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return ParseProfile(data)
}

// Save writes the profile as indented JSON
func (p *Profile) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// applyDefaults fills in missing values
func applyDefaults(p *Profile) {
	if p.Board == "" {
		p.Board = "generic"
	}
	for name, clock := range p.Clocks {
		if clock.Source == "" {
			clock.Source = SourceHardware
		}
		p.Clocks[name] = clock
	}
}

// Validate checks that every source exists, that the sources form a tree
// rooted at the hardware timer and that every conversion is possible
func (p *Profile) Validate() error {
	if len(p.Clocks) == 0 {
		return ErrNoClocks
	}
	hardware := 0
	for name, clock := range p.Clocks {
		if name == SourceHardware {
			return fmt.Errorf("clock name %q is reserved", name)
		}
		if clock.Freq == 0 {
			return fmt.Errorf("clock %q: %w", name, ErrFrequency)
		}
		switch clock.Convert {
		case ConvertAuto, ConvertFrac, ConvertShift:
		default:
			return fmt.Errorf("clock %q: %w: %q", name, ErrConvert, clock.Convert)
		}
		if clock.Source == SourceHardware {
			hardware++
			continue
		}
		source, ok := p.Clocks[clock.Source]
		if !ok {
			return fmt.Errorf("clock %q: %w %q", name, ErrUnknownSource, clock.Source)
		}
		if _, err := conversion(clock, source); err != nil {
			return fmt.Errorf("clock %q: %w", name, err)
		}
	}
	switch {
	case hardware == 0:
		return ErrNoHardware
	case hardware > 1:
		return ErrHardwareInUse
	}
	for name := range p.Clocks {
		seen := map[string]bool{}
		for cur := name; cur != SourceHardware; cur = p.Clocks[cur].Source {
			if seen[cur] {
				return fmt.Errorf("clock %q: %w", name, ErrCycle)
			}
			seen[cur] = true
		}
	}
	return nil
}

// conversion picks how clock is derived from source. For shift it also
// returns the shift amount.
func conversion(clock, source ClockProfile) (uint, error) {
	if clock.Freq == source.Freq {
		return 0, fmt.Errorf("%w: same frequency as source", ErrConvert)
	}
	shift, isShift := shiftOf(source.Freq, clock.Freq)
	switch clock.Convert {
	case ConvertShift:
		if !isShift {
			return 0, fmt.Errorf("%w: %d Hz from %d Hz is not a power-of-two division", ErrConvert, clock.Freq, source.Freq)
		}
		return shift, nil
	case ConvertAuto:
		if isShift {
			return shift, nil
		}
	}
	return 0, nil
}

func shiftOf(from, to uint32) (uint, bool) {
	if to >= from || from%to != 0 {
		return 0, false
	}
	ratio := from / to
	if ratio&(ratio-1) != 0 {
		return 0, false
	}
	shift := uint(0)
	for ratio > 1 {
		ratio >>= 1
		shift++
	}
	return shift, true
}

// DefaultProfile returns a profile with a microsecond clock on a hardware
// timer running at hwFreq, plus millisecond and second clocks derived from
// it. The microsecond and millisecond clocks are also 64 bit.
func DefaultProfile(hwFreq uint32) *Profile {
	usec := ClockProfile{Source: SourceHardware, Freq: hwFreq, Wide: true}
	if hwFreq != 1000000 {
		// keep a raw hardware clock and derive microseconds from it
		return &Profile{
			Board: "generic",
			Clocks: map[string]ClockProfile{
				"raw":  {Source: SourceHardware, Freq: hwFreq},
				"usec": {Source: "raw", Freq: 1000000, Wide: true},
				"msec": {Source: "usec", Freq: 1000, Wide: true},
				"sec":  {Source: "msec", Freq: 1},
			},
		}
	}
	return &Profile{
		Board: "generic",
		Clocks: map[string]ClockProfile{
			"usec": usec,
			"msec": {Source: "usec", Freq: 1000, Wide: true},
			"sec":  {Source: "msec", Freq: 1},
		},
	}
}
