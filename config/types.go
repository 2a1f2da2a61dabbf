package config

// SourceHardware names the backing hardware timer as a clock source
const SourceHardware = "hw"

// Conversion methods for derived clocks
const (
	ConvertAuto  = ""      // shift when the ratio is a power of two, else frac
	ConvertFrac  = "frac"  // core.ConvertFrac
	ConvertShift = "shift" // core.ConvertShift
)

// Profile describes the clock tree of a board
type Profile struct {
	Board  string                  `json:"board"`
	Clocks map[string]ClockProfile `json:"clocks"`
}

// ClockProfile describes one clock of the tree
type ClockProfile struct {
	Source      string `json:"source"`            // SourceHardware or another clock's name
	Freq        uint32 `json:"freq"`              // Hz
	Convert     string `json:"convert,omitempty"` // conversion from the source clock
	AdjustSet   uint32 `json:"adjust_set"`        // ticks subtracted from every Set
	AdjustSleep uint32 `json:"adjust_sleep"`      // ticks additionally subtracted by Sleep
	Wide        bool   `json:"wide"`              // also provide a 64-bit clock

	// Compensation of the 64-bit clock. Its base timer is armed without
	// AdjustSet, so it is calibrated on its own.
	WideAdjustSet   uint32 `json:"wide_adjust_set,omitempty"`
	WideAdjustSleep uint32 `json:"wide_adjust_sleep,omitempty"`
}
