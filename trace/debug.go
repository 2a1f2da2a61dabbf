package trace

import "fmt"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

var (
	// debugPrintln is set by platform code; no-op by default
	debugPrintln DebugWriter = func(string) {}

	// debugEnabled gates DebugPrintln. Off by default so timing
	// measurements are not disturbed.
	debugEnabled bool
)

// SetDebugWriter sets the platform-specific debug output function, e.g. a
// UART or USB CDC writer on targets and os.Stderr on hosts
func SetDebugWriter(writer DebugWriter) {
	if writer == nil {
		writer = func(string) {}
	}
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes msg through the debug writer if debug is enabled
func DebugPrintln(msg string) {
	if debugEnabled {
		debugPrintln(msg)
	}
}

// Debugf formats and writes a debug message if debug is enabled
func Debugf(format string, args ...any) {
	if debugEnabled {
		debugPrintln(fmt.Sprintf(format, args...))
	}
}
