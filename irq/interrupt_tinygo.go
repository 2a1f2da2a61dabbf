//go:build tinygo

package irq

import "runtime/interrupt"

// State is the saved interrupt state returned by Disable
type State = interrupt.State

// Lock masks all interrupts for the duration of a critical section.
// Nested Disable/Restore pairs are allowed.
type Lock struct{}

// Disable disables interrupts and returns the previous state
func (l *Lock) Disable() State {
	return interrupt.Disable()
}

// Restore restores the interrupt state
func (l *Lock) Restore(state State) {
	interrupt.Restore(state)
}

// InInterrupt reports whether the caller runs in interrupt context
func InInterrupt() bool {
	return interrupt.In()
}
