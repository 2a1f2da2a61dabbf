//go:build !tinygo

package irq

import "sync"

// State is the saved interrupt state returned by Disable
type State uintptr

// Lock guards one timer list. Hosted builds have no interrupts to mask, so
// each Lock is a plain mutex and critical sections on different clocks do
// not exclude each other.
type Lock struct {
	mu sync.Mutex
}

// Disable enters the critical section
func (l *Lock) Disable() State {
	l.mu.Lock()
	return 0
}

// Restore leaves the critical section entered by Disable
func (l *Lock) Restore(state State) {
	l.mu.Unlock()
}

// InInterrupt reports whether the caller runs in interrupt context.
// Always false on hosted builds.
func InInterrupt() bool {
	return false
}
