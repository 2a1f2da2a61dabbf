// Package mock provides a backing timer driven entirely by the test: time
// only moves on Advance or Jump, and the alarm fires exactly when the
// accumulated advance reaches it.
package mock

import (
	"math"

	"ztimer/irq"
)

// Calls counts driver operations
type Calls struct {
	Now    int
	Set    int
	Cancel int
}

// Timer is a controllable count-up timer of configurable width
type Timer struct {
	lock    irq.Lock
	mask    uint32
	now     uint32
	target  uint32 // ticks left until the alarm fires
	armed   bool
	calls   Calls
	handler func()
}

// New creates a mock timer with a counter of the given width in bits
func New(width uint) *Timer {
	if width == 0 || width > 32 {
		panic("mock: width out of range")
	}
	return &Timer{mask: math.MaxUint32 >> (32 - width)}
}

// Now implements core.TimerDriver
func (m *Timer) Now() uint32 {
	state := m.lock.Disable()
	defer m.lock.Restore(state)
	m.calls.Now++
	return m.now
}

// Set implements core.TimerDriver
func (m *Timer) Set(offset uint32) {
	state := m.lock.Disable()
	defer m.lock.Restore(state)
	m.calls.Set++
	m.target = min(offset, m.mask)
	m.armed = true
}

// Cancel implements core.TimerDriver
func (m *Timer) Cancel() {
	state := m.lock.Disable()
	defer m.lock.Restore(state)
	m.calls.Cancel++
	m.armed = false
}

// MaxValue implements core.TimerDriver
func (m *Timer) MaxValue() uint32 {
	return m.mask
}

// Attach implements core.TimerDriver
func (m *Timer) Attach(handler func()) {
	state := m.lock.Disable()
	m.handler = handler
	m.lock.Restore(state)
}

// Advance moves time forward by val ticks, firing the alarm at the exact
// tick it is due. An alarm armed with offset 0 fires before time moves.
// The handler may re-arm; Advance keeps going until val is used up.
func (m *Timer) Advance(val uint32) {
	state := m.lock.Disable()
	for val > 0 {
		step := val
		if m.armed && m.target < step {
			step = m.target
		}
		m.now = (m.now + step) & m.mask
		val -= step
		if !m.armed {
			continue
		}
		m.target -= step
		if m.target == 0 {
			m.armed = false
			handler := m.handler
			m.lock.Restore(state)
			if handler != nil {
				handler()
			}
			state = m.lock.Disable()
		}
	}
	m.lock.Restore(state)
}

// Jump sets the counter to v without firing the alarm
func (m *Timer) Jump(v uint32) {
	state := m.lock.Disable()
	m.now = v & m.mask
	m.lock.Restore(state)
}

// Fire triggers the alarm now if it is armed
func (m *Timer) Fire() {
	state := m.lock.Disable()
	handler := m.handler
	armed := m.armed
	m.armed = false
	m.lock.Restore(state)
	if armed && handler != nil {
		handler()
	}
}

// Armed reports whether the alarm is armed
func (m *Timer) Armed() bool {
	state := m.lock.Disable()
	defer m.lock.Restore(state)
	return m.armed
}

// Target returns the ticks left until the alarm fires
func (m *Timer) Target() uint32 {
	state := m.lock.Disable()
	defer m.lock.Restore(state)
	return m.target
}

// Calls returns the operation counters
func (m *Timer) Calls() Calls {
	state := m.lock.Disable()
	defer m.lock.Restore(state)
	return m.calls
}
