// Package hosttimer is a backing timer for hosted builds. The counter is
// derived from a monotonic nanosecond clock and alarms are delivered from a
// runtime timer goroutine.
package hosttimer

import (
	"math"
	"sync"
	"time"

	"github.com/clipperhouse/ntime"
)

// Timer is a free-running 32-bit counter at a fixed frequency
type Timer struct {
	freq uint64

	mu      sync.Mutex
	start   ntime.Time
	alarm   *time.Timer
	gen     uint64 // invalidates alarms that were replaced or canceled
	running bool
	handler func()
}

// New creates a stopped timer ticking at freq Hz
func New(freq uint32) *Timer {
	if freq == 0 || freq > 1000000000 {
		panic("hosttimer: frequency out of range")
	}
	return &Timer{freq: uint64(freq)}
}

// Start starts the counter at 0
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.start = ntime.Now()
	t.running = true
}

// Stop disarms the alarm. Pending callbacks are dropped and the counter
// keeps its last value until the next Start.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.alarm != nil {
		t.alarm.Stop()
		t.alarm = nil
	}
	t.running = false
}

// Now implements core.TimerDriver
func (t *Timer) Now() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks()
}

func (t *Timer) ticks() uint32 {
	if !t.running {
		return 0
	}
	ns := uint64(ntime.Now().Sub(t.start))
	sec, rem := ns/1000000000, ns%1000000000
	return uint32(sec*t.freq + rem*t.freq/1000000000)
}

// Set implements core.TimerDriver
func (t *Timer) Set(offset uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	if t.alarm != nil {
		t.alarm.Stop()
	}
	gen := t.gen
	t.alarm = time.AfterFunc(t.duration(offset), func() { t.fire(gen) })
}

// duration converts ticks to wall time, rounding up so an alarm never
// fires early
func (t *Timer) duration(ticks uint32) time.Duration {
	ns := (uint64(ticks)*1000000000 + t.freq - 1) / t.freq
	return time.Duration(ns)
}

// Cancel implements core.TimerDriver
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.alarm != nil {
		t.alarm.Stop()
		t.alarm = nil
	}
}

// MaxValue implements core.TimerDriver
func (t *Timer) MaxValue() uint32 {
	return math.MaxUint32
}

// Attach implements core.TimerDriver
func (t *Timer) Attach(handler func()) {
	t.mu.Lock()
	t.handler = handler
	t.mu.Unlock()
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.running {
		t.mu.Unlock()
		return
	}
	t.alarm = nil
	handler := t.handler
	t.mu.Unlock()

	if handler != nil {
		handler()
	}
}
