package core

import (
	"math"

	"ztimer/irq"
)

// convertSpan bounds the lower-clock offsets a converter arms, so a
// converter re-reads its lower clock at least twice per lower wrap.
const convertSpan = 1 << 31

// ConvertFrac is a TimerDriver running at freqSelf on top of a Clock running
// at freqLower, e.g. a millisecond clock derived from a microsecond clock.
// The ratio is kept as a reduced fraction and the remainder of every
// conversion is carried, so no tick is lost.
type ConvertFrac struct {
	lock  irq.Lock
	lower *Clock
	entry Timer

	mul, div  uint64 // self ticks = lower ticks * mul / div
	lastLower uint32
	now       uint32
	rem       uint64 // pending fraction of a self tick, in 1/div units
	armed     bool
	handler   func()
}

// NewConvertFrac creates a converted driver. Both frequencies are in Hz and
// must be non-zero.
func NewConvertFrac(lower *Clock, freqSelf, freqLower uint32) *ConvertFrac {
	if freqSelf == 0 || freqLower == 0 {
		panic("ztimer: zero frequency")
	}
	g := gcd(freqSelf, freqLower)
	f := &ConvertFrac{
		lower: lower,
		mul:   uint64(freqSelf / g),
		div:   uint64(freqLower / g),
	}
	f.entry.Callback = func(any) { f.fire() }

	state := f.lock.Disable()
	f.lastLower = lower.Now()
	f.heartbeat()
	f.lock.Restore(state)
	return f
}

// Now implements TimerDriver
func (f *ConvertFrac) Now() uint32 {
	state := f.lock.Disable()
	now := f.nowLocked()
	f.lock.Restore(state)
	return now
}

func (f *ConvertFrac) nowLocked() uint32 {
	lower := f.lower.Now()
	acc := uint64(lower-f.lastLower)*f.mul + f.rem
	f.lastLower = lower
	f.now += uint32(acc / f.div)
	f.rem = acc % f.div
	return f.now
}

// Set implements TimerDriver. The lower offset is rounded up so the alarm
// never fires before offset self ticks have elapsed.
func (f *ConvertFrac) Set(offset uint32) {
	state := f.lock.Disable()
	defer f.lock.Restore(state)

	f.nowLocked()
	var ticks uint64
	if need := uint64(offset) * f.div; need > f.rem {
		ticks = (need - f.rem + f.mul - 1) / f.mul
	}
	if ticks > convertSpan {
		ticks = convertSpan
	}
	f.armed = true
	f.lower.SetExact(&f.entry, uint32(ticks))
}

// Cancel implements TimerDriver. The lower timer keeps running as a
// heartbeat so Now stays exact across lower wraps.
func (f *ConvertFrac) Cancel() {
	state := f.lock.Disable()
	f.armed = false
	f.heartbeat()
	f.lock.Restore(state)
}

// MaxValue implements TimerDriver
func (f *ConvertFrac) MaxValue() uint32 {
	return math.MaxUint32
}

// Attach implements TimerDriver
func (f *ConvertFrac) Attach(handler func()) {
	state := f.lock.Disable()
	f.handler = handler
	f.lock.Restore(state)
}

func (f *ConvertFrac) heartbeat() {
	f.lower.SetExact(&f.entry, convertSpan)
}

func (f *ConvertFrac) fire() {
	state := f.lock.Disable()
	f.nowLocked()
	handler := f.handler
	if !f.armed || handler == nil {
		f.heartbeat()
		f.lock.Restore(state)
		return
	}
	f.armed = false
	f.lock.Restore(state)

	handler()
}

// ConvertShift divides a lower Clock by 2^shift. The resulting counter is
// 32-shift bits wide and is extended to 32 bit by the Clock built on it.
type ConvertShift struct {
	lower   *Clock
	entry   Timer
	shift   uint
	handler func()
}

// NewConvertShift creates a driver ticking once every 2^shift lower ticks.
// shift must be in 1..31.
func NewConvertShift(lower *Clock, shift uint) *ConvertShift {
	if shift == 0 || shift > 31 {
		panic("ztimer: shift out of range")
	}
	s := &ConvertShift{lower: lower, shift: shift}
	s.entry.Callback = func(any) {
		if s.handler != nil {
			s.handler()
		}
	}
	return s
}

// Now implements TimerDriver
func (s *ConvertShift) Now() uint32 {
	return s.lower.Now() >> s.shift
}

// Set implements TimerDriver. The offset is counted from the start of the
// current self tick, minus what has already elapsed of it.
func (s *ConvertShift) Set(offset uint32) {
	if offset == 0 {
		s.lower.SetExact(&s.entry, 0)
		return
	}
	mask := uint32(1)<<s.shift - 1
	s.lower.SetExact(&s.entry, offset<<s.shift-s.lower.Now()&mask)
}

// Cancel implements TimerDriver
func (s *ConvertShift) Cancel() {
	s.lower.Remove(&s.entry)
}

// MaxValue implements TimerDriver
func (s *ConvertShift) MaxValue() uint32 {
	return math.MaxUint32 >> s.shift
}

// Attach implements TimerDriver
func (s *ConvertShift) Attach(handler func()) {
	s.handler = handler
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
