package core

import (
	"math"

	"ztimer/irq"
	"ztimer/trace"
)

// ClockConfig holds the per-clock calibration and diagnostics settings
type ClockConfig struct {
	AdjustSet   uint32         // subtracted from every Set offset
	AdjustSleep uint32         // additionally subtracted by Sleep
	ID          uint8          // clock number in trace events
	Tracer      trace.Recorder // optional event recorder
}

// Clock multiplexes any number of Timers onto the single alarm of a
// TimerDriver. Time is 32 bit and wraps; compare ticks by unsigned
// subtraction.
//
// Counters narrower than 32 bit are extended in software. This needs a
// counter read at least once per counter period, so such a clock keeps the
// driver armed with a heartbeat at half the period even when idle.
type Clock struct {
	lock irq.Lock
	drv  TimerDriver
	max  uint32

	head       *Timer
	last       *Timer
	lastUpdate uint32
	checkpoint uint32

	adjustSet   uint32
	adjustSleep uint32
	id          uint8
	tracer      trace.Recorder
}

// NewClock creates a clock on drv and attaches its handler. cfg may be nil.
func NewClock(drv TimerDriver, cfg *ClockConfig) *Clock {
	if drv == nil {
		panic("ztimer: nil driver")
	}
	c := &Clock{drv: drv, max: drv.MaxValue()}
	if cfg != nil {
		c.adjustSet = cfg.AdjustSet
		c.adjustSleep = cfg.AdjustSleep
		c.id = cfg.ID
		c.tracer = cfg.Tracer
	}
	drv.Attach(c.Handler)

	state := c.lock.Disable()
	c.checkpoint = drv.Now()
	c.lastUpdate = c.checkpoint
	c.update()
	c.lock.Restore(state)
	return c
}

// Now returns the current time of the clock
func (c *Clock) Now() uint32 {
	state := c.lock.Disable()
	now := c.nowLocked()
	c.lock.Restore(state)
	return now
}

func (c *Clock) nowLocked() uint32 {
	if c.max == math.MaxUint32 {
		return c.drv.Now()
	}
	lower := c.drv.Now()
	c.checkpoint += (lower - c.checkpoint) & c.max
	return c.checkpoint
}

// Set arms t to fire offset ticks from now, moving it if it is already
// armed. AdjustSet is subtracted from offset. It returns the time the
// offset was counted from.
func (c *Clock) Set(t *Timer, offset uint32) uint32 {
	return c.set(t, offset, true)
}

// SetExact is Set without the AdjustSet compensation. Clocks layered on
// this one arm their base timer with it: their handler checks its own
// deadlines, so a compensated base timer would only fire early and re-arm.
func (c *Clock) SetExact(t *Timer, offset uint32) uint32 {
	return c.set(t, offset, false)
}

func (c *Clock) set(t *Timer, offset uint32, adjust bool) uint32 {
	if t == nil {
		panic("ztimer: nil timer")
	}
	state := c.lock.Disable()
	defer c.lock.Restore(state)

	now := c.updateHeadOffset()
	wasHead := c.head == t
	c.delEntry(t)

	if adjust {
		if offset > c.adjustSet {
			offset -= c.adjustSet
		} else {
			offset = 0
		}
	}
	t.offset = offset
	c.addEntry(t)
	c.record(trace.KindSet, now, uint64(offset))

	if wasHead || c.head == t {
		c.update()
	}
	return now
}

// Remove disarms t. Removing a timer that is not armed is a no-op.
// It reports whether t was armed.
func (c *Clock) Remove(t *Timer) bool {
	state := c.lock.Disable()
	defer c.lock.Restore(state)

	if !c.isSetLocked(t) {
		return false
	}
	now := c.updateHeadOffset()
	wasHead := c.head == t
	c.delEntry(t)
	c.record(trace.KindRemove, now, 0)
	if wasHead {
		c.update()
	}
	return true
}

// IsSet reports whether t is armed on c
func (c *Clock) IsSet(t *Timer) bool {
	state := c.lock.Disable()
	set := c.isSetLocked(t)
	c.lock.Restore(state)
	return set
}

// Handler is attached to the driver and runs when its alarm fires. It fires
// every due timer in order, each with the clock unlocked, then re-arms the
// driver. A wakeup with nothing due only re-arms.
func (c *Clock) Handler() {
	state := c.lock.Disable()
	for {
		now := c.updateHeadOffset()
		t := c.popDue()
		if t == nil {
			break
		}
		c.record(trace.KindFire, now, 0)
		c.lock.Restore(state)

		if t.Callback != nil {
			t.Callback(t.Arg)
		}

		state = c.lock.Disable()
	}
	c.update()
	c.lock.Restore(state)
}

// update re-arms the driver for the head entry
func (c *Clock) update() {
	switch {
	case c.head != nil:
		c.drv.Set(c.clamp(c.head.offset))
	case c.max != math.MaxUint32:
		c.drv.Set(c.max >> 1)
	default:
		c.drv.Cancel()
	}
}

func (c *Clock) clamp(offset uint32) uint32 {
	if c.max != math.MaxUint32 && offset > c.max>>1 {
		return c.max >> 1
	}
	return offset
}

// Until returns the ticks left before t fires, 0 if it is not armed
func (c *Clock) Until(t *Timer) uint32 {
	state := c.lock.Disable()
	defer c.lock.Restore(state)

	c.updateHeadOffset()
	var sum uint32
	for cur := c.head; cur != nil; cur = cur.next {
		sum += cur.offset
		if cur == t {
			return sum
		}
	}
	return 0
}

// SetAdjust replaces the overhead compensation values
func (c *Clock) SetAdjust(set, sleep uint32) {
	state := c.lock.Disable()
	c.adjustSet = set
	c.adjustSleep = sleep
	c.lock.Restore(state)
}

// Adjust returns the overhead compensation values
func (c *Clock) Adjust() (set, sleep uint32) {
	state := c.lock.Disable()
	set, sleep = c.adjustSet, c.adjustSleep
	c.lock.Restore(state)
	return set, sleep
}

// MaxValue returns the largest raw value of the backing counter
func (c *Clock) MaxValue() uint32 {
	return c.max
}

func (c *Clock) record(kind trace.Kind, now uint32, value uint64) {
	if c.tracer != nil {
		c.tracer.Record(kind, c.id, uint64(now), value)
	}
}
