// Package ztimer64 extends a 32-bit core.Clock to 64-bit time and 64-bit
// timer targets.
//
// The extension keeps a checkpoint holding the high bits of the time. Every
// Now compares bit 31 of the checkpoint against bit 31 of the base clock and
// advances the checkpoint by 2^31 when they differ. This is only correct if
// Now runs at least once every 2^31 base ticks, so the clock keeps its base
// timer armed for the next checkpoint even when no timer is pending.
package ztimer64

import (
	"math"

	"ztimer/core"
	"ztimer/irq"
	"ztimer/trace"
)

const checkpointInterval = 1 << 31

// Config holds the per-clock calibration and diagnostics settings
type Config struct {
	AdjustSet   uint32
	AdjustSleep uint32
	ID          uint8
	Tracer      trace.Recorder
}

// Timer is one 64-bit timer. A zero target means not armed.
type Timer struct {
	Callback func(arg any)
	Arg      any

	next   *Timer
	target uint64
}

// Clock is a 64-bit clock on top of a 32-bit base clock. It owns one timer
// on the base clock and multiplexes its own timers onto it.
type Clock struct {
	lock      irq.Lock
	base      *core.Clock
	baseTimer core.Timer

	first      *Timer
	checkpoint uint64

	adjustSet   uint32
	adjustSleep uint32
	id          uint8
	tracer      trace.Recorder
}

// NewClock creates a 64-bit clock on base. cfg may be nil.
func NewClock(base *core.Clock, cfg *Config) *Clock {
	if base == nil {
		panic("ztimer64: nil base clock")
	}
	c := &Clock{base: base}
	if cfg != nil {
		c.adjustSet = cfg.AdjustSet
		c.adjustSleep = cfg.AdjustSleep
		c.id = cfg.ID
		c.tracer = cfg.Tracer
	}
	c.baseTimer.Callback = func(any) { c.handler() }

	state := c.lock.Disable()
	c.update()
	c.lock.Restore(state)
	return c
}

// Now returns the current 64-bit time
func (c *Clock) Now() uint64 {
	state := c.lock.Disable()
	now := c.nowLocked()
	c.lock.Restore(state)
	return now
}

func (c *Clock) nowLocked() uint64 {
	baseNow := c.base.Now()
	if (uint32(c.checkpoint)^baseNow)&checkpointInterval != 0 {
		c.checkpoint += checkpointInterval
		c.record(trace.KindCheckpoint, uint64(baseNow), c.checkpoint)
	}
	return c.checkpoint | uint64(baseNow)
}

// SetAt arms t to fire at the absolute time target, moving it if it is
// already armed. A target at or before now fires as soon as possible.
func (c *Clock) SetAt(t *Timer, target uint64) {
	if t == nil {
		panic("ztimer64: nil timer")
	}
	state := c.lock.Disable()
	c.setAtLocked(t, target)
	c.lock.Restore(state)
}

// Set arms t to fire offset ticks from now. Targets beyond the 64-bit
// range saturate.
func (c *Clock) Set(t *Timer, offset uint64) {
	if t == nil {
		panic("ztimer64: nil timer")
	}
	state := c.lock.Disable()
	now := c.nowLocked()
	target := now + offset
	if target < now {
		target = math.MaxUint64
	}
	c.setAtLocked(t, target)
	c.lock.Restore(state)
}

func (c *Clock) setAtLocked(t *Timer, target uint64) {
	wasHead := c.first == t
	if t.target != 0 {
		c.del(t)
	}
	if target > uint64(c.adjustSet) {
		target -= uint64(c.adjustSet)
	} else {
		target = 0
	}
	// 0 marks an unarmed timer
	if target == 0 {
		target = 1
	}
	t.target = target
	c.add(t)
	if c.tracer != nil {
		c.record(trace.KindSet, c.nowLocked(), target)
	}

	if wasHead || c.first == t {
		c.update()
	}
}

// Remove disarms t. Removing a timer that is not armed is a no-op.
// It reports whether t was armed.
func (c *Clock) Remove(t *Timer) bool {
	state := c.lock.Disable()
	defer c.lock.Restore(state)

	if t.target == 0 {
		return false
	}
	wasHead := c.first == t
	c.del(t)
	t.target = 0
	if c.tracer != nil {
		c.record(trace.KindRemove, c.nowLocked(), 0)
	}
	if wasHead {
		c.update()
	}
	return true
}

// IsSet reports whether t is armed
func (c *Clock) IsSet(t *Timer) bool {
	state := c.lock.Disable()
	set := t.target != 0
	c.lock.Restore(state)
	return set
}

// Until returns the ticks left before t fires, 0 if it is due or not armed
func (c *Clock) Until(t *Timer) uint64 {
	state := c.lock.Disable()
	defer c.lock.Restore(state)

	if t.target == 0 {
		return 0
	}
	if now := c.nowLocked(); t.target > now {
		return t.target - now
	}
	return 0
}

// Offset returns the ticks from now until target, 0 if target has passed
func (c *Clock) Offset(target uint64) uint64 {
	if now := c.Now(); target > now {
		return target - now
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

// Base returns the 32-bit clock c runs on
func (c *Clock) Base() *core.Clock {
	return c.base
}

// handler runs from the base timer. Due timers fire in target order with
// the clock unlocked, so callbacks may set or remove timers.
func (c *Clock) handler() {
	state := c.lock.Disable()
	for c.first != nil {
		now := c.nowLocked()
		if c.first.target > now {
			break
		}
		t := c.first
		c.first = t.next
		t.next = nil
		t.target = 0
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

// update arms the base timer for the head or the next checkpoint,
// whichever comes first
func (c *Clock) update() {
	now := c.nowLocked()
	next := c.checkpoint + checkpointInterval
	if next < now {
		next = now
	}

	var offset uint64
	switch {
	case c.first == nil:
		offset = next - now
	case c.first.target <= now:
		if now > c.first.target {
			c.record(trace.KindLate, now, now-c.first.target)
		}
		offset = 0
	case c.first.target < next:
		offset = c.first.target - now
	default:
		offset = next - now
	}
	c.base.SetExact(&c.baseTimer, uint32(offset))
}

// add inserts t after all timers with the same or an earlier target
func (c *Clock) add(t *Timer) {
	pos := &c.first
	for *pos != nil && (*pos).target <= t.target {
		pos = &(*pos).next
	}
	t.next = *pos
	*pos = t
}

func (c *Clock) del(t *Timer) bool {
	for pos := &c.first; *pos != nil; pos = &(*pos).next {
		if *pos == t {
			*pos = t.next
			t.next = nil
			return true
		}
	}
	return false
}

func (c *Clock) record(kind trace.Kind, now, value uint64) {
	if c.tracer != nil {
		c.tracer.Record(kind, c.id, now, value)
	}
}
