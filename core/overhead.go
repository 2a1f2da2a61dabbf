package core

import (
	"runtime"
	"sync/atomic"

	"ztimer/trace"
)

// OverheadSet measures how late a timer set for base ticks fires on c,
// with AdjustSet disabled for the measurement. The result is the value to
// use as AdjustSet.
func OverheadSet(c *Clock, base uint32) int32 {
	set, sleep := c.Adjust()
	c.SetAdjust(0, sleep)
	defer c.SetAdjust(set, sleep)

	var done atomic.Bool
	var after atomic.Uint32
	t := Timer{Callback: func(any) {
		after.Store(c.Now())
		done.Store(true)
	}}
	pre := c.Set(&t, base)
	for !done.Load() {
		runtime.Gosched()
	}
	overhead := int32(after.Load() - pre - base)
	c.record(trace.KindOverhead, after.Load(), uint64(int64(overhead)))
	return overhead
}

// OverheadSleep measures how much longer than base ticks Sleep takes on c,
// with AdjustSleep disabled for the measurement. The result is the value
// to use as AdjustSleep.
func OverheadSleep(c *Clock, base uint32) int32 {
	set, sleep := c.Adjust()
	c.SetAdjust(set, 0)
	defer c.SetAdjust(set, sleep)

	start := c.Now()
	Sleep(c, base)
	end := c.Now()
	overhead := int32(end - start - base)
	c.record(trace.KindOverhead, end, uint64(int64(overhead)))
	return overhead
}
