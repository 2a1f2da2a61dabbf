package ztimer64

import (
	"runtime"
	"sync/atomic"

	"ztimer/trace"
)

// Overhead measures how late a timer set for base ticks fires on c, with
// AdjustSet disabled for the measurement
func Overhead(c *Clock, base uint64) int64 {
	set, sleep := c.Adjust()
	c.SetAdjust(0, sleep)
	defer c.SetAdjust(set, sleep)

	var done atomic.Bool
	var after atomic.Uint64
	t := Timer{Callback: func(any) {
		after.Store(c.Now())
		done.Store(true)
	}}
	pre := c.Now()
	c.SetAt(&t, pre+base)
	for !done.Load() {
		runtime.Gosched()
	}
	overhead := int64(after.Load() - pre - base)
	c.record(trace.KindOverhead, after.Load(), uint64(overhead))
	return overhead
}
