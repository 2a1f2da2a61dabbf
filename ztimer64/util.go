package ztimer64

import (
	"math"

	"ztimer/core"
	"ztimer/irq"
	"ztimer/thread"
)

// MsgTimeout is the message type of timeout sentinels sent by
// MsgReceiveTimeout and MsgReceiveUntil
const MsgTimeout uint16 = 0xc83f

// ErrTimeout is returned when a receive timed out
var ErrTimeout = core.ErrTimeout

type timeoutToken struct{ _ byte }

func assertThreadContext() {
	if irq.InInterrupt() {
		panic("ztimer64: blocking call from interrupt context")
	}
}

// SleepUntil blocks the calling goroutine until target
func SleepUntil(c *Clock, target uint64) {
	assertThreadContext()
	m := thread.NewLocked()
	t := Timer{Callback: func(any) { m.Unlock() }}

	_, adjust := c.Adjust()
	if target > uint64(adjust) {
		target -= uint64(adjust)
	} else {
		target = 0
	}
	c.SetAt(&t, target)
	m.Lock()
}

// Sleep blocks the calling goroutine for d ticks
func Sleep(c *Clock, d uint64) {
	SleepUntil(c, saturatingAdd(c.Now(), d))
}

// SpinUntil busy-waits until target
func SpinUntil(c *Clock, target uint64) {
	for c.Now() < target {
	}
}

// Spin busy-waits for d ticks
func Spin(c *Clock, d uint64) {
	SpinUntil(c, saturatingAdd(c.Now(), d))
}

// PeriodicWakeup sleeps until *last + period and advances *last by one
// period. If that point has already passed, *last is reset to now and the
// call returns immediately; missed periods are dropped, not replayed.
func PeriodicWakeup(c *Clock, last *uint64, period uint64) {
	now := c.Now()
	target := *last + period
	if target > now {
		SleepUntil(c, target)
		*last = target
	} else {
		*last = now
	}
}

// SetMsg arms t to deliver msg to target after offset ticks
func SetMsg(c *Clock, t *Timer, offset uint64, msg thread.Msg, target *thread.Thread) {
	t.Callback = func(any) { target.Send(msg) }
	t.Arg = nil
	c.Set(t, offset)
}

// SetMsgAt arms t to deliver msg to target at the absolute time at
func SetMsgAt(c *Clock, t *Timer, at uint64, msg thread.Msg, target *thread.Thread) {
	t.Callback = func(any) { target.Send(msg) }
	t.Arg = nil
	c.SetAt(t, at)
}

// SetWakeup arms t to wake th after offset ticks
func SetWakeup(c *Clock, t *Timer, offset uint64, th *thread.Thread) {
	t.Callback = func(any) { th.Wakeup() }
	t.Arg = nil
	c.Set(t, offset)
}

// SetTimeoutFlag arms t to set thread.FlagTimeout on th after offset ticks
func SetTimeoutFlag(c *Clock, t *Timer, offset uint64, th *thread.Thread) {
	t.Callback = func(any) { th.SetFlags(thread.FlagTimeout) }
	t.Arg = nil
	c.Set(t, offset)
}

// MsgReceiveTimeout receives a message for self, waiting at most timeout
// ticks. It returns ErrTimeout if none arrived.
func MsgReceiveTimeout(c *Clock, self *thread.Thread, timeout uint64) (thread.Msg, error) {
	return MsgReceiveUntil(c, self, saturatingAdd(c.Now(), timeout))
}

// MsgReceiveUntil receives a message for self, waiting until target at
// most. It returns ErrTimeout if none arrived.
func MsgReceiveUntil(c *Clock, self *thread.Thread, target uint64) (thread.Msg, error) {
	assertThreadContext()
	for {
		m, ok := self.TryReceive()
		if !ok {
			break
		}
		if timeoutTokenOf(m) == nil {
			return m, nil
		}
	}

	token := &timeoutToken{}
	var t Timer
	SetMsgAt(c, &t, target, thread.Msg{Type: MsgTimeout, Ptr: token}, self)
	defer c.Remove(&t)

	for {
		m := self.Receive()
		switch timeoutTokenOf(m) {
		case nil:
			return m, nil
		case token:
			return thread.Msg{}, ErrTimeout
		}
	}
}

func timeoutTokenOf(m thread.Msg) *timeoutToken {
	if m.Type != MsgTimeout {
		return nil
	}
	tok, _ := m.Ptr.(*timeoutToken)
	return tok
}

// MutexLockUntil locks m, giving up at target. It returns
// thread.ErrCanceled on timeout.
func MutexLockUntil(c *Clock, m *thread.Mutex, target uint64) error {
	assertThreadContext()
	if m.TryLock() {
		return nil
	}
	mc := thread.NewMutexCancel(m)
	t := Timer{Callback: func(any) { mc.Cancel() }}
	c.SetAt(&t, target)
	err := mc.Lock()
	c.Remove(&t)
	return err
}

// MutexLockTimeout locks m, giving up after timeout ticks
func MutexLockTimeout(c *Clock, m *thread.Mutex, timeout uint64) error {
	return MutexLockUntil(c, m, saturatingAdd(c.Now(), timeout))
}

// RMutexLockUntil locks r for self, giving up at target. It returns
// thread.ErrCanceled on timeout.
func RMutexLockUntil(c *Clock, r *thread.RMutex, self *thread.Thread, target uint64) error {
	assertThreadContext()
	if r.TryLock(self) {
		return nil
	}
	mc := r.NewCancel()
	t := Timer{Callback: func(any) { mc.Cancel() }}
	c.SetAt(&t, target)
	err := r.LockCancelable(self, mc)
	c.Remove(&t)
	return err
}

// RMutexLockTimeout locks r for self, giving up after timeout ticks
func RMutexLockTimeout(c *Clock, r *thread.RMutex, self *thread.Thread, timeout uint64) error {
	return RMutexLockUntil(c, r, self, saturatingAdd(c.Now(), timeout))
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
