package core

import (
	"errors"

	"ztimer/irq"
	"ztimer/thread"
)

// MsgTimeout is the message type of timeout sentinels sent by
// MsgReceiveTimeout
const MsgTimeout uint16 = 0xc83e

// ErrTimeout is returned by MsgReceiveTimeout when no message arrived in time
var ErrTimeout = errors.New("ztimer: timeout")

// timeoutToken identifies the sentinel of one MsgReceiveTimeout call
type timeoutToken struct{ _ byte }

func assertThreadContext() {
	if irq.InInterrupt() {
		panic("ztimer: blocking call from interrupt context")
	}
}

// Sleep blocks the calling goroutine for d ticks of c
func Sleep(c *Clock, d uint32) {
	assertThreadContext()
	m := thread.NewLocked()
	t := Timer{Callback: func(any) { m.Unlock() }}

	_, adjust := c.Adjust()
	if d > adjust {
		d -= adjust
	} else {
		d = 0
	}
	c.Set(&t, d)
	m.Lock()
}

// Spin busy-waits for d ticks. Only meant for very short waits: it keeps
// the processor busy for the whole duration.
func Spin(c *Clock, d uint32) {
	end := c.Now() + d
	for end-c.Now() <= d {
	}
}

// PeriodicWakeup sleeps until *last + period and advances *last by one
// period. If that point has already passed, *last is reset to now and the
// call returns immediately; missed periods are dropped, not replayed.
func PeriodicWakeup(c *Clock, last *uint32, period uint32) {
	now := c.Now()
	target := *last + period
	offset := target - now
	if offset <= period {
		Sleep(c, offset)
		*last = target
	} else {
		*last = now
	}
}

// SetMsg arms t to deliver msg to target after offset ticks. Delivery never
// blocks; the message is dropped if the mailbox is full.
func SetMsg(c *Clock, t *Timer, offset uint32, msg thread.Msg, target *thread.Thread) {
	t.Callback = func(any) { target.Send(msg) }
	t.Arg = nil
	c.Set(t, offset)
}

// SetWakeup arms t to wake th after offset ticks
func SetWakeup(c *Clock, t *Timer, offset uint32, th *thread.Thread) {
	t.Callback = func(any) { th.Wakeup() }
	t.Arg = nil
	c.Set(t, offset)
}

// SetTimeoutFlag arms t to set thread.FlagTimeout on th after offset ticks
func SetTimeoutFlag(c *Clock, t *Timer, offset uint32, th *thread.Thread) {
	t.Callback = func(any) { th.SetFlags(thread.FlagTimeout) }
	t.Arg = nil
	c.Set(t, offset)
}

// MsgReceiveTimeout receives a message for self, waiting at most timeout
// ticks. It returns ErrTimeout if none arrived.
func MsgReceiveTimeout(c *Clock, self *thread.Thread, timeout uint32) (thread.Msg, error) {
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
	SetMsg(c, &t, timeout, thread.Msg{Type: MsgTimeout, Ptr: token}, self)
	defer c.Remove(&t)

	for {
		m := self.Receive()
		switch timeoutTokenOf(m) {
		case nil:
			return m, nil
		case token:
			return thread.Msg{}, ErrTimeout
		}
		// late sentinel of an earlier call
	}
}

func timeoutTokenOf(m thread.Msg) *timeoutToken {
	if m.Type != MsgTimeout {
		return nil
	}
	tok, _ := m.Ptr.(*timeoutToken)
	return tok
}

// MutexLockTimeout locks m, giving up after timeout ticks. It returns
// thread.ErrCanceled on timeout.
func MutexLockTimeout(c *Clock, m *thread.Mutex, timeout uint32) error {
	assertThreadContext()
	if m.TryLock() {
		return nil
	}
	mc := thread.NewMutexCancel(m)
	t := Timer{Callback: func(any) { mc.Cancel() }}
	c.Set(&t, timeout)
	err := mc.Lock()
	c.Remove(&t)
	return err
}

// RMutexLockTimeout locks r for self, giving up after timeout ticks. It
// returns thread.ErrCanceled on timeout.
func RMutexLockTimeout(c *Clock, r *thread.RMutex, self *thread.Thread, timeout uint32) error {
	assertThreadContext()
	if r.TryLock(self) {
		return nil
	}
	mc := r.NewCancel()
	t := Timer{Callback: func(any) { mc.Cancel() }}
	c.Set(&t, timeout)
	err := r.LockCancelable(self, mc)
	c.Remove(&t)
	return err
}
