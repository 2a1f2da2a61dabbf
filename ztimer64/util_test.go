package ztimer64

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ztimer/periph/mock"
	"ztimer/thread"
)

const (
	waitFor = time.Second
	tick    = time.Millisecond
)

func waitArmed(t *testing.T, m *mock.Timer, target uint32) {
	t.Helper()
	require.Eventually(t, func() bool {
		return m.Armed() && m.Target() == target
	}, waitFor, tick)
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestSleepUntil(t *testing.T) {
	c, m := newTestClock(t, &Config{AdjustSleep: 5})
	m.Advance(1000)

	done := make(chan struct{})
	go func() {
		SleepUntil(c, 1500)
		close(done)
	}()
	waitArmed(t, m, 495)
	m.Advance(494)
	require.Never(t, func() bool { return isClosed(done) }, 20*time.Millisecond, tick)
	m.Advance(1)
	require.Eventually(t, func() bool { return isClosed(done) }, waitFor, tick)
}

func TestSleep(t *testing.T) {
	c, m := newTestClock(t, nil)

	done := make(chan struct{})
	go func() {
		Sleep(c, 300)
		close(done)
	}()
	waitArmed(t, m, 300)
	m.Advance(300)
	require.Eventually(t, func() bool { return isClosed(done) }, waitFor, tick)
}

func TestSpinUntil(t *testing.T) {
	c, m := newTestClock(t, nil)

	done := make(chan struct{})
	go func() {
		Spin(c, 1<<32)
		close(done)
	}()
	require.Eventually(t, func() bool {
		m.Advance(1 << 30)
		return isClosed(done)
	}, waitFor, tick)
	require.GreaterOrEqual(t, c.Now(), uint64(1<<32))
}

func TestPeriodicWakeup(t *testing.T) {
	c, m := newTestClock(t, nil)

	var last uint64
	done := make(chan struct{})
	go func() {
		PeriodicWakeup(c, &last, 100)
		close(done)
	}()
	waitArmed(t, m, 100)
	m.Advance(100)
	<-done
	require.Equal(t, uint64(100), last)

	m.Advance(250)
	PeriodicWakeup(c, &last, 100)
	require.Equal(t, uint64(350), last, "missed periods are dropped")
}

func TestSetMsgAndFlags(t *testing.T) {
	c, m := newTestClock(t, nil)
	th := thread.New("rx", 4)

	var msgTimer, wake, flag Timer
	SetMsg(c, &msgTimer, 10, thread.Msg{Type: 3, Value: 11}, th)
	SetWakeup(c, &wake, 20, th)
	SetTimeoutFlag(c, &flag, 30, th)

	m.Advance(10)
	msg, ok := th.TryReceive()
	require.True(t, ok)
	require.Equal(t, uint32(11), msg.Value)

	m.Advance(10)
	th.Sleep()

	require.Zero(t, th.Flags())
	m.Advance(10)
	require.Equal(t, thread.FlagTimeout, th.Flags())
}

func TestMsgReceiveTimeout(t *testing.T) {
	c, m := newTestClock(t, nil)
	self := thread.New("self", 4)

	var err error
	done := make(chan struct{})
	go func() {
		_, err = MsgReceiveTimeout(c, self, 100)
		close(done)
	}()
	waitArmed(t, m, 100)
	m.Advance(100)
	<-done
	require.ErrorIs(t, err, ErrTimeout)

	var msg thread.Msg
	done = make(chan struct{})
	go func() {
		msg, err = MsgReceiveUntil(c, self, 1000)
		close(done)
	}()
	waitArmed(t, m, 900)
	require.True(t, self.Send(thread.Msg{Type: 1, Value: 8}))
	<-done
	require.NoError(t, err)
	require.Equal(t, uint32(8), msg.Value)
	require.Equal(t, uint32(1<<31-100), m.Target(), "timeout timer retracted")
}

// A message racing the timeout is either returned or left in the mailbox,
// never lost and never returned twice
func TestMsgReceiveTimeoutRace(t *testing.T) {
	for range 100 {
		c, m := newTestClock(t, nil)
		self := thread.New("self", 4)

		var msg thread.Msg
		var err error
		done := make(chan struct{})
		go func() {
			msg, err = MsgReceiveTimeout(c, self, 10)
			close(done)
		}()
		waitArmed(t, m, 10)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			self.Send(thread.Msg{Type: 1, Value: 9})
		}()
		go func() {
			defer wg.Done()
			m.Advance(10)
		}()
		wg.Wait()
		<-done

		if err == nil {
			require.Equal(t, uint32(9), msg.Value)
			for {
				left, ok := self.TryReceive()
				if !ok {
					break
				}
				require.Equal(t, MsgTimeout, left.Type, "only a stale sentinel may remain")
			}
		} else {
			require.ErrorIs(t, err, ErrTimeout)
			left, ok := self.TryReceive()
			require.True(t, ok)
			require.Equal(t, uint32(9), left.Value)
		}
	}
}

func TestMutexLockUntil(t *testing.T) {
	c, m := newTestClock(t, nil)
	mu := thread.NewLocked()

	var err error
	done := make(chan struct{})
	go func() {
		err = MutexLockUntil(c, mu, 40)
		close(done)
	}()
	waitArmed(t, m, 40)
	m.Advance(40)
	<-done
	require.ErrorIs(t, err, thread.ErrCanceled)

	done = make(chan struct{})
	go func() {
		err = MutexLockTimeout(c, mu, 40)
		close(done)
	}()
	waitArmed(t, m, 40)
	mu.Unlock()
	<-done
	require.NoError(t, err)
	require.True(t, mu.Locked())
}

func TestRMutexLockTimeout(t *testing.T) {
	c, m := newTestClock(t, nil)
	owner := thread.New("owner", 1)
	self := thread.New("self", 1)

	var r thread.RMutex
	r.Lock(owner)

	var err error
	done := make(chan struct{})
	go func() {
		err = RMutexLockTimeout(c, &r, self, 30)
		close(done)
	}()
	waitArmed(t, m, 30)
	m.Advance(30)
	<-done
	require.ErrorIs(t, err, thread.ErrCanceled)

	done = make(chan struct{})
	go func() {
		err = RMutexLockUntil(c, &r, self, 1000)
		close(done)
	}()
	waitArmed(t, m, 970)
	r.Unlock()
	<-done
	require.NoError(t, err)
	require.Equal(t, self, r.Owner())
}

func TestOverhead(t *testing.T) {
	c, m := newTestClock(t, &Config{AdjustSet: 6})

	var overhead int64
	done := make(chan struct{})
	go func() {
		overhead = Overhead(c, 200)
		close(done)
	}()
	waitArmed(t, m, 200)
	m.Advance(200)
	<-done
	require.Zero(t, overhead)

	set, _ := c.Adjust()
	require.Equal(t, uint32(6), set)
}
