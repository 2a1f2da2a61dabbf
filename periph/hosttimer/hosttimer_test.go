package hosttimer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ztimer/core"
	"ztimer/ztimer64"
)

func TestCounterAdvances(t *testing.T) {
	h := New(1000000)
	require.Zero(t, h.Now(), "stopped counter reads 0")

	h.Start()
	defer h.Stop()
	a := h.Now()
	time.Sleep(5 * time.Millisecond)
	b := h.Now()
	require.GreaterOrEqual(t, b-a, uint32(4000))
}

func TestClockFiresInOrder(t *testing.T) {
	h := New(1000000)
	h.Start()
	defer h.Stop()
	usec := core.NewClock(h, nil)

	fired := make(chan int, 3)
	timers := make([]core.Timer, 3)
	for i, offset := range []uint32{30000, 10000, 20000} {
		timers[i].Callback = func(arg any) { fired <- arg.(int) }
		timers[i].Arg = i
		usec.Set(&timers[i], offset)
	}

	start := usec.Now()
	var order []int
	for range 3 {
		select {
		case i := <-fired:
			order = append(order, i)
		case <-time.After(time.Second):
			t.Fatal("timer did not fire")
		}
	}
	require.Equal(t, []int{1, 2, 0}, order)
	require.GreaterOrEqual(t, usec.Now()-start, uint32(29000))
}

func TestSleepOnRealTime(t *testing.T) {
	h := New(1000000)
	h.Start()
	defer h.Stop()
	msec := core.NewClock(core.NewConvertFrac(core.NewClock(h, nil), 1000, 1000000), nil)
	clock64 := ztimer64.NewClock(msec, nil)

	begin := time.Now()
	ztimer64.Sleep(clock64, 15)
	require.GreaterOrEqual(t, time.Since(begin), 14*time.Millisecond, "at least 15 whole ticks minus the partial first one")
}

func TestCancelDropsAlarm(t *testing.T) {
	h := New(1000000)
	h.Start()
	defer h.Stop()

	fired := make(chan struct{}, 1)
	h.Attach(func() { fired <- struct{}{} })
	h.Set(2000)
	h.Cancel()

	select {
	case <-fired:
		t.Fatal("canceled alarm fired")
	case <-time.After(10 * time.Millisecond):
	}
}
