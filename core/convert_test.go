package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ztimer/periph/mock"
)

func newMsecClock(t *testing.T) (*Clock, *mock.Timer) {
	t.Helper()
	m := mock.New(32)
	usec := NewClock(m, nil)
	return NewClock(NewConvertFrac(usec, 1000, 1000000), nil), m
}

func TestConvertFracDivides(t *testing.T) {
	msec, m := newMsecClock(t)

	fired := 0
	tm := Timer{Callback: func(any) { fired++ }}
	msec.Set(&tm, 5)
	require.Equal(t, uint32(5000), m.Target())

	m.Advance(4999)
	require.Zero(t, fired)
	require.Equal(t, uint32(4), msec.Now())
	m.Advance(1)
	require.Equal(t, 1, fired)
	require.Equal(t, uint32(5), msec.Now())
}

func TestConvertFracCarriesRemainder(t *testing.T) {
	msec, m := newMsecClock(t)
	m.Advance(1500)
	require.Equal(t, uint32(1), msec.Now())

	var at uint32
	tm := Timer{Callback: func(any) { at = msec.Now() }}
	msec.Set(&tm, 1)
	require.Equal(t, uint32(500), m.Target(), "only the rest of the current tick is waited")

	m.Advance(500)
	require.Equal(t, uint32(2), at)
}

func TestConvertFracOnAdjustedClock(t *testing.T) {
	m := mock.New(32)
	usec := NewClock(m, &ClockConfig{AdjustSet: 10})
	msec := NewClock(NewConvertFrac(usec, 1000, 1000000), nil)

	fired := 0
	tm := Timer{Callback: func(any) { fired++ }}
	msec.Set(&tm, 5)
	require.Equal(t, uint32(5000), m.Target())

	m.Advance(4999)
	require.Zero(t, fired)
	m.Advance(1)
	require.Equal(t, 1, fired)
}

func TestConvertFracMultiplies(t *testing.T) {
	m := mock.New(32)
	lower := NewClock(m, nil)
	fast := NewClock(NewConvertFrac(lower, 2000000, 1000000), nil)

	fired := false
	tm := Timer{Callback: func(any) { fired = true }}
	fast.Set(&tm, 3)
	require.Equal(t, uint32(2), m.Target(), "lower offset rounds up")

	m.Advance(1)
	require.False(t, fired)
	m.Advance(1)
	require.True(t, fired)
	require.Equal(t, uint32(4), fast.Now())
}

func TestConvertFracHeartbeat(t *testing.T) {
	msec, m := newMsecClock(t)
	require.True(t, m.Armed(), "idle converter keeps a heartbeat on the lower clock")

	for range 6 {
		m.Advance(1 << 31)
	}
	require.Equal(t, uint32(6*(1<<31)/1000), msec.Now())
}

func TestConvertFracLongTimer(t *testing.T) {
	msec, m := newMsecClock(t)

	fired := 0
	tm := Timer{Callback: func(any) { fired++ }}
	msec.Set(&tm, 3000000) // 3e9 usec, beyond the half-range span
	require.Equal(t, uint32(1<<31), m.Target())

	m.Advance(1 << 31)
	require.Zero(t, fired)
	m.Advance(3000000000 - 1<<31 - 1)
	require.Zero(t, fired)
	m.Advance(1)
	require.Equal(t, 1, fired)
}

func TestConvertShift(t *testing.T) {
	m := mock.New(32)
	lower := NewClock(m, nil)
	s := NewConvertShift(lower, 10)
	require.Equal(t, uint32(1<<22-1), s.MaxValue())

	c := NewClock(s, nil)
	require.Equal(t, uint32((1<<21-1)<<10), m.Target(), "narrow converted counter arms a heartbeat")

	var at uint32
	tm := Timer{Callback: func(any) { at = c.Now() }}
	m.Advance(500)
	c.Set(&tm, 1)
	require.Equal(t, uint32(1024-500), m.Target())
	m.Advance(1024 - 500)
	require.Equal(t, uint32(1), at)

	c.Set(&tm, 3)
	m.Advance(3 * 1024)
	require.Equal(t, uint32(4), at)
}

func TestConvertShiftExtends(t *testing.T) {
	m := mock.New(32)
	c := NewClock(NewConvertShift(NewClock(m, nil), 16), nil)

	for range 5 {
		m.Advance(1 << 31)
	}
	m.Advance(1 << 16)
	require.Equal(t, uint32(5*(1<<15)+1), c.Now())
}
