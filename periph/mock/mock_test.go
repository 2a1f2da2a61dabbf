package mock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdvanceFiresOnExactTick(t *testing.T) {
	m := New(32)
	fired := []uint32{}
	m.Attach(func() { fired = append(fired, m.Now()) })

	m.Set(10)
	m.Advance(9)
	require.Empty(t, fired)
	m.Advance(5)
	require.Equal(t, []uint32{10}, fired)
	require.Equal(t, uint32(14), m.Now())
	require.False(t, m.Armed())
}

func TestZeroTargetFiresBeforeTimeMoves(t *testing.T) {
	m := New(32)
	var at []uint32
	m.Attach(func() { at = append(at, m.Now()) })

	m.Set(0)
	m.Advance(3)
	require.Equal(t, []uint32{0}, at)
	require.Equal(t, uint32(3), m.Now())
}

func TestHandlerRearms(t *testing.T) {
	m := New(32)
	n := 0
	m.Attach(func() {
		n++
		m.Set(4)
	})
	m.Set(4)
	m.Advance(17)
	require.Equal(t, 4, n)
	require.Equal(t, uint32(3), m.Target())
}

func TestWidthMasksCounter(t *testing.T) {
	m := New(8)
	require.Equal(t, uint32(0xff), m.MaxValue())

	m.Advance(0x105)
	require.Equal(t, uint32(0x05), m.Now())
	m.Jump(0x1234)
	require.Equal(t, uint32(0x34), m.Now())

	m.Set(0x1000)
	require.Equal(t, uint32(0xff), m.Target(), "target clamped to the counter range")
}

func TestJumpAndFire(t *testing.T) {
	m := New(32)
	n := 0
	m.Attach(func() { n++ })

	m.Set(100)
	m.Jump(1000)
	require.Zero(t, n, "jump never fires")
	m.Fire()
	require.Equal(t, 1, n)
	m.Fire()
	require.Equal(t, 1, n, "fire on a disarmed timer does nothing")

	m.Set(5)
	m.Cancel()
	m.Advance(10)
	require.Equal(t, 1, n)

	calls := m.Calls()
	require.Equal(t, 2, calls.Set)
	require.Equal(t, 1, calls.Cancel)
}
