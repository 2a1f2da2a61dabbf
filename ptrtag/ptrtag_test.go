package ptrtag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type node struct {
	value uint32
}

func TestPackUnpack(t *testing.T) {
	n := &node{value: 42}
	for tag := uint8(0); tag <= TagMask; tag++ {
		p, got := Unpack(Pack(n, tag))
		require.Same(t, n, p)
		require.Equal(t, tag, got)
	}
}

func TestWithTag(t *testing.T) {
	n := &node{}
	v := Pack(n, 1)
	w := v.WithTag(3)

	require.Equal(t, uint8(1), v.Tag(), "original value must not change")
	require.Equal(t, uint8(3), w.Tag())
	require.Same(t, n, w.Ptr())
}

func TestPackRejectsWideTag(t *testing.T) {
	require.Panics(t, func() { Pack(&node{}, 4) })
}

func TestNil(t *testing.T) {
	var v Ptr[node]
	require.True(t, v.IsNil())
	require.Equal(t, uint8(0), v.Tag())

	v = Pack[node](nil, 2)
	require.True(t, v.IsNil())
	require.Equal(t, uint8(2), v.Tag())
}
