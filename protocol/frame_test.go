package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	payloads := [][]byte{{}, {1}, AppendVLQUint64(nil, 0x129999999), bytes.Repeat([]byte{0x55}, MessagePayloadMax)}
	for _, p := range payloads {
		require.NoError(t, enc.WriteFrame(p))
	}

	dec := NewDecoder(&buf)
	for i, want := range payloads {
		got, err := dec.ReadFrame()
		require.NoError(t, err, "frame %d", i)
		require.Equal(t, want, append([]byte{}, got...))
	}
	_, err := dec.ReadFrame()
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, dec.Dropped)
}

func TestFrameSequence(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for range 17 {
		require.NoError(t, enc.WriteFrame([]byte{0}))
	}
	frames := buf.Bytes()
	frameLen := MessageLengthMin + 1
	require.Equal(t, byte(MessageDest), frames[MessagePositionSeq])
	require.Equal(t, byte(MessageDest|1), frames[frameLen+MessagePositionSeq])
	require.Equal(t, byte(MessageDest), frames[16*frameLen+MessagePositionSeq], "sequence wraps at 16")
}

func TestFrameTooLong(t *testing.T) {
	enc := NewEncoder(io.Discard)
	require.ErrorIs(t, enc.WriteFrame(make([]byte, MessagePayloadMax+1)), ErrPayloadTooLong)
}

func TestDecoderResync(t *testing.T) {
	var good bytes.Buffer
	enc := NewEncoder(&good)
	require.NoError(t, enc.WriteFrame([]byte{7}))
	require.NoError(t, enc.WriteFrame([]byte{8}))

	// garbage in front, then a frame with a corrupted CRC, then a good one
	stream := []byte{0x03, 0x99}
	stream = append(stream, MessageValueSync)
	first := good.Bytes()[:MessageLengthMin+1]
	corrupt := append([]byte{}, first...)
	corrupt[MessageHeaderSize] ^= 0xFF
	stream = append(stream, corrupt...)
	stream = append(stream, good.Bytes()[MessageLengthMin+1:]...)

	dec := NewDecoder(bytes.NewReader(stream))
	got, err := dec.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, []byte{8}, got)
	require.Equal(t, 2+len(corrupt), dec.Dropped)
}
