package trace

import (
	"errors"
	"io"

	"ztimer/protocol"
)

// ErrUnknownKind is returned when decoding an event of unknown kind
var ErrUnknownKind = errors.New("trace: unknown event kind")

// AppendEvent appends the wire form of e: kind, clock, now, value
func AppendEvent(dst []byte, e Event) []byte {
	dst = protocol.AppendVLQUint(dst, uint32(e.Kind))
	dst = protocol.AppendVLQUint(dst, uint32(e.Clock))
	dst = protocol.AppendVLQUint64(dst, e.Now)
	return protocol.AppendVLQUint64(dst, e.Value)
}

// DecodeEvent parses a frame payload written by AppendEvent
func DecodeEvent(payload []byte) (Event, error) {
	var e Event
	kind, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return e, err
	}
	if kind == uint32(KindNone) || kind > uint32(KindOverhead) {
		return e, ErrUnknownKind
	}
	clock, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return e, err
	}
	if e.Now, err = protocol.DecodeVLQUint64(&payload); err != nil {
		return e, err
	}
	if e.Value, err = protocol.DecodeVLQUint64(&payload); err != nil {
		return e, err
	}
	e.Kind = Kind(kind)
	e.Clock = uint8(clock)
	return e, nil
}

// Stream writes every recorded event as one frame on enc
func (r *Ring) Stream(enc *protocol.Encoder) error {
	var buf [protocol.MessagePayloadMax]byte
	for _, e := range r.Events() {
		if err := enc.WriteFrame(AppendEvent(buf[:0], e)); err != nil {
			return err
		}
	}
	return nil
}

// WriteTo streams the ring to w as protocol frames
func (r *Ring) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := r.Stream(protocol.NewEncoder(cw))
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
