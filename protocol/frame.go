package protocol

import (
	"bufio"
	"io"
)

// Encoder writes payloads as frames, advancing the sequence number per frame
type Encoder struct {
	w   io.Writer
	seq uint8
	buf [MessageLengthMax]byte
}

// NewEncoder returns an Encoder writing to w
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteFrame wraps payload in a frame and writes it
func (e *Encoder) WriteFrame(payload []byte) error {
	if len(payload) > MessagePayloadMax {
		return ErrPayloadTooLong
	}
	msgLen := len(payload) + MessageLengthMin
	frame := e.buf[:0]
	frame = append(frame, uint8(msgLen), MessageDest|(e.seq&MessageSeqMask))
	frame = append(frame, payload...)
	crc := CRC16(frame)
	frame = append(frame, uint8(crc>>8), uint8(crc), MessageValueSync)

	e.seq = (e.seq + 1) & MessageSeqMask
	_, err := e.w.Write(frame)
	return err
}

// Decoder reads frames from a byte stream. Corrupt input is skipped up to
// the next sync byte, so a decoder attached mid-stream resynchronizes on
// its own.
type Decoder struct {
	r      *bufio.Reader
	synced bool
	frame  [MessageLengthMax]byte

	// Dropped counts bytes discarded while resynchronizing
	Dropped int
}

// NewDecoder returns a Decoder reading from r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), synced: true}
}

// ReadFrame returns the payload of the next valid frame. The returned
// slice is only valid until the next call.
func (d *Decoder) ReadFrame() ([]byte, error) {
	for {
		if !d.synced {
			if err := d.resync(); err != nil {
				return nil, err
			}
		}

		b, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == MessageValueSync {
			continue
		}

		msgLen := int(b)
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.desync(1)
			continue
		}

		d.frame[MessagePositionLen] = b
		if _, err := io.ReadFull(d.r, d.frame[1:msgLen]); err != nil {
			return nil, err
		}
		frame := d.frame[:msgLen]

		if frame[MessagePositionSeq]&^MessageSeqMask != MessageDest ||
			frame[msgLen-MessageTrailerSync] != MessageValueSync {
			d.desync(msgLen)
			continue
		}

		frameCRC := uint16(frame[msgLen-MessageTrailerCRC])<<8 |
			uint16(frame[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(frame[:msgLen-MessageTrailerSize]) {
			// framing is intact, only the content is bad
			d.Dropped += msgLen
			continue
		}

		return frame[MessageHeaderSize : msgLen-MessageTrailerSize], nil
	}
}

func (d *Decoder) desync(dropped int) {
	d.synced = false
	d.Dropped += dropped
}

// resync discards input up to and including the next sync byte
func (d *Decoder) resync() error {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		if b == MessageValueSync {
			d.synced = true
			return nil
		}
		d.Dropped++
	}
}
