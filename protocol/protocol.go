// Package protocol implements the framing used to stream timer diagnostics
// from a target to a host: VLQ-encoded integers inside CRC16-checked
// frames, following the Klipper message block layout.
//
//	<len> <seq> <payload...> <crc-hi> <crc-lo> <0x7e>
package protocol

import "errors"

// Frame layout constants
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
	ErrPayloadTooLong = errors.New("payload exceeds frame size")
)
