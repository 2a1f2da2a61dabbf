// Package trace records timer events into a fixed-size ring for
// post-mortem analysis and routes debug text to a platform writer.
//
// Recording never blocks and never allocates, so it is safe from the timer
// handler path. A ring can be dumped as text or streamed to a host as
// protocol frames.
package trace

import (
	"strconv"

	"ztimer/irq"
)

// Kind identifies a traced event
type Kind uint8

// Event kinds
const (
	KindNone       Kind = iota
	KindSet             // timer armed; Value is the offset or target
	KindRemove          // timer removed
	KindFire            // timer callback about to run
	KindLate            // due timer found behind now; Value is the lag
	KindCheckpoint      // 64-bit checkpoint advanced; Value is the new checkpoint
	KindOverhead        // calibration result; Value is the signed overhead
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "SET"
	case KindRemove:
		return "REMOVE"
	case KindFire:
		return "FIRE"
	case KindLate:
		return "LATE!"
	case KindCheckpoint:
		return "CHECKPOINT"
	case KindOverhead:
		return "OVERHEAD"
	default:
		return "UNKNOWN"
	}
}

// Recorder receives timer events. Clocks call Record with their own lock
// held, so implementations must not call back into a clock.
type Recorder interface {
	Record(kind Kind, clock uint8, now, value uint64)
}

// RingSize is the number of events kept
const RingSize = 32

// Event captures one timer event
type Event struct {
	Kind  Kind
	Clock uint8  // clock ID from the clock's config
	Now   uint64 // clock time when recorded
	Value uint64 // kind-dependent value
}

func (e Event) String() string {
	return "[TIMING] " + e.Kind.String() +
		" clock=" + strconv.Itoa(int(e.Clock)) +
		" now=" + strconv.FormatUint(e.Now, 10) +
		" v=" + strconv.FormatUint(e.Value, 10)
}

// Ring keeps the last RingSize events. The zero value is ready to use.
type Ring struct {
	lock irq.Lock
	buf  [RingSize]Event
	head uint8
	n    uint8
}

// Record appends an event, overwriting the oldest once full
func (r *Ring) Record(kind Kind, clock uint8, now, value uint64) {
	state := r.lock.Disable()
	r.buf[r.head] = Event{Kind: kind, Clock: clock, Now: now, Value: value}
	r.head = (r.head + 1) % RingSize
	if r.n < RingSize {
		r.n++
	}
	r.lock.Restore(state)
}

// Events returns the recorded events, oldest first
func (r *Ring) Events() []Event {
	state := r.lock.Disable()
	defer r.lock.Restore(state)

	out := make([]Event, 0, r.n)
	start := (r.head + RingSize - r.n) % RingSize
	for i := uint8(0); i < r.n; i++ {
		out = append(out, r.buf[(start+i)%RingSize])
	}
	return out
}

// Clear drops all recorded events
func (r *Ring) Clear() {
	state := r.lock.Disable()
	r.buf = [RingSize]Event{}
	r.head = 0
	r.n = 0
	r.lock.Restore(state)
}

// Dump writes the ring through the debug writer, oldest first. It ignores
// the debug enable switch since it is called explicitly on error paths.
func (r *Ring) Dump() {
	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, e := range r.Events() {
		debugPrintln(e.String())
	}
	debugPrintln("[TIMING] === End Dump ===")
}
