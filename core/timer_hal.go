package core

// TimerDriver is the backing count-up timer a Clock multiplexes.
// Platform-specific implementations handle the actual hardware; converters
// implement it on top of another Clock.
//
// A driver owns exactly one alarm. Set and Cancel are only called with the
// owning Clock's lock held, and the attached handler must be invoked
// without any driver lock held, since the Clock calls back into Set from
// it.
type TimerDriver interface {
	// Now returns the raw counter value, 0..MaxValue
	Now() uint32

	// Set arms the alarm to fire offset ticks from now, replacing any
	// pending alarm. An offset of 0 fires as soon as possible.
	Set(offset uint32)

	// Cancel disarms the alarm
	Cancel()

	// MaxValue returns the largest counter value: 2^width - 1
	MaxValue() uint32

	// Attach registers the function invoked when the alarm fires
	Attach(handler func())
}
