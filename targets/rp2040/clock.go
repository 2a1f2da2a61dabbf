//go:build rp2040

package main

import (
	"math"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"ztimer/irq"
)

// RP2040 Timer peripheral memory map. The runtime uses ALARM0 for
// time.Sleep, so the clock tree runs on ALARM1.
const (
	timerBase     = 0x40054000
	timerALARM1   = timerBase + 0x14
	timerARMED    = timerBase + 0x20
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word, no latching
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38
	timerINTF     = timerBase + 0x3c

	alarmBit  = 1 << 1
	alarmIRQ  = 1       // TIMER_IRQ_1
	timerFreq = 1000000 // the timer always counts microseconds
)

var (
	timerAlarm = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	timerArmed = (*volatile.Register32)(unsafe.Pointer(uintptr(timerARMED)))
	timerRAWL  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerIntr  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
	timerIntf  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTF)))
)

// alarmTimer drives a core.Clock from the 1MHz timer and ALARM1. The
// interrupt only latches a flag; the clock handler runs from poll, outside
// interrupt context, so timer callbacks may use channels.
type alarmTimer struct {
	lock    irq.Lock
	pending volatile.Register8
	handler func()
}

var alarm alarmTimer

// initAlarm enables the ALARM1 interrupt
func initAlarm() {
	timerInte.SetBits(alarmBit)
	intr := interrupt.New(alarmIRQ, alarmISR)
	intr.Enable()
}

func alarmISR(interrupt.Interrupt) {
	timerIntr.Set(alarmBit)
	timerIntf.ClearBits(alarmBit)
	alarm.pending.Set(1)
}

// Now implements core.TimerDriver
func (a *alarmTimer) Now() uint32 {
	return timerRAWL.Get()
}

// Set implements core.TimerDriver. The alarm only matches on equality with
// the counter, so a target that has already passed is forced.
func (a *alarmTimer) Set(offset uint32) {
	target := timerRAWL.Get() + offset
	timerAlarm.Set(target)
	if timerArmed.HasBits(alarmBit) && timerRAWL.Get()-target < 1<<31 {
		timerIntf.SetBits(alarmBit)
	}
}

// Cancel implements core.TimerDriver
func (a *alarmTimer) Cancel() {
	timerArmed.Set(alarmBit)
	timerIntf.ClearBits(alarmBit)
	timerIntr.Set(alarmBit)
}

// MaxValue implements core.TimerDriver
func (a *alarmTimer) MaxValue() uint32 {
	return math.MaxUint32
}

// Attach implements core.TimerDriver
func (a *alarmTimer) Attach(handler func()) {
	a.handler = handler
}

// poll runs the clock handler if the alarm fired since the last call
func (a *alarmTimer) poll() {
	state := a.lock.Disable()
	fired := a.pending.Get() != 0
	a.pending.Set(0)
	a.lock.Restore(state)

	if fired && a.handler != nil {
		a.handler()
	}
}
