//go:build rp2040

package main

import (
	"machine"
	"time"

	"ztimer/config"
	"ztimer/core"
	"ztimer/protocol"
	"ztimer/thread"
	"ztimer/trace"
	"ztimer/ztimer64"
)

const (
	blinkPeriod = 500  // msec
	reportEvery = 10   // blinks between trace dumps
	calibBase   = 1000 // usec
)

var (
	ring trace.Ring

	// Debug counters
	reportsSent uint32
	msgerrors   uint32
)

func main() {
	initAlarm()

	profile := config.DefaultProfile(timerFreq)
	profile.Board = "rp2040"
	clocks, err := profile.Build(&alarm, &ring)
	if err != nil {
		halt()
	}
	go alarmLoop()

	usec := clocks.Clock("usec")
	msec := clocks.Clock("msec")
	uptime := clocks.Wide("msec")

	calibrate(usec)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	enc := protocol.NewEncoder(machine.Serial)
	reporter := thread.New("report", 2)
	go reportLoop(reporter, enc, uptime)

	last := msec.Now()
	for blinks := uint32(1); ; blinks++ {
		core.PeriodicWakeup(msec, &last, blinkPeriod)
		led.Set(!led.Get())
		if blinks%reportEvery == 0 {
			if !reporter.Send(thread.Msg{Type: 1, Value: blinks}) {
				msgerrors++
			}
		}
	}
}

// alarmLoop runs the clock tree's handler in thread context
func alarmLoop() {
	for {
		alarm.poll()
		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// calibrate measures the microsecond clock overhead and applies it
func calibrate(usec *core.Clock) {
	set := core.OverheadSet(usec, calibBase)
	if set > 0 {
		usec.SetAdjust(uint32(set), 0)
	}
	sleep := core.OverheadSleep(usec, calibBase)
	if sleep > 0 {
		adjustSet, _ := usec.Adjust()
		usec.SetAdjust(adjustSet, uint32(sleep))
	}
}

// reportLoop streams the trace ring whenever the main loop asks for it, or
// after a second without a request
func reportLoop(self *thread.Thread, enc *protocol.Encoder, uptime *ztimer64.Clock) {
	for {
		// a timeout only means nobody asked; flush anyway
		_, _ = ztimer64.MsgReceiveTimeout(uptime, self, 1000)
		if err := ring.Stream(enc); err != nil {
			msgerrors++
			continue
		}
		ring.Clear()
		reportsSent++
	}
}

func halt() {
	for {
		time.Sleep(time.Second)
	}
}
