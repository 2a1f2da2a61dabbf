package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ztimer/config"
	"ztimer/host/serial"
	"ztimer/protocol"
	"ztimer/trace"
)

func TestStreamEventsPrintsUntilEOF(t *testing.T) {
	device, host := serial.Loopback()

	var ring trace.Ring
	ring.Record(trace.KindSet, 0, 10, 1000)
	ring.Record(trace.KindFire, 0, 1010, 0)

	go func() {
		enc := protocol.NewEncoder(device)
		_ = ring.Stream(enc)
		_ = enc.WriteFrame([]byte{0x7f}) // not an event
		device.Close()
	}()

	var out bytes.Buffer
	require.NoError(t, streamEvents(context.Background(), host, &out))
	require.Equal(t,
		"[TIMING] SET clock=0 now=10 v=1000\n[TIMING] FIRE clock=0 now=1010 v=0\n",
		out.String())
}

func TestStreamEventsStopsOnCancel(t *testing.T) {
	device, host := serial.Loopback()
	defer device.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- streamEvents(ctx, host, &bytes.Buffer{})
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestCalibrateWritesProfile(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "in.json")
	p := &config.Profile{Board: "host", Clocks: map[string]config.ClockProfile{
		"usec": {Source: config.SourceHardware, Freq: 1000000, Wide: true},
		"msec": {Source: "usec", Freq: 1000},
		"sec":  {Source: "msec", Freq: 1},
	}}
	require.NoError(t, p.Save(profilePath))

	*write = filepath.Join(dir, "out.json")
	*out = filepath.Join(dir, "trace.bin")
	defer func() { *write, *out = "", "" }()

	var buf bytes.Buffer
	require.NoError(t, calibrate(context.Background(), profilePath, 2, &buf))
	require.Contains(t, buf.String(), "Calibrating host (2 rounds)")
	require.True(t, strings.Contains(buf.String(), "sec") && strings.Contains(buf.String(), "skipped"))

	calibrated, err := config.LoadProfile(*write)
	require.NoError(t, err)
	require.Len(t, calibrated.Clocks, 3)
	require.Zero(t, calibrated.Clocks["sec"].AdjustSet)
	require.Contains(t, buf.String(), "(64 bit)")
	usec := calibrated.Clocks["usec"]
	require.True(t, usec.Wide)
	require.Equal(t, usec.AdjustSleep, usec.WideAdjustSleep)
	require.FileExists(t, *out)
}

func TestCalibrateRejectsBadRounds(t *testing.T) {
	require.Error(t, calibrate(context.Background(), "", 0, &bytes.Buffer{}))
}
