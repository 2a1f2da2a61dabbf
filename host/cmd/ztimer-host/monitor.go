package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"ztimer/host/serial"
	"ztimer/protocol"
	"ztimer/trace"
)

// monitor prints the trace events streamed on device until ctx is done or
// the device goes away
func monitor(ctx context.Context, device string, baud int, w io.Writer) error {
	cfg := serial.DefaultConfig(device)
	cfg.Baud = baud

	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return fmt.Errorf("failed to flush %s: %w", device, err)
	}
	fmt.Fprintf(w, "Monitoring %s...\n", device)
	return streamEvents(ctx, port, w)
}

// streamEvents decodes frames from port on one goroutine and prints them on
// another. Closing port is what stops the reader.
func streamEvents(ctx context.Context, port serial.Port, w io.Writer) error {
	g, ctx := errgroup.WithContext(ctx)
	events := make(chan trace.Event, 64)
	dec := protocol.NewDecoder(port)

	g.Go(func() error {
		<-ctx.Done()
		return port.Close()
	})

	g.Go(func() error {
		defer close(events)
		for {
			payload, err := dec.ReadFrame()
			switch {
			case errors.Is(err, io.ErrNoProgress):
				continue
			case err != nil:
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("failed to read frame: %w", err)
			}
			e, err := trace.DecodeEvent(payload)
			if err != nil {
				trace.Debugf("[MONITOR] dropping frame: %v", err)
				continue
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		for e := range events {
			if _, err := fmt.Fprintln(w, e.String()); err != nil {
				return err
			}
		}
		if dec.Dropped > 0 {
			fmt.Fprintf(w, "%d bytes dropped\n", dec.Dropped)
		}
		return errEndOfStream
	})

	err := g.Wait()
	if errors.Is(err, errEndOfStream) {
		return nil
	}
	return err
}

// errEndOfStream stops the group once the printer has drained all events
var errEndOfStream = errors.New("end of stream")
