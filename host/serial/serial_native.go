package serial

import (
	"errors"
	"fmt"

	"github.com/tarm/serial"
)

var (
	ErrNilConfig = errors.New("serial: nil config")
	ErrNoDevice  = errors.New("serial: no device given")
)

// ttyPort is a trace link on a real tty
type ttyPort struct {
	port *serial.Port
}

// Open opens the tty named by cfg.Device
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if cfg.Device == "" {
		return nil, ErrNoDevice
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}
	return &ttyPort{port: port}, nil
}

// Read blocks until at least one byte arrives or the port fails. The read
// timeout only bounds each poll of the tty, so a quiet device never looks
// like a stalled reader to bufio.
func (p *ttyPort) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	for {
		n, err := p.port.Read(b)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

func (p *ttyPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close releases the tty. A Read in progress returns with an error once
// its current poll ends.
func (p *ttyPort) Close() error {
	return p.port.Close()
}

// Flush drops input the device sent before we started listening
func (p *ttyPort) Flush() error {
	return p.port.Flush()
}
