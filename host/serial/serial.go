// Package serial carries framed trace data between a device and the host.
package serial

import (
	"io"
	"net"
	"time"
)

// Port is the link a device streams its timer trace over: a tty opened
// with Open, or one end of a Loopback.
type Port interface {
	io.ReadWriteCloser

	// Flush drops unread input
	Flush() error
}

// Config selects the tty of a device
type Config struct {
	Device      string        // e.g. /dev/ttyACM0 or COM3
	Baud        int           // ignored by USB CDC devices
	ReadTimeout time.Duration // poll interval of a blocked Read, 0 blocks in the driver
}

// DefaultConfig returns the configuration used for trace streaming
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Loopback returns two connected in-memory ports. Writes on one are read
// from the other.
func Loopback() (Port, Port) {
	a, b := net.Pipe()
	return pipePort{a}, pipePort{b}
}

type pipePort struct {
	net.Conn
}

func (pipePort) Flush() error {
	return nil
}
