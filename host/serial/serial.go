// Package serial opens the byte streams the capture client talks over:
// native serial ports and websocket bridges.
package serial

import (
	"errors"
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial or go.bug.st/serial)
// - WebSocket bridge (gopherscope sim, or a serial-to-websocket gateway)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// ErrTimeout is returned by Read when no byte arrived within the configured
// read timeout. The port stays usable.
var ErrTimeout = errors.New("serial: read timeout")

// Backend names accepted in Config.Backend
const (
	BackendTarm  = "tarm"
	BackendBugst = "bugst"
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int

	// Backend selects the driver library, BackendTarm when empty
	Backend string
}

// DefaultConfig returns the settings the scope firmware expects
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        9600,
		ReadTimeout: 20000,
		Backend:     BackendTarm,
	}
}
