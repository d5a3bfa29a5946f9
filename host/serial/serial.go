package serial

import (
	"io"
)

// Port is the serial link to the interface board. The abstraction keeps the
// driver testable against in-memory pipes.
type Port interface {
	io.ReadWriteCloser

	// Flush discards any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate for the UART bridge
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration matching the board's UART bridge.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        1000000,
		ReadTimeout: 100,
	}
}
