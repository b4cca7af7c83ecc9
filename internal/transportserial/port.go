// Package transportserial wraps the physical RS-232 link. It is the
// external collaborator the spec calls out as out of scope for the core
// protocol: byte-level I/O, port open/close, and baud configuration only.
package transportserial

import (
	"time"

	"github.com/tarm/serial"
)

// Port abstracts tarm/serial for testability.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Open opens an 8-N-1 serial port at the given baud rate with a bounded
// read timeout (so the reader loop can periodically check for shutdown).
func Open(name string, baud int, readTimeout time.Duration) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	return serial.OpenPort(cfg)
}
