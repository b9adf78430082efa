// Package stationlink owns the serial link to the station: pacing outbound
// writes against the station's byte-rate budget, decoding inbound bytes into
// scode.Code events, dispatching those events through a Router, and tracking
// in-flight commands awaiting acknowledgement via a Manager.
package stationlink

import "time"

// Port is the byte-level contract this package relies on. Only a
// non-blocking Read (timeout of zero returns immediately with whatever is
// available, possibly nothing), a Write, and the ability to switch the read
// timeout are required — nothing about UART framing, baud rate or parity
// leaks through this interface. internal/serialport supplies the concrete
// implementation over github.com/daedaluz/goserial.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	SetReadTimeout(d time.Duration) error
}
