// Package serialport adapts github.com/daedaluz/goserial's ioctl/termios
// UART driver to the narrow Port interface internal/stationlink depends
// on. No other package should import goserial directly: the rest of the
// tree only ever sees Read/Write/SetReadTimeout.
package serialport

import (
	"fmt"
	"time"

	serial "github.com/daedaluz/goserial"

	"github.com/ttocsneb/station-comms/internal/config"
)

// Port wraps a goserial *serial.Port, translating its void-returning
// SetReadTimeout into the error-returning shape stationlink.Port expects
// and applying the station's configured line settings once at open time.
type Port struct {
	port *serial.Port
}

// Open opens the device at cfg.Path in non-blocking mode and applies the
// configured baud rate, parity, data bits and stop bits.
func Open(cfg config.Serial) (*Port, error) {
	opts := serial.NewOptions().SetReadTimeout(0)
	raw, err := serial.Open(cfg.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("serialport: failed to open %s: %w", cfg.Path, err)
	}

	if err := configure(raw, cfg); err != nil {
		raw.Close()
		return nil, fmt.Errorf("serialport: failed to configure %s: %w", cfg.Path, err)
	}

	return &Port{port: raw}, nil
}

func configure(raw *serial.Port, cfg config.Serial) error {
	attrs, err := raw.GetAttr2()
	if err != nil {
		return err
	}

	attrs.MakeRaw()
	attrs.SetCustomSpeed(cfg.Baudrate)

	attrs.Cflag &^= serial.CSIZE
	switch cfg.Databits {
	case 5:
		attrs.Cflag |= serial.CS5
	case 6:
		attrs.Cflag |= serial.CS6
	case 7:
		attrs.Cflag |= serial.CS7
	default:
		attrs.Cflag |= serial.CS8
	}

	attrs.Cflag &^= serial.PARENB | serial.PARODD | serial.CMSPAR
	switch cfg.Parity {
	case config.ParityEven:
		attrs.Cflag |= serial.PARENB
	case config.ParityOdd:
		attrs.Cflag |= serial.PARENB | serial.PARODD
	case config.ParityMark:
		attrs.Cflag |= serial.PARENB | serial.PARODD | serial.CMSPAR
	case config.ParitySpace:
		attrs.Cflag |= serial.PARENB | serial.CMSPAR
	case config.ParityNone:
	}

	if cfg.Stopbits >= 2 {
		attrs.Cflag |= serial.CSTOPB
	} else {
		attrs.Cflag &^= serial.CSTOPB
	}

	return raw.SetAttr2(serial.TCSANOW, attrs)
}

// Read implements stationlink.Port.
func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write implements stationlink.Port.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// SetReadTimeout implements stationlink.Port.
func (p *Port) SetReadTimeout(d time.Duration) error {
	p.port.SetReadTimeout(d)
	return nil
}

// Close releases the underlying file descriptor.
func (p *Port) Close() error {
	return p.port.Close()
}
