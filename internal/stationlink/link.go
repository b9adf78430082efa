package stationlink

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ttocsneb/station-comms/internal/scode"
)

const (
	readBufSize  = 64
	outboundWait = 150 * time.Millisecond
	windowPeriod = 150 * time.Millisecond
	windowBudget = 60
)

// Event is the tagged union of what a Link can emit: either a successfully
// decoded Code, or a DecodeError for a frame the decoder had to discard.
type Event struct {
	Code scode.Code
	Err  error
}

// Link owns the serial port exclusively: it is the only goroutine that may
// Read or Write it. Run paces outbound writes against the station's 60
// bytes / 150 ms budget while forwarding every decoded inbound record to
// Events in arrival order.
type Link struct {
	port     Port
	outbound <-chan scode.Code
	events   chan Event

	pending     []byte
	windowStart time.Time
	windowSpent int
}

// NewLink returns a Link reading/writing port, consuming outbound Codes
// from outbound and emitting Events on the returned channel.
func NewLink(port Port, outbound <-chan scode.Code) *Link {
	return &Link{
		port:     port,
		outbound: outbound,
		events:   make(chan Event, 32),
	}
}

// Events returns the channel Run publishes decoded records and decode
// errors to, in arrival order.
func (l *Link) Events() <-chan Event {
	return l.events
}

// Run is the link's single-threaded loop. It never returns except on a
// fatal port error, which it returns to the caller; the caller is expected
// to treat this as fatal to the whole process, per the station link's
// failure semantics.
func (l *Link) Run() error {
	if err := l.port.SetReadTimeout(0); err != nil {
		return errors.New("stationlink: failed to set non-blocking read timeout: " + err.Error())
	}

	dec := scode.NewDecoder()
	buf := make([]byte, readBufSize)

	for {
		n, err := l.port.Read(buf)
		if err != nil {
			return err
		}

		if n > 0 {
			dec.Push(buf[:n])
			for _, r := range dec.Drain() {
				if r.Err != nil {
					slog.Debug("stationlink: discarding corrupt frame", "err", r.Err)
				}
				l.events <- Event{Code: r.Code, Err: r.Err}
			}
		} else {
			select {
			case c := <-l.outbound:
				encoded, err := scode.Encode(c)
				if err != nil {
					slog.Error("stationlink: failed to encode outbound code", "code", c, "err", err)
					continue
				}
				l.pending = append(l.pending, encoded...)
			case <-time.After(outboundWait):
			}
		}

		if len(l.pending) > 0 {
			if err := l.flush(); err != nil {
				return err
			}
		}
	}
}

// flush enforces the sliding-window byte budget and writes as much of the
// pending buffer as the current window allows.
func (l *Link) flush() error {
	now := time.Now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) > windowPeriod {
		l.windowStart = now
		l.windowSpent = 0
	}

	remaining := windowBudget - l.windowSpent
	if remaining <= 0 {
		return nil
	}

	n := len(l.pending)
	if n > remaining {
		n = remaining
	}

	written, err := l.port.Write(l.pending[:n])
	if err != nil {
		return err
	}

	l.pending = l.pending[written:]
	l.windowSpent += written
	return nil
}
