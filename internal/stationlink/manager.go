package stationlink

import (
	"sync"
	"time"

	"github.com/ttocsneb/station-comms/internal/scode"
)

// Key identifies a command/acknowledgement pair by (letter, number), which
// is the station protocol's only notion of command identity.
type Key struct {
	Letter byte
	Number uint8
}

type waiting struct {
	key    Key
	code   scode.Code
	due    time.Time
	retry  time.Duration
	notify chan<- Key
	sentAt time.Time
}

// Manager tracks outstanding commands that must be retried until
// acknowledged. Command, CommandGuaranteed, OnAck and Tick may all be
// called from different goroutines; the waiter set is protected by a
// single mutex and no I/O happens while it is held — callers' outbound
// writes go through the supplied channel, never directly to the port.
type Manager struct {
	mu       sync.Mutex
	waiting  []*waiting
	outbound chan<- scode.Code

	latencyMu    sync.Mutex
	latencyStats map[Key]*LatencyStats
}

// NewManager returns a Manager that enqueues outbound commands on outbound.
func NewManager(outbound chan<- scode.Code) *Manager {
	return &Manager{outbound: outbound}
}

// Command sends code fire-and-forget: it is enqueued on the outbound
// channel and no retry waiter is registered.
func (m *Manager) Command(code scode.Code) {
	m.outbound <- code
}

// CommandGuaranteed enqueues code and registers a retry waiter keyed on
// (code.Letter, code.Number). notify receives the key once an
// acknowledgement clears the waiter; it is never closed. retry is the
// fixed resend interval.
func (m *Manager) CommandGuaranteed(code scode.Code, retry time.Duration, notify chan<- Key) {
	key := Key{Letter: code.Letter, Number: code.Number}
	now := time.Now()
	w := &waiting{
		key:    key,
		code:   code.Clone(),
		due:    now.Add(retry),
		retry:  retry,
		notify: notify,
		sentAt: now,
	}

	m.mu.Lock()
	m.waiting = append(m.waiting, w)
	m.mu.Unlock()

	m.outbound <- code
}

// OnAck is the handler to register against RuleExact('O', 1) on a Router.
// It follows the observed station behaviour exactly: it reports accepted
// whenever the record carries a first parameter, whether or not that
// parameter matches a registered waiter. This means genuine O1 records are
// never seen by any handler registered after this one in the router.
func (m *Manager) OnAck(c scode.Code) bool {
	if len(c.Params) == 0 {
		return false
	}
	first := c.Params[0]
	n, ok := first.Value.Int32Value()
	if !ok {
		return true
	}
	key := Key{Letter: first.Letter, Number: uint8(n)}

	m.mu.Lock()
	idx := -1
	for i, w := range m.waiting {
		if w.key == key {
			idx = i
			break
		}
	}
	var cleared *waiting
	if idx >= 0 {
		cleared = m.waiting[idx]
		m.waiting = append(m.waiting[:idx], m.waiting[idx+1:]...)
	}
	m.mu.Unlock()

	if cleared != nil {
		m.sampleAckLatency(cleared.key, time.Since(cleared.sentAt))
		cleared.notify <- cleared.key
	}
	return true
}

// Tick resends every waiter whose due instant has passed and resets its
// due instant to now+retry.
func (m *Manager) Tick() {
	now := time.Now()

	m.mu.Lock()
	var due []*waiting
	for _, w := range m.waiting {
		if !w.due.After(now) {
			w.due = now.Add(w.retry)
			due = append(due, w)
		}
	}
	m.mu.Unlock()

	for _, w := range due {
		m.outbound <- w.code
	}
}

// EarliestDue returns the minimum due instant across all waiters, and
// whether any waiter exists.
func (m *Manager) EarliestDue() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.waiting) == 0 {
		return time.Time{}, false
	}
	earliest := m.waiting[0].due
	for _, w := range m.waiting[1:] {
		if w.due.Before(earliest) {
			earliest = w.due
		}
	}
	return earliest, true
}
