// Package scheduler multiplexes the station-comms event loop: retry
// deadlines, periodic and rapid update deadlines, inbound decoded records,
// decode errors, and remote requests arriving from the pub/sub listener.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/ttocsneb/station-comms/internal/scode"
	"github.com/ttocsneb/station-comms/internal/stationlink"
)

const (
	normalUpdatePeriod = 60 * time.Second
	rapidUpdatePeriod  = 2500 * time.Millisecond
	rapidModeDuration  = 60 * time.Second
)

// RemoteRequest is a parsed inbound request from /station/request/{id}.
type RemoteRequest struct {
	Action string
}

// UpdateRequest notifies the publisher worker that it should assemble and
// publish a weather update, optionally to the rapid-weather topic.
type UpdateRequest struct {
	Rapid bool
}

// Scheduler owns the boot-to-shutdown event loop: on every iteration it
// waits for either a matured deadline or an inbound event, and handles
// whichever fires first. It depends on a Router (for dispatching decoded
// inbound Codes) and a command Manager (for retry ticking), but owns none
// of the lower transport; events and remote requests are fed in from
// outside on dedicated channels.
type Scheduler struct {
	router  *stationlink.Router
	manager *stationlink.Manager
	updates chan<- UpdateRequest

	linkEvents <-chan stationlink.Event
	requests   <-chan RemoteRequest

	onInfoRequest func()

	rapid          bool
	rapidDue       time.Time
	rapidUpdateDue time.Time
	updateDue      time.Time
}

// New returns a Scheduler. onInfoRequest is invoked whenever a remote
// "info" request arrives; it is the scheduler's only direct hook into the
// identification-publish path, kept as a callback so this package does not
// need to depend on mqttclient's payload shaping.
func New(
	router *stationlink.Router,
	manager *stationlink.Manager,
	linkEvents <-chan stationlink.Event,
	requests <-chan RemoteRequest,
	updates chan<- UpdateRequest,
	onInfoRequest func(),
) *Scheduler {
	now := time.Now()
	return &Scheduler{
		router:        router,
		manager:       manager,
		updates:       updates,
		linkEvents:    linkEvents,
		requests:      requests,
		onInfoRequest: onInfoRequest,
		updateDue:     now.Add(normalUpdatePeriod),
	}
}

// Run is the scheduler's infinite loop. It never returns under normal
// operation.
func (s *Scheduler) Run() {
	for {
		now := time.Now()
		timeout := s.nextDeadline(now)

		if !timeout.After(now) {
			s.fireMatured(now)
			continue
		}

		select {
		case ev := <-s.linkEvents:
			s.handleLinkEvent(ev)
		case req := <-s.requests:
			s.handleRequest(req)
		case <-time.After(timeout.Sub(now)):
			s.fireMatured(time.Now())
		}
	}
}

func (s *Scheduler) nextDeadline(now time.Time) time.Time {
	deadline := s.updateDue
	if due, ok := s.manager.EarliestDue(); ok && due.Before(deadline) {
		deadline = due
	}
	if s.rapid {
		if s.rapidDue.Before(deadline) {
			deadline = s.rapidDue
		}
		if s.rapidUpdateDue.Before(deadline) {
			deadline = s.rapidUpdateDue
		}
	}
	return deadline
}

func (s *Scheduler) fireMatured(now time.Time) {
	if due, ok := s.manager.EarliestDue(); ok && !due.After(now) {
		s.manager.Tick()
	}
	if !s.updateDue.After(now) {
		s.updateDue = now.Add(normalUpdatePeriod)
		s.requestUpdate(false)
	}
	if s.rapid && !s.rapidUpdateDue.After(now) {
		s.rapidUpdateDue = now.Add(rapidUpdatePeriod)
		s.requestUpdate(true)
	}
	if s.rapid && !s.rapidDue.After(now) {
		s.rapid = false
	}
}

func (s *Scheduler) requestUpdate(rapid bool) {
	select {
	case s.updates <- UpdateRequest{Rapid: rapid}:
	default:
		slog.Warn("scheduler: publisher worker is behind, dropping an update request", "rapid", rapid)
	}
}

func (s *Scheduler) handleLinkEvent(ev stationlink.Event) {
	if ev.Err != nil {
		slog.Debug("scheduler: discarding decode error", "err", ev.Err)
		return
	}
	s.dispatch(ev.Code)
}

func (s *Scheduler) dispatch(c scode.Code) {
	s.router.Dispatch(c)
}

func (s *Scheduler) handleRequest(req RemoteRequest) {
	switch req.Action {
	case "info":
		if s.onInfoRequest != nil {
			s.onInfoRequest()
		}
	case "rapid-weather":
		now := time.Now()
		s.rapid = true
		s.rapidDue = now.Add(rapidModeDuration)
		s.rapidUpdateDue = now
	default:
		slog.Debug("scheduler: ignoring unrecognised remote request", "action", req.Action)
	}
}
