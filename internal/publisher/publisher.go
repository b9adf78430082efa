// Package publisher implements the publisher worker: on each update
// request it fans out a guaranteed value-only request to every known
// sensor, waits for every acknowledgement, then assembles and publishes a
// weather update.
package publisher

import (
	"log/slog"
	"time"

	"github.com/ttocsneb/station-comms/internal/scheduler"
	"github.com/ttocsneb/station-comms/internal/sensor"
	"github.com/ttocsneb/station-comms/internal/stationlink"
	"github.com/ttocsneb/station-comms/internal/weather"
)

const sensorRefreshRetry = time.Second

// MQTTPublisher is the narrow publish contract this worker needs, kept as
// an interface so tests can substitute a fake in place of a real broker
// connection.
type MQTTPublisher interface {
	PublishUpdate(u weather.Update, rapid bool) error
}

// Publisher is the publisher worker. Run is its single-threaded loop; it
// is the exclusive emitter of outbound telemetry.
type Publisher struct {
	cat       *sensor.Catalogue
	manager   *stationlink.Manager
	mqtt      MQTTPublisher
	stationID string
}

// New returns a Publisher assembling updates from cat, refreshing sensors
// through manager, and publishing via mqtt under stationID.
func New(cat *sensor.Catalogue, manager *stationlink.Manager, mqtt MQTTPublisher, stationID string) *Publisher {
	return &Publisher{cat: cat, manager: manager, mqtt: mqtt, stationID: stationID}
}

// Run consumes update requests until requests is closed or a publish error
// terminates the worker.
func (p *Publisher) Run(requests <-chan scheduler.UpdateRequest) error {
	for req := range requests {
		if err := p.handle(req); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) handle(req scheduler.UpdateRequest) error {
	p.refreshSensors()

	u := weather.Assemble(p.cat, p.stationID, time.Now())
	if err := p.mqtt.PublishUpdate(u, req.Rapid); err != nil {
		return err
	}
	return nil
}

// refreshSensors requests a fresh value-only reading from every known
// sensor and blocks until every one has acknowledged, fanning the
// guaranteed commands out and back in through a single notification
// channel shared by this round's waiters.
func (p *Publisher) refreshSensors() {
	sensors := p.cat.Sensors()
	if len(sensors) == 0 {
		return
	}

	notify := make(chan stationlink.Key, len(sensors))
	pending := make(map[stationlink.Key]bool, len(sensors))
	for _, s := range sensors {
		key := stationlink.Key{Letter: 'S', Number: s.ID}
		pending[key] = true
		p.manager.CommandGuaranteed(stationlink.RequestSensorCode(s.ID, true), sensorRefreshRetry, notify)
	}

	for len(pending) > 0 {
		key := <-notify
		if !pending[key] {
			slog.Debug("publisher: received an ack for a key outside this round", "key", key)
			continue
		}
		delete(pending, key)
	}
}
