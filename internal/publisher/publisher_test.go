package publisher_test

import (
	"testing"
	"time"

	"github.com/ttocsneb/station-comms/internal/publisher"
	"github.com/ttocsneb/station-comms/internal/scheduler"
	"github.com/ttocsneb/station-comms/internal/scode"
	"github.com/ttocsneb/station-comms/internal/sensor"
	"github.com/ttocsneb/station-comms/internal/stationlink"
	"github.com/ttocsneb/station-comms/internal/weather"
)

type fakeMQTT struct {
	updates chan weather.Update
	rapid   chan bool
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{updates: make(chan weather.Update, 4), rapid: make(chan bool, 4)}
}

func (f *fakeMQTT) PublishUpdate(u weather.Update, rapid bool) error {
	f.updates <- u
	f.rapid <- rapid
	return nil
}

func TestPublisherWaitsForAllSensorAcksBeforePublishing(t *testing.T) {
	cat := sensor.New()
	cat.IngestSensor(scode.Code{Letter: 'S', Number: 1, Params: []scode.Param{
		{Letter: 'N', Value: scode.StringValue("temperature")},
		{Letter: 'U', Value: scode.StringValue("C")},
		{Letter: 'V', Value: scode.Float32(20.0)},
	}})
	cat.IngestSensor(scode.Code{Letter: 'S', Number: 2, Params: []scode.Param{
		{Letter: 'N', Value: scode.StringValue("humidity")},
		{Letter: 'U', Value: scode.StringValue("%")},
		{Letter: 'V', Value: scode.Float32(50.0)},
	}})

	outbound := make(chan scode.Code, 8)
	manager := stationlink.NewManager(outbound)
	mqtt := newFakeMQTT()
	pub := publisher.New(cat, manager, mqtt, "station-1")

	requests := make(chan scheduler.UpdateRequest, 1)
	done := make(chan error, 1)
	go func() { done <- pub.Run(requests) }()

	requests <- scheduler.UpdateRequest{Rapid: true}

	acked := 0
	for acked < 2 {
		select {
		case sent := <-outbound:
			manager.OnAck(scode.Code{
				Letter: 'O', Number: 1,
				Params: []scode.Param{{Letter: sent.Letter, Value: scode.Int32(int32(sent.Number))}},
			})
			acked++
		case <-time.After(time.Second):
			t.Fatalf("publisher never requested all sensors; acked=%d", acked)
		}
	}

	select {
	case u := <-mqtt.updates:
		if u.ID != "station-1" {
			t.Fatalf("published update id = %q, want station-1", u.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("publisher never published after all sensors acked")
	}

	if rapid := <-mqtt.rapid; !rapid {
		t.Fatalf("published update rapid = false, want true")
	}

	close(requests)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run() did not exit after requests closed")
	}
}

func TestPublisherSkipsRefreshWithNoSensors(t *testing.T) {
	cat := sensor.New()
	outbound := make(chan scode.Code, 8)
	manager := stationlink.NewManager(outbound)
	mqtt := newFakeMQTT()
	pub := publisher.New(cat, manager, mqtt, "station-1")

	requests := make(chan scheduler.UpdateRequest, 1)
	go pub.Run(requests)

	requests <- scheduler.UpdateRequest{Rapid: false}

	select {
	case <-mqtt.updates:
	case <-time.After(time.Second):
		t.Fatalf("publisher never published with an empty catalogue")
	}
	close(requests)
}
