package sensor_test

import (
	"testing"

	"github.com/ttocsneb/station-comms/internal/scode"
	"github.com/ttocsneb/station-comms/internal/sensor"
)

func sensorCode(id uint8, params ...scode.Param) scode.Code {
	return scode.Code{Letter: 'S', Number: id, Params: params}
}

func TestIngestSensorColdBoot(t *testing.T) {
	c := sensor.New()

	accepted := c.IngestSensor(sensorCode(1,
		scode.Param{Letter: 'N', Value: scode.StringValue("temperature")},
		scode.Param{Letter: 'U', Value: scode.StringValue("C")},
		scode.Param{Letter: 'V', Value: scode.Float32(20.5)},
	))
	if !accepted {
		t.Fatalf("IngestSensor() = false, want true")
	}

	got, ok := c.Get("temperature")
	if !ok {
		t.Fatalf("Get(temperature) not found")
	}
	if got.ID != 1 || got.Unit != "C" || got.Value != 20.5 {
		t.Fatalf("Get(temperature) = %+v, want id=1 unit=C value=20.5", got)
	}

	all := c.Sensors()
	if len(all) != 1 || all[0].Name != "temperature" {
		t.Fatalf("Sensors() = %+v, want exactly the temperature sensor", all)
	}
}

func TestIngestSensorRequiresNameUnitOnFirstObservation(t *testing.T) {
	c := sensor.New()

	accepted := c.IngestSensor(sensorCode(1, scode.Param{Letter: 'V', Value: scode.Float32(1.0)}))
	if accepted {
		t.Fatalf("IngestSensor() = true without N/U on first observation, want false")
	}
	if len(c.Sensors()) != 0 {
		t.Fatalf("a sensor was created despite missing N/U")
	}
}

func TestIngestSensorUpdateDoesNotRequireNameUnit(t *testing.T) {
	c := sensor.New()
	c.IngestSensor(sensorCode(1,
		scode.Param{Letter: 'N', Value: scode.StringValue("temperature")},
		scode.Param{Letter: 'U', Value: scode.StringValue("C")},
		scode.Param{Letter: 'V', Value: scode.Float32(20.5)},
	))

	accepted := c.IngestSensor(sensorCode(1, scode.Param{Letter: 'V', Value: scode.Float32(21.0)}))
	if !accepted {
		t.Fatalf("IngestSensor() update = false, want true")
	}

	got, _ := c.Get("temperature")
	if got.Value != 21.0 {
		t.Fatalf("Get(temperature).Value = %v, want 21.0", got.Value)
	}
}

func TestIngestSensorNameUnitImmutableAfterFirstObservation(t *testing.T) {
	c := sensor.New()
	c.IngestSensor(sensorCode(1,
		scode.Param{Letter: 'N', Value: scode.StringValue("temperature")},
		scode.Param{Letter: 'U', Value: scode.StringValue("C")},
		scode.Param{Letter: 'V', Value: scode.Float32(20.5)},
	))

	c.IngestSensor(sensorCode(1,
		scode.Param{Letter: 'N', Value: scode.StringValue("renamed")},
		scode.Param{Letter: 'U', Value: scode.StringValue("F")},
		scode.Param{Letter: 'V', Value: scode.Float32(21.0)},
	))

	got, ok := c.Get("temperature")
	if !ok {
		t.Fatalf("Get(temperature) not found; name was mutated")
	}
	if got.Unit != "C" {
		t.Fatalf("Unit = %q, want it unchanged at %q", got.Unit, "C")
	}
}

func TestIngestSensorAcceptsDecimalStringValue(t *testing.T) {
	c := sensor.New()
	c.IngestSensor(sensorCode(1,
		scode.Param{Letter: 'N', Value: scode.StringValue("humidity")},
		scode.Param{Letter: 'U', Value: scode.StringValue("%")},
		scode.Param{Letter: 'V', Value: scode.StringValue("55.5")},
	))

	got, ok := c.Get("humidity")
	if !ok || got.Value != 55.5 {
		t.Fatalf("Get(humidity) = %+v, %v, want value=55.5", got, ok)
	}
}

func TestIngestAutosBitManipulation(t *testing.T) {
	c := sensor.New()
	for id := uint8(0); id <= 5; id++ {
		c.IngestSensor(sensorCode(id,
			scode.Param{Letter: 'N', Value: scode.StringValue("s")},
			scode.Param{Letter: 'U', Value: scode.StringValue("u")},
			scode.Param{Letter: 'V', Value: scode.Float32(0)},
		))
	}

	autos := scode.Code{
		Letter: 'M',
		Number: 102,
		Params: []scode.Param{
			{Letter: 'V', Value: scode.Int32(0b00001111)},
			{Letter: 'E', Value: scode.Int32(5)},
			{Letter: 'D', Value: scode.Int32(1)},
		},
	}

	if !c.IngestAutos(autos) {
		t.Fatalf("IngestAutos() = false, want true")
	}

	want := map[uint8]bool{0: true, 1: false, 2: true, 3: true, 4: false, 5: true}
	for _, s := range c.Sensors() {
		if s.Auto != want[s.ID] {
			t.Fatalf("sensor %d auto = %v, want %v", s.ID, s.Auto, want[s.ID])
		}
	}
}

func TestGetUnknownSensor(t *testing.T) {
	c := sensor.New()
	if _, ok := c.Get("nope"); ok {
		t.Fatalf("Get() found a sensor that was never ingested")
	}
}
