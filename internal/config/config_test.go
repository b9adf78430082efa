package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ttocsneb/station-comms/internal/config"
)

const sampleTOML = `
make = "Acme"
model = "WX-1000"
district = "Downtown"
city = "Springfield"
region = "State"
country = "Country"
latitude = 40.1
longitude = -75.2
elevation = 120.0

[mqtt]
host = "tcp://broker:1883"
id = "station-1"

[serial]
path = "/dev/ttyUSB0"
baudrate = 9600
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "station.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, sampleTOML)

	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if c.Serial.Parity != config.ParityNone {
		t.Fatalf("Serial.Parity = %v, want default None", c.Serial.Parity)
	}
	if c.Serial.Databits != 8 {
		t.Fatalf("Serial.Databits = %v, want default 8", c.Serial.Databits)
	}
	if c.Serial.Stopbits != 1 {
		t.Fatalf("Serial.Stopbits = %v, want default 1", c.Serial.Stopbits)
	}
	if c.MQTT.ID != "station-1" {
		t.Fatalf("MQTT.ID = %q, want station-1", c.MQTT.ID)
	}
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	path := writeTemp(t, `
make = "Acme"
model = "WX-1000"
`)

	if _, err := config.Load(path); err == nil {
		t.Fatalf("Load() error = nil, want an error for missing required fields")
	}
}

func TestLoadRejectsMissingElevation(t *testing.T) {
	path := writeTemp(t, `
make = "Acme"
model = "WX-1000"
district = "Downtown"
city = "Springfield"
region = "State"
country = "Country"
latitude = 40.1
longitude = -75.2

[mqtt]
host = "tcp://broker:1883"
id = "station-1"

[serial]
path = "/dev/ttyUSB0"
baudrate = 9600
`)

	if _, err := config.Load(path); err == nil {
		t.Fatalf("Load() error = nil, want an error for a missing elevation")
	}
}

func TestLoadRejectsUnknownParity(t *testing.T) {
	path := writeTemp(t, `
make = "Acme"
model = "WX-1000"
district = "Downtown"
city = "Springfield"
region = "State"
country = "Country"
latitude = 40.1
longitude = -75.2
elevation = 120.0

[mqtt]
host = "tcp://broker:1883"
id = "station-1"

[serial]
path = "/dev/ttyUSB0"
baudrate = 9600
parity = "Bogus"
`)

	if _, err := config.Load(path); err == nil {
		t.Fatalf("Load() error = nil, want an error for an invalid parity value")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("Load() error = nil, want an error for a missing file")
	}
}
