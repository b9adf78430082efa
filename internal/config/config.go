// Package config loads station-comms' TOML configuration file.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Parity is the UART parity mode.
type Parity string

const (
	ParityNone  Parity = "None"
	ParityEven  Parity = "Even"
	ParityOdd   Parity = "Odd"
	ParityMark  Parity = "Mark"
	ParitySpace Parity = "Space"
)

// Serial holds the serial device configuration.
type Serial struct {
	Path     string `toml:"path"`
	Baudrate uint32 `toml:"baudrate"`
	Parity   Parity `toml:"parity"`
	Databits uint8  `toml:"databits"`
	Stopbits uint8  `toml:"stopbits"`
}

// MQTT holds the broker connection configuration.
type MQTT struct {
	Host    string  `toml:"host"`
	Timeout float64 `toml:"timeout"`
	ID      string  `toml:"id"`
}

// Config is the top-level station.toml document.
type Config struct {
	Make      string  `toml:"make"`
	Model     string  `toml:"model"`
	District  string  `toml:"district"`
	City      string  `toml:"city"`
	Region    string  `toml:"region"`
	Country   string  `toml:"country"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
	Elevation float64 `toml:"elevation"`

	MQTT   MQTT   `toml:"mqtt"`
	Serial Serial `toml:"serial"`
}

// Load reads and decodes path, filling in documented defaults for any
// field the file leaves unset, then validates that every required field
// is present.
func Load(path string) (*Config, error) {
	var c Config
	c.Serial.Parity = ParityNone
	c.Serial.Databits = 8
	c.Serial.Stopbits = 1

	meta, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
	}

	if err := c.validate(meta); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return &c, nil
}

func (c *Config) validate(meta toml.MetaData) error {
	required := map[string]string{
		"make":        c.Make,
		"model":       c.Model,
		"district":    c.District,
		"city":        c.City,
		"region":      c.Region,
		"country":     c.Country,
		"mqtt.host":   c.MQTT.Host,
		"mqtt.id":     c.MQTT.ID,
		"serial.path": c.Serial.Path,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("missing required field %q", name)
		}
	}
	if c.Serial.Baudrate == 0 {
		return fmt.Errorf("missing required field %q", "serial.baudrate")
	}
	// latitude/longitude/elevation are legitimately zero-valued, so an
	// empty float can't signal "absent" the way an empty string does;
	// check the decoder's key metadata instead.
	for _, name := range []string{"latitude", "longitude", "elevation"} {
		if !meta.IsDefined(name) {
			return fmt.Errorf("missing required field %q", name)
		}
	}
	switch c.Serial.Parity {
	case ParityNone, ParityEven, ParityOdd, ParityMark, ParitySpace:
	default:
		return fmt.Errorf("invalid serial.parity %q", c.Serial.Parity)
	}
	return nil
}
