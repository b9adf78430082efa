// Package sensor implements the in-memory sensor catalogue: a keyed store
// of station-reported sensors, ingested from S{id} and M102 records.
package sensor

import (
	"sort"
	"sync"
	"time"

	"github.com/ttocsneb/station-comms/internal/scode"
)

// Sensor is one station-reported measurement channel. Name and Unit are
// set once, at first observation, and never mutated afterward.
type Sensor struct {
	ID         uint8
	Name       string
	Unit       string
	Value      float32
	LastUpdate time.Time
	Auto       bool
}

// Catalogue is a keyed store of Sensors with a secondary name index. It is
// safe for concurrent use; no I/O happens while its mutex is held.
type Catalogue struct {
	mu     sync.Mutex
	byID   map[uint8]*Sensor
	byName map[string]uint8
}

// New returns an empty Catalogue.
func New() *Catalogue {
	return &Catalogue{
		byID:   make(map[uint8]*Sensor),
		byName: make(map[string]uint8),
	}
}

// IngestSensor applies an S{id} record. It extracts parameter V as a
// float, accepting either a native float value or a UTF-8 decimal string.
// If the sensor already exists, only its value and last-update time
// change; otherwise N (name) and U (unit) are required and the sensor is
// created. It reports accepted once a value was installed.
func (c *Catalogue) IngestSensor(code scode.Code) bool {
	vParam, ok := code.Find('V')
	if !ok {
		return false
	}
	value, ok := vParam.Value.Float32Value()
	if !ok {
		return false
	}

	id := code.Number

	c.mu.Lock()
	defer c.mu.Unlock()

	s, exists := c.byID[id]
	if !exists {
		nParam, nOK := code.Find('N')
		uParam, uOK := code.Find('U')
		if !nOK || !uOK {
			return false
		}
		name, nameOK := nParam.Value.StringValueOf()
		unit, unitOK := uParam.Value.StringValueOf()
		if !nameOK || !unitOK {
			return false
		}

		s = &Sensor{ID: id, Name: name, Unit: unit}
		c.byID[id] = s
		c.byName[name] = id
	}

	s.Value = value
	s.LastUpdate = time.Now()
	return true
}

// IngestAutos applies an M102 autos-bitset record. Parameters are
// processed in order: E{n} sets bit n, D{n} clears bit n, V{x} overwrites
// the whole bitset. After processing, every known sensor's Auto flag is
// set from the bit at its id.
func (c *Catalogue) IngestAutos(code scode.Code) bool {
	var bitset uint64
	matched := false

	for _, p := range code.Params {
		switch p.Letter {
		case 'V':
			if v, ok := p.Value.Int32Value(); ok {
				bitset = uint64(uint32(v))
				matched = true
			}
		case 'E':
			if n, ok := p.Value.Uint8Value(); ok && n < 64 {
				bitset |= 1 << n
				matched = true
			}
		case 'D':
			if n, ok := p.Value.Uint8Value(); ok && n < 64 {
				bitset &^= 1 << n
				matched = true
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.byID {
		s.Auto = (bitset>>s.ID)&1 != 0
	}
	return matched
}

// Get returns the sensor registered under name, if any. The returned value
// is a copy, safe to read without holding the catalogue's lock.
func (c *Catalogue) Get(name string) (Sensor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.byName[name]
	if !ok {
		return Sensor{}, false
	}
	return *c.byID[id], true
}

// Sensors returns a snapshot of every sensor, ordered by id.
func (c *Catalogue) Sensors() []Sensor {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Sensor, 0, len(c.byID))
	for _, s := range c.byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
