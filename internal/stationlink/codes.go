package stationlink

import (
	"time"

	"github.com/ttocsneb/station-comms/internal/scode"
)

// stationEpoch is the station clock's day-zero, matching the original
// firmware's reference date.
var stationEpoch = time.Date(1984, time.January, 1, 0, 0, 0, 0, time.Local)

// RequestAllSensorsCode builds the M1 command that asks the station to
// stream back every sensor's metadata as a series of S records.
func RequestAllSensorsCode() scode.Code {
	return scode.Code{Letter: 'M', Number: 1}
}

// RequestSensorCode builds the S{id} command that asks the station for a
// single sensor record. When onlyValue is true, the R="V" parameter is
// attached so the station replies with just the value, skipping name/unit.
func RequestSensorCode(id uint8, onlyValue bool) scode.Code {
	c := scode.Code{Letter: 'S', Number: id}
	if onlyValue {
		c.Params = []scode.Param{{Letter: 'R', Value: scode.StringValue("V")}}
	}
	return c
}

// SetClockCode builds the one-shot M10 command that sets the station's
// clock to the current local time, expressed as days since the station
// epoch and milliseconds since local midnight.
func SetClockCode() scode.Code {
	return SetClockCodeAt(time.Now())
}

// SetClockCodeAt is SetClockCode parameterised on a reference instant, kept
// separate so tests can pin the instant under test.
func SetClockCodeAt(now time.Time) scode.Code {
	now = now.Local()
	days := int32(now.Sub(stationEpoch).Hours() / 24)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	millis := int32(now.Sub(midnight).Milliseconds())

	return scode.Code{
		Letter: 'M',
		Number: 10,
		Params: []scode.Param{
			{Letter: 'D', Value: scode.Int32(days)},
			{Letter: 'T', Value: scode.Int32(millis)},
		},
	}
}

// ResetCode builds the M20 reset command. It is part of the station's
// protocol surface but is never issued by this implementation.
func ResetCode() scode.Code {
	return scode.Code{Letter: 'M', Number: 20}
}

// RequestAutosCode builds the M102 command that asks the station for its
// per-sensor autos bitset.
func RequestAutosCode() scode.Code {
	return scode.Code{Letter: 'M', Number: 102}
}
