// Package weather assembles the outbound weather update record published
// to the telemetry bus: per-field sensor snapshots plus a derived dew
// point, shaped for JSON encoding.
package weather

import (
	"math"
	"time"

	"github.com/ttocsneb/station-comms/internal/sensor"
)

const (
	dewPointA = 17.625
	dewPointB = 243.04
)

// FieldValue is one {unit, value} observation in an update's field list.
type FieldValue struct {
	Unit  string  `json:"unit"`
	Value float32 `json:"value"`
}

// Update is the outbound weather record: a snapshot of the catalogue's
// recognised fields at publish time, plus the station's identity and the
// local time of assembly.
type Update struct {
	Time string `json:"time"`
	ID   string `json:"id"`

	WindDir            []FieldValue `json:"winddir"`
	WindSpd            []FieldValue `json:"windspd"`
	WindGustSpd2m      []FieldValue `json:"windgustspd-2m"`
	WindGustDir2m      []FieldValue `json:"windgustdir-2m"`
	WindSpdAvg2m       []FieldValue `json:"windspd-avg2m"`
	WindDirAvg2m       []FieldValue `json:"winddir-avg2m"`
	WindSpdAvg10m      []FieldValue `json:"windspd-avg10m"`
	WindDirAvg10m      []FieldValue `json:"winddir-avg10m"`
	WindGustSpd10m     []FieldValue `json:"windgustspd-10m"`
	WindGustDir10m     []FieldValue `json:"windgustdir-10m"`
	Humidity           []FieldValue `json:"humidity"`
	Temp               []FieldValue `json:"temp"`
	RainHour           []FieldValue `json:"rain-1h"`
	DailyRain          []FieldValue `json:"dailyrain"`
	Barom              []FieldValue `json:"barom"`
	UV                 []FieldValue `json:"uv"`
	DewPoint           []FieldValue `json:"dewpoint"`
}

// field is one row of the JSON-key -> catalogue-name mapping.
type field struct {
	catalogueName string
	set           func(u *Update, v []FieldValue)
}

var fields = []field{
	{"wind heading", func(u *Update, v []FieldValue) { u.WindDir = v }},
	{"wind speed", func(u *Update, v []FieldValue) { u.WindSpd = v }},
	{"gust 2m wind speed", func(u *Update, v []FieldValue) { u.WindGustSpd2m = v }},
	{"gust 2m wind heading", func(u *Update, v []FieldValue) { u.WindGustDir2m = v }},
	{"avg 2m wind speed", func(u *Update, v []FieldValue) { u.WindSpdAvg2m = v }},
	{"avg 2m wind heading", func(u *Update, v []FieldValue) { u.WindDirAvg2m = v }},
	{"avg 10m wind speed", func(u *Update, v []FieldValue) { u.WindSpdAvg10m = v }},
	{"avg 10m wind heading", func(u *Update, v []FieldValue) { u.WindDirAvg10m = v }},
	{"gust 10m wind speed", func(u *Update, v []FieldValue) { u.WindGustSpd10m = v }},
	{"gust 10m wind heading", func(u *Update, v []FieldValue) { u.WindGustDir10m = v }},
	{"humidity", func(u *Update, v []FieldValue) { u.Humidity = v }},
	{"temperature", func(u *Update, v []FieldValue) { u.Temp = v }},
	{"rain hour", func(u *Update, v []FieldValue) { u.RainHour = v }},
	{"rain day", func(u *Update, v []FieldValue) { u.DailyRain = v }},
	{"pressure", func(u *Update, v []FieldValue) { u.Barom = v }},
	{"uv", func(u *Update, v []FieldValue) { u.UV = v }},
}

// Assemble snapshots cat and composes an Update for stationID, filling in
// the derived dew point when both temperature and humidity are present.
// A field with no corresponding sensor is left as an empty (non-nil) list,
// so it serializes as [] rather than null: empty means "unavailable," not
// "absent from the payload."
func Assemble(cat *sensor.Catalogue, stationID string, now time.Time) Update {
	u := Update{
		Time: now.Format(time.RFC3339),
		ID:   stationID,
	}

	for _, f := range fields {
		f.set(&u, []FieldValue{})
	}
	for _, f := range fields {
		if s, ok := cat.Get(f.catalogueName); ok {
			f.set(&u, []FieldValue{{Unit: s.Unit, Value: s.Value}})
		}
	}

	u.DewPoint = []FieldValue{}
	if dp, unit, ok := DewPoint(cat); ok {
		u.DewPoint = []FieldValue{{Unit: unit, Value: dp}}
	}

	return u
}

// DewPoint derives the dew point from the catalogue's temperature and
// humidity sensors using the Magnus formula. It reports ok=false when
// either sensor is unavailable.
func DewPoint(cat *sensor.Catalogue) (value float32, unit string, ok bool) {
	temp, tOK := cat.Get("temperature")
	humidity, hOK := cat.Get("humidity")
	if !tOK || !hOK {
		return 0, "", false
	}

	t := float64(temp.Value)
	rh := float64(humidity.Value) / 100
	alpha := math.Log(rh) + dewPointA*t/(dewPointB+t)
	dewpoint := dewPointB * alpha / (dewPointA - alpha)

	return float32(dewpoint), temp.Unit, true
}

// UpdateAsMap is the alternative payload shape observed in the source: the
// same snapshot, keyed by catalogue name instead of spread across named
// struct fields. Nothing in this repo calls it by default; it exists so a
// downstream consumer that wants the map form can opt into it.
func UpdateAsMap(cat *sensor.Catalogue, stationID string, now time.Time) map[string]any {
	out := map[string]any{
		"time": now.Format(time.RFC3339),
		"id":   stationID,
	}

	sensors := make(map[string][]FieldValue)
	for _, f := range fields {
		if s, ok := cat.Get(f.catalogueName); ok {
			sensors[f.catalogueName] = []FieldValue{{Unit: s.Unit, Value: s.Value}}
		}
	}
	if dp, unit, ok := DewPoint(cat); ok {
		sensors["dewpoint"] = []FieldValue{{Unit: unit, Value: dp}}
	}

	out["sensors"] = sensors
	return out
}
