package units

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Canonical unit names. Values are stored with exactly these names.
const (
	Feet       = "feet"
	Meters     = "meters"
	Miles      = "miles"
	Kilometers = "kilometers"
)

const (
	metersPerFoot      = 0.3048
	metersPerMile      = 1609.344
	metersPerKilometer = 1000.0
)

// Measurement is a numeric value plus the units it was given in.
// Units is empty when the input was a bare number.
type Measurement struct {
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

func (m Measurement) String() string {
	v := strconv.FormatFloat(m.Value, 'f', -1, 64)
	if m.Units == "" {
		return v
	}
	return v + " " + m.Units
}

// Meters converts the measurement with ToMeters.
func (m Measurement) Meters() float64 {
	return ToMeters(m.Value, m.Units)
}

// WithDefaultUnits fills empty units.
func (m Measurement) WithDefaultUnits(units string) Measurement {
	if m.Units == "" {
		m.Units = units
	}
	return m
}

var unitAliases = map[string]string{
	"ft":         Feet,
	"foot":       Feet,
	"feet":       Feet,
	"'":          Feet,
	"m":          Meters,
	"meter":      Meters,
	"meters":     Meters,
	"metre":      Meters,
	"metres":     Meters,
	"mi":         Miles,
	"mile":       Miles,
	"miles":      Miles,
	"km":         Kilometers,
	"kilometer":  Kilometers,
	"kilometers": Kilometers,
	"kilometre":  Kilometers,
	"kilometres": Kilometers,
	"kms":        Kilometers,
}

var (
	altitudeUnits = map[string]bool{Feet: true, Meters: true}
	distanceUnits = map[string]bool{Feet: true, Meters: true, Miles: true, Kilometers: true}
)

var measurementRe = regexp.MustCompile(`^\s*([-+]?(?:\d+\.?\d*|\.\d+))\s*([A-Za-z']*)\.?\s*$`)

// NormalizeUnits maps an alias ("ft", "Metres") to its canonical name.
func NormalizeUnits(s string) (string, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	return u, ok
}

// ParseAltitude accepts a number, a numeric string or "<number> <unit>"
// with feet or meters.
func ParseAltitude(v any) (Measurement, bool) {
	return parseMeasurement(v, altitudeUnits)
}

// ParseDistance accepts feet, meters, miles and kilometers.
func ParseDistance(v any) (Measurement, bool) {
	return parseMeasurement(v, distanceUnits)
}

// ParseRadius accepts the same vocabulary as ParseDistance.
func ParseRadius(v any) (Measurement, bool) {
	return parseMeasurement(v, distanceUnits)
}

func parseMeasurement(v any, allowed map[string]bool) (Measurement, bool) {
	switch t := v.(type) {
	case nil:
		return Measurement{}, false
	case float64:
		return Measurement{Value: t}, true
	case float32:
		return Measurement{Value: float64(t)}, true
	case int:
		return Measurement{Value: float64(t)}, true
	case int64:
		return Measurement{Value: float64(t)}, true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Measurement{}, false
		}
		return Measurement{Value: f}, true
	case Measurement:
		if t.Units == "" {
			return t, true
		}
		u, ok := NormalizeUnits(t.Units)
		if !ok || !allowed[u] {
			return Measurement{}, false
		}
		return Measurement{Value: t.Value, Units: u}, true
	case string:
		m := measurementRe.FindStringSubmatch(t)
		if m == nil {
			return Measurement{}, false
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Measurement{}, false
		}
		if m[2] == "" {
			return Measurement{Value: f}, true
		}
		u, ok := NormalizeUnits(m[2])
		if !ok || !allowed[u] {
			return Measurement{}, false
		}
		return Measurement{Value: f, Units: u}, true
	default:
		return Measurement{}, false
	}
}

// ToMeters converts value in units to meters. Unknown or empty units are
// treated as meters.
func ToMeters(value float64, units string) float64 {
	u, _ := NormalizeUnits(units)
	switch u {
	case Feet:
		return value * metersPerFoot
	case Miles:
		return value * metersPerMile
	case Kilometers:
		return value * metersPerKilometer
	default:
		return value
	}
}

// FromMeters is the inverse of ToMeters.
func FromMeters(meters float64, units string) float64 {
	u, _ := NormalizeUnits(units)
	switch u {
	case Feet:
		return meters / metersPerFoot
	case Miles:
		return meters / metersPerMile
	case Kilometers:
		return meters / metersPerKilometer
	default:
		return meters
	}
}

// FormatValue renders a float without trailing zeros.
func FormatValue(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Describe renders "value units" for messages, e.g. "2 miles".
func Describe(value float64, units string) string {
	if units == "" {
		return FormatValue(value)
	}
	return fmt.Sprintf("%s %s", FormatValue(value), units)
}
