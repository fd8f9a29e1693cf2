package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadiusMetres float64 = 6371000

// LatLon is an absolute position in decimal degrees.
type LatLon struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

func (p LatLon) String() string {
	return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lon)
}

// Valid reports whether the position is inside the WGS84 degree ranges.
func (p LatLon) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon)
}

// ParseCoordinates accepts "lat,lon" text or a two element slice.
func ParseCoordinates(v any) (LatLon, bool) {
	switch t := v.(type) {
	case string:
		parts := strings.Split(strings.TrimSpace(t), ",")
		if len(parts) != 2 {
			return LatLon{}, false
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return LatLon{}, false
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return LatLon{}, false
		}
		p := LatLon{Lat: lat, Lon: lon}
		return p, p.Valid()
	case []any:
		if len(t) != 2 {
			return LatLon{}, false
		}
		lat, ok1 := t[0].(float64)
		lon, ok2 := t[1].(float64)
		if !ok1 || !ok2 {
			return LatLon{}, false
		}
		p := LatLon{Lat: lat, Lon: lon}
		return p, p.Valid()
	case []float64:
		if len(t) != 2 {
			return LatLon{}, false
		}
		p := LatLon{Lat: t[0], Lon: t[1]}
		return p, p.Valid()
	case LatLon:
		return t, t.Valid()
	default:
		return LatLon{}, false
	}
}

var compassBearings = map[string]float64{
	"n":         0,
	"north":     0,
	"ne":        45,
	"northeast": 45,
	"e":         90,
	"east":      90,
	"se":        135,
	"southeast": 135,
	"s":         180,
	"south":     180,
	"sw":        225,
	"southwest": 225,
	"w":         270,
	"west":      270,
	"nw":        315,
	"northwest": 315,
}

// DirectionToBearing maps compass text ("north", "South-East", "nw") to a
// bearing in degrees clockwise from north.
func DirectionToBearing(text string) (float64, bool) {
	key := strings.ToLower(strings.TrimSpace(text))
	key = strings.NewReplacer("-", "", " ", "", "_", "").Replace(key)
	b, ok := compassBearings[key]
	return b, ok
}

// HeadingToYaw accepts numeric degrees or compass text and returns a yaw in
// [0,360).
func HeadingToYaw(text string) (float64, bool) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "°"))
	s = strings.TrimSuffix(strings.TrimSuffix(s, " degrees"), " deg")
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		yaw := math.Mod(f, 360)
		if yaw < 0 {
			yaw += 360
		}
		return yaw, true
	}
	return DirectionToBearing(text)
}

// Offset moves ref by distance (in units) towards a compass direction using
// an equirectangular approximation. It is meant for mission-planning
// offsets of a few kilometres.
func Offset(ref LatLon, distance float64, direction, distanceUnits string) (LatLon, bool) {
	bearing, ok := DirectionToBearing(direction)
	if !ok {
		return LatLon{}, false
	}
	meters := ToMeters(distance, distanceUnits)
	rad := bearing * math.Pi / 180
	north := meters * math.Cos(rad)
	east := meters * math.Sin(rad)

	dLat := north / earthRadiusMetres * 180 / math.Pi
	dLon := east / (earthRadiusMetres * math.Cos(ref.Lat*math.Pi/180)) * 180 / math.Pi
	return LatLon{Lat: ref.Lat + dLat, Lon: ref.Lon + dLon}, true
}

// Distance returns the haversine distance between two points in meters.
func Distance(from, to LatLon) float64 {
	deltaLat := (to.Lat - from.Lat) * (math.Pi / 180)
	deltaLon := (to.Lon - from.Lon) * (math.Pi / 180)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(from.Lat*(math.Pi/180))*math.Cos(to.Lat*(math.Pi/180))*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMetres * c
}
