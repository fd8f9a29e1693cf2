package units

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAltitude(t *testing.T) {
	testCases := []struct {
		name   string
		input  any
		want   Measurement
		wantOK bool
	}{
		{name: "bare float", input: 50.0, want: Measurement{Value: 50}, wantOK: true},
		{name: "bare int", input: 30, want: Measurement{Value: 30}, wantOK: true},
		{name: "json number", input: json.Number("12.5"), want: Measurement{Value: 12.5}, wantOK: true},
		{name: "numeric string", input: "120", want: Measurement{Value: 120}, wantOK: true},
		{name: "feet", input: "20 feet", want: Measurement{Value: 20, Units: Feet}, wantOK: true},
		{name: "ft alias no space", input: "150ft", want: Measurement{Value: 150, Units: Feet}, wantOK: true},
		{name: "metres alias", input: "35 Metres", want: Measurement{Value: 35, Units: Meters}, wantOK: true},
		{name: "miles rejected for altitude", input: "2 miles", wantOK: false},
		{name: "unknown unit", input: "10 furlongs", wantOK: false},
		{name: "garbage", input: "high", wantOK: false},
		{name: "nil", input: nil, wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseAltitude(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestParseDistance(t *testing.T) {
	testCases := []struct {
		name   string
		input  any
		want   Measurement
		wantOK bool
	}{
		{name: "miles", input: "2 miles", want: Measurement{Value: 2, Units: Miles}, wantOK: true},
		{name: "mi", input: "2 mi", want: Measurement{Value: 2, Units: Miles}, wantOK: true},
		{name: "km decimal", input: "1.5 km", want: Measurement{Value: 1.5, Units: Kilometers}, wantOK: true},
		{name: "meters", input: "500 meters", want: Measurement{Value: 500, Units: Meters}, wantOK: true},
		{name: "leading dot", input: ".5 km", want: Measurement{Value: 0.5, Units: Kilometers}, wantOK: true},
		{name: "unknown", input: "3 leagues", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDistance(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestToMeters(t *testing.T) {
	assert.InDelta(t, 3218.688, ToMeters(2, Miles), 1e-9)
	assert.InDelta(t, 6.096, ToMeters(20, "ft"), 1e-9)
	assert.InDelta(t, 1500, ToMeters(1.5, Kilometers), 1e-9)
	assert.Equal(t, 42.0, ToMeters(42, ""))
	assert.Equal(t, 42.0, ToMeters(42, "cubits"))
	assert.InDelta(t, 400, FromMeters(ToMeters(400, Feet), Feet), 1e-9)
}

func TestParseCoordinates(t *testing.T) {
	p, ok := ParseCoordinates("37.7749, -122.4194")
	require.True(t, ok)
	assert.Equal(t, LatLon{Lat: 37.7749, Lon: -122.4194}, p)

	p, ok = ParseCoordinates([]any{10.0, 20.0})
	require.True(t, ok)
	assert.Equal(t, LatLon{Lat: 10, Lon: 20}, p)

	_, ok = ParseCoordinates("95, 10")
	assert.False(t, ok)
	_, ok = ParseCoordinates("north of here")
	assert.False(t, ok)
	_, ok = ParseCoordinates("1,2,3")
	assert.False(t, ok)
}

func TestDirectionToBearing(t *testing.T) {
	testCases := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"north", 0, true},
		{"NORTH", 0, true},
		{"north east", 45, true},
		{"north-east", 45, true},
		{"NE", 45, true},
		{"south", 180, true},
		{"southwest", 225, true},
		{"W", 270, true},
		{"upwards", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := DirectionToBearing(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHeadingToYaw(t *testing.T) {
	yaw, ok := HeadingToYaw("90")
	require.True(t, ok)
	assert.Equal(t, 90.0, yaw)

	yaw, ok = HeadingToYaw("-90")
	require.True(t, ok)
	assert.Equal(t, 270.0, yaw)

	yaw, ok = HeadingToYaw("south east")
	require.True(t, ok)
	assert.Equal(t, 135.0, yaw)

	_, ok = HeadingToYaw("sideways")
	assert.False(t, ok)
}

func TestOffsetNorth(t *testing.T) {
	ref := LatLon{Lat: 37.7749, Lon: -122.4194}
	got, ok := Offset(ref, 2, "north", Miles)
	require.True(t, ok)

	assert.InDelta(t, ref.Lon, got.Lon, 1e-12)
	assert.Greater(t, got.Lat, ref.Lat)
	assert.InDelta(t, 3218.688, Distance(ref, got), 1.0)
}

func TestOffsetEast(t *testing.T) {
	ref := LatLon{Lat: 45, Lon: 10}
	got, ok := Offset(ref, 500, "east", Meters)
	require.True(t, ok)

	assert.InDelta(t, ref.Lat, got.Lat, 1e-12)
	assert.Greater(t, got.Lon, ref.Lon)
	assert.InDelta(t, 500, Distance(ref, got), 0.5)
}

func TestOffsetRejectsUnknownDirection(t *testing.T) {
	_, ok := Offset(LatLon{}, 100, "up", Meters)
	assert.False(t, ok)
}

func TestParseMGRS(t *testing.T) {
	p, ok := ParseMGRS("18SUJ2337106519")
	require.True(t, ok)
	assert.InDelta(t, 38.8898, p.Lat, 1e-3)
	assert.InDelta(t, -77.0365, p.Lon, 1e-3)

	spaced, ok := ParseMGRS("18S UJ 23371 06519")
	require.True(t, ok)
	assert.InDelta(t, p.Lat, spaced.Lat, 1e-12)
	assert.InDelta(t, p.Lon, spaced.Lon, 1e-12)

	coarse, ok := ParseMGRS("18SUJ2306")
	require.True(t, ok)
	assert.LessOrEqual(t, coarse.Lat, p.Lat)
	assert.False(t, math.IsNaN(coarse.Lon))
}

func TestParseMGRSSouthernHemisphere(t *testing.T) {
	// Sydney CBD.
	p, ok := ParseMGRS("56HLH3436250948")
	require.True(t, ok)
	assert.InDelta(t, -33.8688, p.Lat, 1e-3)
	assert.InDelta(t, 151.2092, p.Lon, 1e-3)
}

func TestParseMGRSRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "SUJ123", "18IUJ1234", "18SUJ123", "99SUJ1234", "18SUJ12AB"} {
		_, ok := ParseMGRS(s)
		assert.False(t, ok, s)
	}
}
