package mission

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mavplan/internal/units"
)

func TestMissionJSONRoundTrip(t *testing.T) {
	ms := New()
	ms.CreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ms.ModifiedAt = ms.CreatedAt.Add(time.Minute)

	lo := positioned(NewLoiter(feet(120), meters(40)), 37.78, -122.41)
	lo.SearchTarget = "red car"
	lo.DetectionBehavior = "tag_and_continue"
	lo.Heading = "east"
	wp := NewWaypoint(feet(100))
	wp.Pending = &Offset{Distance: units.Measurement{Value: 2, Units: units.Miles}, Direction: "north", Frame: FrameLastWaypoint}
	ms.Items = []Item{positioned(NewTakeoff(feet(50)), 37.77, -122.42), lo, wp, NewRTL(feet(50))}
	ms.Renumber()

	data, err := json.Marshal(ms)
	require.NoError(t, err)

	var back Mission
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ms.Items, back.Items)
	assert.True(t, ms.CreatedAt.Equal(back.CreatedAt))
	assert.True(t, ms.ModifiedAt.Equal(back.ModifiedAt))
}

func TestMissionJSONShape(t *testing.T) {
	ms := buildMission(NewRTL(feet(50)))
	data, err := json.Marshal(ms)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "created_at")
	assert.Contains(t, raw, "modified_at")

	item := raw["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "rtl", item["command_type"])
	assert.Equal(t, 50.0, item["altitude"])
	assert.Equal(t, "feet", item["altitude_units"])
	assert.Nil(t, item["latitude"])
	assert.Contains(t, item, "relative_reference_frame")
}

func TestMissionUnmarshalLegacyForms(t *testing.T) {
	doc := `{"items": [
		{"seq": 4, "command_type": "takeoff", "altitude": 30, "altitude_units": "meters", "mgrs": "18SUJ2337106519"},
		{"seq": 9, "command_type": "waypoint", "distance": 500, "distance_units": "meters", "heading": "east", "relative_reference_frame": "origin"}
	]}`

	var ms Mission
	require.NoError(t, json.Unmarshal([]byte(doc), &ms))
	require.Len(t, ms.Items, 2)
	assert.Equal(t, 0, ms.Items[0].Seq)
	assert.Equal(t, 1, ms.Items[1].Seq)
	require.NotNil(t, ms.Items[0].Position)
	assert.InDelta(t, 38.89, ms.Items[0].Position.Lat, 0.01)

	wp := ms.Items[1]
	require.NotNil(t, wp.Pending)
	assert.Equal(t, "east", wp.Pending.Direction)
	assert.Empty(t, wp.Heading)
	assert.False(t, ms.CreatedAt.IsZero())
}

func TestMissionUnmarshalRejectsBadItems(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{"unknown command", `{"items":[{"command_type":"barrel_roll"}]}`},
		{"radius on waypoint", `{"items":[{"command_type":"waypoint","latitude":1,"longitude":1,"radius":5}]}`},
		{"heading on rtl", `{"items":[{"command_type":"rtl","heading":"north"}]}`},
		{"bad latitude", `{"items":[{"command_type":"waypoint","latitude":100,"longitude":1}]}`},
		{"bad direction", `{"items":[{"command_type":"waypoint","distance":5,"direction":"up"}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var ms Mission
			assert.Error(t, json.Unmarshal([]byte(tc.doc), &ms))
		})
	}
}

func TestItemCloneIsDeep(t *testing.T) {
	it := positioned(NewLoiter(feet(100), meters(50)), 1, 2)
	c := it.Clone()
	c.Position.Lat = 99
	c.Altitude.Value = 1
	c.Radius.Value = 2
	assert.Equal(t, 1.0, it.Position.Lat)
	assert.Equal(t, 100.0, it.Altitude.Value)
	assert.Equal(t, 50.0, it.Radius.Value)
}

func TestCommandTypeCapabilities(t *testing.T) {
	assert.True(t, Takeoff.HasPosition())
	assert.False(t, Takeoff.RequiresPosition())
	assert.True(t, Loiter.HasRadius())
	assert.False(t, Waypoint.HasRadius())
	assert.False(t, RTL.HasHeading())
	assert.True(t, Land.IsTerminal())
	assert.Equal(t, "Return to Launch", RTL.Label())

	c, ok := ParseCommandType(" Survey ")
	assert.True(t, ok)
	assert.Equal(t, Survey, c)
	_, ok = ParseCommandType("hover")
	assert.False(t, ok)
}
