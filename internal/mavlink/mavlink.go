// Package mavlink converts missions to and from MISSION_ITEM_INT records.
package mavlink

import (
	"math"
	"strconv"

	"mavplan/internal/mission"
	"mavplan/internal/units"
)

// MAV_CMD values used by the planner.
const (
	CmdNavWaypoint       = 16
	CmdNavLoiterUnlim    = 17
	CmdNavReturnToLaunch = 20
	CmdNavLand           = 21
	CmdNavTakeoff        = 22
)

// FrameGlobalRelativeAltInt is MAV_FRAME_GLOBAL_RELATIVE_ALT_INT.
const FrameGlobalRelativeAltInt = 6

const (
	coordScale       = 1e7
	acceptanceRadius = 2.0
)

// Item is one MISSION_ITEM_INT. X and Y are degrees scaled by 1e7, Z is the
// altitude in meters relative to home.
type Item struct {
	Seq          int     `json:"seq"`
	Frame        int     `json:"frame"`
	Command      int     `json:"command"`
	Current      int     `json:"current"`
	Autocontinue int     `json:"autocontinue"`
	Param1       float64 `json:"param1"`
	Param2       float64 `json:"param2"`
	Param3       float64 `json:"param3"`
	Param4       float64 `json:"param4"`
	X            int32   `json:"x"`
	Y            int32   `json:"y"`
	Z            float64 `json:"z"`
}

var commandCodes = map[mission.CommandType]int{
	mission.Takeoff:  CmdNavTakeoff,
	mission.Waypoint: CmdNavWaypoint,
	mission.Loiter:   CmdNavLoiterUnlim,
	mission.RTL:      CmdNavReturnToLaunch,
	mission.Land:     CmdNavLand,
	mission.Survey:   CmdNavWaypoint,
}

var commandTypes = map[int]mission.CommandType{
	CmdNavTakeoff:        mission.Takeoff,
	CmdNavWaypoint:       mission.Waypoint,
	CmdNavLoiterUnlim:    mission.Loiter,
	CmdNavReturnToLaunch: mission.RTL,
	CmdNavLand:           mission.Land,
}

// CommandCode returns the MAV_CMD for a command type.
func CommandCode(c mission.CommandType) int {
	if code, ok := commandCodes[c]; ok {
		return code
	}
	return CmdNavWaypoint
}

// CommandType returns the command type for a MAV_CMD. Unknown codes decode
// as waypoints.
func CommandType(code int) mission.CommandType {
	if c, ok := commandTypes[code]; ok {
		return c
	}
	return mission.Waypoint
}

func scale(deg float64) int32 {
	return int32(math.Round(deg * coordScale))
}

func yaw(heading string) float64 {
	if heading == "" {
		return 0
	}
	y, ok := units.HeadingToYaw(heading)
	if !ok {
		return 0
	}
	return y
}

// EncodeItem packs one mission item. Items without a resolved position
// encode as 0,0.
func EncodeItem(it mission.Item) Item {
	out := Item{
		Seq:          it.Seq,
		Frame:        FrameGlobalRelativeAltInt,
		Command:      CommandCode(it.Command),
		Autocontinue: 1,
		Z:            it.AltitudeMeters(),
	}
	if it.Current {
		out.Current = 1
	}
	if it.Position != nil {
		out.X = scale(it.Position.Lat)
		out.Y = scale(it.Position.Lon)
	}

	switch it.Command {
	case mission.Takeoff:
		out.Param4 = yaw(it.Heading)
	case mission.Loiter:
		if it.Radius != nil {
			out.Param3 = it.Radius.Meters()
		}
	case mission.Waypoint, mission.Survey:
		out.Param1 = 0
		out.Param2 = acceptanceRadius
		out.Param3 = 0
		out.Param4 = yaw(it.Heading)
	}
	return out
}

// DecodeItem unpacks one record. Altitude and radius come back in meters.
func DecodeItem(in Item) mission.Item {
	cmd := CommandType(in.Command)
	altitude := units.Measurement{Value: in.Z, Units: units.Meters}
	it := mission.Item{
		Seq:      in.Seq,
		Command:  cmd,
		Current:  in.Current != 0,
		Altitude: &altitude,
	}

	if cmd.HasPosition() && !(cmd == mission.Takeoff && in.X == 0 && in.Y == 0) {
		p := units.LatLon{Lat: float64(in.X) / coordScale, Lon: float64(in.Y) / coordScale}
		it.Position = &p
	}

	switch cmd {
	case mission.Takeoff, mission.Waypoint:
		if in.Param4 != 0 {
			it.Heading = strconv.FormatFloat(in.Param4, 'f', -1, 64)
		}
	case mission.Loiter:
		r := units.Measurement{Value: in.Param3, Units: units.Meters}
		it.Radius = &r
	}
	return it
}

// Encode converts a whole mission.
func Encode(m *mission.Mission) []Item {
	if m == nil {
		return []Item{}
	}
	out := make([]Item, len(m.Items))
	for i, it := range m.Items {
		out[i] = EncodeItem(it)
	}
	return out
}

// Decode builds a mission from records, renumbered in list order.
func Decode(items []Item) *mission.Mission {
	m := mission.New()
	m.Items = make([]mission.Item, len(items))
	for i, in := range items {
		m.Items[i] = DecodeItem(in)
	}
	m.Renumber()
	return m
}
