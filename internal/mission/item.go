package mission

import (
	"strings"

	"github.com/pkg/errors"

	"mavplan/internal/units"
)

// CommandType is the closed set of mission item kinds.
type CommandType string

const (
	Takeoff  CommandType = "takeoff"
	Waypoint CommandType = "waypoint"
	Loiter   CommandType = "loiter"
	RTL      CommandType = "rtl"
	Land     CommandType = "land"
	Survey   CommandType = "survey"
)

// CommandTypes lists every variant in display order.
var CommandTypes = []CommandType{Takeoff, Waypoint, Loiter, Survey, RTL, Land}

type capabilities struct {
	label            string
	position         bool
	positionRequired bool
	radius           bool
	heading          bool
	search           bool
}

var capabilityTable = map[CommandType]capabilities{
	Takeoff:  {label: "Takeoff", position: true, heading: true},
	Waypoint: {label: "Waypoint", position: true, positionRequired: true, heading: true, search: true},
	Loiter:   {label: "Loiter", position: true, positionRequired: true, radius: true, heading: true, search: true},
	RTL:      {label: "Return to Launch"},
	Land:     {label: "Land"},
	Survey:   {label: "Survey", position: true, positionRequired: true, radius: true, heading: true, search: true},
}

// ParseCommandType accepts a command name in any case.
func ParseCommandType(s string) (CommandType, bool) {
	c := CommandType(strings.ToLower(strings.TrimSpace(s)))
	_, ok := capabilityTable[c]
	return c, ok
}

func (c CommandType) Valid() bool {
	_, ok := capabilityTable[c]
	return ok
}

// Label is the human-readable name, e.g. "Return to Launch".
func (c CommandType) Label() string {
	if caps, ok := capabilityTable[c]; ok {
		return caps.label
	}
	return "Unknown " + string(c)
}

func (c CommandType) HasPosition() bool      { return capabilityTable[c].position }
func (c CommandType) RequiresPosition() bool { return capabilityTable[c].positionRequired }
func (c CommandType) HasRadius() bool        { return capabilityTable[c].radius }
func (c CommandType) HasHeading() bool       { return capabilityTable[c].heading }
func (c CommandType) HasSearch() bool        { return capabilityTable[c].search }

// IsTerminal reports whether the item ends the mission (RTL or land).
func (c CommandType) IsTerminal() bool { return c == RTL || c == Land }

// ReferenceFrame is the point a relative offset is measured from.
type ReferenceFrame string

const (
	FrameOrigin       ReferenceFrame = "origin"
	FrameLastWaypoint ReferenceFrame = "last_waypoint"
	FrameSelf         ReferenceFrame = "self"
)

// ParseReferenceFrame maps text to a frame. Empty text means origin.
func ParseReferenceFrame(s string) (ReferenceFrame, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "origin", "takeoff", "home":
		return FrameOrigin, true
	case "last_waypoint", "last waypoint", "previous":
		return FrameLastWaypoint, true
	case "self", "current":
		return FrameSelf, true
	default:
		return "", false
	}
}

// Offset is a relative position that has not been resolved yet because no
// reference point was known when the item was added.
type Offset struct {
	Distance  units.Measurement
	Direction string
	Frame     ReferenceFrame
}

func (o Offset) String() string {
	return o.Distance.String() + " " + o.Direction + " of " + string(o.Frame)
}

// Item is one mission instruction. Geometry is either Position or Pending,
// never both.
type Item struct {
	Seq     int
	Command CommandType
	Current bool

	Position *units.LatLon
	Pending  *Offset

	Altitude *units.Measurement
	Radius   *units.Measurement
	Heading  string

	SearchTarget      string
	DetectionBehavior string
}

func NewTakeoff(altitude units.Measurement) Item {
	return Item{Command: Takeoff, Altitude: &altitude}
}

func NewWaypoint(altitude units.Measurement) Item {
	return Item{Command: Waypoint, Altitude: &altitude}
}

func NewLoiter(altitude, radius units.Measurement) Item {
	return Item{Command: Loiter, Altitude: &altitude, Radius: &radius}
}

func NewSurvey(altitude, radius units.Measurement) Item {
	return Item{Command: Survey, Altitude: &altitude, Radius: &radius}
}

func NewRTL(altitude units.Measurement) Item {
	return Item{Command: RTL, Altitude: &altitude}
}

func NewLand(altitude units.Measurement) Item {
	return Item{Command: Land, Altitude: &altitude}
}

// SetPosition stores an absolute position and clears any pending offset.
func (it *Item) SetPosition(p units.LatLon) error {
	if !it.Command.HasPosition() {
		return errors.Errorf("%s commands don't support positioning", it.Command)
	}
	it.Position = &p
	it.Pending = nil
	return nil
}

// SetPending stores an unresolved offset and clears any position.
func (it *Item) SetPending(o Offset) error {
	if !it.Command.HasPosition() {
		return errors.Errorf("%s commands don't support positioning", it.Command)
	}
	it.Pending = &o
	it.Position = nil
	return nil
}

func (it *Item) SetAltitude(m units.Measurement) {
	it.Altitude = &m
}

func (it *Item) SetRadius(m units.Measurement) error {
	if !it.Command.HasRadius() {
		return errors.Errorf("%s commands don't support a radius", it.Command)
	}
	it.Radius = &m
	return nil
}

func (it *Item) SetHeading(h string) error {
	if !it.Command.HasHeading() {
		return errors.Errorf("%s commands don't support heading", it.Command)
	}
	it.Heading = h
	return nil
}

func (it *Item) SetSearch(target, behavior string) error {
	if !it.Command.HasSearch() {
		return errors.Errorf("%s commands don't support search parameters", it.Command)
	}
	if target != "" {
		it.SearchTarget = target
	}
	if behavior != "" {
		it.DetectionBehavior = behavior
	}
	return nil
}

// CheckFields rejects fields the variant does not carry.
func (it Item) CheckFields() error {
	if !it.Command.Valid() {
		return errors.Errorf("unknown command type %q", it.Command)
	}
	if it.Position != nil && it.Pending != nil {
		return errors.New("item has both an absolute position and a relative offset")
	}
	if (it.Position != nil || it.Pending != nil) && !it.Command.HasPosition() {
		return errors.Errorf("%s commands don't support positioning", it.Command)
	}
	if it.Radius != nil && !it.Command.HasRadius() {
		return errors.Errorf("%s commands don't support a radius", it.Command)
	}
	if it.Heading != "" && !it.Command.HasHeading() {
		return errors.Errorf("%s commands don't support heading", it.Command)
	}
	if (it.SearchTarget != "" || it.DetectionBehavior != "") && !it.Command.HasSearch() {
		return errors.Errorf("%s commands don't support search parameters", it.Command)
	}
	return nil
}

// Clone returns a copy that shares no pointers with it.
func (it Item) Clone() Item {
	out := it
	if it.Position != nil {
		p := *it.Position
		out.Position = &p
	}
	if it.Pending != nil {
		o := *it.Pending
		out.Pending = &o
	}
	if it.Altitude != nil {
		a := *it.Altitude
		out.Altitude = &a
	}
	if it.Radius != nil {
		r := *it.Radius
		out.Radius = &r
	}
	return out
}

// AltitudeMeters returns the altitude in meters, or 0 when unset.
func (it Item) AltitudeMeters() float64 {
	if it.Altitude == nil {
		return 0
	}
	return it.Altitude.Meters()
}
