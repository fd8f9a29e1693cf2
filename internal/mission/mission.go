package mission

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"mavplan/internal/units"
)

// Mode selects strict (mission) or relaxed (command) rule enforcement.
type Mode string

const (
	ModeMission Mode = "mission"
	ModeCommand Mode = "command"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMission:
		return ModeMission, true
	case ModeCommand:
		return ModeCommand, true
	default:
		return "", false
	}
}

// Strict reports whether structural rules apply.
func (m Mode) Strict() bool { return m == ModeMission }

// Mission is an ordered list of items. Seq equals the list index after every
// committed mutation.
type Mission struct {
	Items      []Item
	CreatedAt  time.Time
	ModifiedAt time.Time
}

func New() *Mission {
	now := time.Now().UTC()
	return &Mission{CreatedAt: now, ModifiedAt: now}
}

func (m *Mission) Len() int { return len(m.Items) }

// Renumber assigns seq 0..n-1 in list order.
func (m *Mission) Renumber() {
	for i := range m.Items {
		m.Items[i].Seq = i
	}
}

func (m *Mission) Touch() {
	m.ModifiedAt = time.Now().UTC()
}

// Clone deep-copies the mission.
func (m *Mission) Clone() *Mission {
	if m == nil {
		return nil
	}
	out := &Mission{CreatedAt: m.CreatedAt, ModifiedAt: m.ModifiedAt}
	out.Items = cloneItems(m.Items)
	return out
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// Origin is the position of the first takeoff item that has one.
func (m *Mission) Origin() (units.LatLon, bool) {
	for _, it := range m.Items {
		if it.Command == Takeoff && it.Position != nil {
			return *it.Position, true
		}
	}
	return units.LatLon{}, false
}

// Count returns how many items match any of the given types.
func (m *Mission) Count(types ...CommandType) int {
	n := 0
	for _, it := range m.Items {
		for _, t := range types {
			if it.Command == t {
				n++
				break
			}
		}
	}
	return n
}

// lastPositioned scans backwards from before index for the nearest item with
// a resolved position.
func (m *Mission) lastPositioned(before int) (units.LatLon, bool) {
	if before > len(m.Items) {
		before = len(m.Items)
	}
	for i := before - 1; i >= 0; i-- {
		it := m.Items[i]
		if it.Command.HasPosition() && it.Position != nil {
			return *it.Position, true
		}
	}
	return units.LatLon{}, false
}

// itemJSON is the snapshot form of an item. Absent values are null.
type itemJSON struct {
	Seq                    int      `json:"seq"`
	CommandType            string   `json:"command_type"`
	Current                bool     `json:"current"`
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	MGRS                   *string  `json:"mgrs,omitempty"`
	Altitude               *float64 `json:"altitude"`
	AltitudeUnits          *string  `json:"altitude_units"`
	Radius                 *float64 `json:"radius"`
	RadiusUnits            *string  `json:"radius_units"`
	Heading                *string  `json:"heading"`
	SearchTarget           *string  `json:"search_target"`
	DetectionBehavior      *string  `json:"detection_behavior"`
	Distance               *float64 `json:"distance"`
	DistanceUnits          *string  `json:"distance_units"`
	Direction              *string  `json:"direction"`
	RelativeReferenceFrame *string  `json:"relative_reference_frame"`
}

type missionJSON struct {
	Items      []itemJSON `json:"items"`
	CreatedAt  *time.Time `json:"created_at"`
	ModifiedAt *time.Time `json:"modified_at"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(toItemJSON(it))
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	item, err := fromItemJSON(raw)
	if err != nil {
		return err
	}
	*it = item
	return nil
}

func toItemJSON(it Item) itemJSON {
	out := itemJSON{
		Seq:               it.Seq,
		CommandType:       string(it.Command),
		Current:           it.Current,
		Heading:           strPtr(it.Heading),
		SearchTarget:      strPtr(it.SearchTarget),
		DetectionBehavior: strPtr(it.DetectionBehavior),
	}
	if it.Position != nil {
		lat, lon := it.Position.Lat, it.Position.Lon
		out.Latitude, out.Longitude = &lat, &lon
	}
	if it.Pending != nil {
		d := it.Pending.Distance.Value
		out.Distance = &d
		out.DistanceUnits = strPtr(it.Pending.Distance.Units)
		out.Direction = strPtr(it.Pending.Direction)
		out.RelativeReferenceFrame = strPtr(string(it.Pending.Frame))
	}
	if it.Altitude != nil {
		a := it.Altitude.Value
		out.Altitude = &a
		out.AltitudeUnits = strPtr(it.Altitude.Units)
	}
	if it.Radius != nil {
		r := it.Radius.Value
		out.Radius = &r
		out.RadiusUnits = strPtr(it.Radius.Units)
	}
	return out
}

func fromItemJSON(raw itemJSON) (Item, error) {
	cmd, ok := ParseCommandType(raw.CommandType)
	if !ok {
		return Item{}, errors.Errorf("unknown command_type %q", raw.CommandType)
	}
	it := Item{
		Seq:               raw.Seq,
		Command:           cmd,
		Current:           raw.Current,
		Heading:           derefStr(raw.Heading),
		SearchTarget:      derefStr(raw.SearchTarget),
		DetectionBehavior: derefStr(raw.DetectionBehavior),
	}
	if raw.Altitude != nil {
		it.Altitude = &units.Measurement{Value: *raw.Altitude, Units: derefStr(raw.AltitudeUnits)}
	}
	if raw.Radius != nil {
		it.Radius = &units.Measurement{Value: *raw.Radius, Units: derefStr(raw.RadiusUnits)}
	}

	switch {
	case raw.Latitude != nil && raw.Longitude != nil:
		p := units.LatLon{Lat: *raw.Latitude, Lon: *raw.Longitude}
		if !p.Valid() {
			return Item{}, errors.Errorf("item %d: coordinates out of range", raw.Seq)
		}
		it.Position = &p
	case raw.MGRS != nil && *raw.MGRS != "":
		p, ok := units.ParseMGRS(*raw.MGRS)
		if !ok {
			return Item{}, errors.Errorf("item %d: invalid MGRS %q", raw.Seq, *raw.MGRS)
		}
		it.Position = &p
	case raw.Distance != nil:
		direction := derefStr(raw.Direction)
		if direction == "" {
			// older snapshots kept the offset direction in heading
			direction = it.Heading
			it.Heading = ""
		}
		if _, ok := units.DirectionToBearing(direction); !ok {
			return Item{}, errors.Errorf("item %d: unrecognized direction %q", raw.Seq, direction)
		}
		frame, ok := ParseReferenceFrame(derefStr(raw.RelativeReferenceFrame))
		if !ok {
			return Item{}, errors.Errorf("item %d: unknown reference frame %q", raw.Seq, derefStr(raw.RelativeReferenceFrame))
		}
		it.Pending = &Offset{
			Distance:  units.Measurement{Value: *raw.Distance, Units: derefStr(raw.DistanceUnits)},
			Direction: direction,
			Frame:     frame,
		}
	}

	if err := it.CheckFields(); err != nil {
		return Item{}, errors.Wrapf(err, "item %d", raw.Seq)
	}
	return it, nil
}

func (m *Mission) MarshalJSON() ([]byte, error) {
	out := missionJSON{
		Items:      make([]itemJSON, len(m.Items)),
		CreatedAt:  &m.CreatedAt,
		ModifiedAt: &m.ModifiedAt,
	}
	for i, it := range m.Items {
		out.Items[i] = toItemJSON(it)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the snapshot form. Items are renumbered in list
// order and missing timestamps default to now.
func (m *Mission) UnmarshalJSON(data []byte) error {
	var raw missionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	items := make([]Item, 0, len(raw.Items))
	for _, ri := range raw.Items {
		it, err := fromItemJSON(ri)
		if err != nil {
			return err
		}
		items = append(items, it)
	}
	now := time.Now().UTC()
	m.Items = items
	m.CreatedAt, m.ModifiedAt = now, now
	if raw.CreatedAt != nil {
		m.CreatedAt = *raw.CreatedAt
	}
	if raw.ModifiedAt != nil {
		m.ModifiedAt = *raw.ModifiedAt
	}
	m.Renumber()
	return nil
}
