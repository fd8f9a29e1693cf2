package mission

import (
	"fmt"

	"github.com/pkg/errors"

	"mavplan/internal/config"
	"mavplan/internal/units"
)

var (
	// ErrNoMission is returned when a mutation is attempted without a live mission.
	ErrNoMission = errors.New("no active mission")
	// ErrNoSuchItem is returned for an out-of-range sequence number.
	ErrNoSuchItem = errors.New("no such mission item")
	// ErrNoReference is returned when a relative position has nothing to be
	// measured from.
	ErrNoReference = errors.New("no reference position")
)

// ItemSpec is the already-parsed input of an add operation. Nil or empty
// fields take the configured defaults.
type ItemSpec struct {
	Altitude *units.Measurement
	Radius   *units.Measurement
	Heading  string

	Position  *units.LatLon
	Distance  *units.Measurement
	Direction string
	Frame     ReferenceFrame

	SearchTarget      string
	DetectionBehavior string
}

// Manager owns one live mission and mediates every change to it. It is not
// safe for concurrent use.
type Manager struct {
	rules      config.Agent
	mode       Mode
	mission    *Mission
	home       *units.LatLon
	lastAction *Item
}

func NewManager(rules config.Agent, mode Mode) *Manager {
	if mode == "" {
		mode = ModeMission
	}
	return &Manager{rules: rules, mode: mode}
}

func (m *Manager) Rules() config.Agent { return m.rules }

// CreateMission replaces the live mission with a new empty one.
func (m *Manager) CreateMission() {
	m.mission = New()
	m.lastAction = nil
}

// ClearMission discards the live mission.
func (m *Manager) ClearMission() {
	m.mission = nil
	m.lastAction = nil
}

func (m *Manager) HasMission() bool { return m.mission != nil }

// Mission returns the live mission. Callers must not keep it across edits.
func (m *Manager) Mission() *Mission { return m.mission }

// SetMission installs a mission, e.g. one loaded from a request.
func (m *Manager) SetMission(mission *Mission) {
	m.mission = mission
	m.lastAction = nil
	if mission != nil {
		mission.Renumber()
	}
}

func (m *Manager) SetMode(mode Mode) { m.mode = mode }
func (m *Manager) Mode() Mode        { return m.mode }

// SetHome sets the ground station position. Nil clears it.
func (m *Manager) SetHome(home *units.LatLon) {
	if home == nil {
		m.home = nil
		return
	}
	h := *home
	m.home = &h
}

func (m *Manager) Home() *units.LatLon {
	if m.home == nil {
		return nil
	}
	h := *m.home
	return &h
}

// State is a detached copy of everything a request may change.
type State struct {
	Mission    *Mission
	Mode       Mode
	Home       *units.LatLon
	LastAction *Item
}

func (m *Manager) State() State {
	s := State{Mission: m.mission.Clone(), Mode: m.mode, Home: m.Home()}
	if m.lastAction != nil {
		a := m.lastAction.Clone()
		s.LastAction = &a
	}
	return s
}

// Restore puts back a State taken earlier.
func (m *Manager) Restore(s State) {
	m.mission = s.Mission.Clone()
	m.mode = s.Mode
	m.SetHome(s.Home)
	m.lastAction = nil
	if s.LastAction != nil {
		a := s.LastAction.Clone()
		m.lastAction = &a
	}
}

func (m *Manager) AddTakeoff(spec ItemSpec) (Item, error)  { return m.add(Takeoff, spec) }
func (m *Manager) AddWaypoint(spec ItemSpec) (Item, error) { return m.add(Waypoint, spec) }
func (m *Manager) AddLoiter(spec ItemSpec) (Item, error)   { return m.add(Loiter, spec) }
func (m *Manager) AddSurvey(spec ItemSpec) (Item, error)   { return m.add(Survey, spec) }
func (m *Manager) AddRTL(spec ItemSpec) (Item, error)      { return m.add(RTL, spec) }
func (m *Manager) AddLand(spec ItemSpec) (Item, error)     { return m.add(Land, spec) }

// Add appends an item of the given type. It fills defaults and resolves
// relative geometry but does not validate.
func (m *Manager) Add(cmd CommandType, spec ItemSpec) (Item, error) {
	return m.add(cmd, spec)
}

func (m *Manager) add(cmd CommandType, spec ItemSpec) (Item, error) {
	if m.mission == nil {
		return Item{}, ErrNoMission
	}
	if !cmd.Valid() {
		return Item{}, errors.Errorf("unknown command type %q", cmd)
	}
	lim := m.rules.Limits(string(cmd))

	altitude := m.defaultAltitude(cmd, lim)
	if spec.Altitude != nil {
		altitude = spec.Altitude.WithDefaultUnits(lim.AltitudeUnits)
	}

	var it Item
	switch cmd {
	case Takeoff:
		it = NewTakeoff(altitude)
	case Waypoint:
		it = NewWaypoint(altitude)
	case Loiter:
		it = NewLoiter(altitude, units.Measurement{Value: lim.DefaultRadius, Units: lim.RadiusUnits})
	case Survey:
		it = NewSurvey(altitude, units.Measurement{Value: lim.DefaultRadius, Units: lim.RadiusUnits})
	case RTL:
		it = NewRTL(altitude)
	case Land:
		it = NewLand(altitude)
	}

	if spec.Radius != nil {
		if err := it.SetRadius(spec.Radius.WithDefaultUnits(lim.RadiusUnits)); err != nil {
			return Item{}, err
		}
	}

	heading := spec.Heading
	if heading == "" && cmd == Takeoff {
		heading = lim.DefaultHeading
	}
	if heading != "" {
		if err := it.SetHeading(heading); err != nil {
			return Item{}, err
		}
	}

	if spec.SearchTarget != "" || spec.DetectionBehavior != "" {
		if err := it.SetSearch(spec.SearchTarget, spec.DetectionBehavior); err != nil {
			return Item{}, err
		}
	}
	if cmd.HasSearch() {
		if it.SearchTarget == "" {
			it.SearchTarget = m.rules.DefaultSearchTarget
		}
		if it.SearchTarget != "" && it.DetectionBehavior == "" {
			it.DetectionBehavior = m.rules.DefaultDetectionBehavior
		}
	}

	if err := m.placeItem(&it, spec, lim); err != nil {
		return Item{}, err
	}

	it.Seq = len(m.mission.Items)
	m.mission.Items = append(m.mission.Items, it)
	m.mission.Touch()
	m.setLastAction(it)
	return it.Clone(), nil
}

func (m *Manager) defaultAltitude(cmd CommandType, lim config.Limits) units.Measurement {
	if cmd.IsTerminal() && m.rules.RTLUseTakeoffAltitude {
		for _, prev := range m.mission.Items {
			if prev.Command == Takeoff && prev.Altitude != nil {
				return *prev.Altitude
			}
		}
	}
	if lim.UsePreviousAltitude {
		for i := len(m.mission.Items) - 1; i >= 0; i-- {
			prev := m.mission.Items[i]
			if prev.Altitude != nil && !prev.Command.IsTerminal() {
				return *prev.Altitude
			}
		}
	}
	return units.Measurement{Value: lim.DefaultAltitude, Units: lim.AltitudeUnits}
}

func (m *Manager) placeItem(it *Item, spec ItemSpec, lim config.Limits) error {
	switch {
	case spec.Position != nil:
		if !spec.Position.Valid() {
			return errors.Errorf("coordinates %s are out of range", spec.Position)
		}
		return it.SetPosition(*spec.Position)

	case spec.Distance != nil:
		if spec.Direction == "" {
			return errors.New("a relative position needs both a distance and a heading")
		}
		if _, ok := units.DirectionToBearing(spec.Direction); !ok {
			return errors.Errorf("unrecognized heading %q", spec.Direction)
		}
		frame := spec.Frame
		if frame == "" {
			frame = FrameOrigin
		}
		distance := spec.Distance.WithDefaultUnits(m.rules.DefaultDistanceUnits)
		ref, ok := m.addReference(frame)
		if !ok {
			return it.SetPending(Offset{Distance: distance, Direction: spec.Direction, Frame: frame})
		}
		p, _ := units.Offset(ref, distance.Value, spec.Direction, distance.Units)
		return it.SetPosition(p)

	case spec.Direction != "":
		return errors.New("a relative position needs both a distance and a heading")
	}

	if it.Command == Takeoff && m.home != nil {
		return it.SetPosition(*m.home)
	}
	if lim.UseLastWaypointLocation {
		if p, ok := m.mission.lastPositioned(len(m.mission.Items)); ok {
			return it.SetPosition(p)
		}
	}
	return nil
}

// addReference resolves the frame for an item about to be appended. A new
// item has no position of its own, so self means origin.
func (m *Manager) addReference(frame ReferenceFrame) (units.LatLon, bool) {
	if frame == FrameLastWaypoint {
		if p, ok := m.mission.lastPositioned(len(m.mission.Items)); ok {
			return p, true
		}
	}
	if p, ok := m.mission.Origin(); ok {
		return p, true
	}
	if m.home != nil {
		return *m.home, true
	}
	return units.LatLon{}, false
}

func (m *Manager) setLastAction(it Item) {
	c := it.Clone()
	m.lastAction = &c
}

func (m *Manager) checkSeq(seq int) error {
	if m.mission == nil {
		return ErrNoMission
	}
	if seq < 0 || seq >= len(m.mission.Items) {
		return errors.Wrapf(ErrNoSuchItem, "seq %d (mission has %d items)", seq, len(m.mission.Items))
	}
	return nil
}

// Item returns a copy of the item at seq.
func (m *Manager) Item(seq int) (Item, error) {
	if err := m.checkSeq(seq); err != nil {
		return Item{}, err
	}
	return m.mission.Items[seq].Clone(), nil
}

// Update applies fn to a copy of the item at seq and stores the result, so a
// failing fn leaves the mission untouched.
func (m *Manager) Update(seq int, fn func(*Item) error) error {
	if err := m.checkSeq(seq); err != nil {
		return err
	}
	it := m.mission.Items[seq].Clone()
	if err := fn(&it); err != nil {
		return err
	}
	it.Seq = seq
	m.mission.Items[seq] = it
	m.mission.Touch()
	m.setLastAction(it)
	return nil
}

// Replace stores it at seq.
func (m *Manager) Replace(seq int, it Item) error {
	if err := m.checkSeq(seq); err != nil {
		return err
	}
	if err := it.CheckFields(); err != nil {
		return err
	}
	it = it.Clone()
	it.Seq = seq
	m.mission.Items[seq] = it
	m.mission.Touch()
	m.setLastAction(it)
	return nil
}

// Delete removes the item at seq and renumbers.
func (m *Manager) Delete(seq int) (Item, error) {
	if err := m.checkSeq(seq); err != nil {
		return Item{}, err
	}
	removed := m.mission.Items[seq]
	items := make([]Item, 0, len(m.mission.Items)-1)
	items = append(items, m.mission.Items[:seq]...)
	items = append(items, m.mission.Items[seq+1:]...)
	m.mission.Items = items
	m.mission.Renumber()
	m.mission.Touch()
	return removed.Clone(), nil
}

// Reorder moves the item at from to index to and renumbers.
func (m *Manager) Reorder(from, to int) error {
	if err := m.checkSeq(from); err != nil {
		return err
	}
	if err := m.checkSeq(to); err != nil {
		return err
	}
	items := cloneItems(m.mission.Items)
	moveItem(items, from, to)
	m.mission.Items = items
	m.mission.Renumber()
	m.mission.Touch()
	m.setLastAction(items[to])
	return nil
}

// Renumber reassigns contiguous sequence numbers.
func (m *Manager) Renumber() {
	if m.mission != nil {
		m.mission.Renumber()
	}
}

// ResolveReference returns the point an offset for the item at seq is
// measured from: the item itself (self), the first positioned takeoff
// (origin), or the nearest earlier positioned item falling back to origin
// (last_waypoint).
func (m *Manager) ResolveReference(frame ReferenceFrame, seq int) (units.LatLon, error) {
	if err := m.checkSeq(seq); err != nil {
		return units.LatLon{}, err
	}
	switch frame {
	case FrameSelf:
		it := m.mission.Items[seq]
		if it.Position == nil {
			return units.LatLon{}, errors.Wrapf(ErrNoReference, "item %d has no resolved coordinates", seq+1)
		}
		return *it.Position, nil
	case FrameLastWaypoint:
		if p, ok := m.mission.lastPositioned(seq); ok {
			return p, nil
		}
		if p, ok := m.mission.Origin(); ok {
			return p, nil
		}
		return units.LatLon{}, errors.Wrap(ErrNoReference, "no last waypoint and no takeoff item with coordinates found")
	default:
		if p, ok := m.mission.Origin(); ok {
			return p, nil
		}
		return units.LatLon{}, errors.Wrap(ErrNoReference, "no takeoff item with coordinates found in mission")
	}
}

// ValidateMission runs a final validation in the manager's mode and adds a
// default takeoff or RTL when the auto-add toggles ask for one. A nil home
// falls back to the manager's home.
func (m *Manager) ValidateMission(home *units.LatLon) Result {
	if home == nil {
		home = m.home
	}
	opts := ValidateOptions{Home: home, Final: true}
	res := Validate(m.mission, m.mode, m.rules, opts)
	if m.mission == nil || (!res.MissingTakeoff && !res.MissingRTL) {
		return res
	}

	var added []string
	if res.MissingTakeoff {
		if it, err := m.AddTakeoff(ItemSpec{}); err == nil {
			moveItem(m.mission.Items, it.Seq, 0)
			m.mission.Renumber()
			added = append(added, "Auto-fix: added missing takeoff as item 1")
		}
	}
	if res.MissingRTL {
		if it, err := m.AddRTL(ItemSpec{}); err == nil {
			added = append(added, fmt.Sprintf("Auto-fix: added missing RTL as item %d", it.Seq+1))
		}
	}

	res = Validate(m.mission, m.mode, m.rules, opts)
	res.Fixes = append(added, res.Fixes...)
	res.Messages = append(append([]string{}, res.Errors...), res.Fixes...)
	return res
}

// Begin snapshots the item list for an edit.
func (m *Manager) Begin() (*Txn, error) {
	if m.mission == nil {
		return nil, ErrNoMission
	}
	t := &Txn{
		m:          m,
		mission:    m.mission,
		items:      cloneItems(m.mission.Items),
		modifiedAt: m.mission.ModifiedAt,
	}
	if m.lastAction != nil {
		a := m.lastAction.Clone()
		t.lastAction = &a
	}
	return t, nil
}
