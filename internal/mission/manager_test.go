package mission

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mavplan/internal/config"
	"mavplan/internal/units"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr := NewManager(config.Default().Agent, ModeMission)
	mgr.CreateMission()
	return mgr
}

func assertContiguous(t *testing.T, ms *Mission) {
	t.Helper()
	for i, it := range ms.Items {
		assert.Equal(t, i, it.Seq, "item %d", i)
	}
}

func TestManagerRequiresMission(t *testing.T) {
	mgr := NewManager(config.Default().Agent, ModeMission)
	_, err := mgr.AddWaypoint(ItemSpec{})
	assert.Equal(t, ErrNoMission, errors.Cause(err))

	_, err = mgr.Begin()
	assert.Equal(t, ErrNoMission, errors.Cause(err))

	_, err = mgr.Delete(0)
	assert.Equal(t, ErrNoMission, errors.Cause(err))
}

func TestAddTakeoffDefaults(t *testing.T) {
	mgr := newTestManager(t)
	home := testHome
	mgr.SetHome(&home)

	it, err := mgr.AddTakeoff(ItemSpec{})
	require.NoError(t, err)
	assert.Equal(t, 0, it.Seq)
	require.NotNil(t, it.Altitude)
	assert.Equal(t, units.Measurement{Value: 50, Units: units.Feet}, *it.Altitude)
	assert.Equal(t, "north", it.Heading)
	require.NotNil(t, it.Position)
	assert.Equal(t, home, *it.Position)
}

func TestAddBareAltitudeTakesConfiguredUnits(t *testing.T) {
	mgr := newTestManager(t)
	alt := units.Measurement{Value: 80}
	it, err := mgr.AddWaypoint(ItemSpec{Altitude: &alt, Position: &units.LatLon{Lat: 1, Lon: 1}})
	require.NoError(t, err)
	assert.Equal(t, units.Feet, it.Altitude.Units)
}

func TestAddRejectsFieldsTheVariantLacks(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.AddRTL(ItemSpec{Heading: "north"})
	assert.Error(t, err)

	r := units.Measurement{Value: 10, Units: units.Meters}
	_, err = mgr.AddWaypoint(ItemSpec{Radius: &r, Position: &units.LatLon{}})
	assert.Error(t, err)

	_, err = mgr.AddTakeoff(ItemSpec{SearchTarget: "person"})
	assert.Error(t, err)

	assert.Empty(t, mgr.Mission().Items)
}

func TestAddRelativeNeedsDistanceAndHeading(t *testing.T) {
	mgr := newTestManager(t)
	d := units.Measurement{Value: 100, Units: units.Meters}

	_, err := mgr.AddWaypoint(ItemSpec{Distance: &d})
	assert.Error(t, err)

	_, err = mgr.AddWaypoint(ItemSpec{Direction: "north"})
	assert.Error(t, err)

	_, err = mgr.AddWaypoint(ItemSpec{Distance: &d, Direction: "upwards"})
	assert.Error(t, err)
}

func TestAddRelativeWithoutReferenceStaysPending(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.AddTakeoff(ItemSpec{})
	require.NoError(t, err)

	d := units.Measurement{Value: 1, Units: units.Kilometers}
	it, err := mgr.AddWaypoint(ItemSpec{Distance: &d, Direction: "east"})
	require.NoError(t, err)
	assert.Nil(t, it.Position)
	require.NotNil(t, it.Pending)
	assert.Equal(t, FrameOrigin, it.Pending.Frame)

	res := mgr.ValidateMission(&testHome)
	require.NotNil(t, mgr.Mission().Items[1].Position)
	assert.Contains(t, res.Errors, "Mission has no RTL item")
}

func TestAddUsesPreviousAltitudeAndTakeoffAltitudeForRTL(t *testing.T) {
	rules := config.Default().Agent
	rules.WaypointUsePreviousAltitude = true
	mgr := NewManager(rules, ModeMission)
	mgr.CreateMission()

	alt := units.Measurement{Value: 30, Units: units.Meters}
	_, err := mgr.AddTakeoff(ItemSpec{Altitude: &alt})
	require.NoError(t, err)

	wp, err := mgr.AddWaypoint(ItemSpec{Position: &units.LatLon{Lat: 1, Lon: 1}})
	require.NoError(t, err)
	assert.Equal(t, alt, *wp.Altitude)

	rtl, err := mgr.AddRTL(ItemSpec{})
	require.NoError(t, err)
	assert.Equal(t, alt, *rtl.Altitude)
}

func TestAddUsesLastWaypointLocation(t *testing.T) {
	rules := config.Default().Agent
	rules.LoiterUseLastWaypointLocation = true
	mgr := NewManager(rules, ModeMission)
	mgr.CreateMission()

	p := units.LatLon{Lat: 10, Lon: 20}
	_, err := mgr.AddWaypoint(ItemSpec{Position: &p})
	require.NoError(t, err)
	lo, err := mgr.AddLoiter(ItemSpec{})
	require.NoError(t, err)
	require.NotNil(t, lo.Position)
	assert.Equal(t, p, *lo.Position)
	assert.Equal(t, 50.0, lo.Radius.Value)
}

func TestAddSearchDefaults(t *testing.T) {
	rules := config.Default().Agent
	rules.DefaultSearchTarget = "vehicle"
	mgr := NewManager(rules, ModeMission)
	mgr.CreateMission()

	it, err := mgr.AddSurvey(ItemSpec{Position: &units.LatLon{Lat: 1, Lon: 1}})
	require.NoError(t, err)
	assert.Equal(t, "vehicle", it.SearchTarget)
	assert.Equal(t, "tag_and_continue", it.DetectionBehavior)

	it, err = mgr.AddWaypoint(ItemSpec{Position: &units.LatLon{Lat: 1, Lon: 1}, SearchTarget: "person", DetectionBehavior: "land"})
	require.NoError(t, err)
	assert.Equal(t, "person", it.SearchTarget)
	assert.Equal(t, "land", it.DetectionBehavior)
}

func TestTxnRollbackRestoresEveryField(t *testing.T) {
	mgr := newTestManager(t)
	home := testHome
	mgr.SetHome(&home)
	_, err := mgr.AddTakeoff(ItemSpec{})
	require.NoError(t, err)
	_, err = mgr.AddWaypoint(ItemSpec{Position: &units.LatLon{Lat: 37.8, Lon: -122.4}})
	require.NoError(t, err)
	before := mgr.Mission().Clone()

	txn, err := mgr.Begin()
	require.NoError(t, err)
	require.NoError(t, mgr.Update(1, func(it *Item) error {
		it.SetAltitude(units.Measurement{Value: 9000, Units: units.Feet})
		return it.SetHeading("south")
	}))
	_, err = mgr.AddTakeoff(ItemSpec{})
	require.NoError(t, err)

	res, ok := txn.Commit()
	assert.False(t, ok)
	assert.False(t, res.Valid)
	assert.Equal(t, before.Items, mgr.Mission().Items)
	assert.Equal(t, before.ModifiedAt, mgr.Mission().ModifiedAt)
}

func TestTxnCommitKeepsAutoFix(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.AddTakeoff(ItemSpec{Position: &testHome})
	require.NoError(t, err)
	_, err = mgr.AddRTL(ItemSpec{})
	require.NoError(t, err)

	txn, err := mgr.Begin()
	require.NoError(t, err)
	_, err = mgr.AddWaypoint(ItemSpec{Position: &units.LatLon{Lat: 37.78, Lon: -122.41}})
	require.NoError(t, err)
	res, ok := txn.Commit()
	require.True(t, ok, res.Messages)
	assert.Equal(t, []string{"Auto-fix: moved RTL from item 2 to item 3"}, res.Fixes)

	items := mgr.Mission().Items
	assert.Equal(t, []CommandType{Takeoff, Waypoint, RTL}, []CommandType{items[0].Command, items[1].Command, items[2].Command})
	assertContiguous(t, mgr.Mission())

	// Rollback after commit is a no-op.
	txn.Rollback()
	assert.Len(t, mgr.Mission().Items, 3)
}

func TestDeleteAndReorderRenumber(t *testing.T) {
	mgr := newTestManager(t)
	for i := 0; i < 4; i++ {
		_, err := mgr.AddWaypoint(ItemSpec{Position: &units.LatLon{Lat: float64(i), Lon: 0}})
		require.NoError(t, err)
	}

	removed, err := mgr.Delete(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, removed.Position.Lat)
	assertContiguous(t, mgr.Mission())

	require.NoError(t, mgr.Reorder(2, 0))
	assertContiguous(t, mgr.Mission())
	lats := []float64{}
	for _, it := range mgr.Mission().Items {
		lats = append(lats, it.Position.Lat)
	}
	assert.Equal(t, []float64{3, 0, 2}, lats)

	err = mgr.Reorder(0, 7)
	assert.Equal(t, ErrNoSuchItem, errors.Cause(err))
}

func TestUpdateErrorLeavesItemUntouched(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.AddRTL(ItemSpec{})
	require.NoError(t, err)

	err = mgr.Update(0, func(it *Item) error {
		it.SetAltitude(units.Measurement{Value: 1, Units: units.Meters})
		return it.SetHeading("north")
	})
	assert.Error(t, err)
	assert.Equal(t, 50.0, mgr.Mission().Items[0].Altitude.Value)
}

func TestResolveReference(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.AddWaypoint(ItemSpec{Position: &units.LatLon{Lat: 5, Lon: 5}})
	require.NoError(t, err)

	_, err = mgr.ResolveReference(FrameOrigin, 0)
	assert.Equal(t, ErrNoReference, errors.Cause(err))

	p, err := mgr.ResolveReference(FrameSelf, 0)
	require.NoError(t, err)
	assert.Equal(t, units.LatLon{Lat: 5, Lon: 5}, p)

	_, err = mgr.AddTakeoff(ItemSpec{Position: &units.LatLon{Lat: 1, Lon: 1}})
	require.NoError(t, err)
	_, err = mgr.AddWaypoint(ItemSpec{Position: &units.LatLon{Lat: 7, Lon: 7}})
	require.NoError(t, err)

	p, err = mgr.ResolveReference(FrameLastWaypoint, 2)
	require.NoError(t, err)
	assert.Equal(t, units.LatLon{Lat: 1, Lon: 1}, p)

	p, err = mgr.ResolveReference(FrameLastWaypoint, 0)
	require.NoError(t, err)
	assert.Equal(t, units.LatLon{Lat: 1, Lon: 1}, p, "falls back to origin")
}

func TestValidateMissionAutoAdds(t *testing.T) {
	rules := config.Default().Agent
	rules.AutoAddMissingTakeoff = true
	rules.AutoAddMissingRTL = true
	mgr := NewManager(rules, ModeMission)
	mgr.CreateMission()
	_, err := mgr.AddWaypoint(ItemSpec{Position: &units.LatLon{Lat: 37.78, Lon: -122.41}})
	require.NoError(t, err)

	res := mgr.ValidateMission(&testHome)
	require.True(t, res.Valid, res.Messages)
	assert.Equal(t, []string{"Auto-fix: added missing takeoff as item 1", "Auto-fix: added missing RTL as item 3"}, res.Fixes)

	items := mgr.Mission().Items
	require.Len(t, items, 3)
	assert.Equal(t, Takeoff, items[0].Command)
	assert.Equal(t, testHome, *items[0].Position)
	assert.Equal(t, RTL, items[2].Command)
	assertContiguous(t, mgr.Mission())
}

func TestStateRestore(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.AddTakeoff(ItemSpec{})
	require.NoError(t, err)
	saved := mgr.State()

	mgr.SetMode(ModeCommand)
	mgr.SetHome(&testHome)
	mgr.ClearMission()

	mgr.Restore(saved)
	assert.Equal(t, ModeMission, mgr.Mode())
	assert.Nil(t, mgr.Home())
	require.True(t, mgr.HasMission())
	assert.Len(t, mgr.Mission().Items, 1)
	assert.Contains(t, mgr.ActionSummary(), "Takeoff")
}

func TestSummaries(t *testing.T) {
	mgr := NewManager(config.Default().Agent, ModeMission)
	assert.Equal(t, "\n\nCurrent mission: empty", mgr.StateSummary())
	assert.Equal(t, "\n\nCurrent action: none", mgr.ActionSummary())

	mgr.CreateMission()
	_, err := mgr.AddTakeoff(ItemSpec{Position: &units.LatLon{Lat: 1, Lon: 2}})
	require.NoError(t, err)
	_, err = mgr.AddRTL(ItemSpec{})
	require.NoError(t, err)

	want := "\n\nCurrent mission (2 items):" +
		"\n1. Takeoff at (1.000000, 2.000000), altitude 50 feet, heading north" +
		"\n2. Return to Launch, altitude 50 feet"
	assert.Equal(t, want, mgr.StateSummary())
	assert.Equal(t, "\n\nCurrent action: Return to Launch, altitude 50 feet", mgr.ActionSummary())

	s := Summarize(mgr.Mission())
	assert.Equal(t, 2, s.TotalItems)
	assert.True(t, s.HasTakeoff)
	assert.True(t, s.HasRTL)
	assert.Equal(t, 1, s.ByType["rtl"])
}
