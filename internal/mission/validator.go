package mission

import (
	"fmt"
	"sort"

	"mavplan/internal/config"
	"mavplan/internal/units"
)

// boundsEpsilon absorbs float noise from converting configured bounds.
const boundsEpsilon = 1e-6

// ValidateOptions carries the per-call inputs of Validate.
type ValidateOptions struct {
	// Home is the ground station position used as the origin of last resort.
	Home *units.LatLon
	// Final marks a whole-mission check, as opposed to the check after a
	// single edit. Strict-mode completeness is only an error when Final.
	Final bool
}

// Result is the outcome of Validate.
type Result struct {
	Valid    bool
	Messages []string
	Errors   []string
	Fixes    []string
	Warnings []string

	MissingTakeoff bool
	MissingRTL     bool
}

// FirstMessage is the message a failed edit reports.
func (r Result) FirstMessage() string {
	if len(r.Messages) > 0 {
		return r.Messages[0]
	}
	return "Mission validation failed"
}

type issue struct {
	index int // -1 for mission-level problems
	msg   string
}

type validation struct {
	m     *Mission
	mode  Mode
	rules config.Agent
	opts  ValidateOptions

	errs     []issue
	fixes    []string
	warnings []string
	result   Result
}

// Validate checks m against the rules for mode. It resolves pending geometry
// and applies positioning auto-fixes in place, so callers that may need to
// discard those changes validate inside a transaction.
//
// Rules run in a fixed order: geometry resolution, structure (takeoff
// position, RTL position, uniqueness), completeness, bounds, resolvability,
// item count.
func Validate(m *Mission, mode Mode, rules config.Agent, opts ValidateOptions) Result {
	v := &validation{m: m, mode: mode, rules: rules, opts: opts}
	if m == nil {
		return Result{Valid: false, Errors: []string{"No active mission"}, Messages: []string{"No active mission"}}
	}

	v.resolveGeometry()
	if mode.Strict() {
		v.checkTakeoffPosition()
		v.checkTerminalPosition()
		v.checkUniqueness()
		m.Renumber()
	}
	v.checkCompleteness()
	v.checkItems()
	v.checkItemCount()

	return v.finish()
}

func (v *validation) errorf(index int, format string, args ...any) {
	v.errs = append(v.errs, issue{index: index, msg: fmt.Sprintf(format, args...)})
}

func itemRef(index int, it Item) string {
	return fmt.Sprintf("Item %d (%s)", index+1, it.Command)
}

// resolveGeometry gives a position-less takeoff the home position and turns
// pending offsets into absolute positions where a reference exists.
func (v *validation) resolveGeometry() {
	items := v.m.Items
	if v.opts.Home != nil {
		for i := range items {
			if items[i].Command == Takeoff && items[i].Position == nil && items[i].Pending == nil {
				home := *v.opts.Home
				items[i].Position = &home
			}
		}
	}

	for i := range items {
		pending := items[i].Pending
		if pending == nil {
			continue
		}
		ref, ok := v.reference(pending.Frame, i)
		if !ok {
			continue
		}
		p, ok := units.Offset(ref, pending.Distance.Value, pending.Direction, pending.Distance.Units)
		if !ok {
			continue
		}
		items[i].Position = &p
		items[i].Pending = nil
	}
}

func (v *validation) reference(frame ReferenceFrame, index int) (units.LatLon, bool) {
	if frame == FrameLastWaypoint {
		if p, ok := v.m.lastPositioned(index); ok {
			return p, true
		}
	}
	if p, ok := v.m.Origin(); ok {
		return p, true
	}
	if v.opts.Home != nil {
		return *v.opts.Home, true
	}
	return units.LatLon{}, false
}

func (v *validation) checkTakeoffPosition() {
	if !v.rules.TakeoffMustBeFirst {
		return
	}
	idx := -1
	for i, it := range v.m.Items {
		if it.Command == Takeoff {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return
	}
	if v.rules.AutoFixPositioning {
		moveItem(v.m.Items, idx, 0)
		v.fixes = append(v.fixes, fmt.Sprintf("Auto-fix: moved takeoff from item %d to item 1", idx+1))
		return
	}
	v.errorf(idx, "%s: takeoff must be the first mission item", itemRef(idx, v.m.Items[idx]))
}

func (v *validation) checkTerminalPosition() {
	if !v.rules.RTLMustBeLast {
		return
	}
	idx := -1
	for i := len(v.m.Items) - 1; i >= 0; i-- {
		if v.m.Items[i].Command.IsTerminal() {
			idx = i
			break
		}
	}
	last := len(v.m.Items) - 1
	if idx < 0 || idx == last {
		return
	}
	it := v.m.Items[idx]
	if v.rules.AutoFixPositioning {
		moveItem(v.m.Items, idx, last)
		v.fixes = append(v.fixes, fmt.Sprintf("Auto-fix: moved %s from item %d to item %d", terminalName(it.Command), idx+1, last+1))
		return
	}
	v.errorf(idx, "%s: %s must be the last mission item", itemRef(idx, it), terminalName(it.Command))
}

func terminalName(c CommandType) string {
	if c == Land {
		return "land"
	}
	return "RTL"
}

func (v *validation) checkUniqueness() {
	items := v.m.Items
	if v.rules.SingleTakeoffOnly {
		first := -1
		for i, it := range items {
			if it.Command != Takeoff {
				continue
			}
			if first < 0 {
				first = i
				continue
			}
			v.errorf(i, "%s: mission already has a takeoff at item %d (single takeoff rule)", itemRef(i, it), first+1)
		}
	}
	if v.rules.SingleRTLOnly {
		last := -1
		for i := len(items) - 1; i >= 0; i-- {
			if items[i].Command.IsTerminal() {
				last = i
				break
			}
		}
		for i, it := range items {
			if it.Command.IsTerminal() && i != last {
				v.errorf(i, "%s: mission already has a return/land item at item %d (single RTL rule)", itemRef(i, it), last+1)
			}
		}
	}
}

func (v *validation) checkCompleteness() {
	if len(v.m.Items) == 0 && !v.opts.Final {
		return
	}
	if v.m.Count(Takeoff) == 0 {
		v.missing("takeoff", v.rules.AutoAddMissingTakeoff, &v.result.MissingTakeoff)
	}
	if v.m.Count(RTL, Land) == 0 {
		v.missing("RTL", v.rules.AutoAddMissingRTL, &v.result.MissingRTL)
	}
}

func (v *validation) missing(what string, autoAdd bool, flag *bool) {
	if autoAdd {
		*flag = true
		return
	}
	if v.mode.Strict() && v.opts.Final {
		v.errorf(-1, "Mission has no %s item", what)
		return
	}
	v.warnings = append(v.warnings, fmt.Sprintf("Warning: mission has no %s item", what))
}

func (v *validation) checkItems() {
	for i, it := range v.m.Items {
		if err := it.CheckFields(); err != nil {
			v.errorf(i, "%s: %v", itemRef(i, it), err)
			continue
		}
		lim := v.rules.Limits(string(it.Command))
		if it.Altitude != nil {
			v.checkBounds(i, it, "altitude", *it.Altitude, lim.MinAltitude, lim.MaxAltitude, lim.AltitudeUnits)
		}
		if it.Radius != nil && it.Command.HasRadius() {
			v.checkBounds(i, it, "radius", *it.Radius, lim.MinRadius, lim.MaxRadius, lim.RadiusUnits)
		}
		if it.Command.RequiresPosition() && it.Position == nil {
			switch {
			case it.Pending == nil:
				v.errorf(i, "%s: no resolvable coordinates (provide coordinates, MGRS or a distance and heading)", itemRef(i, it))
			case v.opts.Final:
				v.errorf(i, "%s: no resolvable coordinates for %s (no takeoff position or home position)", itemRef(i, it), it.Pending)
			}
		}
	}
}

func (v *validation) checkBounds(index int, it Item, what string, value units.Measurement, minV, maxV float64, limitUnits string) {
	got := value.Meters()
	lo := units.ToMeters(minV, limitUnits)
	hi := units.ToMeters(maxV, limitUnits)
	if got < lo-boundsEpsilon || (maxV > 0 && got > hi+boundsEpsilon) {
		if maxV > 0 {
			v.errorf(index, "%s: %s %s is outside the allowed range %s-%s %s",
				itemRef(index, it), what, value, units.FormatValue(minV), units.FormatValue(maxV), unitsOrMeters(limitUnits))
			return
		}
		v.errorf(index, "%s: %s %s is below the minimum of %s",
			itemRef(index, it), what, value, units.Describe(minV, unitsOrMeters(limitUnits)))
	}
}

func unitsOrMeters(u string) string {
	if u == "" {
		return units.Meters
	}
	return u
}

func (v *validation) checkItemCount() {
	if limit := v.rules.MaxMissionItems; limit > 0 && len(v.m.Items) > limit {
		v.errorf(-1, "Mission has %d items, exceeding the maximum of %d", len(v.m.Items), limit)
	}
}

func (v *validation) finish() Result {
	sort.SliceStable(v.errs, func(i, j int) bool { return v.errs[i].index < v.errs[j].index })

	res := v.result
	for _, e := range v.errs {
		res.Errors = append(res.Errors, e.msg)
	}
	res.Fixes = v.fixes
	res.Warnings = v.warnings
	res.Messages = append(append([]string{}, res.Errors...), res.Fixes...)
	res.Valid = len(res.Errors) == 0
	return res
}

// moveItem moves items[from] to index to, shifting the items between.
func moveItem(items []Item, from, to int) {
	if from == to {
		return
	}
	it := items[from]
	if from < to {
		copy(items[from:to], items[from+1:to+1])
	} else {
		copy(items[to+1:from+1], items[to:from])
	}
	items[to] = it
}
