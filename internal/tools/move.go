package tools

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"mavplan/internal/mission"
	"mavplan/internal/units"
)

func (tb *Toolbox) move(params map[string]any) string {
	if !tb.mgr.HasMission() || tb.mgr.Mission().Len() == 0 {
		return errorPrefix + "No mission items to move"
	}
	seq, fail := tb.checkSeq(params, "seq")
	if fail != "" {
		return fail
	}
	number := seq + 1

	geo, heading, err := parseGeometry(params)
	if err != nil {
		return errorPrefix + err.Error()
	}
	current, _ := tb.mgr.Item(seq)
	cmd := current.Command

	if geo.empty() && heading == "" {
		return noChangesPrefix + " - provide GPS coordinates (lat/long), MGRS, or relative positioning (distance/heading) to move the item"
	}
	if !geo.empty() && !cmd.HasPosition() {
		kind := "GPS coordinates"
		switch {
		case geo.mgrs != "":
			kind = "MGRS coordinates"
		case geo.distance != nil:
			kind = "position"
		}
		return errorf("Cannot modify %s on item %d - %s commands don't support positioning", kind, number, cmd)
	}
	if heading != "" && !cmd.HasHeading() {
		return errorf("Cannot modify heading on item %d - %s commands don't support heading", number, cmd)
	}

	var changes []string
	target := geo.position
	switch {
	case geo.mgrs != "":
		changes = append(changes, "position to MGRS "+geo.mgrs)
	case geo.position != nil:
		changes = append(changes, fmt.Sprintf("position to lat/long (%.6f, %.6f)", geo.position.Lat, geo.position.Lon))
	case geo.distance != nil:
		ref, err := tb.mgr.ResolveReference(geo.frame, seq)
		if err != nil {
			return referenceError(geo.frame, number, err)
		}
		distance := geo.distance.WithDefaultUnits(tb.mgr.Rules().DefaultDistanceUnits)
		p, ok := units.Offset(ref, distance.Value, geo.direction, distance.Units)
		if !ok {
			return errorf("Failed to calculate new position - unrecognized heading '%s'", geo.direction)
		}
		target = &p
		geo.distance = &distance
		changes = append(changes, fmt.Sprintf("position to %s (new coordinates: %.6f, %.6f)", geo.describe(distance.Units), p.Lat, p.Lon))
	}
	if heading != "" {
		changes = append(changes, "heading to "+heading)
	}

	txn, err := tb.mgr.Begin()
	if err != nil {
		return errorPrefix + err.Error()
	}
	err = tb.mgr.Update(seq, func(it *mission.Item) error {
		if target != nil {
			if err := it.SetPosition(*target); err != nil {
				return err
			}
		}
		if heading != "" {
			return it.SetHeading(heading)
		}
		return nil
	})
	if err != nil {
		txn.Rollback()
		return errorf("Cannot move item %d - %v", number, err)
	}
	notes, ok := tb.commit(txn)
	if !ok {
		return notes
	}
	return fmt.Sprintf("Moved mission item %d: %s", number, strings.Join(changes, ", ")) + notes + tb.mgr.StateSummary()
}

func referenceError(frame mission.ReferenceFrame, number int, err error) string {
	if errors.Cause(err) != mission.ErrNoReference {
		return errorPrefix + err.Error()
	}
	switch frame {
	case mission.FrameSelf:
		return errorf("Cannot use 'self' reference - item %d has no resolved coordinates yet.", number)
	case mission.FrameLastWaypoint:
		return errorPrefix + "Cannot find reference point - no last waypoint and no takeoff item with coordinates found."
	default:
		return errorPrefix + "Cannot use 'origin' reference - no takeoff item with coordinates found in mission."
	}
}
