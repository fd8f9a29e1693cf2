package tools

import (
	"fmt"
	"strings"

	"mavplan/internal/mission"
	"mavplan/internal/units"
)

func (tb *Toolbox) add(cmd mission.CommandType, params map[string]any) string {
	spec, geo, err := itemSpec(cmd, params)
	if err != nil {
		return errorPrefix + err.Error()
	}

	txn, err := tb.mgr.Begin()
	if err != nil {
		return errorf("Cannot add %s - %v", cmd.Label(), err)
	}
	it, err := tb.mgr.Add(cmd, spec)
	if err != nil {
		txn.Rollback()
		return errorf("Cannot add %s - %v", cmd.Label(), err)
	}
	notes, ok := tb.commit(txn)
	if !ok {
		return notes
	}

	distanceUnits := unitsOf(geo.distance, tb.mgr.Rules().DefaultDistanceUnits)
	return addedMessage(it, geo.describe(distanceUnits), spec.Altitude != nil, tb.itemNumber(it)) + notes + tb.mgr.StateSummary()
}

// itemSpec turns tool parameters into a manager ItemSpec, rejecting
// parameters the command type cannot carry.
func itemSpec(cmd mission.CommandType, params map[string]any) (mission.ItemSpec, geometry, error) {
	var spec mission.ItemSpec
	var geo geometry

	alt, err := optAltitude(params)
	if err != nil {
		return spec, geo, err
	}
	spec.Altitude = alt

	if cmd.HasRadius() {
		r, err := optRadius(params)
		if err != nil {
			return spec, geo, err
		}
		spec.Radius = r
	}

	if cmd.HasPosition() {
		g, heading, err := parseGeometry(params)
		if err != nil {
			return spec, geo, err
		}
		geo = g
		spec.Position = g.position
		spec.Distance = g.distance
		spec.Direction = g.direction
		spec.Frame = g.frame
		spec.Heading = heading
	}

	if cmd.HasSearch() {
		if has(params, "search_target") {
			if spec.SearchTarget, err = getString(params, "search_target"); err != nil {
				return spec, geo, err
			}
		}
		if has(params, "detection_behavior") {
			if spec.DetectionBehavior, err = getString(params, "detection_behavior"); err != nil {
				return spec, geo, err
			}
		}
	}
	return spec, geo, nil
}

func addedMessage(it mission.Item, where string, altitudeGiven bool, number int) string {
	var sb strings.Builder
	if it.Command.IsTerminal() {
		sb.WriteString(it.Command.Label() + " command added to mission")
		if altitudeGiven && it.Altitude != nil {
			sb.WriteString(" at " + it.Altitude.String())
		}
		sb.WriteString(fmt.Sprintf(" (Item %d)", number))
		return sb.String()
	}

	sb.WriteString(it.Command.Label() + " added to mission")
	switch {
	case where != "":
		sb.WriteString(" at " + where)
	case it.Position != nil:
		sb.WriteString(fmt.Sprintf(" at lat/long (%.6f, %.6f)", it.Position.Lat, it.Position.Lon))
	}
	if it.Pending != nil {
		sb.WriteString(" (position resolves once a takeoff location or home position is known)")
	} else if it.Position != nil && where != "" && !strings.HasPrefix(where, "lat/long") {
		sb.WriteString(fmt.Sprintf(" (coordinates: %.6f, %.6f)", it.Position.Lat, it.Position.Lon))
	}
	if it.Altitude != nil {
		sb.WriteString(", altitude " + it.Altitude.String())
	}
	if it.Radius != nil {
		sb.WriteString(", radius " + it.Radius.String())
	}
	sb.WriteString(fmt.Sprintf(" (Item %d)", number))
	return sb.String()
}

// unitsOf returns the units of m, or fallback when m is nil or unitless.
func unitsOf(m *units.Measurement, fallback string) string {
	if m == nil || m.Units == "" {
		return fallback
	}
	return m.Units
}
