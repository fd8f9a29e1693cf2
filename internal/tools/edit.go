package tools

import (
	"fmt"
	"strings"

	"mavplan/internal/mission"
	"mavplan/internal/units"
)

func (tb *Toolbox) update(params map[string]any) string {
	seq, fail := tb.checkSeq(params, "seq")
	if fail != "" {
		return fail
	}
	number := seq + 1

	alt, err := optAltitude(params)
	if err != nil {
		return errorPrefix + err.Error()
	}
	radius, err := optRadius(params)
	if err != nil {
		return errorPrefix + err.Error()
	}
	var heading, target, behavior string
	for key, dst := range map[string]*string{"heading": &heading, "search_target": &target, "detection_behavior": &behavior} {
		if !has(params, key) {
			continue
		}
		if *dst, err = getString(params, key); err != nil {
			return errorPrefix + err.Error()
		}
	}
	if heading != "" {
		if _, ok := units.HeadingToYaw(heading); !ok {
			return errorf("unrecognized heading '%s'", heading)
		}
	}
	if alt == nil && radius == nil && heading == "" && target == "" && behavior == "" {
		return errorPrefix + "No updates specified - provide altitude, radius, heading, search_target, or detection_behavior"
	}

	txn, err := tb.mgr.Begin()
	if err != nil {
		return errorPrefix + err.Error()
	}
	var changes []string
	err = tb.mgr.Update(seq, func(it *mission.Item) error {
		lim := tb.mgr.Rules().Limits(string(it.Command))
		if alt != nil {
			a := alt.WithDefaultUnits(lim.AltitudeUnits)
			it.SetAltitude(a)
			changes = append(changes, "altitude to "+a.String())
		}
		if radius != nil {
			r := radius.WithDefaultUnits(lim.RadiusUnits)
			if err := it.SetRadius(r); err != nil {
				return err
			}
			changes = append(changes, "radius to "+r.String())
		}
		if heading != "" {
			if err := it.SetHeading(heading); err != nil {
				return err
			}
			changes = append(changes, "heading to "+heading)
		}
		if target != "" || behavior != "" {
			if err := it.SetSearch(target, behavior); err != nil {
				return err
			}
			if it.SearchTarget != "" && it.DetectionBehavior == "" {
				it.DetectionBehavior = tb.mgr.Rules().DefaultDetectionBehavior
			}
			if target != "" {
				changes = append(changes, "search target to "+target)
			}
			if behavior != "" {
				changes = append(changes, "detection behavior to "+behavior)
			}
		}
		return nil
	})
	if err != nil {
		txn.Rollback()
		return errorf("Cannot update item %d - %v", number, err)
	}
	notes, ok := tb.commit(txn)
	if !ok {
		return notes
	}
	return fmt.Sprintf("Updated mission item %d: %s", number, strings.Join(changes, ", ")) + notes + tb.mgr.StateSummary()
}

func (tb *Toolbox) delete(params map[string]any) string {
	seq, fail := tb.checkSeq(params, "seq")
	if fail != "" {
		return fail
	}

	txn, err := tb.mgr.Begin()
	if err != nil {
		return errorPrefix + err.Error()
	}
	removed, err := tb.mgr.Delete(seq)
	if err != nil {
		txn.Rollback()
		return errorPrefix + err.Error()
	}
	notes, ok := tb.commit(txn)
	if !ok {
		return notes
	}
	return fmt.Sprintf("Deleted mission item %d (%s)", seq+1, mission.Describe(removed)) + notes + tb.mgr.StateSummary()
}

func (tb *Toolbox) reorder(params map[string]any) string {
	from, fail := tb.checkSeq(params, "seq")
	if fail != "" {
		return fail
	}
	to, err := getInt(params, "new_position")
	if err != nil {
		return errorPrefix + err.Error()
	}
	count := tb.mgr.Mission().Len()
	if to < 1 || to > count {
		return errorf("Invalid new position %d. Mission has %d items (1 to %d)", to, count, count)
	}
	if from == to-1 {
		return errorf("Item %d is already at position %d", to, to)
	}

	txn, err := tb.mgr.Begin()
	if err != nil {
		return errorPrefix + err.Error()
	}
	it := tb.mgr.Mission().Items[from]
	if err := tb.mgr.Reorder(from, to-1); err != nil {
		txn.Rollback()
		return errorPrefix + err.Error()
	}
	notes, ok := tb.commit(txn)
	if !ok {
		return notes
	}
	return fmt.Sprintf("Moved mission item %d (%s) to position %d", from+1, it.Command.Label(), to) + notes + tb.mgr.StateSummary()
}
