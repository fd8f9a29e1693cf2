package tools

import (
	"fmt"
	"strings"

	"mavplan/internal/mission"
)

type Param struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

type handler func(tb *Toolbox, params map[string]any) string

// Tool describes one mission editing operation the agent may call.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	// CommandMode tools are also offered in command mode.
	CommandMode bool `json:"-"`

	run handler
}

var (
	pSeq = Param{Name: "seq", Required: true, Description: "Mission item number (1=first item, 2=second item, etc.)."}

	pAltitude = Param{Name: "altitude", Description: "Altitude with optional units (e.g. '150 feet', '50 meters'). Omit to use the configured default."}
	pRadius   = Param{Name: "radius", Description: "Radius with optional units (e.g. '200 feet', '0.5 km')."}

	pCoordinates = Param{Name: "coordinates", Description: "GPS coordinates as 'lat,lon'. Only use when the user gives exact coordinates."}
	pMGRS        = Param{Name: "mgrs", Description: "MGRS coordinate string like '11SMT1234567890'."}
	pDistance    = Param{Name: "distance", Description: "Distance for relative positioning with optional units (e.g. '2 miles', '500 ft')."}
	pHeading     = Param{Name: "heading", Description: "Compass direction (north, south-east, ...). With a distance it is the direction of travel; alone it sets the item heading."}
	pFrame       = Param{Name: "relative_reference_frame", Description: "What a distance is measured from: 'origin' (takeoff point, the default), 'last_waypoint', or 'self' (the item's current position)."}

	pSearchTarget = Param{Name: "search_target", Description: "Object to look for at this item (e.g. 'red car')."}
	pBehavior     = Param{Name: "detection_behavior", Description: "What to do on detection: 'tag_and_continue' or 'detect_and_monitor'."}
)

var registry = []Tool{
	{
		Name:        "add_takeoff",
		Description: "Add the takeoff command. Always the first mission item; defaults to the home position.",
		Params:      []Param{pAltitude, pHeading, pCoordinates, pMGRS},
		CommandMode: true,
		run:         func(tb *Toolbox, p map[string]any) string { return tb.add(mission.Takeoff, p) },
	},
	{
		Name:        "add_waypoint",
		Description: "Add a waypoint to fly through. Prefer distance/heading/relative_reference_frame over raw coordinates.",
		Params:      []Param{pCoordinates, pMGRS, pDistance, pHeading, pFrame, pAltitude, pSearchTarget, pBehavior},
		CommandMode: true,
		run:         func(tb *Toolbox, p map[string]any) string { return tb.add(mission.Waypoint, p) },
	},
	{
		Name:        "add_loiter",
		Description: "Add a loiter (orbit) at a position with a radius.",
		Params:      []Param{pCoordinates, pMGRS, pDistance, pHeading, pFrame, pAltitude, pRadius, pSearchTarget, pBehavior},
		CommandMode: true,
		run:         func(tb *Toolbox, p map[string]any) string { return tb.add(mission.Loiter, p) },
	},
	{
		Name:        "add_survey",
		Description: "Add a survey of the area around a position, with a radius.",
		Params:      []Param{pCoordinates, pMGRS, pDistance, pHeading, pFrame, pAltitude, pRadius, pSearchTarget, pBehavior},
		CommandMode: true,
		run:         func(tb *Toolbox, p map[string]any) string { return tb.add(mission.Survey, p) },
	},
	{
		Name:        "add_rtl",
		Description: "Add return to launch to fly back to the takeoff point and land. Always the LAST mission item.",
		Params:      []Param{pAltitude},
		CommandMode: true,
		run:         func(tb *Toolbox, p map[string]any) string { return tb.add(mission.RTL, p) },
	},
	{
		Name:        "update_mission_item",
		Description: "Change altitude, radius, heading or search parameters of an existing item. Use move_item to change its position.",
		Params:      []Param{pSeq, pAltitude, pRadius, {Name: "heading", Description: "New item heading."}, pSearchTarget, pBehavior},
		run:         (*Toolbox).update,
	},
	{
		Name:        "delete_mission_item",
		Description: "Remove an item from the mission. Later items are renumbered.",
		Params:      []Param{pSeq},
		run:         (*Toolbox).delete,
	},
	{
		Name:        "reorder_item",
		Description: "Move an item to another position in the mission order.",
		Params:      []Param{pSeq, {Name: "new_position", Required: true, Description: "Target item number (1-based)."}},
		run:         (*Toolbox).reorder,
	},
	{
		Name:        "move_item",
		Description: "Move an item to a new geographical position using GPS coordinates, MGRS, or relative positioning. Use update_mission_item for altitude, radius or search changes.",
		Params:      []Param{pSeq, pCoordinates, pMGRS, pDistance, pHeading, pFrame},
		run:         (*Toolbox).move,
	},
}

var registryMap = func() map[string]Tool {
	m := make(map[string]Tool, len(registry))
	for _, t := range registry {
		m[t.Name] = t
	}
	return m
}()

// Lookup returns the tool with the given name in any mode.
func Lookup(name string) (Tool, bool) {
	t, ok := registryMap[name]
	return t, ok
}

// ForMode lists the tools offered in mode, in registry order.
func ForMode(mode mission.Mode) []Tool {
	out := make([]Tool, 0, len(registry))
	for _, t := range registry {
		if mode == mission.ModeCommand && !t.CommandMode {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Names lists tool names available in mode.
func Names(mode mission.Mode) []string {
	tools := ForMode(mode)
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

// PromptPart creates the tool block for the LLM prompt.
func PromptPart(mode mission.Mode) string {
	var sb strings.Builder
	sb.WriteString("AVAILABLE TOOLS & PARAMETERS:\n")
	for _, t := range ForMode(mode) {
		var required, optional []string
		for _, p := range t.Params {
			if p.Required {
				required = append(required, p.Name)
			} else {
				optional = append(optional, p.Name)
			}
		}
		sb.WriteString(fmt.Sprintf("- `%s`: %s Required: `[%s]`. Optional: `[%s]`.\n",
			t.Name, t.Description, strings.Join(required, ", "), strings.Join(optional, ", ")))
		for _, p := range t.Params {
			sb.WriteString(fmt.Sprintf("    - `%s`: %s\n", p.Name, p.Description))
		}
	}
	return sb.String()
}

// ValidateCall checks that name is offered in mode and that every required
// parameter is present.
func ValidateCall(mode mission.Mode, name string, params map[string]any) error {
	t, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("tool '%s' is not defined", name)
	}
	if mode == mission.ModeCommand && !t.CommandMode {
		return fmt.Errorf("tool '%s' is not available in command mode", name)
	}
	for _, p := range t.Params {
		if !p.Required {
			continue
		}
		if _, ok := params[p.Name]; !ok {
			return fmt.Errorf("tool '%s' is missing required parameter: '%s'", name, p.Name)
		}
	}
	return nil
}
