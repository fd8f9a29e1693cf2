package mission

import (
	"fmt"
	"strings"
)

// Describe renders one item on a single line, without its number.
func Describe(it Item) string {
	var sb strings.Builder
	sb.WriteString(it.Command.Label())
	switch {
	case it.Position != nil:
		sb.WriteString(fmt.Sprintf(" at (%.6f, %.6f)", it.Position.Lat, it.Position.Lon))
	case it.Pending != nil:
		sb.WriteString(fmt.Sprintf(" %s (unresolved)", it.Pending))
	}

	var parts []string
	if it.Altitude != nil {
		parts = append(parts, "altitude "+it.Altitude.String())
	}
	if it.Radius != nil {
		parts = append(parts, "radius "+it.Radius.String())
	}
	if it.Heading != "" {
		parts = append(parts, "heading "+it.Heading)
	}
	if it.SearchTarget != "" {
		search := "search " + it.SearchTarget
		if it.DetectionBehavior != "" {
			search += " (" + it.DetectionBehavior + ")"
		}
		parts = append(parts, search)
	}
	if len(parts) > 0 {
		sb.WriteString(", ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	return sb.String()
}

// StateSummary lists the live mission for the agent's context. The format
// is kept stable because prompts refer to it.
func (m *Manager) StateSummary() string {
	if m.mission == nil || len(m.mission.Items) == 0 {
		return "\n\nCurrent mission: empty"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n\nCurrent mission (%d items):", len(m.mission.Items)))
	for i, it := range m.mission.Items {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, Describe(it)))
	}
	return sb.String()
}

// ActionSummary describes the most recent single edit; used in command mode.
func (m *Manager) ActionSummary() string {
	if m.lastAction == nil {
		return "\n\nCurrent action: none"
	}
	return "\n\nCurrent action: " + Describe(*m.lastAction)
}

// Summary is an aggregate view of a mission.
type Summary struct {
	TotalItems int            `json:"total_items"`
	ByType     map[string]int `json:"by_type"`
	HasTakeoff bool           `json:"has_takeoff"`
	HasRTL     bool           `json:"has_rtl"`
	Unresolved int            `json:"unresolved"`
}

func Summarize(m *Mission) Summary {
	s := Summary{ByType: map[string]int{}}
	if m == nil {
		return s
	}
	s.TotalItems = len(m.Items)
	for _, it := range m.Items {
		s.ByType[string(it.Command)]++
		if it.Command == Takeoff {
			s.HasTakeoff = true
		}
		if it.Command.IsTerminal() {
			s.HasRTL = true
		}
		if it.Command.RequiresPosition() && it.Position == nil {
			s.Unresolved++
		}
	}
	return s
}
