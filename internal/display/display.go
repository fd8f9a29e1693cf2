// Package display renders missions, turn results and validation reports for
// the terminal.
package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"mavplan/internal/mavlink"
	"mavplan/internal/mission"
	"mavplan/internal/planner"
	"mavplan/internal/session"
	"mavplan/internal/store"
)

var (
	okColor   = color.New(color.FgGreen)
	errColor  = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.FgHiBlack)
	headColor = color.New(color.FgCyan, color.Bold)
)

// FormatMission lists items one per line, numbered from 1.
func FormatMission(m *mission.Mission) string {
	if m == nil {
		return dimColor.Sprint("No active mission.")
	}
	var sb strings.Builder
	sb.WriteString(headColor.Sprintf("Mission (%d items)", m.Len()))
	sb.WriteString("\n")
	if m.Len() == 0 {
		sb.WriteString(dimColor.Sprint("  (empty)"))
		sb.WriteString("\n")
	}
	for i, it := range m.Items {
		sb.WriteString(fmt.Sprintf("  %2d. %s\n", i+1, mission.Describe(it)))
	}
	return sb.String()
}

func FormatValidation(v session.Validation) string {
	var sb strings.Builder
	if v.Valid {
		sb.WriteString(okColor.Sprint("✓ Mission is valid"))
	} else {
		sb.WriteString(errColor.Sprint("✗ Mission is not valid"))
	}
	sb.WriteString("\n")
	for _, e := range v.Errors {
		sb.WriteString("  " + errColor.Sprint("error: ") + e + "\n")
	}
	for _, w := range v.Warnings {
		sb.WriteString("  " + warnColor.Sprint("note: ") + w + "\n")
	}
	return sb.String()
}

// FormatObservation shows one tool call outcome on a single line.
func FormatObservation(o planner.Observation) string {
	line := firstLine(o.Result)
	if o.Failed {
		return errColor.Sprint("✗ ") + o.Tool + ": " + line
	}
	return okColor.Sprint("✓ ") + o.Tool + ": " + line
}

func FormatTurnResult(res *session.TurnResult, verbose bool) string {
	if res == nil {
		return ""
	}
	var sb strings.Builder
	if !res.Success {
		sb.WriteString(errColor.Sprint(res.Output))
		sb.WriteString("\n")
		return sb.String()
	}
	if verbose {
		for _, o := range res.Observations {
			sb.WriteString(FormatObservation(o))
			sb.WriteString("\n")
		}
	}
	sb.WriteString(res.Output)
	sb.WriteString("\n")
	if res.Mission != nil {
		sb.WriteString(FormatMission(res.Mission))
		if res.Mode == mission.ModeMission {
			sb.WriteString(FormatValidation(res.Validation))
		}
	}
	if verbose && res.Metrics != nil {
		sb.WriteString(FormatRequestMetrics(res.Metrics))
	}
	return sb.String()
}

func FormatSummary(s session.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total items: %d\n", s.TotalItems))
	if s.Valid {
		sb.WriteString("Valid: " + okColor.Sprint("yes") + "\n")
	} else {
		sb.WriteString("Valid: " + errColor.Sprint("no") + "\n")
	}
	for _, e := range s.Errors {
		sb.WriteString("  - " + e + "\n")
	}
	if len(s.CommandCounts) > 0 {
		kinds := make([]string, 0, len(s.CommandCounts))
		for k := range s.CommandCounts {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		parts := make([]string, 0, len(kinds))
		for _, k := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", k, s.CommandCounts[k]))
		}
		sb.WriteString("Commands: " + strings.Join(parts, ", ") + "\n")
	}
	if s.CreatedAt != nil {
		sb.WriteString(dimColor.Sprintf("Created: %s", s.CreatedAt.Format("2006-01-02 15:04:05")) + "\n")
	}
	if s.ModifiedAt != nil {
		sb.WriteString(dimColor.Sprintf("Modified: %s", s.ModifiedAt.Format("2006-01-02 15:04:05")) + "\n")
	}
	return sb.String()
}

// FormatValidationReport is one file's entry in `validate` output.
func FormatValidationReport(file string, v session.Validation, s session.Summary) string {
	return headColor.Sprint(file) + "\n" + FormatValidation(v) + FormatSummary(s)
}

func FormatSessions(list []store.Info) string {
	if len(list) == 0 {
		return "No saved sessions."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-10s %-8s %5s  %s\n", "ID", "MODE", "ITEMS", "UPDATED"))
	for _, info := range list {
		sb.WriteString(fmt.Sprintf("%-10s %-8s %5d  %s\n",
			info.ID, info.Mode, info.Items, info.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}
	return sb.String()
}

// FormatMAVLink prints records as a QGC-style table.
func FormatMAVLink(items []mavlink.Item) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%4s %7s %5s %8s %8s %8s %8s %12s %12s %8s\n",
		"SEQ", "COMMAND", "FRAME", "P1", "P2", "P3", "P4", "X", "Y", "Z"))
	for _, it := range items {
		sb.WriteString(fmt.Sprintf("%4d %7d %5d %8.2f %8.2f %8.2f %8.2f %12d %12d %8.2f\n",
			it.Seq, it.Command, it.Frame, it.Param1, it.Param2, it.Param3, it.Param4, it.X, it.Y, it.Z))
	}
	return sb.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
