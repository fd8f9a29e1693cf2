package display

import (
	"fmt"
	"sort"
	"strings"

	"mavplan/internal/planner"
)

const maxParamValueLength = 100

func FormatPlansCatalog(file string, plans []planner.NamedPlan) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d plan(s) in %s:\n", len(plans), file))
	for i, p := range plans {
		risky := planner.IsPlanRisky(p.Plan)
		sb.WriteString(fmt.Sprintf("  %2d. %s  (calls=%d, risky=%v)\n",
			i+1, p.Name, len(p.Plan.Calls), risky))
	}
	return sb.String()
}

// stdout plan (truncated)
func FormatPlan(plan *planner.ToolPlan) string {
	return formatPlanInternal(plan, maxParamValueLength)
}

// full plan (no truncation), used for logs
func FormatPlanFull(plan *planner.ToolPlan) string {
	return formatPlanInternal(plan, -1)
}

func formatPlanInternal(plan *planner.ToolPlan, limit int) string {
	var sb strings.Builder
	sb.WriteString("Proposed tool calls:\n")
	sb.WriteString("--------------------------------------------------\n")

	if plan != nil {
		for i, call := range plan.Calls {
			sb.WriteString(fmt.Sprintf("%d. Tool: %s (ID: %s)\n", i+1, call.Tool, call.ID))
			if len(call.Params) > 0 {
				sb.WriteString("    Params:\n")
				for _, key := range sortedKeys(call.Params) {
					displayValue := formatValueForDisplay(call.Params[key], limit)
					sb.WriteString(fmt.Sprintf("      %s: %s\n", key, displayValue))
				}
			}
		}
	}
	sb.WriteString("--------------------------------------------------")
	return sb.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Limit a value's stdout length (limit < 0 means no limit)
func formatValueForDisplay(value any, limit int) string {
	s := fmt.Sprintf("%v", value)
	s = strings.ReplaceAll(s, "\n", "\\n")
	if limit >= 0 && len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
