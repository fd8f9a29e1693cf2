package display

import (
	"fmt"
	"strings"

	"mavplan/internal/metrics"
)

func FormatRequestMetrics(rm *metrics.RequestMetrics) string {
	if rm == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString("Request metrics:\n")
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (success=%v, calls=%d)\n", rm.DurationMs, rm.Succeeded, rm.CallCount()))
	for _, r := range rm.Rounds {
		sb.WriteString(fmt.Sprintf("  Round %d: %d ms  (llm %d ms)\n",
			r.Round, r.DurationMs, r.LLMMs))
		for _, c := range r.Calls {
			status := "ok"
			if !c.Success {
				status = "rejected"
			}
			sb.WriteString(fmt.Sprintf("    • %-10s %-24s %5d ms  [%s]\n",
				c.ID, "("+c.Tool+")", c.DurationMs, status))
		}
	}
	return sb.String()
}
