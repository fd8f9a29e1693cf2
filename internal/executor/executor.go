// Package executor runs a tool plan against a mission toolbox.
package executor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mavplan/internal/metrics"
	"mavplan/internal/planner"
	"mavplan/internal/tools"
)

var (
	resultsRef = regexp.MustCompile(`@results\.([A-Za-z0-9_\-]+)\.([A-Za-z0-9_]+)`)
	itemRef    = regexp.MustCompile(`\(Item (\d+)\)`)
)

// ErrDeclined is returned when the confirm callback rejects a plan.
var ErrDeclined = errors.New("plan declined by user")

// ConfirmFunc is asked before a risky plan runs.
type ConfirmFunc func(plan *planner.ToolPlan) bool

// ExecutePlan runs plan's calls in order. Calls mutate one mission, so they
// never run concurrently. A rejected call does not stop the plan: its
// result is recorded and the model sees it next round.
//
// String params may reference an earlier call's outputs as
// @results.<call id>.<key>; keys are "result" and "item".
func ExecutePlan(ctx context.Context, tb *tools.Toolbox, plan *planner.ToolPlan, round int, confirm ConfirmFunc) (*metrics.RoundMetrics, []planner.Observation, error) {
	rm := &metrics.RoundMetrics{Round: round, Start: time.Now()}
	defer func() {
		rm.End = time.Now()
		rm.Finalize()
	}()

	if plan == nil || len(plan.Calls) == 0 {
		return rm, nil, nil
	}
	if confirm != nil && planner.IsPlanRisky(plan) && !confirm(plan) {
		return rm, nil, ErrDeclined
	}

	results := map[string]map[string]any{}
	var observations []planner.Observation

	for _, call := range plan.Calls {
		if err := ctx.Err(); err != nil {
			return rm, observations, err
		}

		params := resolvePayload(call.Params, results)

		cm := metrics.CallMetrics{ID: call.ID, Tool: call.Tool, Start: time.Now()}
		out := tb.ApplyContext(ctx, call.Tool, params)
		cm.End = time.Now()
		cm.DurationMs = cm.End.Sub(cm.Start).Milliseconds()
		failed := tools.IsFailure(out)
		cm.Success = !failed
		if failed {
			cm.Err = firstLine(out)
		}
		rm.Calls = append(rm.Calls, cm)

		observations = append(observations, planner.Observation{
			CallID: call.ID,
			Tool:   call.Tool,
			Params: params,
			Result: out,
			Failed: failed,
		})
		results[call.ID] = outputs(out)
	}
	return rm, observations, nil
}

func outputs(result string) map[string]any {
	out := map[string]any{"result": firstLine(result)}
	if m := itemRef.FindStringSubmatch(result); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out["item"] = n
		}
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// resolvePayload replaces @results references. A reference that makes up
// the whole value keeps the output's type, so "@results.t1.item" stays an
// int for seq params.
func resolvePayload(payload map[string]any, results map[string]map[string]any) map[string]any {
	resolved := make(map[string]any, len(payload))

	for key, val := range payload {
		str, ok := val.(string)
		if !ok {
			resolved[key] = val
			continue
		}

		if sub := resultsRef.FindStringSubmatch(str); sub != nil && sub[0] == str {
			if v, ok := lookup(results, sub[1], sub[2]); ok {
				resolved[key] = v
			} else {
				resolved[key] = ""
			}
			continue
		}

		out := resultsRef.ReplaceAllStringFunc(str, func(match string) string {
			sub := resultsRef.FindStringSubmatch(match)
			if len(sub) != 3 {
				return ""
			}
			if v, ok := lookup(results, sub[1], sub[2]); ok {
				return fmt.Sprintf("%v", v)
			}
			return ""
		})
		resolved[key] = out
	}
	return resolved
}

func lookup(results map[string]map[string]any, callID, key string) (any, bool) {
	if m, ok := results[callID]; ok {
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	return nil, false
}
