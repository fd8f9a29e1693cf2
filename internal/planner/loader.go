package planner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type NamedPlan struct {
	Name string
	Plan *ToolPlan
}

/*
LoadToolPlansFromFile loads one or many scripted tool plans from a JSON file
and always returns a slice. It supports these shapes:

 1. Multi-plan (preferred):
    {
    "plans": [
    { "name": "survey-north", "calls": [ {..call..}, ... ] },
    { "calls": [ ... ] },                       // name optional
    [ {..call..}, ... ]                         // an entry can be a bare calls array
    ]
    }

 2. Multi-plan (bare array):
    [
    { "name": "survey-north", "calls": [ ... ] },
    [ {..call..}, ... ]
    ]

 3. Single plan (treated as 1-element list):
    { "calls": [ ... ] }
    [ {..call..}, ... ]   // bare array of calls at top level

Unnamed plans are auto-named as "manual:<base>#<index>".
*/
func LoadToolPlansFromFile(path string) ([]NamedPlan, error) {
	clean := filepath.Clean(path)
	if _, err := os.Stat(clean); err != nil {
		return nil, fmt.Errorf("plans file not found: %s", clean)
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", clean, err)
	}
	return ParseToolPlans(data, filepath.Base(clean))
}

// ParseToolPlans is LoadToolPlansFromFile for in-memory documents.
func ParseToolPlans(data []byte, base string) ([]NamedPlan, error) {
	// Format 1: object with "plans"
	var obj struct {
		Plans []json.RawMessage `json:"plans"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && len(obj.Plans) > 0 {
		return parsePlanList(obj.Plans, base)
	}

	// A bare array is either a list of plans or a single list of calls.
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		if np, ok := parseOneTopLevelPlan(data, base); ok {
			return []NamedPlan{np}, nil
		}
		return parsePlanList(arr, base)
	}

	// Format 3: single plan -> wrap as one
	np, ok := parseOneTopLevelPlan(data, base)
	if ok {
		return []NamedPlan{np}, nil
	}

	return nil, fmt.Errorf("unrecognized plans format in %s", base)
}

func parsePlanList(items []json.RawMessage, base string) ([]NamedPlan, error) {
	var out []NamedPlan
	for i, raw := range items {
		np, ok := parseOneNamedPlan(raw)
		if !ok {
			// Try: entry is a bare array of calls
			var calls []ToolCall
			if err := json.Unmarshal(raw, &calls); err == nil && len(calls) > 0 && isCallList(calls) {
				np = NamedPlan{Plan: &ToolPlan{Calls: calls}}
				ok = true
			}
		}
		if !ok {
			return nil, fmt.Errorf("could not parse plan #%d", i+1)
		}
		if strings.TrimSpace(np.Name) == "" {
			np.Name = fmt.Sprintf("manual:%s#%d", base, i+1)
		}
		assignIDs(np.Plan.Calls)
		out = append(out, np)
	}
	return out, nil
}

// parseOneNamedPlan tries {"name":"...", "calls":[...]}.
func parseOneNamedPlan(raw json.RawMessage) (NamedPlan, bool) {
	var wrap struct {
		Name  string     `json:"name"`
		Reply string     `json:"reply"`
		Calls []ToolCall `json:"calls"`
	}
	if err := json.Unmarshal(raw, &wrap); err == nil && len(wrap.Calls) > 0 && isCallList(wrap.Calls) {
		return NamedPlan{
			Name: strings.TrimSpace(wrap.Name),
			Plan: &ToolPlan{Reply: wrap.Reply, Calls: wrap.Calls},
		}, true
	}
	return NamedPlan{}, false
}

// parseOneTopLevelPlan handles a single-plan top-level document:
//
//	{"calls":[...]}  OR  [ {..call..}, ... ]
func parseOneTopLevelPlan(data []byte, base string) (NamedPlan, bool) {
	if np, ok := parseOneNamedPlan(data); ok {
		if np.Name == "" {
			np.Name = "manual:" + base
		}
		assignIDs(np.Plan.Calls)
		return np, true
	}
	var calls []ToolCall
	if err := json.Unmarshal(data, &calls); err == nil && len(calls) > 0 && isCallList(calls) {
		assignIDs(calls)
		return NamedPlan{
			Name: "manual:" + base,
			Plan: &ToolPlan{Calls: calls},
		}, true
	}
	return NamedPlan{}, false
}

func isCallList(calls []ToolCall) bool {
	for _, c := range calls {
		if strings.TrimSpace(c.Tool) == "" {
			return false
		}
	}
	return true
}

// SelectPlansByNames returns plans matching the given names (case-insensitive).
func SelectPlansByNames(plans []NamedPlan, names []string) ([]NamedPlan, []string) {
	if len(names) == 0 {
		return plans, nil
	}

	var selected []NamedPlan
	var missing []string

	for _, want := range names {
		w := strings.TrimSpace(want)
		if w == "" {
			continue
		}

		found := false
		for i := range plans {
			if strings.EqualFold(plans[i].Name, w) {
				selected = append(selected, plans[i])
				found = true
				break
			}
		}

		if !found {
			missing = append(missing, want)
		}
	}

	return selected, missing
}
