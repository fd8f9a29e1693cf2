package planner

import (
	"mavplan/internal/mission"
	"mavplan/internal/tools"
)

// PlanSchema is the JSON schema of a model reply, with the tool name
// restricted to the tools offered in mode. Backends with structured output
// use it to constrain generation.
func PlanSchema(mode mission.Mode) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reply": map[string]any{"type": "string"},
			"calls": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":     map[string]any{"type": "string"},
						"tool":   map[string]any{"type": "string", "enum": tools.Names(mode)},
						"params": map[string]any{"type": "object"},
					},
					"required": []string{"tool", "params"},
				},
			},
		},
		"required": []string{"reply", "calls"},
	}
}
