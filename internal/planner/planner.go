// Package planner turns model output into tool plans and loads scripted plans.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"mavplan/internal/mission"
	"mavplan/internal/tools"
)

// Generator is the part of an LLM provider the planner needs.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error)
}

var (
	thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

// GeneratePlan asks the model for the next tool plan.
func GeneratePlan(ctx context.Context, gen Generator, model, prompt string, mode mission.Mode) (*ToolPlan, string, error) {
	raw, err := gen.GenerateJSON(ctx, prompt, model, PlanSchema(mode))
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate plan from LLM: %w", err)
	}
	plan, err := ParsePlan(raw, mode)
	if err != nil {
		return nil, raw, err
	}
	return plan, raw, nil
}

// ParsePlan decodes a model reply, assigns missing call IDs and checks
// every call against the tool registry for mode.
func ParsePlan(raw string, mode mission.Mode) (*ToolPlan, error) {
	clean := cleanJSON(raw)

	var plan ToolPlan
	if err := json.Unmarshal([]byte(clean), &plan); err != nil {
		return nil, fmt.Errorf("error parsing generated plan JSON: %v\nRaw Response: %s", err, raw)
	}
	plan.Reply = strings.TrimSpace(plan.Reply)
	assignIDs(plan.Calls)

	if err := ValidatePlan(&plan, mode); err != nil {
		return nil, fmt.Errorf("generated plan invalid: %w", err)
	}
	return &plan, nil
}

// cleanJSON strips reasoning blocks and markdown fences some local models
// wrap around JSON.
func cleanJSON(raw string) string {
	s := strings.TrimSpace(thinkRe.ReplaceAllString(raw, ""))
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	if i := strings.IndexByte(s, '{'); i >= 0 {
		if j := strings.LastIndexByte(s, '}'); j > i {
			s = s[i : j+1]
		}
	}
	return s
}

func assignIDs(calls []ToolCall) {
	for i := range calls {
		if strings.TrimSpace(calls[i].ID) == "" {
			calls[i].ID = uuid.New().String()[:8]
		}
		if calls[i].Params == nil {
			calls[i].Params = map[string]any{}
		}
	}
}

// ValidatePlan checks calls against the tool registry.
func ValidatePlan(plan *ToolPlan, mode mission.Mode) error {
	seen := map[string]struct{}{}
	for i, call := range plan.Calls {
		if err := tools.ValidateCall(mode, call.Tool, call.Params); err != nil {
			return fmt.Errorf("call #%d: %w", i+1, err)
		}
		if _, dup := seen[call.ID]; dup {
			return fmt.Errorf("call #%d: duplicate call id '%s'", i+1, call.ID)
		}
		seen[call.ID] = struct{}{}
	}
	return nil
}
