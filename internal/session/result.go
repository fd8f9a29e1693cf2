package session

import (
	"time"

	"mavplan/internal/metrics"
	"mavplan/internal/mission"
	"mavplan/internal/planner"
	"mavplan/internal/units"
)

// TurnResult is the outcome of one user request.
type TurnResult struct {
	RequestID    string                  `json:"request_id"`
	Mode         mission.Mode            `json:"mode"`
	Input        string                  `json:"input"`
	Output       string                  `json:"output"`
	Success      bool                    `json:"success"`
	Error        string                  `json:"error,omitempty"`
	Observations []planner.Observation   `json:"observations,omitempty"`
	Mission      *mission.Mission        `json:"mission,omitempty"`
	Validation   Validation              `json:"validation"`
	Metrics      *metrics.RequestMetrics `json:"metrics,omitempty"`
}

// Validation is the public form of a final mission check.
type Validation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func toValidation(res mission.Result) Validation {
	v := Validation{Valid: res.Valid, Errors: []string{}, Warnings: []string{}}
	v.Errors = append(v.Errors, res.Errors...)
	v.Warnings = append(v.Warnings, res.Fixes...)
	v.Warnings = append(v.Warnings, res.Warnings...)
	return v
}

// Summary is the mission overview shown by `sessions show` and the API.
type Summary struct {
	TotalItems    int            `json:"total_items"`
	Valid         bool           `json:"valid"`
	Errors        []string       `json:"errors"`
	CommandCounts map[string]int `json:"command_counts"`
	CreatedAt     *time.Time     `json:"created_at,omitempty"`
	ModifiedAt    *time.Time     `json:"modified_at,omitempty"`
}

// PlanRequest is a stateless planning call: the mission it starts from and
// the home position travel with the request.
type PlanRequest struct {
	UserInput    string
	Mode         mission.Mode
	MissionState *mission.Mission
	Home         *units.LatLon
}

// PlanResponse carries the resulting mission and how it differs from the
// request's mission, compared by seq.
type PlanResponse struct {
	Success    bool                    `json:"success"`
	Mode       mission.Mode            `json:"mode"`
	Output     string                  `json:"output"`
	Error      string                  `json:"error,omitempty"`
	Mission    *mission.Mission        `json:"mission_state"`
	Added      []mission.Item          `json:"added_items"`
	Modified   []mission.Item          `json:"modified_items"`
	Deleted    []mission.Item          `json:"deleted_items"`
	Validation Validation              `json:"validation"`
	Summary    Summary                 `json:"summary"`
	Metrics    *metrics.RequestMetrics `json:"metrics,omitempty"`
}
