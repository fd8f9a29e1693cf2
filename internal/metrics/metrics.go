package metrics

import "time"

type CallMetrics struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Err        string    `json:"err,omitempty"`
}

type RoundMetrics struct {
	Round      int           `json:"round"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	DurationMs int64         `json:"duration_ms"`
	LLMMs      int64         `json:"llm_ms"`
	Calls      []CallMetrics `json:"calls"`
}

type RequestMetrics struct {
	RequestID  string         `json:"request_id"`
	Mode       string         `json:"mode"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	DurationMs int64          `json:"duration_ms"`
	Succeeded  bool           `json:"succeeded"`
	Rounds     []RoundMetrics `json:"rounds"`
}

// Compute derived fields for a round.
func (r *RoundMetrics) Finalize() {
	r.DurationMs = r.End.Sub(r.Start).Milliseconds()
}

func (r *RequestMetrics) Finalize() {
	r.DurationMs = r.End.Sub(r.Start).Milliseconds()
}

// Failed counts rejected calls in a round.
func (r RoundMetrics) Failed() int {
	n := 0
	for _, c := range r.Calls {
		if !c.Success {
			n++
		}
	}
	return n
}

// CallCount is the number of tool calls across all rounds.
func (r RequestMetrics) CallCount() int {
	n := 0
	for _, round := range r.Rounds {
		n += len(round.Calls)
	}
	return n
}
