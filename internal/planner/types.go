package planner

// ToolCall is one mission editing call proposed by the model or read from a
// plan file. Params use the parameter names of the tool registry.
type ToolCall struct {
	ID     string         `json:"id"`
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// ToolPlan is one model reply: text for the user plus the calls to run
// before the next round.
type ToolPlan struct {
	Reply string     `json:"reply"`
	Calls []ToolCall `json:"calls"`
}

// Observation is the outcome of one call, fed back to the model.
type Observation struct {
	CallID string         `json:"call_id"`
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
	Result string         `json:"result"`
	Failed bool           `json:"failed"`
}

// ConversationTurn is one completed user request in mission mode.
type ConversationTurn struct {
	UserInput    string        `json:"user_input"`
	Reply        string        `json:"reply"`
	Observations []Observation `json:"observations,omitempty"`
}
