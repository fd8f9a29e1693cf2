package planner

// Calls that remove or shuffle existing items ask for confirmation in chat.
var riskyTools = map[string]struct{}{
	"delete_mission_item": {},
	"reorder_item":        {},
}

func IsPlanRisky(plan *ToolPlan) bool {
	if plan == nil {
		return false
	}
	for _, call := range plan.Calls {
		if _, exists := riskyTools[call.Tool]; exists {
			return true
		}
	}
	return false
}
