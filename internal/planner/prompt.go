package planner

import (
	"fmt"
	"strings"

	"mavplan/internal/config"
	"mavplan/internal/mission"
	"mavplan/internal/tools"
)

// Tool results are cut to their first line and this many characters.
const maxObservationChars = 600

// SystemPrompt returns the standing instructions for a mode.
func SystemPrompt(mode mission.Mode, rules config.Agent) string {
	var sb strings.Builder
	sb.WriteString("You are a drone mission planning assistant. You edit a MAVLink mission ONLY by calling tools.\n")
	sb.WriteString("Respond ONLY with JSON. No extra text.\n\n")

	if mode == mission.ModeCommand {
		sb.WriteString("MODE: command. Each request is a single action executed immediately. Add exactly the items the user asks for; do not plan a full mission and do not add takeoff or return to launch unless asked.\n\n")
	} else {
		sb.WriteString("MODE: mission. You build one mission over several requests. The mission persists between requests.\n")
		sb.WriteString("MISSION RULES:\n")
		if rules.SingleTakeoffOnly {
			sb.WriteString("- A mission has at most ONE takeoff and it is item 1.\n")
		}
		if rules.SingleRTLOnly {
			sb.WriteString("- A mission has at most ONE return to launch (or land) and it is the last item.\n")
		}
		sb.WriteString("- Use update_mission_item, move_item, reorder_item and delete_mission_item to change existing items instead of adding duplicates.\n\n")
	}

	sb.WriteString("POSITIONING:\n")
	sb.WriteString("- Prefer relative positioning: distance + heading + relative_reference_frame.\n")
	sb.WriteString("- 'origin' measures from the takeoff point, 'last_waypoint' from the previous positioned item, 'self' from the item's own position (move_item only).\n")
	sb.WriteString("- Only pass coordinates or mgrs when the user gives them explicitly.\n")
	sb.WriteString(fmt.Sprintf("- Distances without units are %s. Altitudes without units use each command's configured units.\n", rules.DefaultDistanceUnits))
	sb.WriteString("- Item numbers are 1-based: item 1 is the first item.\n\n")

	sb.WriteString(tools.PromptPart(mode) + "\n")

	sb.WriteString("OUTPUT JSON SCHEMA:\n")
	sb.WriteString("{\"reply\": \"<short message for the user>\", \"calls\": [{\"id\": \"<slug>\", \"tool\": \"<tool name>\", \"params\": {}}]}\n\n")
	sb.WriteString("SEMANTICS:\n")
	sb.WriteString("- Calls run IN ORDER, each one is validated and either applied or rejected.\n")
	sb.WriteString("- After your calls run you see their results and may issue more calls.\n")
	sb.WriteString("- When the request is complete, answer with an EMPTY calls array and a reply that summarizes what changed.\n")
	sb.WriteString("- If a call is rejected ('Error:' or 'Planning Error:'), fix the parameters or explain the problem in the reply. Never repeat an identical rejected call.\n")
	return sb.String()
}

// TurnInput is everything the model sees in one round.
type TurnInput struct {
	Mode         mission.Mode
	Rules        config.Agent
	History      []ConversationTurn
	UserInput    string
	State        string
	Observations []Observation
}

// BuildTurnPrompt assembles the prompt for one agent round.
func BuildTurnPrompt(in TurnInput) string {
	var sb strings.Builder
	sb.WriteString(SystemPrompt(in.Mode, in.Rules))
	sb.WriteString("\n")

	if len(in.History) > 0 {
		sb.WriteString("CONVERSATION HISTORY (context):\n")
		for _, turn := range in.History {
			sb.WriteString(fmt.Sprintf("User: \"%s\"\n", turn.UserInput))
			for _, obs := range turn.Observations {
				sb.WriteString(fmt.Sprintf("Tool %s -> %s\n", obs.Tool, clip(firstLine(obs.Result))))
			}
			sb.WriteString(fmt.Sprintf("Assistant: %s\n", turn.Reply))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("User request: \"")
	sb.WriteString(in.UserInput)
	sb.WriteString("\"")
	sb.WriteString(in.State)
	sb.WriteString("\n\n")

	if len(in.Observations) > 0 {
		sb.WriteString("TOOL RESULTS SO FAR (this request):\n")
		for _, obs := range in.Observations {
			status := "ok"
			if obs.Failed {
				status = "rejected"
			}
			sb.WriteString(fmt.Sprintf("- [%s] %s %s: %s\n", status, obs.CallID, obs.Tool, clip(firstLine(obs.Result))))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Assistant JSON response: ")
	return sb.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func clip(s string) string {
	if len(s) <= maxObservationChars {
		return s
	}
	return s[:maxObservationChars] + "..."
}
