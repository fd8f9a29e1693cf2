package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"mavplan/internal/mavlink"
	"mavplan/internal/mission"
	"mavplan/internal/units"
)

// Mission file formats.
const (
	formatInternal = "internal"
	formatMAVLink  = "mavlink"
)

// readMissionFile loads a mission saved either in the planner's own form
// ({"items":[...]}) or as MAVLink mission items (a bare array, or an object
// with "mission_state" like the /api/plan body).
func readMissionFile(path string) (*mission.Mission, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read mission file: %w", err)
	}
	m, format, err := parseMission(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse mission file %s: %w", path, err)
	}
	return m, format, nil
}

func parseMission(data []byte) (*mission.Mission, string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, "", fmt.Errorf("file is empty")
	}

	if data[0] == '[' {
		var items []mavlink.Item
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, "", err
		}
		return mavlink.Decode(items), formatMAVLink, nil
	}

	var probe struct {
		MissionState []mavlink.Item `json:"mission_state"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.MissionState != nil {
		return mavlink.Decode(probe.MissionState), formatMAVLink, nil
	}

	m := mission.New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, "", err
	}
	return m, formatInternal, nil
}

func normalizeFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case formatMAVLink, formatInternal:
		return f, nil
	case "":
		return formatInternal, nil
	default:
		return "", fmt.Errorf("unknown format %q (use %s or %s)", format, formatMAVLink, formatInternal)
	}
}

// encodeMission renders m in the requested format.
func encodeMission(m *mission.Mission, format string) (any, error) {
	f, err := normalizeFormat(format)
	if err != nil {
		return nil, err
	}
	if f == formatMAVLink {
		return mavlink.Encode(m), nil
	}
	return m, nil
}

func parseHome(s string) (*units.LatLon, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	p, ok := units.ParseCoordinates(s)
	if !ok {
		return nil, fmt.Errorf("invalid home position %q (want lat,lon)", s)
	}
	return &p, nil
}

func parseMode(s string) (mission.Mode, error) {
	mode, ok := mission.ParseMode(s)
	if !ok {
		return "", fmt.Errorf("invalid mode %q (use mission or command)", s)
	}
	return mode, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
