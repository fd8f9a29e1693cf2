package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mavplan/internal/config"
	"mavplan/internal/mavlink"
	"mavplan/internal/mission"
)

const (
	sfLat = 377749000
	sfLon = -1224194000
)

func writeFile(t *testing.T, name string, v any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	var data []byte
	switch b := v.(type) {
	case string:
		data = []byte(b)
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func completeMAVLink() []mavlink.Item {
	return []mavlink.Item{
		{Seq: 0, Command: mavlink.CmdNavTakeoff, X: sfLat, Y: sfLon, Z: 15},
		{Seq: 1, Command: mavlink.CmdNavWaypoint, X: sfLat + 100000, Y: sfLon, Z: 30},
		{Seq: 2, Command: mavlink.CmdNavReturnToLaunch, Z: 15},
	}
}

func TestParseMission(t *testing.T) {
	internal, err := json.Marshal(mavlink.Decode(completeMAVLink()))
	if err != nil {
		t.Fatal(err)
	}
	bare, _ := json.Marshal(completeMAVLink())
	wrapped, _ := json.Marshal(map[string]any{"mission_state": completeMAVLink()})

	testCases := []struct {
		name       string
		data       string
		wantFormat string
		wantItems  int
		wantErr    bool
	}{
		{name: "bare MAVLink list", data: string(bare), wantFormat: formatMAVLink, wantItems: 3},
		{name: "api request body", data: string(wrapped), wantFormat: formatMAVLink, wantItems: 3},
		{name: "internal form", data: string(internal), wantFormat: formatInternal, wantItems: 3},
		{name: "empty mission list", data: "[]", wantFormat: formatMAVLink, wantItems: 0},
		{name: "blank file", data: "  \n", wantErr: true},
		{name: "not JSON", data: "takeoff, then land", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, format, err := parseMission([]byte(tc.data))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got mission %v", m)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if format != tc.wantFormat {
				t.Errorf("format = %q, want %q", format, tc.wantFormat)
			}
			if m.Len() != tc.wantItems {
				t.Errorf("items = %d, want %d", m.Len(), tc.wantItems)
			}
		})
	}
}

func TestParseHome(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantNil bool
		wantErr bool
	}{
		{name: "empty", input: "", wantNil: true},
		{name: "lat,lon", input: "37.7749, -122.4194"},
		{name: "out of range", input: "137.7,-122.4", wantErr: true},
		{name: "garbage", input: "home", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			home, err := parseHome(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if (home == nil) != tc.wantNil {
				t.Errorf("home = %v, wantNil %v", home, tc.wantNil)
			}
		})
	}
}

func TestEncodeMission(t *testing.T) {
	m := mavlink.Decode(completeMAVLink())

	out, err := encodeMission(m, "MAVLink")
	if err != nil {
		t.Fatal(err)
	}
	items, ok := out.([]mavlink.Item)
	if !ok || len(items) != 3 {
		t.Fatalf("expected 3 MAVLink items, got %#v", out)
	}

	out, err = encodeMission(m, "")
	if err != nil {
		t.Fatal(err)
	}
	if out != m {
		t.Errorf("internal format should return the mission itself")
	}

	if _, err := encodeMission(m, "kml"); err == nil {
		t.Errorf("expected an error for an unknown format")
	}
}

func TestValidateFiles(t *testing.T) {
	valid := writeFile(t, "valid.json", completeMAVLink())
	noRTL := writeFile(t, "no_rtl.json", completeMAVLink()[:2])
	rules := config.Default().Agent

	reports, err := validateFiles(rules, mission.ModeMission, nil, []string{noRTL, valid})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	if reports[0].File != noRTL || reports[1].File != valid {
		t.Errorf("reports out of argument order: %s, %s", reports[0].File, reports[1].File)
	}
	if reports[0].Validation.Valid {
		t.Errorf("mission without RTL should not be valid")
	}
	if !reports[1].Validation.Valid {
		t.Errorf("complete mission should be valid: %v", reports[1].Validation.Errors)
	}
	if reports[1].Summary.TotalItems != 3 {
		t.Errorf("summary items = %d, want 3", reports[1].Summary.TotalItems)
	}

	if _, err := validateFiles(rules, mission.ModeMission, nil, []string{valid, filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestApplyAndConvertCommands(t *testing.T) {
	cfgFile := writeFile(t, "config.yaml", "{}\n")
	planFile := writeFile(t, "plans.json", `{"plans":[
		{"name":"build","calls":[
			{"id":"t","tool":"add_takeoff","params":{"coordinates":"37.7749,-122.4194"}},
			{"id":"w","tool":"add_waypoint","params":{"distance":"500 m","heading":"north"}},
			{"id":"r","tool":"add_rtl","params":{}}
		]},
		{"name":"extra","calls":[{"tool":"add_loiter","params":{"radius":"50 m"}}]}
	]}`)
	outFile := filepath.Join(t.TempDir(), "mission.json")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"apply", planFile, "--config", cfgFile, "--names", "build", "--yes", "-o", outFile})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("apply failed: %v\n%s", err, stdout.String())
	}
	for _, want := range []string{"[Plan build] 3 call(s), 0 rejected", "Mission (3 items)"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("apply output missing %q:\n%s", want, stdout.String())
		}
	}
	if strings.Contains(stdout.String(), "[Plan extra]") {
		t.Errorf("unselected plan ran:\n%s", stdout.String())
	}

	saved, format, err := readMissionFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	if format != formatInternal || saved.Len() != 3 {
		t.Fatalf("saved mission: format %s, %d items", format, saved.Len())
	}

	stdout.Reset()
	rootCmd.SetArgs([]string{"convert", outFile, "--config", cfgFile})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	var items []mavlink.Item
	if err := json.Unmarshal(stdout.Bytes(), &items); err != nil {
		t.Fatalf("convert output is not a MAVLink list: %v\n%s", err, stdout.String())
	}
	if len(items) != 3 || items[0].Command != mavlink.CmdNavTakeoff || items[2].Command != mavlink.CmdNavReturnToLaunch {
		t.Errorf("unexpected converted items: %+v", items)
	}
	if items[1].X <= items[0].X {
		t.Errorf("waypoint should be north of takeoff: %d <= %d", items[1].X, items[0].X)
	}
}
