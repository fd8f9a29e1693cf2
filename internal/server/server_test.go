package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mavplan/internal/config"
	"mavplan/internal/mavlink"
)

type scripted struct {
	replies []string
}

func (g *scripted) GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error) {
	if len(g.replies) == 0 {
		return `{"reply":"done","calls":[]}`, nil
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r, nil
}

func newTestServer(t *testing.T, gen *scripted, opts Options) *httptest.Server {
	t.Helper()
	var s *Server
	var err error
	if gen == nil {
		s, err = New(config.Default(), nil, opts)
	} else {
		s, err = New(config.Default(), gen, opts)
	}
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, &scripted{}, Options{Verbose: true})
	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "running", out["status"])
	assert.Equal(t, true, out["agent_initialized"])
	assert.Equal(t, true, out["verbose"])
}

func TestPlanRequestValidation(t *testing.T) {
	ts := newTestServer(t, &scripted{}, Options{})
	home := map[string]any{"latitude": 37.7749, "longitude": -122.4194}

	testCases := []struct {
		name    string
		body    map[string]any
		wantErr string
	}{
		{
			name:    "missing user_input",
			body:    map[string]any{"home_position": home},
			wantErr: "Missing required field: user_input",
		},
		{
			name:    "invalid mode",
			body:    map[string]any{"user_input": "take off", "mode": "survey", "home_position": home},
			wantErr: "Invalid mode: survey. Must be 'mission' or 'command'",
		},
		{
			name:    "no mission state or home",
			body:    map[string]any{"user_input": "take off"},
			wantErr: "Missing required data: Either 'mission_state' or 'home_position' required. Connect to GCS or provide mission state.",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, out := postJSON(t, ts.URL+"/api/plan", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tc.wantErr, out["error"])
		})
	}
}

func TestPlanWithoutGenerator(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	resp, out := postJSON(t, ts.URL+"/api/plan", map[string]any{"user_input": "x"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Server error: Agent not available", out["output"])
}

func TestPlanRoundTripsMAVLink(t *testing.T) {
	gen := &scripted{replies: []string{
		`{"reply":"Added a waypoint.","calls":[{"id":"w","tool":"add_waypoint","params":{"distance":"500 m","heading":"east"}}]}`,
		`{"reply":"","calls":[]}`,
	}}
	ts := newTestServer(t, gen, Options{})

	state := []mavlink.Item{{
		Seq: 0, Frame: mavlink.FrameGlobalRelativeAltInt, Command: mavlink.CmdNavTakeoff, Autocontinue: 1,
		X: 377749000, Y: -1224194000, Z: 15,
	}}
	body := map[string]any{
		"user_input":    "fly 500 m east",
		"mode":          "command",
		"mission_state": state,
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/plan", "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out planResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.Equal(t, "Added a waypoint.", out.Output)
	require.Len(t, out.MissionItems, 2)
	assert.Equal(t, mavlink.CmdNavTakeoff, out.MissionItems[0].Command)
	assert.Equal(t, mavlink.CmdNavWaypoint, out.MissionItems[1].Command)
	assert.Greater(t, out.MissionItems[1].Y, out.MissionItems[0].Y)
	require.Len(t, out.AddedItems, 1)
	assert.Equal(t, 1, out.AddedItems[0].Seq)
	assert.Empty(t, out.ModifiedItems)
	assert.Empty(t, out.DeletedItems)
	assert.Equal(t, "default", out.SessionID)
}

func TestPlanRateLimit(t *testing.T) {
	ts := newTestServer(t, &scripted{}, Options{PlanRate: 0.001, PlanBurst: 1})
	body := map[string]any{"user_input": "take off", "home_position": map[string]any{"latitude": 37.7749, "longitude": -122.4194}}

	resp, _ := postJSON(t, ts.URL+"/api/plan", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, out := postJSON(t, ts.URL+"/api/plan", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, false, out["success"])
}

func TestValidateEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	state := []mavlink.Item{
		{Seq: 0, Command: mavlink.CmdNavTakeoff, X: 377749000, Y: -1224194000, Z: 15},
		{Seq: 1, Command: mavlink.CmdNavWaypoint, X: 377849000, Y: -1224194000, Z: 30},
	}

	resp, out := postJSON(t, ts.URL+"/api/validate", map[string]any{"mission_state": state})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["valid"])
	assert.Contains(t, out["errors"], "Mission has no RTL item")

	state = append(state, mavlink.Item{Seq: 2, Command: mavlink.CmdNavReturnToLaunch, Z: 15})
	resp, out = postJSON(t, ts.URL+"/api/validate", map[string]any{"mission_state": state})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["valid"], out["errors"])
	summary := out["summary"].(map[string]any)
	assert.Equal(t, float64(3), summary["total_items"])

	resp, _ = postJSON(t, ts.URL+"/api/validate", map[string]any{"mode": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
