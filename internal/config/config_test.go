package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Setenv("MAVPLAN_LLM_BACKEND", "")
	t.Setenv("MAVPLAN_LLM_MODEL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  type: gemini
  name: gemini-2.5-flash
agent:
  auto_fix_positioning: false
  waypoint_max_altitude: 120
  waypoint_altitude_units: meters
`), 0o644))

	cfg, source, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, source)
	assert.Equal(t, "gemini", cfg.Model.Type)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model.Name)
	assert.False(t, cfg.Agent.AutoFixPositioning)
	assert.Equal(t, 120.0, cfg.Agent.WaypointMaxAltitude)
	assert.Equal(t, "meters", cfg.Agent.WaypointAltitudeUnits)
	// untouched keys keep their defaults
	assert.True(t, cfg.Agent.SingleTakeoffOnly)
	assert.Equal(t, 50.0, cfg.Agent.TakeoffDefaultAltitude)
}

func TestLoadJSONDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mavlink_agent_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"agent": {"max_mission_items": 7, "default_distance_units": "feet"}}`), 0o644))

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Agent.MaxMissionItems)
	assert.Equal(t, "feet", cfg.Agent.DefaultDistanceUnits)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MAVPLAN_CONFIG", "")
	t.Setenv("MAVPLAN_LLM_BACKEND", "gemini")
	t.Setenv("MAVPLAN_LLM_MODEL", "gemini-2.5-pro")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("MAVPLAN_DB", "/tmp/x.db")
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, source, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, source)
	assert.Equal(t, "gemini", cfg.Model.Type)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model.Name)
	assert.Equal(t, "secret", cfg.Model.APIKey)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestAgentLimits(t *testing.T) {
	a := Default().Agent

	loiter := a.Limits("loiter")
	assert.True(t, loiter.HasRadius)
	assert.Equal(t, a.LoiterMaxRadius, loiter.MaxRadius)

	land := a.Limits("land")
	assert.Equal(t, a.RTLMaxAltitude, land.MaxAltitude)
	assert.False(t, land.HasRadius)

	assert.Equal(t, "north", a.Limits("takeoff").DefaultHeading)
	assert.Equal(t, Limits{}, a.Limits("unknown"))
}
