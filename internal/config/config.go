package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is loaded once per process and passed by value.
type Config struct {
	Model  Model  `yaml:"model"`
	Agent  Agent  `yaml:"agent"`
	DBPath string `yaml:"db_path"`
}

// Model selects the LLM backend.
type Model struct {
	Type        string  `yaml:"type"`
	Name        string  `yaml:"name"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	APIKey      string  `yaml:"-"`
}

// Agent holds the mission rules and per-command defaults.
type Agent struct {
	MaxMissionItems int `yaml:"max_mission_items"`

	SingleTakeoffOnly     bool `yaml:"single_takeoff_only"`
	SingleRTLOnly         bool `yaml:"single_rtl_only"`
	TakeoffMustBeFirst    bool `yaml:"takeoff_must_be_first"`
	RTLMustBeLast         bool `yaml:"rtl_must_be_last"`
	AutoFixPositioning    bool `yaml:"auto_fix_positioning"`
	AutoAddMissingTakeoff bool `yaml:"auto_add_missing_takeoff"`
	AutoAddMissingRTL     bool `yaml:"auto_add_missing_rtl"`

	TakeoffDefaultAltitude float64 `yaml:"takeoff_default_altitude"`
	TakeoffAltitudeUnits   string  `yaml:"takeoff_altitude_units"`
	TakeoffMinAltitude     float64 `yaml:"takeoff_min_altitude"`
	TakeoffMaxAltitude     float64 `yaml:"takeoff_max_altitude"`
	TakeoffDefaultHeading  string  `yaml:"takeoff_default_heading"`

	WaypointDefaultAltitude         float64 `yaml:"waypoint_default_altitude"`
	WaypointAltitudeUnits           string  `yaml:"waypoint_altitude_units"`
	WaypointMinAltitude             float64 `yaml:"waypoint_min_altitude"`
	WaypointMaxAltitude             float64 `yaml:"waypoint_max_altitude"`
	WaypointUsePreviousAltitude     bool    `yaml:"waypoint_use_previous_altitude"`
	WaypointUseLastWaypointLocation bool    `yaml:"waypoint_use_last_waypoint_location"`

	LoiterDefaultAltitude         float64 `yaml:"loiter_default_altitude"`
	LoiterAltitudeUnits           string  `yaml:"loiter_altitude_units"`
	LoiterMinAltitude             float64 `yaml:"loiter_min_altitude"`
	LoiterMaxAltitude             float64 `yaml:"loiter_max_altitude"`
	LoiterUsePreviousAltitude     bool    `yaml:"loiter_use_previous_altitude"`
	LoiterDefaultRadius           float64 `yaml:"loiter_default_radius"`
	LoiterRadiusUnits             string  `yaml:"loiter_radius_units"`
	LoiterMinRadius               float64 `yaml:"loiter_min_radius"`
	LoiterMaxRadius               float64 `yaml:"loiter_max_radius"`
	LoiterUseLastWaypointLocation bool    `yaml:"loiter_use_last_waypoint_location"`

	RTLDefaultAltitude    float64 `yaml:"rtl_default_altitude"`
	RTLAltitudeUnits      string  `yaml:"rtl_altitude_units"`
	RTLMinAltitude        float64 `yaml:"rtl_min_altitude"`
	RTLMaxAltitude        float64 `yaml:"rtl_max_altitude"`
	RTLUseTakeoffAltitude bool    `yaml:"rtl_use_takeoff_altitude"`

	SurveyDefaultAltitude         float64 `yaml:"survey_default_altitude"`
	SurveyAltitudeUnits           string  `yaml:"survey_altitude_units"`
	SurveyMinAltitude             float64 `yaml:"survey_min_altitude"`
	SurveyMaxAltitude             float64 `yaml:"survey_max_altitude"`
	SurveyUsePreviousAltitude     bool    `yaml:"survey_use_previous_altitude"`
	SurveyDefaultRadius           float64 `yaml:"survey_default_radius"`
	SurveyRadiusUnits             string  `yaml:"survey_radius_units"`
	SurveyMinRadius               float64 `yaml:"survey_min_radius"`
	SurveyMaxRadius               float64 `yaml:"survey_max_radius"`
	SurveyUseLastWaypointLocation bool    `yaml:"survey_use_last_waypoint_location"`

	DefaultSearchTarget      string `yaml:"default_search_target"`
	DefaultDetectionBehavior string `yaml:"default_detection_behavior"`
	DefaultDistanceUnits     string `yaml:"default_distance_units"`
}

// Limits is the per-command view of Agent.
type Limits struct {
	DefaultAltitude         float64
	AltitudeUnits           string
	MinAltitude             float64
	MaxAltitude             float64
	UsePreviousAltitude     bool
	UseLastWaypointLocation bool
	DefaultHeading          string

	HasRadius     bool
	DefaultRadius float64
	RadiusUnits   string
	MinRadius     float64
	MaxRadius     float64
}

// Limits returns the defaults and bounds for a command type name
// ("takeoff", "waypoint", ...). Land shares the RTL settings.
func (a Agent) Limits(command string) Limits {
	switch command {
	case "takeoff":
		return Limits{
			DefaultAltitude: a.TakeoffDefaultAltitude,
			AltitudeUnits:   a.TakeoffAltitudeUnits,
			MinAltitude:     a.TakeoffMinAltitude,
			MaxAltitude:     a.TakeoffMaxAltitude,
			DefaultHeading:  a.TakeoffDefaultHeading,
		}
	case "waypoint":
		return Limits{
			DefaultAltitude:         a.WaypointDefaultAltitude,
			AltitudeUnits:           a.WaypointAltitudeUnits,
			MinAltitude:             a.WaypointMinAltitude,
			MaxAltitude:             a.WaypointMaxAltitude,
			UsePreviousAltitude:     a.WaypointUsePreviousAltitude,
			UseLastWaypointLocation: a.WaypointUseLastWaypointLocation,
		}
	case "loiter":
		return Limits{
			DefaultAltitude:         a.LoiterDefaultAltitude,
			AltitudeUnits:           a.LoiterAltitudeUnits,
			MinAltitude:             a.LoiterMinAltitude,
			MaxAltitude:             a.LoiterMaxAltitude,
			UsePreviousAltitude:     a.LoiterUsePreviousAltitude,
			UseLastWaypointLocation: a.LoiterUseLastWaypointLocation,
			HasRadius:               true,
			DefaultRadius:           a.LoiterDefaultRadius,
			RadiusUnits:             a.LoiterRadiusUnits,
			MinRadius:               a.LoiterMinRadius,
			MaxRadius:               a.LoiterMaxRadius,
		}
	case "survey":
		return Limits{
			DefaultAltitude:         a.SurveyDefaultAltitude,
			AltitudeUnits:           a.SurveyAltitudeUnits,
			MinAltitude:             a.SurveyMinAltitude,
			MaxAltitude:             a.SurveyMaxAltitude,
			UsePreviousAltitude:     a.SurveyUsePreviousAltitude,
			UseLastWaypointLocation: a.SurveyUseLastWaypointLocation,
			HasRadius:               true,
			DefaultRadius:           a.SurveyDefaultRadius,
			RadiusUnits:             a.SurveyRadiusUnits,
			MinRadius:               a.SurveyMinRadius,
			MaxRadius:               a.SurveyMaxRadius,
		}
	case "rtl", "land":
		return Limits{
			DefaultAltitude: a.RTLDefaultAltitude,
			AltitudeUnits:   a.RTLAltitudeUnits,
			MinAltitude:     a.RTLMinAltitude,
			MaxAltitude:     a.RTLMaxAltitude,
		}
	default:
		return Limits{}
	}
}

// Default is the configuration used when no file is found.
func Default() Config {
	return Config{
		Model: Model{
			Type: "ollama",
			Name: "qwen3:8b",
		},
		Agent: Agent{
			MaxMissionItems:    100,
			SingleTakeoffOnly:  true,
			SingleRTLOnly:      true,
			TakeoffMustBeFirst: true,
			RTLMustBeLast:      true,
			AutoFixPositioning: true,

			TakeoffDefaultAltitude: 50,
			TakeoffAltitudeUnits:   "feet",
			TakeoffMinAltitude:     0,
			TakeoffMaxAltitude:     400,
			TakeoffDefaultHeading:  "north",

			WaypointDefaultAltitude: 100,
			WaypointAltitudeUnits:   "feet",
			WaypointMinAltitude:     0,
			WaypointMaxAltitude:     400,

			LoiterDefaultAltitude: 100,
			LoiterAltitudeUnits:   "feet",
			LoiterMinAltitude:     0,
			LoiterMaxAltitude:     400,
			LoiterDefaultRadius:   50,
			LoiterRadiusUnits:     "meters",
			LoiterMinRadius:       5,
			LoiterMaxRadius:       1000,

			RTLDefaultAltitude:    50,
			RTLAltitudeUnits:      "feet",
			RTLMinAltitude:        0,
			RTLMaxAltitude:        400,
			RTLUseTakeoffAltitude: true,

			SurveyDefaultAltitude: 100,
			SurveyAltitudeUnits:   "feet",
			SurveyMinAltitude:     0,
			SurveyMaxAltitude:     400,
			SurveyDefaultRadius:   100,
			SurveyRadiusUnits:     "meters",
			SurveyMinRadius:       10,
			SurveyMaxRadius:       2000,

			DefaultDetectionBehavior: "tag_and_continue",
			DefaultDistanceUnits:     "meters",
		},
	}
}

// candidatePaths lists the files Load tries when no explicit path is given.
func candidatePaths() []string {
	paths := []string{
		"mavlink_agent_config.yaml",
		"mavlink_agent_config.yml",
		"mavlink_agent_config.json",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".mavplan", "config.yaml"))
	}
	return paths
}

// Load reads the configuration file at path, or the first file found in
// $MAVPLAN_CONFIG and the default locations, over Default(). Environment
// overrides are applied last. It returns the file used ("" for defaults).
func Load(path string) (Config, string, error) {
	cfg := Default()

	source := strings.TrimSpace(path)
	if source == "" {
		source = strings.TrimSpace(os.Getenv("MAVPLAN_CONFIG"))
	}
	if source == "" {
		for _, p := range candidatePaths() {
			if _, err := os.Stat(p); err == nil {
				source = p
				break
			}
		}
	}

	if source != "" {
		data, err := os.ReadFile(source)
		if err != nil {
			return cfg, "", fmt.Errorf("failed to read config %s: %w", source, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, "", fmt.Errorf("failed to parse config %s: %w", source, err)
		}
	}

	applyEnv(&cfg)
	return cfg, source, nil
}

func applyEnv(cfg *Config) {
	cfg.Model.Type = firstNonEmpty(strings.TrimSpace(os.Getenv("MAVPLAN_LLM_BACKEND")), cfg.Model.Type)
	cfg.Model.Name = firstNonEmpty(strings.TrimSpace(os.Getenv("MAVPLAN_LLM_MODEL")), cfg.Model.Name)
	cfg.Model.BaseURL = firstNonEmpty(cfg.Model.BaseURL, strings.TrimSpace(os.Getenv("OLLAMA_HOST")))
	cfg.Model.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.DBPath = firstNonEmpty(strings.TrimSpace(os.Getenv("MAVPLAN_DB")), cfg.DBPath, defaultDBPath())
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mavplan.db"
	}
	return filepath.Join(home, ".mavplan", "sessions.db")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
