package tools

import (
	"fmt"
	"strconv"
	"strings"

	"mavplan/internal/mission"
	"mavplan/internal/units"
)

// has reports whether key is present with a usable value. LLMs often send
// explicit nulls or empty strings for parameters they mean to omit.
func has(params map[string]any, key string) bool {
	v, ok := params[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

func getString(params map[string]any, key string) (string, error) {
	value, ok := params[key]
	if !ok {
		return "", fmt.Errorf("parameter is missing required key: '%s'", key)
	}
	switch t := value.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case float64:
		return units.FormatValue(t), nil
	case int:
		return strconv.Itoa(t), nil
	default:
		return "", fmt.Errorf("parameter '%s' has an invalid type (expected string)", key)
	}
}

func getInt(params map[string]any, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("parameter is missing required key: '%s'", key)
	}
	switch t := v.(type) {
	case float64:
		if t != float64(int(t)) {
			return 0, fmt.Errorf("parameter '%s' must be a whole number, got %v", key, t)
		}
		return int(t), nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("parameter '%s' invalid int: %v", key, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("parameter '%s' has unsupported type %T", key, v)
	}
}

func optMeasurement(params map[string]any, key string, parse func(any) (units.Measurement, bool), allowed string) (*units.Measurement, error) {
	if !has(params, key) {
		return nil, nil
	}
	m, ok := parse(params[key])
	if !ok {
		return nil, fmt.Errorf("could not parse %s %v (use %s)", key, params[key], allowed)
	}
	return &m, nil
}

func optAltitude(params map[string]any) (*units.Measurement, error) {
	return optMeasurement(params, "altitude", units.ParseAltitude, "feet or meters")
}

func optRadius(params map[string]any) (*units.Measurement, error) {
	return optMeasurement(params, "radius", units.ParseRadius, "feet, meters, miles or kilometers")
}

func optDistance(params map[string]any) (*units.Measurement, error) {
	return optMeasurement(params, "distance", units.ParseDistance, "feet, meters, miles or kilometers")
}

// geometry is the positioning part of a tool call. At most one of position,
// mgrs or distance is set.
type geometry struct {
	position  *units.LatLon
	mgrs      string
	distance  *units.Measurement
	direction string
	frame     mission.ReferenceFrame
}

func (g geometry) empty() bool {
	return g.position == nil && g.distance == nil
}

// parseGeometry reads coordinates, mgrs, distance and heading. A heading
// sent together with a distance is the compass direction of the offset;
// alone it is returned as the item heading.
func parseGeometry(params map[string]any) (geometry, string, error) {
	var g geometry
	forms := 0

	if has(params, "coordinates") {
		p, ok := units.ParseCoordinates(params["coordinates"])
		if !ok {
			return g, "", fmt.Errorf("could not parse coordinates %v (expected 'lat,lon' in decimal degrees)", params["coordinates"])
		}
		g.position = &p
		forms++
	}
	if has(params, "mgrs") {
		s, err := getString(params, "mgrs")
		if err != nil {
			return g, "", err
		}
		p, ok := units.ParseMGRS(s)
		if !ok {
			return g, "", fmt.Errorf("could not parse MGRS coordinate '%s'", s)
		}
		g.position = &p
		g.mgrs = strings.ToUpper(strings.Join(strings.Fields(s), ""))
		forms++
	}

	heading := ""
	if has(params, "heading") {
		h, err := getString(params, "heading")
		if err != nil {
			return g, "", err
		}
		heading = h
	}

	distance, err := optDistance(params)
	if err != nil {
		return g, "", err
	}
	if distance != nil {
		if heading == "" {
			return g, "", fmt.Errorf("relative positioning needs both a distance and a heading")
		}
		if _, ok := units.DirectionToBearing(heading); !ok {
			return g, "", fmt.Errorf("unrecognized compass heading '%s'", heading)
		}
		g.distance = distance
		g.direction = heading
		heading = ""
		forms++
	}

	if has(params, "relative_reference_frame") {
		s, err := getString(params, "relative_reference_frame")
		if err != nil {
			return g, "", err
		}
		frame, ok := mission.ParseReferenceFrame(s)
		if !ok {
			return g, "", fmt.Errorf("unknown relative_reference_frame '%s' (use origin, last_waypoint or self)", s)
		}
		g.frame = frame
	}
	if g.frame == "" {
		g.frame = mission.FrameOrigin
	}

	if forms > 1 {
		return g, "", fmt.Errorf("provide only one of coordinates, mgrs, or distance/heading")
	}
	if heading != "" {
		if _, ok := units.HeadingToYaw(heading); !ok {
			return g, "", fmt.Errorf("unrecognized heading '%s'", heading)
		}
	}
	return g, heading, nil
}

// describe renders the requested geometry for confirmations.
func (g geometry) describe(resolvedUnits string) string {
	switch {
	case g.mgrs != "":
		return "MGRS " + g.mgrs
	case g.position != nil:
		return fmt.Sprintf("lat/long (%.6f, %.6f)", g.position.Lat, g.position.Lon)
	case g.distance != nil:
		ref := string(g.frame)
		if g.frame == mission.FrameSelf {
			ref = "current location"
		}
		return fmt.Sprintf("%s %s from %s", units.Describe(g.distance.Value, resolvedUnits), g.direction, ref)
	}
	return ""
}
