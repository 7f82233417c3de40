package safety

import "math"

// Zone actions.
const (
	// ActionStop marks a critical zone: an obstacle triggers an
	// emergency stop.
	ActionStop = "stop"

	// ActionSlow marks a warning zone: obstacles are recorded and
	// reported but do not trigger a stop.
	ActionSlow = "slow"
)

// minValidRange is the hard lower floor on range readings in meters.
// Anything closer is sensor noise or a self-return and is ignored.
const minValidRange = 0.1

// warningDistanceFactor scales the obstacle threshold for the default
// warning zones.
const warningDistanceFactor = 0.7

// Zone is one angular safety region around the robot. Angles are in
// degrees on [0,360); a zone whose MinAngle exceeds its MaxAngle wraps
// through 0°. Zones are immutable once the monitor starts.
type Zone struct {
	// Name identifies the zone in detections, logs, and the journal.
	Name string

	// MinAngle and MaxAngle bound the zone in degrees [0,360).
	MinAngle float64
	MaxAngle float64

	// MinDistance is the obstacle threshold in meters: a point closer
	// than this (but beyond the validity floor) is an obstacle.
	MinDistance float64

	// Priority orders zones in reporting; lower is more urgent.
	Priority int

	// Action is ActionStop or ActionSlow.
	Action string
}

// Contains reports whether the given angle (degrees, normalized to
// [0,360)) falls inside the zone. Both bounds are inclusive.
func (z Zone) Contains(angle float64) bool {
	if z.MinAngle <= z.MaxAngle {
		return angle >= z.MinAngle && angle <= z.MaxAngle
	}
	// Wrap case: the zone crosses 0°.
	return angle >= z.MinAngle || angle <= z.MaxAngle
}

// Critical reports whether an obstacle in this zone triggers an
// emergency stop.
func (z Zone) Critical() bool {
	return z.Action == ActionStop
}

// normalizeAngle maps any angle in degrees onto [0,360).
func normalizeAngle(deg float64) float64 {
	m := math.Mod(deg, 360)
	if m < 0 {
		m += 360
	}
	return m
}

// defaultZones builds the built-in zone set from the configured
// obstacle threshold: a critical cone ahead of the robot wrapping
// through 0°, and two warning flanks at a reduced threshold.
func defaultZones(obstacleThreshold float64) []Zone {
	return []Zone{
		{
			Name:        "critical_front",
			MinAngle:    315,
			MaxAngle:    45,
			MinDistance: obstacleThreshold,
			Priority:    1,
			Action:      ActionStop,
		},
		{
			Name:        "warning_left",
			MinAngle:    45,
			MaxAngle:    135,
			MinDistance: obstacleThreshold * warningDistanceFactor,
			Priority:    2,
			Action:      ActionSlow,
		},
		{
			Name:        "warning_right",
			MinAngle:    225,
			MaxAngle:    315,
			MinDistance: obstacleThreshold * warningDistanceFactor,
			Priority:    2,
			Action:      ActionSlow,
		},
	}
}

// buildZones returns the default set plus any custom zones, with
// custom zone angles normalized onto [0,360).
func buildZones(obstacleThreshold float64, custom []Zone) []Zone {
	zones := defaultZones(obstacleThreshold)
	for _, z := range custom {
		z.MinAngle = normalizeAngle(z.MinAngle)
		z.MaxAngle = normalizeAngle(z.MaxAngle)
		zones = append(zones, z)
	}
	return zones
}
