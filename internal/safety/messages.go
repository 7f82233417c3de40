package safety

import "time"

// scanPayload is the LiDAR range scan consumed from the sensor's data
// topic. Angles are in degrees; Ranges and Angles must be the same
// length.
type scanPayload struct {
	Timestamp     string    `json:"timestamp"`
	Ranges        []float64 `json:"ranges"`
	Angles        []float64 `json:"angles"`
	ScanAvailable bool      `json:"scan_available"`

	// RangeMin, when present, raises the validity floor above the
	// built-in minimum. Readings below it are discarded as noise.
	RangeMin float64 `json:"range_min,omitempty"`
}

// Detection is one obstacle observation from a scan. Detections
// accumulate in the monitor's rolling history, which drives the
// emergency-stop clear decision.
type Detection struct {
	Timestamp time.Time
	Zone      string
	Distance  float64
	Angle     float64
	Severity  string
}

// Detection severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// ObstacleInfo describes the closest offending obstacle in an
// emergency-stop command.
type ObstacleInfo struct {
	Distance       float64 `json:"distance"`
	Angle          float64 `json:"angle"`
	Zone           string  `json:"zone"`
	TotalObstacles int     `json:"total_obstacles"`
}

// EstopParameters carries execution hints for the stop command.
type EstopParameters struct {
	Immediate bool    `json:"immediate"`
	Timeout   float64 `json:"timeout"`
}

// EmergencyStopCommand is published once per latch on the estop
// command topic at QoS 1.
type EmergencyStopCommand struct {
	CommandID    string          `json:"command_id"`
	Action       string          `json:"action"`
	Reason       string          `json:"reason"`
	Source       string          `json:"source"`
	ObstacleInfo ObstacleInfo    `json:"obstacle_info"`
	Parameters   EstopParameters `json:"parameters"`
}

// StatusMessage is the periodic health and statistics report published
// on the monitor's status topic.
type StatusMessage struct {
	Status          string       `json:"status"`
	Message         string       `json:"message"`
	UptimeSeconds   float64      `json:"uptime_seconds"`
	TriggerCount    int          `json:"trigger_count"`
	DetectionCount  int          `json:"detection_count"`
	AvgProcessingMs float64      `json:"avg_processing_ms"`
	MaxProcessingMs float64      `json:"max_processing_ms"`
	Config          statusConfig `json:"config"`
}

// statusConfig echoes the active safety parameters so a dashboard can
// display what the monitor is actually enforcing.
type statusConfig struct {
	ObstacleThreshold    float64 `json:"obstacle_threshold"`
	EmergencyStopTimeout float64 `json:"emergency_stop_timeout"`
	ZoneCount            int     `json:"zone_count"`
}

// Monitor states reported in status messages.
const (
	stateMonitoring    = "monitoring"
	stateEmergencyStop = "emergency_stop"
)
