package state

// Robot status values.
const (
	StatusActive        = "active"
	StatusIdle          = "idle"
	StatusError         = "error"
	StatusEmergencyStop = "emergency_stop"
	StatusStopped       = "stopped"
)

// validStatuses is the allowed set for set_status commands.
var validStatuses = map[string]bool{
	StatusActive:        true,
	StatusIdle:          true,
	StatusError:         true,
	StatusEmergencyStop: true,
	StatusStopped:       true,
}

// Position is the robot's planar position in meters.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Velocity is the robot's current velocity estimate.
type Velocity struct {
	Linear  float64 `json:"linear"`
	Angular float64 `json:"angular"`
}

// RobotState is the full pose and status snapshot published on the
// robot status topic. Heading is in radians on (-π, π].
type RobotState struct {
	Position      Position `json:"position"`
	Heading       float64  `json:"heading"`
	Velocity      Velocity `json:"velocity"`
	Status        string   `json:"status"`
	MissionStatus string   `json:"mission_status"`
	OdometryValid bool     `json:"odometry_valid"`
	LastUpdated   string   `json:"last_updated"`
	WheelBase     float64  `json:"wheel_base"`
	UpdateCount   int      `json:"update_count"`
}

// encoderPayload is the cumulative-distance telemetry published by a
// wheel encoder on its data topic.
type encoderPayload struct {
	Data struct {
		// TotalDistance is cumulative meters since the encoder started.
		TotalDistance float64 `json:"total_distance"`
		Velocity      float64 `json:"velocity"`
		TickCount     int     `json:"tick_count"`
		Direction     int     `json:"direction"`
	} `json:"data"`
}

// commandPayload is a state-manager control command. Fields beyond
// Action are action-specific.
type commandPayload struct {
	Action  string  `json:"action"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	Status  string  `json:"status"`
}

// Command actions accepted on the state-manager command topic.
const (
	actionResetOdometry = "reset_odometry"
	actionSetPosition   = "set_position"
	actionSetStatus     = "set_status"
)
