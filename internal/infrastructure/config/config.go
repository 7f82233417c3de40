package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Orchestrator Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Robot     RobotConfig     `yaml:"robot"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Safety    SafetyConfig    `yaml:"safety"`
	Drive     DriveConfig     `yaml:"drive"`
	Journal   JournalConfig   `yaml:"journal"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RobotConfig contains robot-level identification.
type RobotConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TLS       bool   `yaml:"tls"`
	ClientID  string `yaml:"client_id"`
	KeepAlive int    `yaml:"keepalive"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
// Delays are in seconds. The delay doubles on each failed attempt
// from InitialDelay up to MaxDelay and resets on a successful connect.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// SafetyConfig contains safety monitor settings.
type SafetyConfig struct {
	// LidarID is the sensor identifier whose data topic carries range scans
	// (orchestrator/data/<lidar_id>).
	LidarID string `yaml:"lidar_id"`

	// ObstacleThreshold is the default critical-zone distance in meters.
	ObstacleThreshold float64 `yaml:"obstacle_threshold"`

	// EmergencyStopTimeout is the response-time budget for a full
	// scan-to-command cycle, in seconds.
	EmergencyStopTimeout float64 `yaml:"emergency_stop_timeout"`

	// ClearWindow is how long the detection history must stay free of
	// critical detections before a latched emergency stop clears, in seconds.
	ClearWindow float64 `yaml:"clear_window"`

	// StatusInterval is how often the monitor publishes its status, in seconds.
	StatusInterval int `yaml:"status_interval"`

	// WatchdogInterval is how often the watchdog cycle runs, in seconds.
	WatchdogInterval int `yaml:"watchdog_interval"`

	// Zones are additional safety zones appended to the built-in set.
	Zones []ZoneConfig `yaml:"zones"`
}

// ZoneConfig defines one angular safety zone.
// Angles are in degrees on [0,360); a zone with MinAngle > MaxAngle
// wraps through 0°.
type ZoneConfig struct {
	Name        string  `yaml:"name"`
	MinAngle    float64 `yaml:"min_angle"`
	MaxAngle    float64 `yaml:"max_angle"`
	MinDistance float64 `yaml:"min_distance"`
	Priority    int     `yaml:"priority"`
	Action      string  `yaml:"action"`
}

// DriveConfig contains differential-drive geometry and state publishing settings.
type DriveConfig struct {
	// WheelBase is the distance between the drive wheels in meters.
	WheelBase float64 `yaml:"wheel_base"`

	// PublishRate is the robot-state publish frequency in Hz.
	PublishRate float64 `yaml:"publish_rate"`
}

// JournalConfig contains SQLite safety-event journal settings.
type JournalConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionHours is how long obstacle detections are kept before
	// periodic pruning removes them. Estop events are never pruned.
	RetentionHours int `yaml:"retention_hours"`
}

// TelemetryConfig contains InfluxDB pose-telemetry settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ORCHESTRATOR_SECTION_KEY
// For example: ORCHESTRATOR_MQTT_HOST, ORCHESTRATOR_JOURNAL_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Robot: RobotConfig{
			ID:   "robot-001",
			Name: "Orchestrator",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:      "localhost",
				Port:      1883,
				ClientID:  "orchestrator-core",
				KeepAlive: 60,
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     300,
			},
		},
		Safety: SafetyConfig{
			LidarID:              "lidar_01",
			ObstacleThreshold:    0.5,
			EmergencyStopTimeout: 0.1,
			ClearWindow:          3.0,
			StatusInterval:       5,
			WatchdogInterval:     10,
		},
		Drive: DriveConfig{
			WheelBase:   0.3,
			PublishRate: 10.0,
		},
		Journal: JournalConfig{
			Enabled:        true,
			Path:           "./data/orchestrator.db",
			WALMode:        true,
			BusyTimeout:    5,
			RetentionHours: 72,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ORCHESTRATOR_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("ORCHESTRATOR_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ORCHESTRATOR_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("ORCHESTRATOR_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ORCHESTRATOR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Journal
	if v := os.Getenv("ORCHESTRATOR_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	// Telemetry
	if v := os.Getenv("ORCHESTRATOR_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Robot.ID == "" {
		errs = append(errs, "robot.id is required")
	}

	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Reconnect.InitialDelay < 1 {
		errs = append(errs, "mqtt.reconnect.initial_delay must be at least 1 second")
	}
	if c.MQTT.Reconnect.MaxDelay < c.MQTT.Reconnect.InitialDelay {
		errs = append(errs, "mqtt.reconnect.max_delay must be >= initial_delay")
	}

	if c.Safety.LidarID == "" {
		errs = append(errs, "safety.lidar_id is required")
	}
	if c.Safety.ObstacleThreshold < 0.1 || c.Safety.ObstacleThreshold > 5.0 {
		errs = append(errs, "safety.obstacle_threshold must be between 0.1 and 5.0 meters")
	}
	if c.Safety.EmergencyStopTimeout < 0.05 || c.Safety.EmergencyStopTimeout > 1.0 {
		errs = append(errs, "safety.emergency_stop_timeout must be between 0.05 and 1.0 seconds")
	}
	if c.Safety.ClearWindow <= 0 {
		errs = append(errs, "safety.clear_window must be positive")
	}
	for i, zone := range c.Safety.Zones {
		switch zone.Action {
		case "stop", "slow", "warn":
		default:
			errs = append(errs, fmt.Sprintf("safety.zones[%d].action must be stop, slow, or warn", i))
		}
		if zone.MinDistance <= 0 {
			errs = append(errs, fmt.Sprintf("safety.zones[%d].min_distance must be positive", i))
		}
	}

	if c.Drive.WheelBase <= 0 {
		errs = append(errs, "drive.wheel_base must be positive")
	}
	if c.Drive.PublishRate <= 0 {
		errs = append(errs, "drive.publish_rate must be positive")
	}

	if c.Journal.Enabled {
		if c.Journal.Path == "" {
			errs = append(errs, "journal.path is required when journal is enabled")
		}
		if c.Journal.RetentionHours <= 0 {
			errs = append(errs, "journal.retention_hours must be positive when journal is enabled")
		}
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.URL == "" {
			errs = append(errs, "telemetry.url is required when telemetry is enabled")
		}
		if c.Telemetry.Token == "" {
			errs = append(errs, "telemetry.token is required when telemetry is enabled (set ORCHESTRATOR_TELEMETRY_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetInitialReconnectDelay returns the base reconnect delay as a Duration.
func (c MQTTConfig) GetInitialReconnectDelay() time.Duration {
	return time.Duration(c.Reconnect.InitialDelay) * time.Second
}

// GetMaxReconnectDelay returns the reconnect delay ceiling as a Duration.
func (c MQTTConfig) GetMaxReconnectDelay() time.Duration {
	return time.Duration(c.Reconnect.MaxDelay) * time.Second
}

// GetInitialReconnectDelay returns the base reconnect delay as a Duration.
func (c *Config) GetInitialReconnectDelay() time.Duration {
	return c.MQTT.GetInitialReconnectDelay()
}

// GetMaxReconnectDelay returns the reconnect delay ceiling as a Duration.
func (c *Config) GetMaxReconnectDelay() time.Duration {
	return c.MQTT.GetMaxReconnectDelay()
}

// GetClearWindow returns the emergency-stop clear window as a Duration.
func (c *Config) GetClearWindow() time.Duration {
	return time.Duration(c.Safety.ClearWindow * float64(time.Second))
}

// GetEmergencyStopTimeout returns the safety processing budget as a Duration.
func (c *Config) GetEmergencyStopTimeout() time.Duration {
	return time.Duration(c.Safety.EmergencyStopTimeout * float64(time.Second))
}

// GetStatusInterval returns the safety status publish interval as a Duration.
func (c *Config) GetStatusInterval() time.Duration {
	return time.Duration(c.Safety.StatusInterval) * time.Second
}

// GetWatchdogInterval returns the watchdog cycle interval as a Duration.
func (c *Config) GetWatchdogInterval() time.Duration {
	return time.Duration(c.Safety.WatchdogInterval) * time.Second
}

// GetJournalRetention returns the detection retention window as a Duration.
func (c *Config) GetJournalRetention() time.Duration {
	return time.Duration(c.Journal.RetentionHours) * time.Hour
}

// GetPublishInterval returns the robot-state publish interval as a Duration.
func (c *Config) GetPublishInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Drive.PublishRate)
}
