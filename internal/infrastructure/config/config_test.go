package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeTestConfig writes YAML content to a temp file and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeTestConfig(t, "robot:\n  id: robot-test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Reconnect.InitialDelay != 1 {
		t.Errorf("MQTT.Reconnect.InitialDelay = %d, want 1", cfg.MQTT.Reconnect.InitialDelay)
	}
	if cfg.MQTT.Reconnect.MaxDelay != 300 {
		t.Errorf("MQTT.Reconnect.MaxDelay = %d, want 300", cfg.MQTT.Reconnect.MaxDelay)
	}
	if cfg.Safety.ObstacleThreshold != 0.5 {
		t.Errorf("Safety.ObstacleThreshold = %v, want 0.5", cfg.Safety.ObstacleThreshold)
	}
	if cfg.Safety.ClearWindow != 3.0 {
		t.Errorf("Safety.ClearWindow = %v, want 3.0", cfg.Safety.ClearWindow)
	}
	if cfg.Drive.WheelBase != 0.3 {
		t.Errorf("Drive.WheelBase = %v, want 0.3", cfg.Drive.WheelBase)
	}
	if cfg.Drive.PublishRate != 10.0 {
		t.Errorf("Drive.PublishRate = %v, want 10.0", cfg.Drive.PublishRate)
	}
}

func TestLoadFileValues(t *testing.T) {
	path := writeTestConfig(t, `
robot:
  id: rover-7
mqtt:
  broker:
    host: broker.local
    port: 8883
    tls: true
  qos: 2
safety:
  lidar_id: lidar_front
  obstacle_threshold: 0.8
  zones:
    - name: rear_guard
      min_angle: 150
      max_angle: 210
      min_distance: 0.4
      priority: 2
      action: slow
drive:
  wheel_base: 0.45
  publish_rate: 20
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Robot.ID != "rover-7" {
		t.Errorf("Robot.ID = %q, want %q", cfg.Robot.ID, "rover-7")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if !cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = false, want true")
	}
	if cfg.Safety.LidarID != "lidar_front" {
		t.Errorf("Safety.LidarID = %q, want %q", cfg.Safety.LidarID, "lidar_front")
	}
	if len(cfg.Safety.Zones) != 1 {
		t.Fatalf("len(Safety.Zones) = %d, want 1", len(cfg.Safety.Zones))
	}
	if cfg.Safety.Zones[0].Action != "slow" {
		t.Errorf("Zones[0].Action = %q, want %q", cfg.Safety.Zones[0].Action, "slow")
	}
	if cfg.Drive.WheelBase != 0.45 {
		t.Errorf("Drive.WheelBase = %v, want 0.45", cfg.Drive.WheelBase)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ORCHESTRATOR_MQTT_HOST", "env-broker")
	t.Setenv("ORCHESTRATOR_MQTT_PORT", "2883")
	t.Setenv("ORCHESTRATOR_JOURNAL_PATH", "/tmp/env-journal.db")

	path := writeTestConfig(t, "mqtt:\n  broker:\n    host: file-broker\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("MQTT.Broker.Host = %q, want env override %q", cfg.MQTT.Broker.Host, "env-broker")
	}
	if cfg.MQTT.Broker.Port != 2883 {
		t.Errorf("MQTT.Broker.Port = %d, want env override 2883", cfg.MQTT.Broker.Port)
	}
	if cfg.Journal.Path != "/tmp/env-journal.db" {
		t.Errorf("Journal.Path = %q, want env override", cfg.Journal.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTestConfig(t, "mqtt: [not a map\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "missing robot id",
			mutate:  func(c *Config) { c.Robot.ID = "" },
			wantErr: "robot.id",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 0 },
			wantErr: "mqtt.broker.port",
		},
		{
			name:    "max delay below initial",
			mutate:  func(c *Config) { c.MQTT.Reconnect.MaxDelay = 0 },
			wantErr: "max_delay",
		},
		{
			name:    "obstacle threshold out of range",
			mutate:  func(c *Config) { c.Safety.ObstacleThreshold = 9.0 },
			wantErr: "obstacle_threshold",
		},
		{
			name:    "zero clear window",
			mutate:  func(c *Config) { c.Safety.ClearWindow = 0 },
			wantErr: "clear_window",
		},
		{
			name: "bad zone action",
			mutate: func(c *Config) {
				c.Safety.Zones = []ZoneConfig{{Name: "z", MinDistance: 0.3, Action: "explode"}}
			},
			wantErr: "zones[0].action",
		},
		{
			name:    "zero wheel base",
			mutate:  func(c *Config) { c.Drive.WheelBase = 0 },
			wantErr: "wheel_base",
		},
		{
			name:    "telemetry enabled without url",
			mutate:  func(c *Config) { c.Telemetry.Enabled = true },
			wantErr: "telemetry.url",
		},
		{
			name:    "journal enabled without retention",
			mutate:  func(c *Config) { c.Journal.RetentionHours = 0 },
			wantErr: "journal.retention_hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetInitialReconnectDelay(); got != time.Second {
		t.Errorf("GetInitialReconnectDelay() = %v, want 1s", got)
	}
	if got := cfg.GetMaxReconnectDelay(); got != 300*time.Second {
		t.Errorf("GetMaxReconnectDelay() = %v, want 300s", got)
	}
	if got := cfg.GetClearWindow(); got != 3*time.Second {
		t.Errorf("GetClearWindow() = %v, want 3s", got)
	}
	if got := cfg.GetPublishInterval(); got != 100*time.Millisecond {
		t.Errorf("GetPublishInterval() = %v, want 100ms", got)
	}
	if got := cfg.GetEmergencyStopTimeout(); got != 100*time.Millisecond {
		t.Errorf("GetEmergencyStopTimeout() = %v, want 100ms", got)
	}
	if got := cfg.GetJournalRetention(); got != 72*time.Hour {
		t.Errorf("GetJournalRetention() = %v, want 72h", got)
	}
}

// The reconnect helpers must be callable on a bare MQTTConfig value:
// the bus client receives only the MQTT section, not the full Config.
func TestMQTTConfigReconnectHelpers(t *testing.T) {
	mqtt := MQTTConfig{
		Reconnect: MQTTReconnectConfig{InitialDelay: 2, MaxDelay: 120},
	}

	if got := mqtt.GetInitialReconnectDelay(); got != 2*time.Second {
		t.Errorf("GetInitialReconnectDelay() = %v, want 2s", got)
	}
	if got := mqtt.GetMaxReconnectDelay(); got != 120*time.Second {
		t.Errorf("GetMaxReconnectDelay() = %v, want 120s", got)
	}

	// The Config-level helpers delegate to the section.
	cfg := defaultConfig()
	cfg.MQTT.Reconnect = mqtt.Reconnect
	if got := cfg.GetInitialReconnectDelay(); got != 2*time.Second {
		t.Errorf("Config.GetInitialReconnectDelay() = %v, want 2s", got)
	}
	if got := cfg.GetMaxReconnectDelay(); got != 120*time.Second {
		t.Errorf("Config.GetMaxReconnectDelay() = %v, want 120s", got)
	}
}
