//go:build integration

package telemetry

import (
	"context"
	"os"
	"testing"
	"time"
)

// Integration tests require a running InfluxDB instance.
// Run with: go test -tags=integration ./internal/infrastructure/telemetry/
//
// Configure via environment:
//
//	INFLUX_URL    (default http://127.0.0.1:8086)
//	INFLUX_TOKEN  (required)
//	INFLUX_ORG    (default robotics)
//	INFLUX_BUCKET (default telemetry)

func integrationConfig(t *testing.T) Config {
	t.Helper()

	token := os.Getenv("INFLUX_TOKEN")
	if token == "" {
		t.Skip("INFLUX_TOKEN not set; skipping")
	}

	cfg := Config{
		URL:           "http://127.0.0.1:8086",
		Token:         token,
		Org:           "robotics",
		Bucket:        "telemetry",
		BatchSize:     10,
		FlushInterval: 1000,
	}
	if v := os.Getenv("INFLUX_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("INFLUX_ORG"); v != "" {
		cfg.Org = v
	}
	if v := os.Getenv("INFLUX_BUCKET"); v != "" {
		cfg.Bucket = v
	}
	return cfg
}

func TestIntegration_ConnectAndHealth(t *testing.T) {
	w, err := Connect(context.Background(), integrationConfig(t))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer w.Close()

	if err := w.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestIntegration_WriteAndFlush(t *testing.T) {
	w, err := Connect(context.Background(), integrationConfig(t))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer w.Close()

	var writeErr error
	w.SetOnError(func(err error) { writeErr = err })

	w.WritePose(Pose{
		RobotID:         "robot_test",
		X:               1.5,
		Y:               -0.25,
		Heading:         0.78,
		LinearVelocity:  0.2,
		AngularVelocity: 0.0,
		Status:          "active",
		Timestamp:       time.Now(),
	})
	w.Flush()

	// Give the async error channel a moment to deliver any failures.
	time.Sleep(200 * time.Millisecond)
	if writeErr != nil {
		t.Errorf("async write error = %v", writeErr)
	}
}

func TestIntegration_ConnectBadURL(t *testing.T) {
	cfg := integrationConfig(t)
	cfg.URL = "http://127.0.0.1:1"

	if _, err := Connect(context.Background(), cfg); err == nil {
		t.Error("Connect() with unreachable URL should fail")
	}
}
