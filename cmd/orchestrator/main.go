// Orchestrator Core - Mobile Robot Control Plane
//
// This is the main entry point for the orchestrator core process. It
// runs the robot's message-bus client, the LiDAR safety monitor, and
// the differential-drive motion state estimator as one daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/orchestrator-core/internal/infrastructure/bus"
	"github.com/nerrad567/orchestrator-core/internal/infrastructure/config"
	"github.com/nerrad567/orchestrator-core/internal/infrastructure/journal"
	"github.com/nerrad567/orchestrator-core/internal/infrastructure/logging"
	"github.com/nerrad567/orchestrator-core/internal/infrastructure/telemetry"
	"github.com/nerrad567/orchestrator-core/internal/safety"
	"github.com/nerrad567/orchestrator-core/internal/state"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// journalPruneInterval is how often old journal detections are pruned.
const journalPruneInterval = time.Hour

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting orchestrator core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "robot_id", cfg.Robot.ID)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the safety-event journal (optional)
	var j *journal.Journal
	if cfg.Journal.Enabled {
		j, err = journal.Open(journal.Config{
			Path:        cfg.Journal.Path,
			WALMode:     cfg.Journal.WALMode,
			BusyTimeout: cfg.Journal.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer func() {
			log.Info("closing journal")
			if closeErr := j.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()

		if migrateErr := j.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("migrating journal: %w", migrateErr)
		}

		// Bound journal growth: prune old detections for the life of
		// the daemon. Estop events are never pruned.
		retention := cfg.GetJournalRetention()
		go j.PruneLoop(ctx, journalPruneInterval, retention, func(pruned int64, err error) {
			if err != nil {
				log.Warn("journal prune failed", "error", err)
			} else if pruned > 0 {
				log.Info("journal pruned", "detections_removed", pruned)
			}
		})
		log.Info("journal ready",
			"path", cfg.Journal.Path,
			"retention", retention.String(),
		)
	} else {
		log.Info("journal disabled")
	}

	// Connect to the message bus
	busClient := bus.New(cfg.MQTT)
	busClient.SetLogger(log.With("component", "bus"))
	busClient.AddConnectionObserver("main", func(connected bool) {
		if connected {
			log.Info("message bus connected")
		} else {
			log.Warn("message bus disconnected")
		}
	})
	if err := busClient.Connect(); err != nil {
		return fmt.Errorf("connecting to message bus: %w", err)
	}
	defer func() {
		log.Info("disconnecting from message bus")
		busClient.Disconnect()
	}()
	log.Info("message bus connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB pose telemetry (optional)
	var poseWriter *telemetry.Writer
	if cfg.Telemetry.Enabled {
		poseWriter, err = telemetry.Connect(ctx, telemetry.Config{
			URL:           cfg.Telemetry.URL,
			Token:         cfg.Telemetry.Token,
			Org:           cfg.Telemetry.Org,
			Bucket:        cfg.Telemetry.Bucket,
			BatchSize:     cfg.Telemetry.BatchSize,
			FlushInterval: cfg.Telemetry.FlushInterval,
		})
		if err != nil {
			return fmt.Errorf("connecting to telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry writer")
			poseWriter.Close()
		}()
		poseWriter.SetOnError(func(err error) {
			log.Warn("telemetry write error", "error", err)
		})
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"bucket", cfg.Telemetry.Bucket,
		)
	} else {
		log.Info("telemetry disabled")
	}

	// Start the safety monitor
	var recorder safety.Recorder
	if j != nil {
		recorder = j
	}
	monitor := safety.New(safety.Config{
		RobotID:              cfg.Robot.ID,
		LidarID:              cfg.Safety.LidarID,
		ObstacleThreshold:    cfg.Safety.ObstacleThreshold,
		EmergencyStopTimeout: cfg.GetEmergencyStopTimeout(),
		ClearWindow:          cfg.GetClearWindow(),
		StatusInterval:       cfg.GetStatusInterval(),
		WatchdogInterval:     cfg.GetWatchdogInterval(),
		Zones:                safetyZones(cfg.Safety.Zones),
	}, busClient, log.With("component", "safety"), recorder)
	if err := monitor.Start(); err != nil {
		return fmt.Errorf("starting safety monitor: %w", err)
	}
	defer func() {
		log.Info("stopping safety monitor")
		monitor.Stop()
	}()

	// Start the motion state estimator
	var poseRecorder state.PoseRecorder
	if poseWriter != nil {
		poseRecorder = poseWriter
	}
	estimator := state.New(state.Config{
		RobotID:         cfg.Robot.ID,
		WheelBase:       cfg.Drive.WheelBase,
		PublishInterval: cfg.GetPublishInterval(),
	}, busClient, log.With("component", "state"), poseRecorder)
	if err := estimator.Start(); err != nil {
		return fmt.Errorf("starting state estimator: %w", err)
	}
	defer func() {
		log.Info("stopping state estimator")
		estimator.Stop()
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, busClient, j, poseWriter); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred cleanup runs in reverse order:
	// 1. State estimator (publishes final stopped state)
	// 2. Safety monitor
	// 3. Telemetry writer (if enabled)
	// 4. Message bus
	// 5. Journal (if enabled)

	log.Info("orchestrator core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ORCHESTRATOR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ORCHESTRATOR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// safetyZones converts configured zones to the safety package type.
func safetyZones(zones []config.ZoneConfig) []safety.Zone {
	out := make([]safety.Zone, 0, len(zones))
	for _, z := range zones {
		out = append(out, safety.Zone{
			Name:        z.Name,
			MinAngle:    z.MinAngle,
			MaxAngle:    z.MaxAngle,
			MinDistance: z.MinDistance,
			Priority:    z.Priority,
			Action:      z.Action,
		})
	}
	return out
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - busClient: Message bus client to check
//   - j: Journal to check (may be nil if disabled)
//   - poseWriter: Telemetry writer to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, busClient *bus.Client, j *journal.Journal, poseWriter *telemetry.Writer) error {
	if err := busClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("bus: %w", err)
	}

	if j != nil {
		if err := j.HealthCheck(ctx); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}

	if poseWriter != nil {
		if err := poseWriter.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}
