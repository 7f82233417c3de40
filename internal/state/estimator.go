package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/orchestrator-core/internal/infrastructure/bus"
	"github.com/nerrad567/orchestrator-core/internal/infrastructure/logging"
	"github.com/nerrad567/orchestrator-core/internal/infrastructure/telemetry"
)

// Topic identifiers the estimator consumes and produces.
const (
	leftEncoderID  = "left_encoder"
	rightEncoderID = "right_encoder"
	commandTopicID = "state_manager"
	estopTopicID   = "estop"
	robotStatusID  = "robot"
)

// stateQoS guarantees at-least-once delivery of state publishes.
const stateQoS byte = 1

// Bus is the message-bus surface the estimator needs. *bus.Client
// satisfies it; tests substitute a fake.
type Bus interface {
	Publish(topic string, payload any, qos byte, retained bool) error
	Subscribe(pattern string, qos byte, handler bus.Handler) error
	Unsubscribe(pattern string) error
}

// PoseRecorder receives a pose sample on each publish tick.
// *telemetry.Writer satisfies it; a nil recorder disables telemetry.
// Implementations must not block.
type PoseRecorder interface {
	WritePose(p telemetry.Pose)
}

// Config contains the estimator's operating parameters.
type Config struct {
	// RobotID identifies this robot in telemetry samples.
	RobotID string

	// WheelBase is the distance between the drive wheels in meters.
	WheelBase float64

	// PublishInterval is the period of the state publish loop.
	PublishInterval time.Duration
}

// Estimator fuses wheel-encoder telemetry into a robot pose estimate
// and publishes the full robot state at a fixed rate.
//
// All mutable state sits behind a single mutex. The bus dispatch path
// (encoder and command handlers) is the only writer; CurrentState
// copies out under the same lock.
type Estimator struct {
	cfg      Config
	bus      Bus
	logger   *logging.Logger
	recorder PoseRecorder

	// mu guards everything below.
	mu            sync.Mutex
	odo           odometry
	status        string
	missionStatus string
	updateCount   int
	lastUpdated   time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	started  bool
	stopOnce sync.Once
}

// New creates a state estimator. Call Start to subscribe and begin
// publishing.
func New(cfg Config, b Bus, logger *logging.Logger, recorder PoseRecorder) *Estimator {
	return &Estimator{
		cfg:      cfg,
		bus:      b,
		logger:   logger,
		recorder: recorder,
		status:   StatusIdle,
		odo:      newOdometry(cfg.WheelBase, time.Now()),
		done:     make(chan struct{}),
	}
}

// Start subscribes to the encoder, command, and emergency-stop topics
// and launches the publish loop.
func (e *Estimator) Start() error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.started = true
	now := time.Now()
	e.odo.lastUpdate = now
	e.lastUpdated = now
	e.mu.Unlock()

	topics := bus.Topics{}
	subs := []struct {
		topic   string
		handler bus.Handler
	}{
		{topics.Data(leftEncoderID), e.handleLeftEncoder},
		{topics.Data(rightEncoderID), e.handleRightEncoder},
		{topics.Command(commandTopicID), e.handleCommand},
		{topics.Command(estopTopicID), e.handleEstop},
	}
	for _, s := range subs {
		if err := e.bus.Subscribe(s.topic, 0, s.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", s.topic, err)
		}
	}

	e.wg.Add(1)
	go e.publishLoop()

	e.logger.Info("state estimator started",
		"wheel_base_m", e.cfg.WheelBase,
		"publish_interval", e.cfg.PublishInterval.String(),
	)
	return nil
}

// Stop halts the publish loop, publishes a final state with
// status=stopped, and unsubscribes. Safe to call multiple times.
func (e *Estimator) Stop() {
	e.stopOnce.Do(func() {
		close(e.done)
		e.wg.Wait()

		e.mu.Lock()
		e.status = StatusStopped
		e.odo.linear = 0
		e.odo.angular = 0
		e.mu.Unlock()
		e.publishState()

		topics := bus.Topics{}
		for _, topic := range []string{
			topics.Data(leftEncoderID),
			topics.Data(rightEncoderID),
			topics.Command(commandTopicID),
			topics.Command(estopTopicID),
		} {
			if err := e.bus.Unsubscribe(topic); err != nil {
				e.logger.Warn("unsubscribe on stop failed", "topic", topic, "error", err)
			}
		}
		e.logger.Info("state estimator stopped")
	})
}

// handleLeftEncoder ingests left-wheel cumulative distance telemetry.
func (e *Estimator) handleLeftEncoder(msg bus.Message) error {
	return e.handleEncoder(msg, (*odometry).recordLeft)
}

// handleRightEncoder ingests right-wheel cumulative distance telemetry.
func (e *Estimator) handleRightEncoder(msg bus.Message) error {
	return e.handleEncoder(msg, (*odometry).recordRight)
}

func (e *Estimator) handleEncoder(msg bus.Message, record func(*odometry, float64, time.Time) bool) error {
	var payload encoderPayload
	if err := msg.Decode(&payload); err != nil {
		return fmt.Errorf("decoding encoder payload: %w", err)
	}

	now := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	if record(&e.odo, payload.Data.TotalDistance, now) {
		e.updateCount++
		e.lastUpdated = now
		if e.status == StatusIdle {
			e.status = StatusActive
		}
	}
	return nil
}

// handleCommand applies a state-manager control command.
func (e *Estimator) handleCommand(msg bus.Message) error {
	var cmd commandPayload
	if err := msg.Decode(&cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	now := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	switch cmd.Action {
	case actionResetOdometry:
		e.odo.reset(now)
		e.lastUpdated = now
		e.logger.Info("odometry reset")

	case actionSetPosition:
		e.odo.setPose(cmd.X, cmd.Y, cmd.Heading)
		e.lastUpdated = now
		e.logger.Info("position set",
			"x", cmd.X, "y", cmd.Y, "heading", e.odo.heading,
		)

	case actionSetStatus:
		if !validStatuses[cmd.Status] {
			e.logger.Warn("rejected set_status command", "status", cmd.Status)
			return fmt.Errorf("%w: %q", ErrInvalidStatus, cmd.Status)
		}
		e.status = cmd.Status
		e.lastUpdated = now
		e.logger.Info("status set", "status", cmd.Status)

	default:
		e.logger.Warn("unknown state command", "action", cmd.Action)
		return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
	}
	return nil
}

// handleEstop reacts to an emergency-stop notification: the status
// flips and both velocity components zero immediately, without waiting
// for the next odometry tick.
func (e *Estimator) handleEstop(msg bus.Message) error {
	e.mu.Lock()
	e.status = StatusEmergencyStop
	e.odo.linear = 0
	e.odo.angular = 0
	e.lastUpdated = time.Now()
	e.mu.Unlock()

	e.logger.Warn("emergency stop received", "topic", msg.Topic)
	return nil
}

// publishLoop emits the robot state at the configured rate.
func (e *Estimator) publishLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.PublishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.publishState()
		}
	}
}

// publishState sends the current state and forwards a pose sample to
// the telemetry recorder.
func (e *Estimator) publishState() {
	state := e.CurrentState()

	topic := bus.Topics{}.Status(robotStatusID)
	if err := e.bus.Publish(topic, state, stateQoS, false); err != nil {
		e.logger.Warn("state publish failed", "error", err)
	}

	if e.recorder != nil {
		e.recorder.WritePose(telemetry.Pose{
			RobotID:         e.cfg.RobotID,
			X:               state.Position.X,
			Y:               state.Position.Y,
			Heading:         state.Heading,
			LinearVelocity:  state.Velocity.Linear,
			AngularVelocity: state.Velocity.Angular,
			Status:          state.Status,
			Timestamp:       time.Now(),
		})
	}
}

// CurrentState returns a copy of the robot state.
func (e *Estimator) CurrentState() RobotState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return RobotState{
		Position:      Position{X: e.odo.x, Y: e.odo.y},
		Heading:       e.odo.heading,
		Velocity:      Velocity{Linear: e.odo.linear, Angular: e.odo.angular},
		Status:        e.status,
		MissionStatus: e.missionStatus,
		OdometryValid: e.odo.leftSeen && e.odo.rightSeen,
		LastUpdated:   e.lastUpdated.Format(time.RFC3339Nano),
		WheelBase:     e.cfg.WheelBase,
		UpdateCount:   e.updateCount,
	}
}
