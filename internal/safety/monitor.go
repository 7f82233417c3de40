package safety

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/orchestrator-core/internal/infrastructure/bus"
	"github.com/nerrad567/orchestrator-core/internal/infrastructure/logging"
)

// Monitor timing and capacity constants.
const (
	// defaultStatusInterval is the monitoring cycle period when the
	// configuration leaves it unset.
	defaultStatusInterval = 5 * time.Second

	// scanStaleWarning and scanStaleCritical are the staleness
	// thresholds for the scan feed.
	scanStaleWarning  = 2 * time.Second
	scanStaleCritical = 5 * time.Second

	// historyCap and historyTrim bound the rolling detection history.
	// When the history reaches historyCap it is trimmed to the most
	// recent historyTrim entries.
	historyCap  = 1000
	historyTrim = 500

	// statsCap and statsTrim bound the per-scan processing samples.
	statsCap  = 100
	statsTrim = 50

	// estopCommandID is the command-topic identifier for emergency
	// stops.
	estopCommandID = "estop"

	// statusID is the status-topic identifier for this monitor.
	statusID = "safety_monitor"

	// estopQoS guarantees at-least-once delivery of the stop command.
	estopQoS byte = 1

	// journalTimeout bounds each journal write so persistence can
	// never stall the scan path.
	journalTimeout = time.Second
)

// Bus is the message-bus surface the monitor needs. *bus.Client
// satisfies it; tests substitute a fake.
type Bus interface {
	Publish(topic string, payload any, qos byte, retained bool) error
	Subscribe(pattern string, qos byte, handler bus.Handler) error
	Unsubscribe(pattern string) error
	IsConnected() bool
}

// Recorder persists safety events for post-incident analysis.
// *journal.Journal satisfies it. A nil Recorder disables persistence;
// recorder failures are logged and never affect the safety decision.
type Recorder interface {
	RecordDetection(ctx context.Context, ts time.Time, zone string, distance, angle float64, severity string) error
	RecordEstop(ctx context.Context, ts time.Time, commandID, zone string, distance, angle float64, totalObstacles int) error
}

// Config contains the monitor's operating parameters, mapped from the
// safety section of the application configuration.
type Config struct {
	// RobotID identifies this robot in published commands.
	RobotID string

	// LidarID is the sensor whose data topic carries range scans.
	LidarID string

	// ObstacleThreshold is the critical-zone distance in meters.
	ObstacleThreshold float64

	// EmergencyStopTimeout is the scan-to-command response budget.
	EmergencyStopTimeout time.Duration

	// ClearWindow is how long the history must stay free of critical
	// detections before a latched stop clears.
	ClearWindow time.Duration

	// StatusInterval is the period of the monitoring cycle: staleness
	// check, status publish, latch-clear evaluation.
	StatusInterval time.Duration

	// WatchdogInterval is the period of the watchdog cycle.
	WatchdogInterval time.Duration

	// Zones are custom zones appended to the built-in set.
	Zones []Zone
}

// Monitor analyzes LiDAR scans against angular safety zones and latches
// an emergency stop when a critical zone reports an obstacle.
//
// The scan handler runs on the bus dispatch path and must stay fast; the
// monitoring and watchdog loops run on their own tickers. All mutable
// state is guarded by a single mutex with the scan handler as the only
// writer of detection state.
type Monitor struct {
	cfg      Config
	bus      Bus
	logger   *logging.Logger
	recorder Recorder
	zones    []Zone

	// mu guards everything below.
	mu              sync.Mutex
	estopActive     bool
	lastScanTime    time.Time
	detections      []Detection
	processingTimes []time.Duration
	triggerCount    int
	detectionCount  int
	startTime       time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	started  bool
	stopOnce sync.Once
}

// New creates a safety monitor. Call Start to subscribe and begin the
// background loops.
func New(cfg Config, b Bus, logger *logging.Logger, recorder Recorder) *Monitor {
	return &Monitor{
		cfg:      cfg,
		bus:      b,
		logger:   logger,
		recorder: recorder,
		zones:    buildZones(cfg.ObstacleThreshold, cfg.Zones),
		done:     make(chan struct{}),
	}
}

// Start subscribes to the LiDAR data topic and launches the monitoring
// and watchdog loops.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.startTime = time.Now()
	m.lastScanTime = m.startTime
	m.mu.Unlock()

	scanTopic := bus.Topics{}.Data(m.cfg.LidarID)
	if err := m.bus.Subscribe(scanTopic, 0, m.handleScan); err != nil {
		return fmt.Errorf("subscribing to scan topic: %w", err)
	}
	if err := m.bus.Subscribe(bus.Topics{}.AllStatus(), 0, m.handleStatusUpdate); err != nil {
		return fmt.Errorf("subscribing to status topics: %w", err)
	}

	m.wg.Add(2)
	go m.monitoringLoop()
	go m.watchdogLoop()

	m.logger.Info("safety monitor started",
		"robot_id", m.cfg.RobotID,
		"scan_topic", scanTopic,
		"zones", len(m.zones),
		"obstacle_threshold_m", m.cfg.ObstacleThreshold,
	)
	return nil
}

// Stop halts the background loops and unsubscribes from the scan
// topic. Safe to call multiple times.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()

		for _, topic := range []string{
			bus.Topics{}.Data(m.cfg.LidarID),
			bus.Topics{}.AllStatus(),
		} {
			if err := m.bus.Unsubscribe(topic); err != nil {
				m.logger.Warn("unsubscribe on stop failed", "topic", topic, "error", err)
			}
		}
		m.logger.Info("safety monitor stopped")
	})
}

// handleScan analyzes one LiDAR scan. Runs on the bus dispatch path.
func (m *Monitor) handleScan(msg bus.Message) error {
	start := time.Now()

	var scan scanPayload
	if err := msg.Decode(&scan); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScan, err)
	}
	if len(scan.Ranges) == 0 || len(scan.Angles) == 0 {
		return fmt.Errorf("%w: missing ranges or angles", ErrInvalidScan)
	}
	if len(scan.Ranges) != len(scan.Angles) {
		return fmt.Errorf("%w: %d ranges vs %d angles", ErrInvalidScan, len(scan.Ranges), len(scan.Angles))
	}

	floor := minValidRange
	if scan.RangeMin > floor {
		floor = scan.RangeMin
	}

	detections := m.analyzeScan(scan, floor, start)
	m.applyDetections(detections, start)
	m.recordProcessing(time.Since(start))
	return nil
}

// handleStatusUpdate watches the status topics for emergency-stop
// acknowledgments so operators can confirm the stop command was acted
// on. Purely observational; no latch state changes here.
func (m *Monitor) handleStatusUpdate(msg bus.Message) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := msg.Decode(&status); err != nil {
		return fmt.Errorf("decoding status update: %w", err)
	}

	if strings.Contains(strings.ToLower(msg.Topic), "estop") && status.Status == "acknowledged" {
		m.logger.Info("emergency stop acknowledged", "topic", msg.Topic)
	}
	return nil
}

// analyzeScan tests every scan point against every zone and returns the
// resulting detections.
func (m *Monitor) analyzeScan(scan scanPayload, floor float64, now time.Time) []Detection {
	var detections []Detection
	for i, r := range scan.Ranges {
		if r < floor {
			continue
		}
		angle := normalizeAngle(scan.Angles[i])
		for _, zone := range m.zones {
			if r > zone.MinDistance || !zone.Contains(angle) {
				continue
			}
			severity := SeverityWarning
			if zone.Critical() {
				severity = SeverityCritical
			}
			detections = append(detections, Detection{
				Timestamp: now,
				Zone:      zone.Name,
				Distance:  r,
				Angle:     angle,
				Severity:  severity,
			})
		}
	}
	return detections
}

// applyDetections folds one scan's detections into the monitor state
// and triggers the emergency stop if a critical zone fired while not
// already latched.
func (m *Monitor) applyDetections(detections []Detection, now time.Time) {
	var closest *Detection
	criticalCount := 0
	for i := range detections {
		d := &detections[i]
		if d.Severity != SeverityCritical {
			continue
		}
		criticalCount++
		if closest == nil || d.Distance < closest.Distance {
			closest = d
		}
	}

	m.mu.Lock()
	m.lastScanTime = now
	m.detectionCount += len(detections)
	m.detections = append(m.detections, detections...)
	if len(m.detections) >= historyCap {
		m.detections = append([]Detection(nil), m.detections[len(m.detections)-historyTrim:]...)
	}

	trigger := closest != nil && !m.estopActive
	if trigger {
		// Latch before publishing so a concurrent scan cannot
		// double-trigger.
		m.estopActive = true
		m.triggerCount++
	}
	m.mu.Unlock()

	if trigger {
		m.publishEmergencyStop(*closest, criticalCount)
	}
	m.journalDetections(detections)
}

// publishEmergencyStop sends the one-per-latch stop command.
func (m *Monitor) publishEmergencyStop(closest Detection, totalObstacles int) {
	cmd := EmergencyStopCommand{
		CommandID: uuid.NewString(),
		Action:    "emergency_stop",
		Reason:    "obstacle_detected",
		Source:    statusID,
		ObstacleInfo: ObstacleInfo{
			Distance:       closest.Distance,
			Angle:          closest.Angle,
			Zone:           closest.Zone,
			TotalObstacles: totalObstacles,
		},
		Parameters: EstopParameters{
			Immediate: true,
			Timeout:   m.cfg.EmergencyStopTimeout.Seconds(),
		},
	}

	topic := bus.Topics{}.Command(estopCommandID)
	if err := m.bus.Publish(topic, cmd, estopQoS, false); err != nil {
		m.logger.Error("EMERGENCY STOP PUBLISH FAILED - robot may not stop",
			"error", fmt.Errorf("%w: %v", ErrEstopPublishFailed, err),
			"command_id", cmd.CommandID,
			"zone", closest.Zone,
			"distance_m", closest.Distance,
		)
	} else {
		m.logger.Warn("emergency stop triggered",
			"command_id", cmd.CommandID,
			"zone", closest.Zone,
			"distance_m", closest.Distance,
			"angle_deg", closest.Angle,
			"total_obstacles", totalObstacles,
		)
	}

	if m.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := m.recorder.RecordEstop(ctx, closest.Timestamp, cmd.CommandID,
			closest.Zone, closest.Distance, closest.Angle, totalObstacles); err != nil {
			m.logger.Warn("journalling estop event failed", "error", err)
		}
	}
}

// journalDetections persists at most one detection per zone per scan:
// the closest. Bounds journal growth to the zone count per scan.
func (m *Monitor) journalDetections(detections []Detection) {
	if m.recorder == nil || len(detections) == 0 {
		return
	}

	closest := make(map[string]Detection, len(m.zones))
	for _, d := range detections {
		if cur, ok := closest[d.Zone]; !ok || d.Distance < cur.Distance {
			closest[d.Zone] = d
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	for _, d := range closest {
		if err := m.recorder.RecordDetection(ctx, d.Timestamp, d.Zone, d.Distance, d.Angle, d.Severity); err != nil {
			m.logger.Warn("journalling detection failed", "zone", d.Zone, "error", err)
			return
		}
	}
}

// recordProcessing tracks per-scan processing duration and warns when a
// single scan threatens the emergency-stop response budget.
func (m *Monitor) recordProcessing(d time.Duration) {
	m.mu.Lock()
	m.processingTimes = append(m.processingTimes, d)
	if len(m.processingTimes) >= statsCap {
		m.processingTimes = append([]time.Duration(nil), m.processingTimes[len(m.processingTimes)-statsTrim:]...)
	}
	budget := m.cfg.EmergencyStopTimeout
	m.mu.Unlock()

	if budget > 0 && d > budget/2 {
		m.logger.Warn("slow scan processing",
			"duration_ms", float64(d.Microseconds())/1000,
			"budget_ms", float64(budget.Microseconds())/1000,
		)
	}
}

// monitoringLoop runs the periodic cycle: feed staleness, status
// publish, and latch-clear evaluation.
func (m *Monitor) monitoringLoop() {
	defer m.wg.Done()

	interval := m.cfg.StatusInterval
	if interval <= 0 {
		interval = defaultStatusInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.checkScanStaleness()
			m.checkEstopClear()
			m.publishStatus()
		}
	}
}

// checkScanStaleness logs when the scan feed goes quiet. Processing
// continues: the feed, not the monitor, is the failing component.
func (m *Monitor) checkScanStaleness() {
	m.mu.Lock()
	age := time.Since(m.lastScanTime)
	m.mu.Unlock()

	switch {
	case age > scanStaleCritical:
		m.logger.Error("SAFETY COMPROMISED: no scan data",
			"last_scan_age_s", age.Seconds(),
			"lidar_id", m.cfg.LidarID,
		)
	case age > scanStaleWarning:
		m.logger.Warn("scan data stale",
			"last_scan_age_s", age.Seconds(),
			"lidar_id", m.cfg.LidarID,
		)
	}
}

// checkEstopClear releases the latch once the rolling history shows no
// critical detection inside the clear window.
func (m *Monitor) checkEstopClear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.estopActive {
		return
	}

	cutoff := time.Now().Add(-m.cfg.ClearWindow)
	for i := len(m.detections) - 1; i >= 0; i-- {
		d := m.detections[i]
		if d.Timestamp.Before(cutoff) {
			break
		}
		if d.Severity == SeverityCritical {
			return
		}
	}

	m.estopActive = false
	m.logger.Info("emergency stop cleared",
		"clear_window_s", m.cfg.ClearWindow.Seconds(),
	)
}

// publishStatus emits the periodic health and statistics report.
func (m *Monitor) publishStatus() {
	status := m.buildStatus()
	topic := bus.Topics{}.Status(statusID)
	if err := m.bus.Publish(topic, status, 0, false); err != nil {
		m.logger.Warn("status publish failed", "error", err)
	}
}

// buildStatus snapshots the monitor state into a status message.
func (m *Monitor) buildStatus() StatusMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := stateMonitoring
	message := "monitoring active"
	if m.estopActive {
		state = stateEmergencyStop
		message = "emergency stop latched"
	}

	var avgMs, maxMs float64
	if n := len(m.processingTimes); n > 0 {
		var total time.Duration
		for _, d := range m.processingTimes {
			total += d
			if ms := float64(d.Microseconds()) / 1000; ms > maxMs {
				maxMs = ms
			}
		}
		avgMs = float64(total.Microseconds()) / 1000 / float64(n)
	}

	return StatusMessage{
		Status:          state,
		Message:         message,
		UptimeSeconds:   time.Since(m.startTime).Seconds(),
		TriggerCount:    m.triggerCount,
		DetectionCount:  m.detectionCount,
		AvgProcessingMs: avgMs,
		MaxProcessingMs: maxMs,
		Config: statusConfig{
			ObstacleThreshold:    m.cfg.ObstacleThreshold,
			EmergencyStopTimeout: m.cfg.EmergencyStopTimeout.Seconds(),
			ZoneCount:            len(m.zones),
		},
	}
}

// watchdogLoop independently verifies that the safety loop itself can
// meet its real-time contract.
func (m *Monitor) watchdogLoop() {
	defer m.wg.Done()

	interval := m.cfg.WatchdogInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.runWatchdogChecks()
		}
	}
}

// runWatchdogChecks compares average processing latency with the
// emergency-stop budget and verifies bus connectivity.
func (m *Monitor) runWatchdogChecks() {
	m.mu.Lock()
	var avg time.Duration
	if n := len(m.processingTimes); n > 0 {
		var total time.Duration
		for _, d := range m.processingTimes {
			total += d
		}
		avg = total / time.Duration(n)
	}
	m.mu.Unlock()

	if m.cfg.EmergencyStopTimeout > 0 && avg > m.cfg.EmergencyStopTimeout {
		m.logger.Warn("safety loop slower than emergency stop budget",
			"avg_processing_ms", float64(avg.Microseconds())/1000,
			"budget_ms", float64(m.cfg.EmergencyStopTimeout.Microseconds())/1000,
		)
	}

	if !m.bus.IsConnected() {
		m.logger.Warn("watchdog: message bus disconnected")
	}
}

// EstopActive reports whether the emergency-stop latch is set.
func (m *Monitor) EstopActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.estopActive
}

// Status returns a point-in-time statistics snapshot.
func (m *Monitor) Status() StatusMessage {
	return m.buildStatus()
}
