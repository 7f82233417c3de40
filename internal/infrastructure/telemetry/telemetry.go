package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Writer connection constants.
const (
	// healthCheckTimeout is the timeout for health check operations.
	healthCheckTimeout = 5 * time.Second
)

// measurementPose is the measurement name for robot pose samples.
const measurementPose = "robot_pose"

// Config contains telemetry writer configuration.
// These map to the telemetry section of config.yaml.
type Config struct {
	// URL is the InfluxDB server URL (e.g., "http://localhost:8086").
	URL string

	// Token is the InfluxDB API token for authentication.
	Token string

	// Org is the InfluxDB organization name.
	Org string

	// Bucket is the InfluxDB bucket for telemetry data.
	Bucket string

	// BatchSize is the number of points to batch before writing.
	BatchSize int

	// FlushInterval is the maximum time between flushes (milliseconds).
	FlushInterval int
}

// Pose is one robot pose sample destined for the time-series store.
type Pose struct {
	RobotID         string
	X               float64
	Y               float64
	Heading         float64
	LinearVelocity  float64
	AngularVelocity float64
	Status          string
	Timestamp       time.Time
}

// Writer streams robot pose samples to InfluxDB using the non-blocking
// write API. Points are batched client-side; WritePose never waits on
// the network, so a slow or absent InfluxDB cannot stall the 10 Hz
// state publisher.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      Config

	// errMu protects onError.
	errMu   sync.RWMutex
	onError func(error)

	// done signals the error-monitoring goroutine to exit.
	done chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// Connect creates a telemetry writer and verifies server connectivity.
//
// Parameters:
//   - ctx: Context for the initial health check
//   - cfg: Writer configuration
//
// Returns:
//   - *Writer: Connected writer ready for use
//   - error: If the server is unreachable or reports unhealthy
func Connect(ctx context.Context, cfg Config) (*Writer, error) {
	options := influxdb2.DefaultOptions().
		SetBatchSize(uint(cfg.BatchSize)).
		SetFlushInterval(uint(cfg.FlushInterval))

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, options)

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	health, err := client.Health(checkCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("%w: status %s", ErrUnhealthy, health.Status)
	}

	w := &Writer{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:      cfg,
		done:     make(chan struct{}),
	}

	// The async write API reports failures on a channel; surface them
	// through the registered callback.
	w.wg.Add(1)
	go w.monitorErrors()

	return w, nil
}

// monitorErrors forwards async write errors to the registered callback.
func (w *Writer) monitorErrors() {
	defer w.wg.Done()

	errCh := w.writeAPI.Errors()
	for {
		select {
		case err, ok := <-errCh:
			if !ok {
				return
			}
			w.errMu.RLock()
			cb := w.onError
			w.errMu.RUnlock()
			if cb != nil {
				cb(fmt.Errorf("%w: %v", ErrWriteFailed, err))
			}
		case <-w.done:
			return
		}
	}
}

// SetOnError registers a callback invoked for asynchronous write
// failures. Pass nil to clear.
func (w *Writer) SetOnError(cb func(error)) {
	w.errMu.Lock()
	w.onError = cb
	w.errMu.Unlock()
}

// WritePose queues one pose sample for batched delivery.
// Non-blocking; errors surface via the SetOnError callback.
func (w *Writer) WritePose(p Pose) {
	point := influxdb2.NewPoint(
		measurementPose,
		map[string]string{
			"robot_id": p.RobotID,
			"status":   p.Status,
		},
		map[string]interface{}{
			"x":                p.X,
			"y":                p.Y,
			"heading":          p.Heading,
			"linear_velocity":  p.LinearVelocity,
			"angular_velocity": p.AngularVelocity,
		},
		p.Timestamp,
	)
	w.writeAPI.WritePoint(point)
}

// Flush forces any buffered points to be written immediately.
func (w *Writer) Flush() {
	w.writeAPI.Flush()
}

// HealthCheck verifies the InfluxDB server is reachable and healthy.
func (w *Writer) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	health, err := w.client.Health(checkCtx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if health.Status != "pass" {
		return fmt.Errorf("%w: status %s", ErrUnhealthy, health.Status)
	}
	return nil
}

// Close flushes buffered points and releases the client.
// Safe to call multiple times.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.writeAPI.Flush()
		w.wg.Wait()
		w.client.Close()
	})
}
