package telemetry

import "errors"

// Telemetry writer errors.
var (
	// ErrConnectionFailed indicates the InfluxDB server could not be reached.
	ErrConnectionFailed = errors.New("telemetry: connection failed")

	// ErrUnhealthy indicates the server responded but reported an
	// unhealthy status.
	ErrUnhealthy = errors.New("telemetry: server unhealthy")

	// ErrWriteFailed indicates an asynchronous batch write failed.
	ErrWriteFailed = errors.New("telemetry: write failed")
)
